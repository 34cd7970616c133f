package oplog

import (
	"context"
	"errors"
	"testing"

	"viajes/internal/core"
)

type fakeStore struct {
	entries   []core.CriticalLog
	notified  []int64
	appendErr error
}

func (f *fakeStore) AppendCriticalLog(ctx context.Context, modulo string, nivel core.Nivel, mensaje string) (int64, error) {
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	f.entries = append(f.entries, core.CriticalLog{
		ID: int64(len(f.entries) + 1), Modulo: modulo, Nivel: nivel, Mensaje: mensaje,
	})
	return int64(len(f.entries)), nil
}

func (f *fakeStore) UnnotifiedCriticalLogs(ctx context.Context, limit int) ([]core.CriticalLog, error) {
	return f.entries, nil
}

func (f *fakeStore) MarkNotified(ctx context.Context, id int64) error {
	f.notified = append(f.notified, id)
	return nil
}

func TestCriticalAppends(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	if err := svc.Critical(context.Background(), "cierre_dia", "cierre fallido"); err != nil {
		t.Fatalf("Critical: %v", err)
	}
	if len(store.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(store.entries))
	}
	e := store.entries[0]
	if e.Modulo != "cierre_dia" || e.Nivel != core.NivelCritical || e.Mensaje != "cierre fallido" {
		t.Errorf("entry = %+v", e)
	}
}

func TestErrorLevel(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	if err := svc.Error(context.Background(), "informes", "informe no guardado"); err != nil {
		t.Fatalf("Error: %v", err)
	}
	if store.entries[0].Nivel != core.NivelError {
		t.Errorf("nivel = %s, want ERROR", store.entries[0].Nivel)
	}
}

func TestCriticalStoreDownSurfaces(t *testing.T) {
	store := &fakeStore{appendErr: errors.New("store down")}
	svc := NewService(store)

	if err := svc.Critical(context.Background(), "cierre_dia", "x"); err == nil {
		t.Fatal("expected error when the store is down")
	}
}

func TestMarkNotified(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	if err := svc.MarkNotified(context.Background(), 3); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	if len(store.notified) != 1 || store.notified[0] != 3 {
		t.Errorf("notified = %v", store.notified)
	}
}
