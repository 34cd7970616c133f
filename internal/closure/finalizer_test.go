package closure

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"viajes/internal/core"
)

type fakeRoutes struct {
	routes []core.Route
	err    error
}

func (f fakeRoutes) TopRoutes(ctx context.Context, limit int) ([]core.Route, error) {
	return f.routes, f.err
}

type fakeExpenses struct {
	err error
}

func (f fakeExpenses) CategorySummary(ctx context.Context, windowDays int) (map[core.Categoria]core.CategoryStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return map[core.Categoria]core.CategoryStats{}, nil
}

type fakeBackups struct {
	recorded []core.Backup
}

func (f *fakeBackups) RecordBackup(ctx context.Context, b core.Backup) error {
	f.recorded = append(f.recorded, b)
	return nil
}

func writeStoreFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "viajes.db")
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("write store file: %v", err)
	}
	return path
}

func TestFinalizeAuditsStoreInPlace(t *testing.T) {
	storePath := writeStoreFile(t, 4096)
	backups := &fakeBackups{}
	f := NewDayFinalizer(fakeRoutes{}, fakeExpenses{}, backups, Config{StorePath: storePath})

	if err := f.Finalize(context.Background(), core.NewDate(2026, 8, 31)); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(backups.recorded) != 1 {
		t.Fatalf("recorded = %d backups, want 1", len(backups.recorded))
	}
	b := backups.recorded[0]
	if b.Archivo != "viajes.db" || b.TamanoKB != 4 || b.Destino != core.DestinoLocal || b.Estado != "OK" {
		t.Errorf("backup = %+v", b)
	}
}

func TestFinalizeCopiesIntoBackupDir(t *testing.T) {
	storePath := writeStoreFile(t, 2048)
	backupDir := filepath.Join(t.TempDir(), "backups")
	backups := &fakeBackups{}
	f := NewDayFinalizer(fakeRoutes{}, fakeExpenses{}, backups, Config{
		StorePath: storePath,
		BackupDir: backupDir,
	})

	if err := f.Finalize(context.Background(), core.NewDate(2026, 8, 31)); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	copied := filepath.Join(backupDir, "viajes_2026-08-31.db")
	info, err := os.Stat(copied)
	if err != nil {
		t.Fatalf("backup copy missing: %v", err)
	}
	if info.Size() != 2048 {
		t.Errorf("copy size = %d, want 2048", info.Size())
	}
	if backups.recorded[0].Archivo != "viajes_2026-08-31.db" {
		t.Errorf("archivo = %s", backups.recorded[0].Archivo)
	}

	// Re-running the day overwrites the copy instead of failing.
	if err := f.Finalize(context.Background(), core.NewDate(2026, 8, 31)); err != nil {
		t.Fatalf("second Finalize: %v", err)
	}
}

func TestFinalizeMissingStoreFile(t *testing.T) {
	backups := &fakeBackups{}
	f := NewDayFinalizer(fakeRoutes{}, fakeExpenses{}, backups, Config{
		StorePath: filepath.Join(t.TempDir(), "nope.db"),
	})

	if err := f.Finalize(context.Background(), core.NewDate(2026, 8, 31)); err == nil {
		t.Fatal("expected error for missing store file")
	}
	if len(backups.recorded) != 0 {
		t.Error("no backup row for a missing file")
	}
}

func TestFinalizeReadFailureAborts(t *testing.T) {
	backups := &fakeBackups{}
	f := NewDayFinalizer(fakeRoutes{err: errors.New("store down")}, fakeExpenses{}, backups, Config{})

	if err := f.Finalize(context.Background(), core.NewDate(2026, 8, 31)); err == nil {
		t.Fatal("expected error")
	}
	if len(backups.recorded) != 0 {
		t.Error("backup must not be audited after a failed read")
	}
}
