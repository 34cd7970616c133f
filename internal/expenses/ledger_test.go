package expenses

import (
	"context"
	"errors"
	"testing"
	"time"

	"viajes/internal/core"
)

type fakeStore struct {
	expenses  []core.Expense
	lastDesde core.Date
	summary   map[core.Categoria]core.CategoryStats
	createErr error
}

func (f *fakeStore) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.expenses = append(f.expenses, e)
	return int64(len(f.expenses)), nil
}

func (f *fakeStore) CategorySummary(ctx context.Context, desde core.Date) (map[core.Categoria]core.CategoryStats, error) {
	f.lastDesde = desde
	return f.summary, nil
}

func fixedClock(year, month, day int) func() time.Time {
	return func() time.Time {
		return time.Date(year, time.Month(month), day, 15, 4, 5, 0, time.UTC)
	}
}

func TestRecordExpenseDefaultsDate(t *testing.T) {
	store := &fakeStore{}
	ledger := NewLedger(store)
	ledger.now = fixedClock(2026, 8, 15)

	id, err := ledger.RecordExpense(context.Background(), core.Expense{
		Categoria: core.Combustible,
		Importe:   core.Money{Cents: 8000},
	})
	if err != nil {
		t.Fatalf("RecordExpense: %v", err)
	}
	if id != 1 {
		t.Errorf("id = %d, want 1", id)
	}
	if got := store.expenses[0].Fecha.ISO(); got != "2026-08-15" {
		t.Errorf("fecha = %s, want today", got)
	}
}

func TestRecordExpenseValidation(t *testing.T) {
	tests := []struct {
		name    string
		expense core.Expense
		want    error
	}{
		{"negative amount", core.Expense{Categoria: core.Peaje, Importe: core.Money{Cents: -1}}, core.ErrInvalidAmount},
		{"unknown category", core.Expense{Categoria: "TABACO", Importe: core.Money{Cents: 100}}, core.ErrUnknownCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			ledger := NewLedger(store)

			_, err := ledger.RecordExpense(context.Background(), tt.expense)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if len(store.expenses) != 0 {
				t.Error("rejected expense must not reach the store")
			}
		})
	}
}

func TestRecordExpenseZeroAmountValid(t *testing.T) {
	store := &fakeStore{}
	ledger := NewLedger(store)

	// A comped cost is a legitimate zero entry.
	_, err := ledger.RecordExpense(context.Background(), core.Expense{
		Categoria: core.Parking,
		Importe:   core.Money{Cents: 0},
		Fecha:     core.NewDate(2026, 8, 1),
	})
	if err != nil {
		t.Fatalf("RecordExpense: %v", err)
	}
}

func TestCategorySummaryWindow(t *testing.T) {
	store := &fakeStore{summary: map[core.Categoria]core.CategoryStats{}}
	ledger := NewLedger(store)
	ledger.now = fixedClock(2026, 8, 31)

	if _, err := ledger.CategorySummary(context.Background(), 7); err != nil {
		t.Fatalf("CategorySummary: %v", err)
	}
	if got := store.lastDesde.ISO(); got != "2026-08-24" {
		t.Errorf("desde = %s, want 2026-08-24", got)
	}

	// Non-positive windows fall back to 30 days.
	if _, err := ledger.CategorySummary(context.Background(), 0); err != nil {
		t.Fatalf("CategorySummary default: %v", err)
	}
	if got := store.lastDesde.ISO(); got != "2026-08-01" {
		t.Errorf("default desde = %s, want 2026-08-01", got)
	}
}
