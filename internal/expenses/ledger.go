// Package expenses is the append-only per-trip expense ledger with
// categorical rollups over a trailing window.
package expenses

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"viajes/internal/core"
)

// Store is the persistence surface the ledger needs.
type Store interface {
	CreateExpense(ctx context.Context, e core.Expense) (int64, error)
	CategorySummary(ctx context.Context, desde core.Date) (map[core.Categoria]core.CategoryStats, error)
}

type Ledger struct {
	store Store
	now   func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// RecordExpense validates and appends one expense entry. Validation happens
// before any write: a rejected expense leaves no row behind. The date
// defaults to today when omitted. The trip reference is weak; an expense may
// outlive its trip.
func (l *Ledger) RecordExpense(ctx context.Context, e core.Expense) (int64, error) {
	if e.Fecha.IsEmpty() {
		e.Fecha = core.DateOf(l.now())
	}
	e.Conductor = core.NormalizeLugar(e.Conductor)

	if err := e.Validate(); err != nil {
		return 0, fmt.Errorf("validate expense: %w", err)
	}

	id, err := l.store.CreateExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("record expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense recorded",
		"id", id,
		"categoria", string(e.Categoria),
		"importe_cents", e.Importe.Cents)

	return id, nil
}

// CategorySummary rolls up entries with date >= today-windowDays into
// per-category count/total/average. Categories with no entries in the window
// are omitted, not zero-filled.
func (l *Ledger) CategorySummary(ctx context.Context, windowDays int) (map[core.Categoria]core.CategoryStats, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	desde := core.DateOf(l.now().AddDate(0, 0, -windowDays))
	summary, err := l.store.CategorySummary(ctx, desde)
	if err != nil {
		return nil, fmt.Errorf("category summary: %w", err)
	}
	return summary, nil
}
