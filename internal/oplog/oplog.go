// Package oplog is the operational log: an append-only record of critical
// errors with a notified flag read by downstream alerting.
package oplog

import (
	"context"
	"fmt"
	"log/slog"

	"viajes/internal/core"
)

// Store is the persistence surface for critical log entries.
type Store interface {
	AppendCriticalLog(ctx context.Context, modulo string, nivel core.Nivel, mensaje string) (int64, error)
	UnnotifiedCriticalLogs(ctx context.Context, limit int) ([]core.CriticalLog, error)
	MarkNotified(ctx context.Context, id int64) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Critical records a critical failure. The entry lands with notificado=0 so
// the alerting side can pick it up later.
func (s *Service) Critical(ctx context.Context, modulo, mensaje string) error {
	return s.append(ctx, modulo, core.NivelCritical, mensaje)
}

// Error records a non-critical but durable error.
func (s *Service) Error(ctx context.Context, modulo, mensaje string) error {
	return s.append(ctx, modulo, core.NivelError, mensaje)
}

func (s *Service) append(ctx context.Context, modulo string, nivel core.Nivel, mensaje string) error {
	id, err := s.store.AppendCriticalLog(ctx, modulo, nivel, mensaje)
	if err != nil {
		// The operational log is the last line of defense; if it is down we
		// can only say so on the process log.
		slog.ErrorContext(ctx, "Failed to append operational log entry",
			"modulo", modulo, "nivel", string(nivel), "error", err)
		return fmt.Errorf("append operational log: %w", err)
	}

	slog.ErrorContext(ctx, mensaje, "modulo", modulo, "nivel", string(nivel), "oplog_id", id)
	return nil
}

// PendingAlerts lists entries not yet delivered to the notification side.
func (s *Service) PendingAlerts(ctx context.Context, limit int) ([]core.CriticalLog, error) {
	if limit <= 0 {
		limit = 50
	}
	logs, err := s.store.UnnotifiedCriticalLogs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("pending alerts: %w", err)
	}
	return logs, nil
}

// MarkNotified flags an entry as delivered. Called by the notification
// integration once an alert actually went out.
func (s *Service) MarkNotified(ctx context.Context, id int64) error {
	if err := s.store.MarkNotified(ctx, id); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}
