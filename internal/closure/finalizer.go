package closure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"viajes/internal/core"
)

// RouteReader reads the current route aggregates.
type RouteReader interface {
	TopRoutes(ctx context.Context, limit int) ([]core.Route, error)
}

// ExpenseReader reads the trailing expense rollup.
type ExpenseReader interface {
	CategorySummary(ctx context.Context, windowDays int) (map[core.Categoria]core.CategoryStats, error)
}

// BackupSink receives the day's backup audit row.
type BackupSink interface {
	RecordBackup(ctx context.Context, b core.Backup) error
}

// DayFinalizer is the default finalization work: read the day's aggregates
// to settle them and back up the store file locally. Both steps are
// idempotent, so a re-run after failure repeats them safely.
type DayFinalizer struct {
	routes  RouteReader
	gastos  ExpenseReader
	backups BackupSink
	cfg     Config
}

func NewDayFinalizer(routes RouteReader, gastos ExpenseReader, backups BackupSink, cfg Config) *DayFinalizer {
	return &DayFinalizer{
		routes:  routes,
		gastos:  gastos,
		backups: backups,
		cfg:     cfg,
	}
}

func (f *DayFinalizer) Finalize(ctx context.Context, fecha core.Date) error {
	limit := f.cfg.TopRoutes
	if limit <= 0 {
		limit = 10
	}
	top, err := f.routes.TopRoutes(ctx, limit)
	if err != nil {
		return fmt.Errorf("read route aggregates: %w", err)
	}

	resumen, err := f.gastos.CategorySummary(ctx, 30)
	if err != nil {
		return fmt.Errorf("read expense rollup: %w", err)
	}

	slog.InfoContext(ctx, "Day aggregates settled",
		"fecha", fecha.ISO(),
		"rutas", len(top),
		"categorias_con_gasto", len(resumen))

	return f.backupStore(ctx, fecha)
}

// backupStore copies the store file into the backup directory (or, with no
// directory configured, audits it in place) and records the result. Shipping
// the copy anywhere (Drive, email) is the transport integration's job, not
// ours.
func (f *DayFinalizer) backupStore(ctx context.Context, fecha core.Date) error {
	archivo := f.cfg.StorePath
	if f.cfg.BackupDir != "" {
		copied, err := f.copyStore(fecha)
		if err != nil {
			return fmt.Errorf("copy store file: %w", err)
		}
		archivo = copied
	}

	info, err := os.Stat(archivo)
	if err != nil {
		return fmt.Errorf("stat backup file: %w", err)
	}
	b := core.Backup{
		Archivo:  filepath.Base(archivo),
		TamanoKB: info.Size() / 1024,
		Destino:  core.DestinoLocal,
		Estado:   "OK",
	}
	if err := f.backups.RecordBackup(ctx, b); err != nil {
		return fmt.Errorf("record backup: %w", err)
	}

	slog.InfoContext(ctx, "Store backed up",
		"archivo", b.Archivo, "tamano_kb", b.TamanoKB)
	return nil
}

func (f *DayFinalizer) copyStore(fecha core.Date) (string, error) {
	if err := os.MkdirAll(f.cfg.BackupDir, 0755); err != nil {
		return "", err
	}

	src, err := os.Open(f.cfg.StorePath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := fmt.Sprintf("viajes_%s.db", fecha.ISO())
	dstPath := filepath.Join(f.cfg.BackupDir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return dstPath, nil
}
