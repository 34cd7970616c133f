package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"viajes/internal/core"

	_ "modernc.org/sqlite"
)

var (
	// ErrStoreUnavailable marks store-level failures. The operation was
	// aborted with no partial state; callers decide whether to retry.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound is returned when a single-row lookup matches nothing.
	ErrNotFound = errors.New("not found")
)

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStoreUnavailable, err))
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL keeps readers unblocked while the single writer holds the lock;
	// busy_timeout makes concurrent upserts queue instead of failing.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ---------------------------------------------------------------
// Viajes (append-only trip log)
// ---------------------------------------------------------------

// AppendTrip records a completed trip. The table is append-only; nothing
// in this subsystem ever updates or deletes from it.
func (r *SQLiteRepository) AppendTrip(ctx context.Context, t core.Trip) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO viajes (origen, destino, km, conductor, fecha) VALUES (?, ?, ?, ?, ?)`,
		t.Origen, t.Destino, t.Km, t.Conductor, t.Fecha.ISO())
	if err != nil {
		return 0, storeErr("append trip", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeErr("append trip id", err)
	}

	slog.InfoContext(ctx, "Trip saved",
		"id", id,
		"origen", t.Origen,
		"destino", t.Destino,
		"km", t.Km,
		"fecha", t.Fecha.ISO())

	return id, nil
}

// ---------------------------------------------------------------
// Rutas frecuentes
// ---------------------------------------------------------------

const routeColumns = `id, origen, destino, km_estimados, tiempo_estimado, veces_realizada,
	ultimo_viaje, km_total_acumulado, consumo_promedio, created_at, updated_at`

// UpsertRoute applies one trip to the frequent-route summary in a single
// atomic statement: get-or-create plus increment-in-place. Concurrent calls
// for the same pair serialize on the row; different pairs are independent.
// Origin and destination must already be normalized.
func (r *SQLiteRepository) UpsertRoute(ctx context.Context, origen, destino string, km int64, fecha core.Date) (core.Route, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO rutas_frecuentes (origen, destino, km_estimados, veces_realizada, ultimo_viaje, km_total_acumulado)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(origen, destino) DO UPDATE SET
			veces_realizada    = veces_realizada + 1,
			km_total_acumulado = km_total_acumulado + excluded.km_total_acumulado,
			km_estimados       = (km_total_acumulado + excluded.km_total_acumulado) / (veces_realizada + 1),
			ultimo_viaje       = excluded.ultimo_viaje,
			updated_at         = CURRENT_TIMESTAMP
		RETURNING `+routeColumns,
		origen, destino, km, fecha.ISO(), km)

	route, err := scanRoute(row)
	if err != nil {
		return core.Route{}, storeErr("upsert route", err)
	}
	return route, nil
}

// SetRouteConsumption updates the average fuel consumption of a route.
// Separate from UpsertRoute: consumption is only touched when explicit data
// arrives, never recomputed from the trip itself.
func (r *SQLiteRepository) SetRouteConsumption(ctx context.Context, origen, destino string, consumo float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE rutas_frecuentes
		SET consumo_promedio = ?, updated_at = CURRENT_TIMESTAMP
		WHERE origen = ? AND destino = ?`,
		consumo, origen, destino)
	if err != nil {
		return storeErr("set route consumption", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set route consumption %s-%s: %w", origen, destino, ErrNotFound)
	}
	return nil
}

// GetRoute fetches one summary row by normalized pair.
func (r *SQLiteRepository) GetRoute(ctx context.Context, origen, destino string) (core.Route, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+routeColumns+` FROM rutas_frecuentes WHERE origen = ? AND destino = ?`,
		origen, destino)
	route, err := scanRoute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Route{}, fmt.Errorf("route %s-%s: %w", origen, destino, ErrNotFound)
	}
	if err != nil {
		return core.Route{}, storeErr("get route", err)
	}
	return route, nil
}

// TopRoutes returns up to limit routes ordered by trip count, most recent
// last trip breaking ties. Zero rows is an empty slice, not an error.
func (r *SQLiteRepository) TopRoutes(ctx context.Context, limit int) ([]core.Route, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+routeColumns+`
		FROM rutas_frecuentes
		ORDER BY veces_realizada DESC, ultimo_viaje DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, storeErr("top routes", err)
	}
	defer rows.Close()

	routes := []core.Route{}
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, storeErr("scan top route", err)
		}
		routes = append(routes, route)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate top routes", err)
	}
	return routes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(row rowScanner) (core.Route, error) {
	var (
		route     core.Route
		ultimo    sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(&route.ID, &route.Origen, &route.Destino, &route.KmEstimados,
		&route.TiempoEstimado, &route.VecesRealizada, &ultimo,
		&route.KmTotalAcumulado, &route.ConsumoPromedio, &createdAt, &updatedAt)
	if err != nil {
		return core.Route{}, err
	}
	if ultimo.Valid {
		if d, err := core.ParseDate(ultimo.String); err == nil {
			route.UltimoViaje = d
		}
	}
	route.CreatedAt = parseTimestamp(createdAt)
	route.UpdatedAt = parseTimestamp(updatedAt)
	return route, nil
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02T15:04:05Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ---------------------------------------------------------------
// Gastos
// ---------------------------------------------------------------

// CreateExpense appends one validated expense entry.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	var viajeID any
	if e.ViajeID != nil {
		viajeID = *e.ViajeID
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO gastos (viaje_id, conductor, categoria, importe_cents, descripcion, fecha)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		viajeID, e.Conductor, string(e.Categoria), e.Importe.Cents, e.Descripcion, e.Fecha.ISO())
	if err != nil {
		return 0, storeErr("create expense", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeErr("create expense id", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"categoria", string(e.Categoria),
		"importe_cents", e.Importe.Cents,
		"fecha", e.Fecha.ISO())

	return id, nil
}

// CategorySummary rolls up expenses with fecha >= desde by category.
// Categories without entries in the window are omitted. Averages are
// rounded half-up to whole cents.
func (r *SQLiteRepository) CategorySummary(ctx context.Context, desde core.Date) (map[core.Categoria]core.CategoryStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT categoria, COUNT(*), SUM(importe_cents)
		FROM gastos
		WHERE fecha >= ?
		GROUP BY categoria`, desde.ISO())
	if err != nil {
		return nil, storeErr("category summary", err)
	}
	defer rows.Close()

	summary := make(map[core.Categoria]core.CategoryStats)
	for rows.Next() {
		var (
			cat   string
			count int64
			total int64
		)
		if err := rows.Scan(&cat, &count, &total); err != nil {
			return nil, storeErr("scan category summary", err)
		}
		avg := (total + count/2) / count
		summary[core.Categoria(cat)] = core.CategoryStats{
			Count:   count,
			Total:   core.Money{Cents: total},
			Average: core.Money{Cents: avg},
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate category summary", err)
	}
	return summary, nil
}

// CountGastos returns the total number of expense rows.
func (r *SQLiteRepository) CountGastos(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gastos`).Scan(&n); err != nil {
		return 0, storeErr("count gastos", err)
	}
	return n, nil
}

// ---------------------------------------------------------------
// Cierres
// ---------------------------------------------------------------

// ClaimClosure attempts to claim the given date for a closure run. The claim
// is a single atomic statement: it inserts a RUNNING row for a new date, or
// flips a FAILED row back to RUNNING. Dates already SUCCEEDED or RUNNING are
// not claimed. Returns whether the claim won and the state found for the date
// before the claim ("" when no record existed).
func (r *SQLiteRepository) ClaimClosure(ctx context.Context, fecha core.Date) (bool, core.EstadoCierre, error) {
	var prior core.EstadoCierre
	err := r.db.QueryRowContext(ctx,
		`SELECT estado FROM cierres WHERE fecha = ?`, fecha.ISO()).Scan(&prior)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, "", storeErr("read closure record", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO cierres (fecha, estado) VALUES (?, ?)
		ON CONFLICT(fecha) DO UPDATE SET
			estado = excluded.estado,
			updated_at = CURRENT_TIMESTAMP
		WHERE cierres.estado = ?`,
		fecha.ISO(), string(core.CierreRunning), string(core.CierreFailed))
	if err != nil {
		return false, prior, storeErr("claim closure", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, prior, storeErr("claim closure rows", err)
	}
	if n == 0 {
		// Lost the claim: re-read so the caller sees the winning state.
		if err := r.db.QueryRowContext(ctx,
			`SELECT estado FROM cierres WHERE fecha = ?`, fecha.ISO()).Scan(&prior); err != nil {
			return false, prior, storeErr("read closure record", err)
		}
		return false, prior, nil
	}
	return true, prior, nil
}

// FinishClosure moves the date's record to a terminal state.
func (r *SQLiteRepository) FinishClosure(ctx context.Context, fecha core.Date, estado core.EstadoCierre, senal int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE cierres SET estado = ?, senal = ?, updated_at = CURRENT_TIMESTAMP
		WHERE fecha = ?`,
		string(estado), senal, fecha.ISO())
	if err != nil {
		return storeErr("finish closure", err)
	}
	return nil
}

// ExpireClosure flips a closure row to FAILED in one guarded statement. Only
// a row still in the expected state (and, when a cutoff is given, untouched
// since before it) is flipped, so concurrent expirers race on RowsAffected
// instead of clobbering each other's claim. Returns whether this caller won.
func (r *SQLiteRepository) ExpireClosure(ctx context.Context, fecha core.Date, expected core.EstadoCierre, before time.Time) (bool, error) {
	query := `UPDATE cierres SET estado = ?, senal = 1, updated_at = CURRENT_TIMESTAMP
		WHERE fecha = ? AND estado = ?`
	args := []any{string(core.CierreFailed), fecha.ISO(), string(expected)}
	if !before.IsZero() {
		query += ` AND updated_at < ?`
		args = append(args, before.UTC().Format("2006-01-02 15:04:05"))
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, storeErr("expire closure", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("expire closure rows", err)
	}
	return n == 1, nil
}

// GetClosure fetches the closure record for a date.
func (r *SQLiteRepository) GetClosure(ctx context.Context, fecha core.Date) (core.ClosureRecord, error) {
	var (
		rec       core.ClosureRecord
		fechaStr  string
		createdAt string
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT fecha, estado, senal, created_at, updated_at FROM cierres WHERE fecha = ?`,
		fecha.ISO()).Scan(&fechaStr, &rec.Estado, &rec.Senal, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ClosureRecord{}, fmt.Errorf("closure %s: %w", fecha.ISO(), ErrNotFound)
	}
	if err != nil {
		return core.ClosureRecord{}, storeErr("get closure", err)
	}
	if d, perr := core.ParseDate(fechaStr); perr == nil {
		rec.Fecha = d
	}
	rec.CreatedAt = parseTimestamp(createdAt)
	rec.UpdatedAt = parseTimestamp(updatedAt)
	return rec, nil
}

// ---------------------------------------------------------------
// Logs criticos
// ---------------------------------------------------------------

// AppendCriticalLog records a critical failure pending notification.
func (r *SQLiteRepository) AppendCriticalLog(ctx context.Context, modulo string, nivel core.Nivel, mensaje string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO logs_criticos (modulo, nivel, mensaje, notificado) VALUES (?, ?, ?, 0)`,
		modulo, string(nivel), mensaje)
	if err != nil {
		return 0, storeErr("append critical log", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeErr("append critical log id", err)
	}
	return id, nil
}

// UnnotifiedCriticalLogs lists entries still pending downstream alerting.
func (r *SQLiteRepository) UnnotifiedCriticalLogs(ctx context.Context, limit int) ([]core.CriticalLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, fecha, modulo, nivel, mensaje, notificado
		FROM logs_criticos
		WHERE notificado = 0
		ORDER BY id
		LIMIT ?`, limit)
	if err != nil {
		return nil, storeErr("unnotified critical logs", err)
	}
	defer rows.Close()

	logs := []core.CriticalLog{}
	for rows.Next() {
		var (
			entry    core.CriticalLog
			fecha    string
			notified int64
		)
		if err := rows.Scan(&entry.ID, &fecha, &entry.Modulo, &entry.Nivel, &entry.Mensaje, &notified); err != nil {
			return nil, storeErr("scan critical log", err)
		}
		entry.Fecha = parseTimestamp(fecha)
		entry.Notificado = notified != 0
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate critical logs", err)
	}
	return logs, nil
}

// MarkNotified flags one critical log entry as delivered.
func (r *SQLiteRepository) MarkNotified(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE logs_criticos SET notificado = 1 WHERE id = ?`, id); err != nil {
		return storeErr("mark notified", err)
	}
	return nil
}

// CountCriticalLogs returns the total number of critical log rows.
func (r *SQLiteRepository) CountCriticalLogs(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM logs_criticos`).Scan(&n); err != nil {
		return 0, storeErr("count critical logs", err)
	}
	return n, nil
}

// ---------------------------------------------------------------
// Backups e informes (write sinks)
// ---------------------------------------------------------------

// RecordBackup appends one backup audit row.
func (r *SQLiteRepository) RecordBackup(ctx context.Context, b core.Backup) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO backups (archivo, tamano_kb, destino, estado) VALUES (?, ?, ?, ?)`,
		b.Archivo, b.TamanoKB, string(b.Destino), b.Estado)
	if err != nil {
		return storeErr("record backup", err)
	}
	return nil
}

// SaveInforme persists a generated report payload.
func (r *SQLiteRepository) SaveInforme(ctx context.Context, tipo string, inicio, fin core.Date, datosJSON []byte) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO informes (tipo, fecha_inicio, fecha_fin, datos_json) VALUES (?, ?, ?, ?)`,
		tipo, inicio.ISO(), fin.ISO(), string(datosJSON))
	if err != nil {
		return 0, storeErr("save informe", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeErr("save informe id", err)
	}
	return id, nil
}

// ---------------------------------------------------------------
// Report reads over the trip log
// ---------------------------------------------------------------

// TripTotals counts trips and accumulated km inside [desde, hasta].
func (r *SQLiteRepository) TripTotals(ctx context.Context, desde, hasta core.Date) (int64, int64, error) {
	var (
		viajes int64
		km     sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(km) FROM viajes WHERE fecha >= ? AND fecha <= ?`,
		desde.ISO(), hasta.ISO()).Scan(&viajes, &km)
	if err != nil {
		return 0, 0, storeErr("trip totals", err)
	}
	return viajes, km.Int64, nil
}

// TopConductores lists the busiest drivers of the window.
func (r *SQLiteRepository) TopConductores(ctx context.Context, desde, hasta core.Date, limit int) ([]core.DriverUsage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT conductor, COUNT(*), SUM(km)
		FROM viajes
		WHERE fecha >= ? AND fecha <= ? AND conductor != ''
		GROUP BY conductor
		ORDER BY COUNT(*) DESC
		LIMIT ?`, desde.ISO(), hasta.ISO(), limit)
	if err != nil {
		return nil, storeErr("top conductores", err)
	}
	defer rows.Close()

	usage := []core.DriverUsage{}
	for rows.Next() {
		var u core.DriverUsage
		if err := rows.Scan(&u.Conductor, &u.Viajes, &u.Km); err != nil {
			return nil, storeErr("scan conductor usage", err)
		}
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate conductor usage", err)
	}
	return usage, nil
}

// RouteUsageWindow lists the most driven pairs of the window.
func (r *SQLiteRepository) RouteUsageWindow(ctx context.Context, desde, hasta core.Date, limit int) ([]core.RouteUsage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT origen, destino, COUNT(*)
		FROM viajes
		WHERE fecha >= ? AND fecha <= ?
		GROUP BY origen, destino
		ORDER BY COUNT(*) DESC
		LIMIT ?`, desde.ISO(), hasta.ISO(), limit)
	if err != nil {
		return nil, storeErr("route usage", err)
	}
	defer rows.Close()

	usage := []core.RouteUsage{}
	for rows.Next() {
		var u core.RouteUsage
		if err := rows.Scan(&u.Origen, &u.Destino, &u.Veces); err != nil {
			return nil, storeErr("scan route usage", err)
		}
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate route usage", err)
	}
	return usage, nil
}

// ConductorStats aggregates one driver's window: trips, km, distinct
// destinations.
func (r *SQLiteRepository) ConductorStats(ctx context.Context, conductor string, desde core.Date) (viajes, km, destinos int64, err error) {
	var sumKm sql.NullInt64
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(km), COUNT(DISTINCT destino)
		FROM viajes
		WHERE conductor = ? AND fecha >= ?`,
		conductor, desde.ISO()).Scan(&viajes, &sumKm, &destinos)
	if err != nil {
		return 0, 0, 0, storeErr("conductor stats", err)
	}
	return viajes, sumKm.Int64, destinos, nil
}

// DestinosFrecuentes lists a driver's most visited destinations.
func (r *SQLiteRepository) DestinosFrecuentes(ctx context.Context, conductor string, desde core.Date, limit int) ([]core.DestinoUsage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT destino, COUNT(*)
		FROM viajes
		WHERE conductor = ? AND fecha >= ?
		GROUP BY destino
		ORDER BY COUNT(*) DESC
		LIMIT ?`, conductor, desde.ISO(), limit)
	if err != nil {
		return nil, storeErr("destinos frecuentes", err)
	}
	defer rows.Close()

	usage := []core.DestinoUsage{}
	for rows.Next() {
		var u core.DestinoUsage
		if err := rows.Scan(&u.Destino, &u.Veces); err != nil {
			return nil, storeErr("scan destino usage", err)
		}
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate destino usage", err)
	}
	return usage, nil
}
