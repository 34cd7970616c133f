// Package reports generates the periodic activity summaries persisted to the
// informes sink. Reports are structured JSON payloads; rendering them for
// humans happens outside this subsystem.
package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"viajes/internal/core"
)

// Fleet-wide fuel estimate constants: average diesel burn per 100 km and
// average pump price per litre.
const (
	ConsumoMedio = 33.0
	PrecioDiesel = 1.45
)

const (
	TipoSemanal   = "SEMANAL"
	TipoMensual   = "MENSUAL"
	TipoConductor = "CONDUCTOR"
)

// Store is the persistence surface the generator reads and writes.
type Store interface {
	TripTotals(ctx context.Context, desde, hasta core.Date) (int64, int64, error)
	TopConductores(ctx context.Context, desde, hasta core.Date, limit int) ([]core.DriverUsage, error)
	RouteUsageWindow(ctx context.Context, desde, hasta core.Date, limit int) ([]core.RouteUsage, error)
	ConductorStats(ctx context.Context, conductor string, desde core.Date) (viajes, km, destinos int64, err error)
	DestinosFrecuentes(ctx context.Context, conductor string, desde core.Date, limit int) ([]core.DestinoUsage, error)
	SaveInforme(ctx context.Context, tipo string, inicio, fin core.Date, datosJSON []byte) (int64, error)
}

// ActivitySummary is the payload of weekly and monthly reports.
type ActivitySummary struct {
	Viajes           int64              `json:"viajes"`
	KmTotales        int64              `json:"km_totales"`
	ConsumoLitros    float64            `json:"consumo_litros"`
	CosteCombustible float64            `json:"coste_combustible"`
	TopConductores   []core.DriverUsage `json:"top_conductores"`
	TopRutas         []core.RouteUsage  `json:"top_rutas"`
}

// DriverSummary is the payload of per-driver reports.
type DriverSummary struct {
	Conductor          string              `json:"conductor"`
	Viajes             int64               `json:"viajes"`
	KmTotales          int64               `json:"km_totales"`
	KmPromedio         float64             `json:"km_promedio"`
	DestinosDistintos  int64               `json:"destinos_distintos"`
	DestinosFrecuentes []core.DestinoUsage `json:"destinos_frecuentes"`
}

type Generator struct {
	store Store
	now   func() time.Time
}

func NewGenerator(store Store) *Generator {
	return &Generator{store: store, now: time.Now}
}

// Weekly summarizes the trailing 7 days and persists it as SEMANAL.
func (g *Generator) Weekly(ctx context.Context) (ActivitySummary, error) {
	return g.activity(ctx, TipoSemanal, 7)
}

// Monthly summarizes the trailing 30 days and persists it as MENSUAL.
func (g *Generator) Monthly(ctx context.Context) (ActivitySummary, error) {
	return g.activity(ctx, TipoMensual, 30)
}

func (g *Generator) activity(ctx context.Context, tipo string, dias int) (ActivitySummary, error) {
	hasta := core.DateOf(g.now())
	desde := core.DateOf(g.now().AddDate(0, 0, -dias))

	viajes, km, err := g.store.TripTotals(ctx, desde, hasta)
	if err != nil {
		return ActivitySummary{}, fmt.Errorf("trip totals: %w", err)
	}

	conductores, err := g.store.TopConductores(ctx, desde, hasta, 5)
	if err != nil {
		return ActivitySummary{}, fmt.Errorf("top conductores: %w", err)
	}

	rutas, err := g.store.RouteUsageWindow(ctx, desde, hasta, 5)
	if err != nil {
		return ActivitySummary{}, fmt.Errorf("top rutas: %w", err)
	}

	litros := float64(km) * ConsumoMedio / 100
	summary := ActivitySummary{
		Viajes:           viajes,
		KmTotales:        km,
		ConsumoLitros:    litros,
		CosteCombustible: litros * PrecioDiesel,
		TopConductores:   conductores,
		TopRutas:         rutas,
	}

	if err := g.save(ctx, tipo, desde, hasta, summary); err != nil {
		return ActivitySummary{}, err
	}

	slog.InfoContext(ctx, "Report generated",
		"tipo", tipo, "viajes", viajes, "km", km)

	return summary, nil
}

// Driver summarizes one driver's trailing window and persists it as
// CONDUCTOR. The driver name is normalized like route endpoints.
func (g *Generator) Driver(ctx context.Context, conductor string, dias int) (DriverSummary, error) {
	conductor = core.NormalizeLugar(conductor)
	if conductor == "" {
		return DriverSummary{}, fmt.Errorf("empty conductor")
	}
	if dias <= 0 {
		dias = 30
	}

	hasta := core.DateOf(g.now())
	desde := core.DateOf(g.now().AddDate(0, 0, -dias))

	viajes, km, destinos, err := g.store.ConductorStats(ctx, conductor, desde)
	if err != nil {
		return DriverSummary{}, fmt.Errorf("conductor stats: %w", err)
	}

	frecuentes, err := g.store.DestinosFrecuentes(ctx, conductor, desde, 5)
	if err != nil {
		return DriverSummary{}, fmt.Errorf("destinos frecuentes: %w", err)
	}

	summary := DriverSummary{
		Conductor:          conductor,
		Viajes:             viajes,
		KmTotales:          km,
		DestinosDistintos:  destinos,
		DestinosFrecuentes: frecuentes,
	}
	if viajes > 0 {
		summary.KmPromedio = float64(km) / float64(viajes)
	}

	if err := g.save(ctx, TipoConductor, desde, hasta, summary); err != nil {
		return DriverSummary{}, err
	}

	return summary, nil
}

func (g *Generator) save(ctx context.Context, tipo string, desde, hasta core.Date, payload any) error {
	datos, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if _, err := g.store.SaveInforme(ctx, tipo, desde, hasta, datos); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}
