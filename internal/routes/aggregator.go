// Package routes maintains the frequent-route summaries: one row per unique
// origin/destination pair, incrementally updated as trips are recorded.
package routes

import (
	"context"
	"fmt"
	"log/slog"

	"viajes/internal/core"
)

// Store is the persistence surface the aggregator needs.
type Store interface {
	AppendTrip(ctx context.Context, t core.Trip) (int64, error)
	UpsertRoute(ctx context.Context, origen, destino string, km int64, fecha core.Date) (core.Route, error)
	SetRouteConsumption(ctx context.Context, origen, destino string, consumo float64) error
	TopRoutes(ctx context.Context, limit int) ([]core.Route, error)
}

type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// RecordTrip appends the trip to the trip log and folds it into the
// frequent-route summary. Route identity is case- and whitespace-insensitive.
// The upsert is a single atomic statement, so concurrent trips between the
// same pair never lose increments; the last trip's date wins on ultimo_viaje
// (trips are assumed chronological input). Store failures abort with no
// partial update; retrying is the caller's call.
func (a *Aggregator) RecordTrip(ctx context.Context, trip core.Trip) (core.Route, error) {
	trip.Origen = core.NormalizeLugar(trip.Origen)
	trip.Destino = core.NormalizeLugar(trip.Destino)
	trip.Conductor = core.NormalizeLugar(trip.Conductor)

	if err := trip.Validate(); err != nil {
		return core.Route{}, fmt.Errorf("validate trip: %w", err)
	}

	if _, err := a.store.AppendTrip(ctx, trip); err != nil {
		return core.Route{}, fmt.Errorf("record trip: %w", err)
	}

	route, err := a.store.UpsertRoute(ctx, trip.Origen, trip.Destino, trip.Km, trip.Fecha)
	if err != nil {
		return core.Route{}, fmt.Errorf("update route summary: %w", err)
	}

	slog.InfoContext(ctx, "Route summary updated",
		"origen", route.Origen,
		"destino", route.Destino,
		"veces_realizada", route.VecesRealizada,
		"km_total_acumulado", route.KmTotalAcumulado)

	return route, nil
}

// RecordConsumption sets a route's average fuel consumption from explicit
// data (a tachograph reading, a fuel receipt). Trips alone never touch it.
func (a *Aggregator) RecordConsumption(ctx context.Context, origen, destino string, consumo float64) error {
	origen = core.NormalizeLugar(origen)
	destino = core.NormalizeLugar(destino)
	if origen == "" || destino == "" {
		return core.ErrEmptyLugar
	}
	if consumo <= 0 {
		return fmt.Errorf("consumption must be positive: %v", consumo)
	}
	if err := a.store.SetRouteConsumption(ctx, origen, destino, consumo); err != nil {
		return fmt.Errorf("record consumption: %w", err)
	}
	return nil
}

// TopRoutes returns the limit most traveled routes, trip count descending,
// ties broken by most recent last trip. Read-only; an empty table yields an
// empty slice.
func (a *Aggregator) TopRoutes(ctx context.Context, limit int) ([]core.Route, error) {
	if limit <= 0 {
		limit = 10
	}
	routes, err := a.store.TopRoutes(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top routes: %w", err)
	}
	return routes, nil
}
