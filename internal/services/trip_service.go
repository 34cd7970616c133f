package services

import (
	"context"
	"fmt"
	"log/slog"

	"viajes/internal/amqp"
	"viajes/internal/core"
	"viajes/internal/routes"
)

// TripService orchestrates trip intake. With a broker configured, accepted
// trips go through the durable feed and the worker applies them; without
// one, they are applied synchronously. Either way each trip is applied to
// the aggregates exactly once.
type TripService struct {
	aggregator *routes.Aggregator
	amqpClient *amqp.Client
}

func NewTripService(aggregator *routes.Aggregator, amqpClient *amqp.Client) *TripService {
	return &TripService{
		aggregator: aggregator,
		amqpClient: amqpClient,
	}
}

// Accepted reports whether RecordTrip defers application to the feed worker.
func (s *TripService) Accepted() bool {
	return s.amqpClient != nil
}

// RecordTrip validates the trip at the boundary and either publishes it on
// the feed or applies it directly. Validation failures never reach the
// store or the queue. The returned route is zero-valued on the async path.
func (s *TripService) RecordTrip(ctx context.Context, trip core.Trip) (core.Route, error) {
	trip.Origen = core.NormalizeLugar(trip.Origen)
	trip.Destino = core.NormalizeLugar(trip.Destino)
	trip.Conductor = core.NormalizeLugar(trip.Conductor)

	if err := trip.Validate(); err != nil {
		return core.Route{}, fmt.Errorf("validate trip: %w", err)
	}

	if s.amqpClient == nil {
		return s.aggregator.RecordTrip(ctx, trip)
	}

	msg := amqp.NewTripCompletedMessage(trip.Origen, trip.Destino, trip.Km, trip.Conductor, trip.Fecha.ISO())
	if err := s.amqpClient.PublishTripCompleted(ctx, msg); err != nil {
		// Broker down: fall back to the synchronous path rather than losing
		// the trip.
		slog.WarnContext(ctx, "Publish failed, applying trip directly",
			"origen", trip.Origen, "destino", trip.Destino, "error", err)
		return s.aggregator.RecordTrip(ctx, trip)
	}

	return core.Route{}, nil
}

// TopRoutes exposes the read view unchanged.
func (s *TripService) TopRoutes(ctx context.Context, limit int) ([]core.Route, error) {
	return s.aggregator.TopRoutes(ctx, limit)
}
