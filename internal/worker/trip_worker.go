package worker

import (
	"context"
	"fmt"
	"log/slog"

	"viajes/internal/amqp"
	"viajes/internal/core"
	"viajes/internal/routes"
)

// TripWorker applies trip-completed feed events to the aggregates.
type TripWorker struct {
	aggregator *routes.Aggregator
}

func NewTripWorker(aggregator *routes.Aggregator) *TripWorker {
	return &TripWorker{aggregator: aggregator}
}

// HandleTripCompleted processes a single feed event: append the trip and
// fold it into the frequent-route summary. Store failures return a plain
// error so the message requeues; payloads that can never validate return
// amqp.ErrBadMessage so the consumer drops them instead of redelivering
// them forever.
func (w *TripWorker) HandleTripCompleted(msg *amqp.TripCompletedMessage) error {
	ctx := context.Background()

	fecha, err := core.ParseDate(msg.Fecha)
	if err != nil {
		return fmt.Errorf("%w: parse fecha %q: %v", amqp.ErrBadMessage, msg.Fecha, err)
	}

	trip := core.Trip{
		Origen:    msg.Origen,
		Destino:   msg.Destino,
		Km:        msg.Km,
		Conductor: msg.Conductor,
		Fecha:     fecha,
	}
	if err := trip.Validate(); err != nil {
		// An invalid payload never becomes valid on redelivery.
		return fmt.Errorf("%w: %v", amqp.ErrBadMessage, err)
	}

	route, err := w.aggregator.RecordTrip(ctx, trip)
	if err != nil {
		return fmt.Errorf("record trip from feed: %w", err)
	}

	slog.InfoContext(ctx, "Trip feed event applied",
		"origen", route.Origen,
		"destino", route.Destino,
		"veces_realizada", route.VecesRealizada)

	return nil
}
