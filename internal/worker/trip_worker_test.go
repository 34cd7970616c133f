package worker

import (
	"context"
	"errors"
	"testing"

	"viajes/internal/amqp"
	"viajes/internal/core"
	"viajes/internal/routes"
)

type fakeStore struct {
	trips   []core.Trip
	upserts int
}

func (f *fakeStore) AppendTrip(ctx context.Context, t core.Trip) (int64, error) {
	f.trips = append(f.trips, t)
	return int64(len(f.trips)), nil
}

func (f *fakeStore) UpsertRoute(ctx context.Context, origen, destino string, km int64, fecha core.Date) (core.Route, error) {
	f.upserts++
	return core.Route{Origen: origen, Destino: destino, VecesRealizada: 1}, nil
}

func (f *fakeStore) SetRouteConsumption(ctx context.Context, origen, destino string, consumo float64) error {
	return nil
}

func (f *fakeStore) TopRoutes(ctx context.Context, limit int) ([]core.Route, error) {
	return nil, nil
}

func TestHandleTripCompleted(t *testing.T) {
	store := &fakeStore{}
	w := NewTripWorker(routes.NewAggregator(store))

	msg := &amqp.TripCompletedMessage{
		Origen:    "azagra",
		Destino:   "madrid",
		Km:        320,
		Conductor: "javier",
		Fecha:     "2026-08-15",
	}
	if err := w.HandleTripCompleted(msg); err != nil {
		t.Fatalf("HandleTripCompleted: %v", err)
	}
	if len(store.trips) != 1 || store.upserts != 1 {
		t.Fatalf("trips = %d upserts = %d, want 1/1", len(store.trips), store.upserts)
	}
	if store.trips[0].Origen != "AZAGRA" || store.trips[0].Fecha.ISO() != "2026-08-15" {
		t.Errorf("trip = %+v", store.trips[0])
	}
}

func TestHandleTripCompletedBadDate(t *testing.T) {
	store := &fakeStore{}
	w := NewTripWorker(routes.NewAggregator(store))

	msg := &amqp.TripCompletedMessage{Origen: "AZAGRA", Destino: "MADRID", Km: 320, Fecha: "ayer"}
	err := w.HandleTripCompleted(msg)
	if err == nil {
		t.Fatal("expected error for malformed fecha")
	}
	if !errors.Is(err, amqp.ErrBadMessage) {
		t.Errorf("err = %v, want ErrBadMessage so the message is dropped", err)
	}
	if len(store.trips) != 0 {
		t.Error("malformed event must not reach the store")
	}
}

func TestHandleTripCompletedInvalidTrip(t *testing.T) {
	store := &fakeStore{}
	w := NewTripWorker(routes.NewAggregator(store))

	// A payload that fails validation is poison: redelivering it yields the
	// same failure, so it must be classified as non-retryable.
	msgs := []*amqp.TripCompletedMessage{
		{Origen: "AZAGRA", Destino: "MADRID", Km: 0, Fecha: "2026-08-15"},
		{Origen: "", Destino: "MADRID", Km: 320, Fecha: "2026-08-15"},
	}
	for _, msg := range msgs {
		err := w.HandleTripCompleted(msg)
		if err == nil {
			t.Fatalf("expected error for %+v", msg)
		}
		if !errors.Is(err, amqp.ErrBadMessage) {
			t.Errorf("err = %v, want ErrBadMessage so the message is dropped", err)
		}
	}
	if len(store.trips) != 0 {
		t.Error("invalid events must not reach the store")
	}
}

func TestHandleTripCompletedStoreFailureRetryable(t *testing.T) {
	store := &failingStore{}
	w := NewTripWorker(routes.NewAggregator(store))

	msg := &amqp.TripCompletedMessage{Origen: "AZAGRA", Destino: "MADRID", Km: 320, Fecha: "2026-08-15"}
	err := w.HandleTripCompleted(msg)
	if err == nil {
		t.Fatal("expected error when the store is down")
	}
	if errors.Is(err, amqp.ErrBadMessage) {
		t.Errorf("err = %v, a store outage must requeue, not drop", err)
	}
}

type failingStore struct{ fakeStore }

func (f *failingStore) AppendTrip(ctx context.Context, t core.Trip) (int64, error) {
	return 0, errors.New("store down")
}
