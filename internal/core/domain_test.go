package core

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeLugar(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"azagra", "AZAGRA"},
		{" Madrid ", "MADRID"},
		{"  san   adrian ", "SAN ADRIAN"},
		{"MERCAMADRID", "MERCAMADRID"},
		{"   ", ""},
	}
	for i, tc := range cases {
		if got := NormalizeLugar(tc.in); got != tc.want {
			t.Fatalf("case %d: got %q want %q", i, got, tc.want)
		}
	}
}

func TestCategoriaValid(t *testing.T) {
	for _, c := range Categorias {
		if !c.Valid() {
			t.Fatalf("%s should be valid", c)
		}
	}
	for _, c := range []Categoria{"", "GASOLINA", "combustible", "FUEL"} {
		if c.Valid() {
			t.Fatalf("%q should not be valid", c)
		}
	}
}

func TestTripValidate(t *testing.T) {
	good := Trip{Origen: "AZAGRA", Destino: "MADRID", Km: 320, Conductor: "PACO", Fecha: NewDate(2026, 8, 30)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		trip Trip
		want error
	}{
		{Trip{Origen: " ", Destino: "MADRID", Km: 320, Fecha: NewDate(2026, 8, 30)}, ErrEmptyLugar},
		{Trip{Origen: "AZAGRA", Destino: "", Km: 320, Fecha: NewDate(2026, 8, 30)}, ErrEmptyLugar},
		{Trip{Origen: "AZAGRA", Destino: "MADRID", Km: 0, Fecha: NewDate(2026, 8, 30)}, ErrInvalidKm},
		{Trip{Origen: "AZAGRA", Destino: "MADRID", Km: -5, Fecha: NewDate(2026, 8, 30)}, ErrInvalidKm},
	}
	for i, tc := range cases {
		if err := tc.trip.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: got %v want %v", i, err, tc.want)
		}
	}

	noDate := Trip{Origen: "AZAGRA", Destino: "MADRID", Km: 320}
	if err := noDate.Validate(); err == nil {
		t.Fatal("expected error for zero date")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{Categoria: Combustible, Importe: Money{Cents: 4550}, Fecha: NewDate(2026, 8, 30)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	// Zero is a valid amount, negative is not.
	zero := Expense{Categoria: Peaje, Importe: Money{Cents: 0}}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount should validate, got %v", err)
	}
	neg := Expense{Categoria: Combustible, Importe: Money{Cents: -500}}
	if err := neg.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("got %v want ErrInvalidAmount", err)
	}

	unknown := Expense{Categoria: "GASOLINA", Importe: Money{Cents: 100}}
	if err := unknown.Validate(); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("got %v want ErrUnknownCategory", err)
	}
}

func TestRouteKmPromedio(t *testing.T) {
	r := Route{VecesRealizada: 3, KmTotalAcumulado: 963}
	avg, ok := r.KmPromedio()
	if !ok || avg != 321 {
		t.Fatalf("got %v %v, want 321 true", avg, ok)
	}

	// No trips yet: the view is null, not an error.
	empty := Route{}
	if _, ok := empty.KmPromedio(); ok {
		t.Fatal("expected no average for zero trips")
	}
}

func TestDateISO(t *testing.T) {
	d := NewDate(2026, 8, 31)
	if d.ISO() != "2026-08-31" {
		t.Fatalf("got %s", d.ISO())
	}
	parsed, err := ParseDate("2026-08-31")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.Equal(d.Time) {
		t.Fatalf("roundtrip mismatch: %v vs %v", parsed, d)
	}
}

func TestDateOf(t *testing.T) {
	ts := time.Date(2026, 8, 31, 17, 45, 12, 0, time.UTC)
	if got := DateOf(ts).ISO(); got != "2026-08-31" {
		t.Fatalf("got %s", got)
	}
}
