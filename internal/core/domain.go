package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Combustible Categoria = "COMBUSTIBLE"
	Peaje       Categoria = "PEAJE"
	Dieta       Categoria = "DIETA"
	Parking     Categoria = "PARKING"
	Otros       Categoria = "OTROS"
)

const (
	NivelError    Nivel = "ERROR"
	NivelCritical Nivel = "CRITICAL"
)

const (
	DestinoLocal Destino = "LOCAL"
	DestinoDrive Destino = "DRIVE"
	DestinoEmail Destino = "EMAIL"
)

const (
	CierreRunning   EstadoCierre = "RUNNING"
	CierreSucceeded EstadoCierre = "SUCCEEDED"
	CierreFailed    EstadoCierre = "FAILED"
)

type (
	// Categoria is the fixed expense category enumeration.
	Categoria string

	// Nivel is the severity of an operational log entry.
	Nivel string

	// Destino is where a backup was shipped.
	Destino string

	// EstadoCierre is the persisted state of one day's closure.
	EstadoCierre string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Trip is a single completed transport movement.
	Trip struct {
		Origen    string
		Destino   string
		Km        int64
		Conductor string
		Fecha     Date
	}

	// Route is the learned summary of all trips between one origin/destination
	// pair. Rows are created on the first trip and updated in place after that;
	// they are never deleted.
	Route struct {
		ID               int64
		Origen           string
		Destino          string
		KmEstimados      int64
		TiempoEstimado   string
		VecesRealizada   int64
		UltimoViaje      Date
		KmTotalAcumulado int64
		ConsumoPromedio  float64
		CreatedAt        time.Time
		UpdatedAt        time.Time
	}

	// Expense is a categorized cost entry associated with zero or one trip.
	// ViajeID is a weak reference: deleting the trip does not cascade here.
	Expense struct {
		ID          int64
		ViajeID     *int64
		Conductor   string
		Categoria   Categoria
		Importe     Money
		Descripcion string
		Fecha       Date
		CreatedAt   time.Time
	}

	// CriticalLog is a durable record of a critical failure pending
	// external notification.
	CriticalLog struct {
		ID         int64
		Fecha      time.Time
		Modulo     string
		Nivel      Nivel
		Mensaje    string
		Notificado bool
	}

	// ClosureRecord is the per-date claim row of the day-closure job.
	// Its presence in a terminal state is what makes re-runs idempotent.
	ClosureRecord struct {
		Fecha     Date
		Estado    EstadoCierre
		Senal     int
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Backup is an audit row for a shipped store backup. Write sink only.
	Backup struct {
		Fecha    time.Time
		Archivo  string
		TamanoKB int64
		Destino  Destino
		Estado   string
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidKm       = errors.New("invalid km")
	ErrEmptyLugar      = errors.New("empty origin or destination")
)

// Categorias lists every valid expense category.
var Categorias = []Categoria{Combustible, Peaje, Dieta, Parking, Otros}

// Valid reports whether c is one of the fixed categories.
func (c Categoria) Valid() bool {
	for _, known := range Categorias {
		if c == known {
			return true
		}
	}
	return false
}

// NormalizeLugar canonicalizes a place name for route identity: surrounding
// whitespace trimmed, inner runs collapsed to one space, uppercased.
// "azagra" and " AZAGRA " name the same route endpoint.
func NormalizeLugar(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO calendar date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// ISO renders the date as 2006-01-02, the format persisted in the store.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// IsEmpty returns true if the date is zero (optional dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Trip) Validate() error {
	if NormalizeLugar(t.Origen) == "" || NormalizeLugar(t.Destino) == "" {
		return ErrEmptyLugar
	}
	if t.Km <= 0 {
		return ErrInvalidKm
	}
	if err := t.Fecha.Validate(); err != nil {
		return err
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Importe.Validate(); err != nil {
		return err
	}
	if !e.Categoria.Valid() {
		return ErrUnknownCategory
	}
	if len(e.Descripcion) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// KmPromedio is the derived average-distance view: cumulative km over trip
// count. The second return is false when the route has no recorded trips yet
// (the null case, not an error).
func (r Route) KmPromedio() (float64, bool) {
	if r.VecesRealizada == 0 {
		return 0, false
	}
	return float64(r.KmTotalAcumulado) / float64(r.VecesRealizada), true
}
