// Package http is the integration surface of the tracking core: trip and
// expense intake plus the derived read views. The conversational front-end
// calls these endpoints; it never touches the store directly.
package http

import (
	"context"
	"net/http"
	"time"

	"viajes/internal/expenses"
	"viajes/internal/log"
	"viajes/internal/oplog"
	"viajes/internal/reports"
	"viajes/internal/services"
)

type Server struct {
	http.Server
	trips    *services.TripService
	gastos   *expenses.Ledger
	informes *reports.Generator
	oplog    *oplog.Service
	logger   *log.Logger
}

func NewServer(port string, trips *services.TripService, gastos *expenses.Ledger, informes *reports.Generator, opl *oplog.Service) *Server {
	s := &Server{
		trips:    trips,
		gastos:   gastos,
		informes: informes,
		oplog:    opl,
		logger:   log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/viajes", s.handleRecordTrip)
	mux.HandleFunc("GET /api/rutas", s.handleTopRoutes)
	mux.HandleFunc("POST /api/gastos", s.handleRecordExpense)
	mux.HandleFunc("GET /api/gastos/resumen", s.handleCategorySummary)
	mux.HandleFunc("POST /api/informes/semanal", s.handleWeeklyReport)
	mux.HandleFunc("POST /api/informes/mensual", s.handleMonthlyReport)
	mux.HandleFunc("GET /api/conductores/{conductor}/resumen", s.handleDriverReport)
	mux.HandleFunc("GET /api/alertas", s.handlePendingAlerts)
	mux.HandleFunc("POST /api/alertas/{id}/notificado", s.handleMarkNotified)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.Server = http.Server{
		Addr:         ":" + port,
		Handler:      s.traceMiddleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
