package http

import (
	"net/http"
	"strconv"

	"viajes/internal/core"
)

type tripRequest struct {
	Origen    string `json:"origen"`
	Destino   string `json:"destino"`
	Km        int64  `json:"km"`
	Conductor string `json:"conductor"`
	Fecha     string `json:"fecha,omitempty"`
}

type tripResponse struct {
	Aceptado bool           `json:"aceptado"`
	Ruta     *routeResponse `json:"ruta,omitempty"`
}

type routeResponse struct {
	Origen         string   `json:"origen"`
	Destino        string   `json:"destino"`
	KmEstimados    int64    `json:"km_estimados"`
	TiempoEstimado string   `json:"tiempo_estimado,omitempty"`
	VecesRealizada int64    `json:"veces_realizada"`
	UltimoViaje    string   `json:"ultimo_viaje"`
	KmPromedio     *float64 `json:"km_promedio,omitempty"`
}

func toRouteResponse(r core.Route) *routeResponse {
	resp := &routeResponse{
		Origen:         r.Origen,
		Destino:        r.Destino,
		KmEstimados:    r.KmEstimados,
		TiempoEstimado: r.TiempoEstimado,
		VecesRealizada: r.VecesRealizada,
		UltimoViaje:    r.UltimoViaje.ISO(),
	}
	if avg, ok := r.KmPromedio(); ok {
		resp.KmPromedio = &avg
	}
	return resp
}

func (s *Server) handleRecordTrip(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trip := core.Trip{
		Origen:    req.Origen,
		Destino:   req.Destino,
		Km:        req.Km,
		Conductor: req.Conductor,
	}
	if req.Fecha != "" {
		fecha, err := core.ParseDate(req.Fecha)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid fecha, expected YYYY-MM-DD")
			return
		}
		trip.Fecha = fecha
	} else {
		trip.Fecha = core.DateOf(timeNow())
	}

	route, err := s.trips.RecordTrip(r.Context(), trip)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := tripResponse{Aceptado: true}
	if route.VecesRealizada > 0 {
		resp.Ruta = toRouteResponse(route)
	}
	status := http.StatusCreated
	if s.trips.Accepted() && resp.Ruta == nil {
		status = http.StatusAccepted
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleTopRoutes(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)

	routes, err := s.trips.TopRoutes(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]*routeResponse, 0, len(routes))
	for _, route := range routes {
		resp = append(resp, toRouteResponse(route))
	}
	writeJSON(w, http.StatusOK, resp)
}

type expenseRequest struct {
	ViajeID     *int64 `json:"viaje_id,omitempty"`
	Conductor   string `json:"conductor,omitempty"`
	Categoria   string `json:"categoria"`
	Importe     string `json:"importe"`
	Descripcion string `json:"descripcion,omitempty"`
	Fecha       string `json:"fecha,omitempty"`
}

func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Importe)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid importe")
		return
	}

	expense := core.Expense{
		ViajeID:     req.ViajeID,
		Conductor:   req.Conductor,
		Categoria:   core.Categoria(req.Categoria),
		Importe:     core.Money{Cents: cents},
		Descripcion: req.Descripcion,
	}
	if req.Fecha != "" {
		fecha, err := core.ParseDate(req.Fecha)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid fecha, expected YYYY-MM-DD")
			return
		}
		expense.Fecha = fecha
	}

	id, err := s.gastos.RecordExpense(r.Context(), expense)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type categoryStatsResponse struct {
	Veces    int64  `json:"veces"`
	Total    string `json:"total"`
	Promedio string `json:"promedio"`
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	dias := queryInt(r, "dias", 30)

	summary, err := s.gastos.CategorySummary(r.Context(), dias)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make(map[string]categoryStatsResponse, len(summary))
	for cat, stats := range summary {
		resp[string(cat)] = categoryStatsResponse{
			Veces:    stats.Count,
			Total:    stats.Total.String(),
			Promedio: stats.Average.String(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWeeklyReport(w http.ResponseWriter, r *http.Request) {
	summary, err := s.informes.Weekly(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	summary, err := s.informes.Monthly(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

func (s *Server) handleDriverReport(w http.ResponseWriter, r *http.Request) {
	conductor := r.PathValue("conductor")
	dias := queryInt(r, "dias", 30)

	summary, err := s.informes.Driver(r.Context(), conductor, dias)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type alertResponse struct {
	ID      int64  `json:"id"`
	Fecha   string `json:"fecha"`
	Modulo  string `json:"modulo"`
	Nivel   string `json:"nivel"`
	Mensaje string `json:"mensaje"`
}

func (s *Server) handlePendingAlerts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	alerts, err := s.oplog.PendingAlerts(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		resp = append(resp, alertResponse{
			ID:      a.ID,
			Fecha:   a.Fecha.UTC().Format("2006-01-02T15:04:05Z07:00"),
			Modulo:  a.Modulo,
			Nivel:   string(a.Nivel),
			Mensaje: a.Mensaje,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkNotified(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	if err := s.oplog.MarkNotified(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
