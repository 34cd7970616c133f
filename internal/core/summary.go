package core

// CategoryStats aggregates the expenses of one category inside a window.
// Average is rounded half-up to whole cents.
type CategoryStats struct {
	Count   int64
	Total   Money
	Average Money
}

// RouteUsage is one line of the weekly/monthly report: how often a pair
// was driven in the window.
type RouteUsage struct {
	Origen  string `json:"origen"`
	Destino string `json:"destino"`
	Veces   int64  `json:"veces"`
}

// DriverUsage is one line of the top-drivers breakdown.
type DriverUsage struct {
	Conductor string `json:"conductor"`
	Viajes    int64  `json:"viajes"`
	Km        int64  `json:"km"`
}

// DestinoUsage counts deliveries to one destination inside a window.
type DestinoUsage struct {
	Destino string `json:"destino"`
	Veces   int64  `json:"veces"`
}
