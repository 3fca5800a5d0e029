package routing

import (
	"context"
	"time"
)

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Stop is a delivery waypoint handed to the route provider.
type Stop struct {
	OrderID      string     `json:"order_id"`
	Address      string     `json:"address"`
	LocationCode string     `json:"location_code"`
	Coordinate   Coordinate `json:"coordinate"`
}

// Route is the provider's answer for one origin plus an ordered stop list.
// Stops carries the authoritative visiting order; PerLegDurationMin has one
// entry per stop, origin to first stop included.
type Route struct {
	Stops             []Stop    `json:"stops"`
	Geometry          string    `json:"geometry"`
	TotalDistanceKm   float64   `json:"total_distance_km"`
	TotalDurationMin  float64   `json:"total_duration_min"`
	PerLegDurationMin []float64 `json:"per_leg_duration_min"`
}

// Provider computes a traffic-aware route through the given stops.
// Results are valid for a single refresh cycle only; live traffic makes
// repeated calls with identical inputs drift over time.
type Provider interface {
	ComputeRoute(ctx context.Context, origin Coordinate, stops []Stop) (*Route, error)
}

// ETAEntry pairs a stop with its absolute estimated arrival.
type ETAEntry struct {
	OrderID string    `json:"order_id"`
	ETA     time.Time `json:"eta"`
}
