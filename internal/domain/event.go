package domain

import "time"

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event is one seismic occurrence from the feed. Immutable after ingestion;
// Time is always UTC (the feed adapter normalizes wire times that omit the
// zone marker).
type Event struct {
	ID        string     `json:"id"`
	Time      time.Time  `json:"time"`
	Magnitude float64    `json:"magnitude"`
	MagType   string     `json:"mag_type,omitempty"`
	Place     string     `json:"place"`
	Geo       Coordinate `json:"geo"`
	HasGeo    bool       `json:"has_geo"`
	DepthKm   float64    `json:"depth_km"` // may be negative in degenerate feed rows
	Kind      string     `json:"kind"`     // "earthquake", "volcanic eruption", ...
}

// AlertPayload is the event handed to notifier collaborators when an alert
// fires. DeliveryID is unique per firing so downstream consumers can
// deduplicate redeliveries.
type AlertPayload struct {
	DeliveryID string    `json:"delivery_id"`
	Event      Event     `json:"event"`
	FiredAt    time.Time `json:"fired_at"`

	// DistanceKm from the user's last known position, when one was available
	// at firing time.
	DistanceKm *float64 `json:"distance_km,omitempty"`
}
