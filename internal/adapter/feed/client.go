// Package feed fetches seismic-event snapshots from an FDSN event web
// service GeoJSON endpoint.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-alert-service/internal/domain"
)

// Wire time layouts observed on FDSN endpoints. None carries a zone marker;
// the feed documents times as UTC but omits the "Z", so layouts are parsed
// with an explicit UTC location rather than interpreted as local time.
var wireTimeLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano, // some mirrors do send the marker
}

// Client implements poll.Fetcher against an FDSN event service.
type Client struct {
	baseURL    string
	window     time.Duration
	minMag     float64
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewClient creates a feed client. baseURL is the FDSN query endpoint (e.g.
// ".../fdsnws/event/1/query"); window is the trailing period each snapshot
// covers; minMag is forwarded upstream to keep payloads small.
func NewClient(baseURL string, window time.Duration, minMag float64, timeout time.Duration, clock clockwork.Clock, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		window:     window,
		minMag:     minMag,
		httpClient: &http.Client{Timeout: timeout},
		clock:      clock,
		logger:     logger,
	}
}

// Fetch returns the complete snapshot for the trailing window. Malformed
// individual features are logged and skipped; they never fail the snapshot.
func (c *Client) Fetch(ctx context.Context) ([]domain.Event, error) {
	now := c.clock.Now().UTC()
	params := url.Values{
		"format":    {"geojson"},
		"starttime": {now.Add(-c.window).Format("2006-01-02T15:04:05")},
		"endtime":   {now.Format("2006-01-02T15:04:05")},
		"minmag":    {fmt.Sprintf("%g", c.minMag)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	// FDSN services answer 204 when the window holds no events.
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("feed API error: status %d: %s", resp.StatusCode, body)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode feed response: %w", err)
	}

	events := make([]domain.Event, 0, len(fc.Features))
	for _, f := range fc.Features {
		event, err := mapFeature(f)
		if err != nil {
			c.logger.Warn("skipping malformed feed event", "event_id", f.Properties.EventID, "error", err)
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// mapFeature converts one GeoJSON feature into a domain event, forcing the
// wire time to UTC.
func mapFeature(f feature) (domain.Event, error) {
	id := f.Properties.EventID.String()
	if id == "" {
		return domain.Event{}, fmt.Errorf("missing event id")
	}
	ts, err := parseWireTime(f.Properties.Time)
	if err != nil {
		return domain.Event{}, err
	}

	event := domain.Event{
		ID:        id,
		Time:      ts,
		Magnitude: f.Properties.Mag,
		MagType:   f.Properties.MagType,
		Place:     f.Properties.Place,
		Kind:      f.Properties.Type,
	}
	// Coordinates are [lon, lat, depth]; depth may be absent or, in
	// degenerate rows, negative. Either way the event stays in the snapshot.
	if len(f.Geometry.Coordinates) >= 2 {
		event.Geo = domain.Coordinate{Lat: f.Geometry.Coordinates[1], Lon: f.Geometry.Coordinates[0]}
		event.HasGeo = true
	}
	if len(f.Geometry.Coordinates) >= 3 {
		event.DepthKm = f.Geometry.Coordinates[2]
	}
	return event, nil
}

// parseWireTime parses a feed timestamp in UTC. The upstream feed omits the
// zone marker; interpreting the value as local time would shift every
// watermark comparison.
func parseWireTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing event time")
	}
	for _, layout := range wireTimeLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable event time %q", raw)
}

// FDSN GeoJSON response types.

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Properties properties `json:"properties"`
	Geometry   geometry   `json:"geometry"`
}

type properties struct {
	// EventID is numeric on the wire.
	EventID json.Number `json:"eventId"`
	Time    string      `json:"time"`
	Mag     float64     `json:"mag"`
	MagType string      `json:"magType"`
	Place   string      `json:"place"`
	Type    string      `json:"type"`
}

type geometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}
