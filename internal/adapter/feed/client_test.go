package feed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sampleBody = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {
        "eventId": 36778801,
        "time": "2024-05-12T03:14:05.120000",
        "mag": 3.2,
        "magType": "ML",
        "place": "5 km SW Napoli",
        "type": "earthquake"
      },
      "geometry": {"type": "Point", "coordinates": [14.2681, 40.8518, 7.3]}
    },
    {
      "type": "Feature",
      "properties": {
        "eventId": 36778802,
        "time": "2024-05-12T04:00:00",
        "mag": 1.1,
        "magType": "ML",
        "place": "Campi Flegrei",
        "type": "earthquake"
      },
      "geometry": {"type": "Point", "coordinates": [14.14, 40.83, -0.4]}
    },
    {
      "type": "Feature",
      "properties": {
        "eventId": 36778803,
        "time": "not-a-time",
        "mag": 2.0,
        "place": "broken row",
        "type": "earthquake"
      },
      "geometry": {"type": "Point", "coordinates": [13.0, 42.0, 10.0]}
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 12, 10, 0, 0, 0, time.UTC))
	c := NewClient(srv.URL, 72*time.Hour, 0, 5*time.Second, clock, testLogger())
	return c, srv
}

func TestClientFetch(t *testing.T) {
	t.Run("parses events and forces UTC", func(t *testing.T) {
		var gotQuery string
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(sampleBody)) //nolint:errcheck
		})

		events, err := c.Fetch(context.Background())
		require.NoError(t, err)
		require.Len(t, events, 2, "malformed row is skipped, not fatal")

		first := events[0]
		assert.Equal(t, "36778801", first.ID)
		// The wire time has no zone marker and must be read as UTC.
		assert.Equal(t, time.Date(2024, 5, 12, 3, 14, 5, 120000000, time.UTC), first.Time)
		assert.Equal(t, time.UTC, first.Time.Location())
		assert.Equal(t, 3.2, first.Magnitude)
		assert.Equal(t, "5 km SW Napoli", first.Place)
		assert.True(t, first.HasGeo)
		assert.Equal(t, 40.8518, first.Geo.Lat)
		assert.Equal(t, 14.2681, first.Geo.Lon)
		assert.Equal(t, 7.3, first.DepthKm)

		// Degenerate negative depth is preserved.
		assert.Equal(t, -0.4, events[1].DepthKm)

		assert.Contains(t, gotQuery, "format=geojson")
		assert.Contains(t, gotQuery, "starttime=2024-05-09T10%3A00%3A00")
		assert.Contains(t, gotQuery, "endtime=2024-05-12T10%3A00%3A00")
	})

	t.Run("no content means empty snapshot", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		events, err := c.Fetch(context.Background())
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("server error fails the fetch", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		})

		_, err := c.Fetch(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 502")
	})

	t.Run("invalid body fails the fetch", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("{not json")) //nolint:errcheck
		})

		_, err := c.Fetch(context.Background())
		require.Error(t, err)
	})
}

func TestParseWireTime(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{"no zone marker", "2024-05-12T03:14:05.120000", time.Date(2024, 5, 12, 3, 14, 5, 120000000, time.UTC), false},
		{"whole seconds", "2024-05-12T03:14:05", time.Date(2024, 5, 12, 3, 14, 5, 0, time.UTC), false},
		{"explicit marker", "2024-05-12T03:14:05Z", time.Date(2024, 5, 12, 3, 14, 5, 0, time.UTC), false},
		{"empty", "", time.Time{}, true},
		{"garbage", "yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWireTime(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got))
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}
