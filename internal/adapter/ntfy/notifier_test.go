package ntfy

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-alert-service/internal/domain"
)

func testPayload() domain.AlertPayload {
	d := 42.0
	return domain.AlertPayload{
		DeliveryID: "d-1",
		FiredAt:    time.Date(2024, 5, 12, 3, 14, 10, 0, time.UTC),
		DistanceKm: &d,
		Event: domain.Event{
			ID:        "36778801",
			Time:      time.Date(2024, 5, 12, 3, 14, 5, 0, time.UTC),
			Magnitude: 3.2,
			Place:     "5 km SW Napoli",
			DepthKm:   7.3,
			Kind:      "earthquake",
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotify(t *testing.T) {
	t.Run("posts title and body", func(t *testing.T) {
		var gotPath, gotTitle, gotPriority, gotBody string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotTitle = r.Header.Get("Title")
			gotPriority = r.Header.Get("Priority")
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
		}))
		defer srv.Close()

		n := NewNotifier(srv.URL, "quakes", "high", false, 5*time.Second, discardLogger())
		require.NoError(t, n.Notify(context.Background(), testPayload()))

		assert.Equal(t, "/quakes", gotPath)
		assert.Equal(t, "M 3.2 Napoli", gotTitle)
		assert.Equal(t, "high", gotPriority)
		assert.Contains(t, gotBody, "Depth: 7.3 km")
		assert.Contains(t, gotBody, "Distance: 42 km from you")
	})

	t.Run("server error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		n := NewNotifier(srv.URL, "quakes", "", false, 5*time.Second, discardLogger())
		err := n.Notify(context.Background(), testPayload())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 429")
	})

	t.Run("dry run never posts", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			calls++
		}))
		defer srv.Close()

		n := NewNotifier(srv.URL, "quakes", "", true, 5*time.Second, discardLogger())
		require.NoError(t, n.Notify(context.Background(), testPayload()))
		assert.Equal(t, 0, calls)
	})
}
