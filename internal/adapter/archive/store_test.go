package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-alert-service/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func archivedEvent(id string, ts time.Time) domain.Event {
	return domain.Event{
		ID:        id,
		Time:      ts,
		Magnitude: 3.2,
		MagType:   "ML",
		Place:     "5 km SW Napoli",
		Geo:       domain.Coordinate{Lat: 40.8518, Lon: 14.2681},
		HasGeo:    true,
		DepthKm:   7.3,
		Kind:      "earthquake",
	}
}

func TestStoreSaveAndQuery(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 12, 3, 0, 0, 0, time.UTC)

	t.Run("round trip", func(t *testing.T) {
		s := openTestStore(t)
		in := archivedEvent("a", base)
		require.NoError(t, s.SaveSnapshot(ctx, []domain.Event{in}))

		out, err := s.EventsSince(ctx, base.Add(-time.Hour))
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, in, out[0])
	})

	t.Run("resaving a snapshot is idempotent", func(t *testing.T) {
		s := openTestStore(t)
		snap := []domain.Event{archivedEvent("a", base), archivedEvent("b", base.Add(time.Hour))}
		require.NoError(t, s.SaveSnapshot(ctx, snap))
		require.NoError(t, s.SaveSnapshot(ctx, snap))

		out, err := s.EventsSince(ctx, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Len(t, out, 2)
	})

	t.Run("since filters and orders newest first", func(t *testing.T) {
		s := openTestStore(t)
		snap := []domain.Event{
			archivedEvent("old", base.Add(-48 * time.Hour)),
			archivedEvent("mid", base),
			archivedEvent("new", base.Add(time.Hour)),
		}
		require.NoError(t, s.SaveSnapshot(ctx, snap))

		out, err := s.EventsSince(ctx, base)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "new", out[0].ID)
		assert.Equal(t, "mid", out[1].ID)
	})

	t.Run("missing coordinates survive the round trip", func(t *testing.T) {
		s := openTestStore(t)
		e := archivedEvent("nogeo", base)
		e.Geo = domain.Coordinate{}
		e.HasGeo = false
		require.NoError(t, s.SaveSnapshot(ctx, []domain.Event{e}))

		out, err := s.EventsSince(ctx, base.Add(-time.Hour))
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.False(t, out[0].HasGeo)
	})

	t.Run("empty snapshot is a no-op", func(t *testing.T) {
		s := openTestStore(t)
		require.NoError(t, s.SaveSnapshot(ctx, nil))
	})
}
