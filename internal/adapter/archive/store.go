// Package archive persists processed snapshots to SQLite so event history
// survives the feed's trailing window and process restarts.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/quake-alert-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	time TEXT NOT NULL,
	magnitude REAL NOT NULL,
	mag_type TEXT,
	place TEXT,
	lat REAL,
	lon REAL,
	depth_km REAL,
	kind TEXT,
	archived_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_time ON events(time);
`

// Store is a SQLite-backed event archive. Writes are idempotent on event id,
// so re-archiving an already-seen snapshot is a no-op.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive database at path and ensures
// the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("ensure archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveSnapshot upserts every event in the snapshot in one transaction.
// Already-archived ids are left untouched (ON CONFLICT DO NOTHING), matching
// the feed's habit of resending the full trailing window each cycle.
func (s *Store) SaveSnapshot(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, time, magnitude, mag_type, place, lat, lon, depth_km, kind, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare archive insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, e := range events {
		var lat, lon any
		if e.HasGeo {
			lat, lon = e.Geo.Lat, e.Geo.Lon
		}
		_, err := stmt.ExecContext(ctx,
			e.ID, e.Time.UTC().Format(time.RFC3339Nano), e.Magnitude, e.MagType,
			e.Place, lat, lon, e.DepthKm, e.Kind, now)
		if err != nil {
			return fmt.Errorf("archive event %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	return nil
}

// EventsSince returns archived events with a timestamp at or after since,
// newest first.
func (s *Store) EventsSince(ctx context.Context, since time.Time) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, time, magnitude, mag_type, place, lat, lon, depth_km, kind
		FROM events WHERE time >= ? ORDER BY time DESC, id ASC`,
		since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var events []domain.Event
	for rows.Next() {
		var (
			e        domain.Event
			ts       string
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &ts, &e.Magnitude, &e.MagType, &e.Place, &lat, &lon, &e.DepthKm, &e.Kind); err != nil {
			return nil, fmt.Errorf("scan archived event: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse archived time %q: %w", ts, err)
		}
		e.Time = parsed.UTC()
		if lat.Valid && lon.Valid {
			e.Geo = domain.Coordinate{Lat: lat.Float64, Lon: lon.Float64}
			e.HasGeo = true
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
