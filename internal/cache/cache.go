// Package cache holds the most recent feed snapshot and projects it into
// the display-ready grouped view.
package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-alert-service/internal/domain"
)

// Cache is the single holder of the latest snapshot. The poller is the only
// writer; display collaborators read concurrently. The display filter is
// configured independently of the notification scope so a user can browse
// one region while alerting on another.
type Cache struct {
	clock clockwork.Clock
	loc   *time.Location

	mu       sync.RWMutex
	snapshot []domain.Event
	filter   domain.Filter
}

// New creates an empty Cache. loc is the viewer's timezone for day
// bucketing; nil means the process-local zone.
func New(clock clockwork.Clock, loc *time.Location) *Cache {
	if loc == nil {
		loc = time.Local
	}
	return &Cache{clock: clock, loc: loc}
}

// SetSnapshot replaces the held snapshot. The slice is copied; callers may
// reuse theirs.
func (c *Cache) SetSnapshot(events []domain.Event) {
	snap := make([]domain.Event, len(events))
	copy(snap, events)

	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()
}

// Snapshot returns a copy of the held snapshot.
func (c *Cache) Snapshot() []domain.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := make([]domain.Event, len(c.snapshot))
	copy(snap, c.snapshot)
	return snap
}

// SetDisplayFilter updates the browse filter used by View.
func (c *Cache) SetDisplayFilter(f domain.Filter) {
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
}

// View projects the held snapshot through the display filter into the
// grouped view. An empty view is the valid "no results" state.
func (c *Cache) View(userLoc *domain.Coordinate) domain.GroupedView {
	c.mu.RLock()
	snapshot := c.snapshot
	filter := c.filter
	c.mu.RUnlock()

	return domain.ProjectGroupedView(snapshot, filter, userLoc, c.clock.Now(), c.loc)
}
