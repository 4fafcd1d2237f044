package poll

import (
	"sync/atomic"

	"github.com/couchcryptid/quake-alert-service/internal/domain"
)

// LocationCell is the single mutable "current user position" slot. The
// geolocation collaborator is its only writer; cycles read whatever value is
// current when they consult it, so a position stale by one cycle is fine.
type LocationCell struct {
	p atomic.Pointer[domain.Coordinate]
}

// Set stores a new position. nil clears it (position lost or revoked).
func (c *LocationCell) Set(loc *domain.Coordinate) {
	if loc == nil {
		c.p.Store(nil)
		return
	}
	cp := *loc
	c.p.Store(&cp)
}

// Current returns the last stored position, or nil when none is known.
func (c *LocationCell) Current() *domain.Coordinate {
	return c.p.Load()
}
