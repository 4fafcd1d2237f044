// Package alert owns the active-alert slot: which event is currently
// surfaced as a banner, when it self-clears, and the per-event fan-out to
// notifier collaborators.
package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-alert-service/internal/domain"
)

// Notifier delivers one fired alert to a downstream collaborator (push,
// audible alarm, message bus). Implementations must tolerate redelivery;
// payloads carry a unique DeliveryID for deduplication.
type Notifier interface {
	Notify(ctx context.Context, payload domain.AlertPayload) error
}

// BannerListener observes active-alert transitions for display. Callbacks
// run while the manager lock is held; implementations must not call back
// into the manager.
type BannerListener interface {
	AlertActivated(e domain.Event, deadline time.Time)
	AlertCleared()
}

// Active describes the event currently held in the alert slot and when it
// will self-clear.
type Active struct {
	Event    domain.Event
	Deadline time.Time
}

// Manager is the Idle/Active alert state machine. At most one alert is held
// at a time; every qualifying event still fans out to all notifiers, but
// only the most newsworthy one (highest magnitude, ties to the most recent)
// occupies the display slot. The slot self-clears after the dwell duration.
type Manager struct {
	clock     clockwork.Clock
	dwell     time.Duration
	notifiers []Notifier
	banner    BannerListener
	logger    *slog.Logger

	mu      sync.Mutex
	active  *Active
	timer   clockwork.Timer
	gen     uint64 // activation generation, guards the expiry callback
	stopped bool
}

// NewManager creates a Manager. banner may be nil when no display
// collaborator is attached.
func NewManager(clock clockwork.Clock, dwell time.Duration, banner BannerListener, logger *slog.Logger, notifiers ...Notifier) *Manager {
	return &Manager{
		clock:     clock,
		dwell:     dwell,
		notifiers: notifiers,
		banner:    banner,
		logger:    logger,
	}
}

// Fire delivers each matched event to every notifier and promotes the most
// newsworthy one into the active slot. userLoc enriches payloads with a
// distance when known. Notifier failures are logged and skipped; they never
// block the remaining deliveries or the slot update.
func (m *Manager) Fire(ctx context.Context, matches []domain.Event, userLoc *domain.Coordinate) {
	if len(matches) == 0 {
		return
	}

	firedAt := m.clock.Now()
	for _, e := range matches {
		payload := domain.AlertPayload{
			DeliveryID: uuid.NewString(),
			Event:      e,
			FiredAt:    firedAt,
		}
		if userLoc != nil && e.HasGeo {
			d := domain.DistanceKm(*userLoc, e.Geo)
			payload.DistanceKm = &d
		}
		for _, n := range m.notifiers {
			if err := n.Notify(ctx, payload); err != nil {
				m.logger.Warn("alert delivery failed",
					"event_id", e.ID,
					"delivery_id", payload.DeliveryID,
					"error", err,
				)
			}
		}
	}

	best := matches[0]
	for _, e := range matches[1:] {
		if outranks(e, best) {
			best = e
		}
	}
	m.activate(best)
}

// activate places e in the alert slot unless a higher-ranked alert is
// already displayed. Promotion restarts the dwell timer; a lower-ranked
// newcomer leaves the current alert and its deadline untouched.
func (m *Manager) activate(e domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}
	if m.active != nil && !outranks(e, m.active.Event) {
		return
	}

	if m.timer != nil {
		m.timer.Stop()
	}
	deadline := m.clock.Now().Add(m.dwell)
	m.active = &Active{Event: e, Deadline: deadline}
	m.gen++
	gen := m.gen
	m.timer = m.clock.AfterFunc(m.dwell, func() { m.expire(gen) })

	if m.banner != nil {
		m.banner.AlertActivated(e, deadline)
	}
}

// expire clears the slot when the dwell elapses. The generation check keeps
// a stale timer from clearing an alert that replaced its own.
func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped || m.gen != gen || m.active == nil {
		return
	}
	m.clearLocked()
}

// Dismiss clears the active alert immediately. No-op when idle.
func (m *Manager) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return
	}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.clearLocked()
}

// Active returns a copy of the currently displayed alert, or nil when idle.
func (m *Manager) Active() *Active {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil
	}
	a := *m.active
	return &a
}

// Stop cancels any pending dwell timer and rejects further activations.
// Safe to call more than once.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}
	m.stopped = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.active = nil
}

func (m *Manager) clearLocked() {
	m.active = nil
	if m.banner != nil {
		m.banner.AlertCleared()
	}
}

// outranks reports whether a is more newsworthy than b: greater magnitude,
// ties broken by the more recent timestamp.
func outranks(a, b domain.Event) bool {
	if a.Magnitude != b.Magnitude {
		return a.Magnitude > b.Magnitude
	}
	return a.Time.After(b.Time)
}
