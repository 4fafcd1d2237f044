// Package poll drives the monitoring pipeline: it periodically fetches a
// feed snapshot and runs it through watermark diffing, notification
// matching, alerting, and the display cache.
package poll

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-alert-service/internal/domain"
	"github.com/couchcryptid/quake-alert-service/internal/observability"
)

// Fetcher returns one complete feed snapshot for the trailing window.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.Event, error)
}

// SettingsSource supplies the notification configuration, read once at the
// start of each cycle.
type SettingsSource interface {
	NotificationSettings() domain.NotificationSettings
}

// Alerter receives the novel events that matched the notification scope.
type Alerter interface {
	Fire(ctx context.Context, matches []domain.Event, userLoc *domain.Coordinate)
}

// SnapshotSink receives the full snapshot after a successful cycle.
type SnapshotSink interface {
	SetSnapshot(events []domain.Event)
}

// Archiver persists processed snapshots. Best effort: failures are reported
// but never abort a cycle.
type Archiver interface {
	SaveSnapshot(ctx context.Context, events []domain.Event) error
}

// Config wires a Poller. Fetcher, Tracker, Alerter, Cache, and Settings are
// required; Archive and Location may be nil, Clock defaults to the real
// clock, Interval to one minute.
type Config struct {
	Fetcher  Fetcher
	Tracker  *domain.WatermarkTracker
	Alerter  Alerter
	Cache    SnapshotSink
	Settings SettingsSource
	Location *LocationCell
	Archive  Archiver
	Interval time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// Poller runs an immediate first cycle on Start and one cycle per interval
// after that. Cycles never overlap: a tick arriving while one is in flight
// is skipped, not queued, so the watermark tracker keeps a single writer.
type Poller struct {
	cfg Config

	inFlight atomic.Bool
	ready    atomic.Bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	cycles  sync.WaitGroup
	started bool
}

// New validates cfg and creates a Poller.
func New(cfg Config) (*Poller, error) {
	if cfg.Fetcher == nil || cfg.Tracker == nil || cfg.Alerter == nil || cfg.Cache == nil || cfg.Settings == nil {
		return nil, errors.New("poll: fetcher, tracker, alerter, cache, and settings are required")
	}
	if cfg.Location == nil {
		cfg.Location = &LocationCell{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewMetricsForTesting()
	}
	return &Poller{cfg: cfg}, nil
}

// Start begins the immediate first cycle plus the periodic ticker. Calling
// Start on a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.started = true

	p.cfg.Metrics.PollerRunning.Set(1)
	p.cfg.Logger.Info("poller started", "interval", p.cfg.Interval)

	go p.run(ctx)
}

// Stop cancels the ticker and waits for any in-flight cycle to finish.
// Stopping twice, or before Start, is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
	p.cycles.Wait()

	p.cfg.Metrics.PollerRunning.Set(0)
	p.cfg.Logger.Info("poller stopped")
}

// CheckReadiness returns nil once at least one cycle has completed
// successfully.
func (p *Poller) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no snapshot processed yet")
	}
	return nil
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	p.tick(ctx)

	ticker := p.cfg.Clock.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.tick(ctx)
		}
	}
}

// tick starts a cycle unless one is still in flight, in which case the tick
// is dropped.
func (p *Poller) tick(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.cfg.Logger.Warn("previous cycle still in flight, skipping tick")
		p.cfg.Metrics.PollCycles.WithLabelValues(observability.OutcomeSkipped).Inc()
		return
	}

	p.cycles.Add(1)
	go func() {
		defer p.cycles.Done()
		defer p.inFlight.Store(false)
		p.runCycle(ctx)
	}()
}

// runCycle executes one fetch-diff-match-project pass. A fetch failure
// aborts before any state is touched: the watermark, cache, and alert slot
// all keep their previous values and the next tick retries.
func (p *Poller) runCycle(ctx context.Context) {
	start := p.cfg.Clock.Now()
	settings := p.cfg.Settings.NotificationSettings()

	snapshot, err := p.cfg.Fetcher.Fetch(ctx)
	p.cfg.Metrics.FetchDuration.Observe(p.cfg.Clock.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.cfg.Logger.Error("feed fetch failed, keeping previous state", "error", err)
		p.cfg.Metrics.PollCycles.WithLabelValues(observability.OutcomeFetchError).Inc()
		return
	}
	p.cfg.Metrics.SnapshotSize.Observe(float64(len(snapshot)))

	novel, bootstrap := p.cfg.Tracker.DiffAndAdvance(snapshot)
	if mark, ok := p.cfg.Tracker.Watermark(); ok {
		p.cfg.Metrics.WatermarkSeconds.Set(float64(mark.Unix()))
	}

	userLoc := p.cfg.Location.Current()
	if len(novel) > 0 {
		p.cfg.Metrics.NovelEvents.Add(float64(len(novel)))
		if settings.Enabled {
			matches := settings.Filter.Apply(novel, userLoc)
			if len(matches) > 0 {
				p.cfg.Metrics.AlertsFired.Add(float64(len(matches)))
				p.cfg.Alerter.Fire(ctx, matches, userLoc)
			}
		}
	}

	p.cfg.Cache.SetSnapshot(snapshot)

	if p.cfg.Archive != nil {
		if err := p.cfg.Archive.SaveSnapshot(ctx, snapshot); err != nil {
			p.cfg.Logger.Warn("snapshot archive failed", "error", err)
			p.cfg.Metrics.ArchiveErrors.Inc()
		}
	}

	p.ready.Store(true)
	p.cfg.Metrics.PollCycles.WithLabelValues(observability.OutcomeOK).Inc()
	p.cfg.Metrics.CycleDuration.Observe(p.cfg.Clock.Since(start).Seconds())
	p.cfg.Logger.Debug("cycle complete",
		"snapshot", len(snapshot),
		"novel", len(novel),
		"bootstrap", bootstrap,
	)
}
