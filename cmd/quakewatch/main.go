package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-alert-service/internal/adapter/archive"
	"github.com/couchcryptid/quake-alert-service/internal/adapter/feed"
	httpadapter "github.com/couchcryptid/quake-alert-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/quake-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/quake-alert-service/internal/adapter/ntfy"
	"github.com/couchcryptid/quake-alert-service/internal/alert"
	"github.com/couchcryptid/quake-alert-service/internal/cache"
	"github.com/couchcryptid/quake-alert-service/internal/config"
	"github.com/couchcryptid/quake-alert-service/internal/domain"
	"github.com/couchcryptid/quake-alert-service/internal/observability"
	"github.com/couchcryptid/quake-alert-service/internal/poll"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	loc, err := loadTimezone(cfg.DisplayTimezone)
	if err != nil {
		logger.Error("invalid display timezone", "zone", cfg.DisplayTimezone, "error", err)
		os.Exit(1)
	}

	notifySettings, err := buildNotifySettings(cfg)
	if err != nil {
		logger.Error("invalid notification settings", "error", err)
		os.Exit(1)
	}

	displayFilter, err := buildFilter(cfg.Display.Scope, cfg.Display.MinMagnitude, cfg.Display.PlaceTerms, cfg.Display.GeofenceRadiusKm)
	if err != nil {
		logger.Error("invalid display filter", "error", err)
		os.Exit(1)
	}

	fetcher := feed.NewClient(cfg.FeedURL, cfg.FeedWindow, cfg.FeedMinMagnitude, cfg.FeedTimeout, clock, logger)

	var notifiers []alert.Notifier
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.Kafka.Enabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg.KafkaBrokerList(), cfg.Kafka.Topic, logger)
		notifiers = append(notifiers, kafkaPublisher)
		logger.Info("kafka alert publishing enabled", "topic", cfg.Kafka.Topic)
	}
	if cfg.Ntfy.Enabled {
		notifiers = append(notifiers, ntfy.NewNotifier(cfg.Ntfy.ServerURL, cfg.Ntfy.Topic, cfg.Ntfy.Priority, cfg.Ntfy.DryRun, cfg.FeedTimeout, logger))
		logger.Info("ntfy push enabled", "topic", cfg.Ntfy.Topic, "dry_run", cfg.Ntfy.DryRun)
	}
	if len(notifiers) == 0 {
		logger.Info("no notification sinks configured, alerts are banner-only")
	}

	banner := &metricsBanner{metrics: metrics, logger: logger}
	manager := alert.NewManager(clock, cfg.AlertDwell, banner, logger, notifiers...)

	eventCache := cache.New(clock, loc)
	eventCache.SetDisplayFilter(displayFilter)

	locationCell := &poll.LocationCell{}

	var archiver poll.Archiver
	var store *archive.Store
	if cfg.ArchivePath != "" {
		store, err = archive.Open(cfg.ArchivePath)
		if err != nil {
			logger.Error("failed to open archive", "path", cfg.ArchivePath, "error", err)
			os.Exit(1)
		}
		archiver = store
		logger.Info("event archive enabled", "path", cfg.ArchivePath)
	}

	poller, err := poll.New(poll.Config{
		Fetcher:  fetcher,
		Tracker:  domain.NewWatermarkTracker(),
		Alerter:  manager,
		Cache:    eventCache,
		Settings: staticSettings{settings: notifySettings},
		Location: locationCell,
		Archive:  archiver,
		Interval: cfg.PollInterval,
		Clock:    clock,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		logger.Error("failed to build poller", "error", err)
		os.Exit(1)
	}

	views := &viewSource{cache: eventCache, location: locationCell}
	var history httpadapter.HistorySource
	if store != nil {
		history = store
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, poller, views, manager, locationCell, history, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	poller.Start(ctx)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	poller.Stop()
	manager.Stop()
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("archive close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func loadTimezone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

func buildNotifySettings(cfg *config.Config) (domain.NotificationSettings, error) {
	f, err := buildFilter(cfg.Notify.Scope, cfg.Notify.MinMagnitude, cfg.Notify.PlaceTerms, cfg.Notify.GeofenceRadiusKm)
	if err != nil {
		return domain.NotificationSettings{}, err
	}
	return domain.NotificationSettings{Enabled: cfg.Notify.Enabled, Filter: f}, nil
}

func buildFilter(scope string, minMag float64, placeTerms string, radiusKm float64) (domain.Filter, error) {
	kind, err := domain.ParseScopeKind(scope)
	if err != nil {
		return domain.Filter{}, err
	}
	return domain.Filter{
		Scope:        kind,
		MinMagnitude: minMag,
		PlaceTerms:   placeTerms,
		RadiusKm:     radiusKm,
	}, nil
}

// staticSettings serves the notification settings loaded at startup. The
// poller re-reads them each cycle, so a dynamic source can drop in later.
type staticSettings struct {
	settings domain.NotificationSettings
}

func (s staticSettings) NotificationSettings() domain.NotificationSettings {
	return s.settings
}

// viewSource joins the snapshot cache with the current user position for the
// events endpoint.
type viewSource struct {
	cache    *cache.Cache
	location *poll.LocationCell
}

func (v *viewSource) CurrentView() domain.GroupedView {
	return v.cache.View(v.location.Current())
}

// metricsBanner mirrors the banner slot into the active-alert gauge.
type metricsBanner struct {
	metrics *observability.Metrics
	logger  *slog.Logger
}

func (b *metricsBanner) AlertActivated(e domain.Event, deadline time.Time) {
	b.metrics.AlertActive.Set(1)
	b.logger.Info("alert banner raised",
		"event_id", e.ID,
		"magnitude", e.Magnitude,
		"place", e.Place,
		"deadline", deadline)
}

func (b *metricsBanner) AlertCleared() {
	b.metrics.AlertActive.Set(0)
	b.logger.Info("alert banner cleared")
}
