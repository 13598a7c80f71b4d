package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/go-quake-map/internal/config"
	"github.com/mr1hm/go-quake-map/internal/decorate"
	"github.com/mr1hm/go-quake-map/internal/feed"
	"github.com/mr1hm/go-quake-map/internal/mapview"
	"github.com/mr1hm/go-quake-map/internal/observability"
	"github.com/mr1hm/go-quake-map/internal/repository"
	"github.com/mr1hm/go-quake-map/internal/stream"
	"github.com/mr1hm/go-quake-map/internal/worker"
)

const (
	feedEarthquakes = "earthquakes"
	feedPlates      = "plates"
)

type archiveJob struct {
	quake    decorate.Decorated
	announce bool
}

// Manager keeps the map's overlays populated from the two feeds. Each feed is
// fetched on its own goroutine; a failure leaves that overlay as it was and never
// touches the other one.
type Manager struct {
	cfg         *config.Config
	fetcher     feed.Fetcher
	decorator   *decorate.Decorator
	repo        repository.EarthquakeRepository
	broadcaster *stream.Broadcaster
	metrics     *observability.Metrics
	pool        *worker.WorkerPool[archiveJob]
	primed      atomic.Bool
	wg          sync.WaitGroup
}

// NewManager wires the feed pipeline. repo, broadcaster and metrics may be nil.
func NewManager(cfg *config.Config, fetcher feed.Fetcher, decorator *decorate.Decorator, repo repository.EarthquakeRepository, broadcaster *stream.Broadcaster, metrics *observability.Metrics) *Manager {
	return &Manager{
		cfg:         cfg,
		fetcher:     fetcher,
		decorator:   decorator,
		repo:        repo,
		broadcaster: broadcaster,
		metrics:     metrics,
	}
}

// Start loads both feeds into target and keeps refreshing them until ctx is done.
// Archive workers are detached from ctx so that Stop can drain queued jobs.
func (m *Manager) Start(ctx context.Context, target *mapview.Map) {
	if m.repo != nil {
		m.pool = worker.NewWorkerPool("archive", m.cfg.Worker.Count, m.cfg.Worker.BufferSize, m.archive)
		m.pool.Start(context.WithoutCancel(ctx))
	}

	m.wg.Add(2)
	go m.runPoller(ctx, feedEarthquakes, target, m.cfg.Feeds.RefreshInterval)
	go m.runPoller(ctx, feedPlates, target, m.cfg.Feeds.RefreshInterval)
}

// Refresh fetches both feeds once, concurrently, and returns the errors of the
// feeds that failed.
func (m *Manager) Refresh(ctx context.Context, target *mapview.Map) error {
	var (
		wg           sync.WaitGroup
		eqErr, plErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		eqErr = m.poll(ctx, feedEarthquakes, target)
	}()
	go func() {
		defer wg.Done()
		plErr = m.poll(ctx, feedPlates, target)
	}()
	wg.Wait()

	return errors.Join(eqErr, plErr)
}

func (m *Manager) runPoller(ctx context.Context, source string, target *mapview.Map, interval time.Duration) {
	defer m.wg.Done()
	slog.Info("starting poller", "source", source, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial poll
	_ = m.poll(ctx, source, target)

	for {
		select {
		case <-ctx.Done():
			slog.Info("poller shutting down", "source", source)
			return
		case <-ticker.C:
			_ = m.poll(ctx, source, target)
		}
	}
}

func (m *Manager) poll(ctx context.Context, source string, target *mapview.Map) error {
	slog.Debug("polling", "source", source)

	url := m.cfg.Feeds.EarthquakesURL
	if source == feedPlates {
		url = m.cfg.Feeds.PlatesURL
	}

	fetchCtx, cancel := context.WithTimeout(ctx, m.cfg.Feeds.FetchTimeout)
	defer cancel()

	start := time.Now()
	fc, err := m.fetcher.FetchGeoJSON(fetchCtx, url)
	if m.metrics != nil {
		m.metrics.FeedFetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		m.countFetch(source, "error")
		slog.Error("poll failed", "source", source, "url", url, "error", err)
		return fmt.Errorf("%s: %w", source, err)
	}
	m.countFetch(source, "success")

	switch source {
	case feedEarthquakes:
		m.handleEarthquakes(ctx, target, fc)
	case feedPlates:
		m.handlePlates(target, fc)
	}
	return nil
}

func (m *Manager) countFetch(source, outcome string) {
	if m.metrics != nil {
		m.metrics.FeedFetches.WithLabelValues(source, outcome).Inc()
	}
}

func (m *Manager) handleEarthquakes(ctx context.Context, target *mapview.Map, fc *geojson.FeatureCollection) {
	quakes, errs := feed.ParseEarthquakes(fc)
	for _, err := range errs {
		slog.Debug("skipping feature", "source", feedEarthquakes, "error", err)
	}
	if len(errs) > 0 {
		slog.Warn("malformed features skipped", "source", feedEarthquakes, "count", len(errs))
		if m.metrics != nil {
			m.metrics.MalformedFeatures.Add(float64(len(errs)))
		}
	}

	layer := geojson.NewFeatureCollection()
	decorated := make([]decorate.Decorated, 0, len(quakes))
	for _, eq := range quakes {
		dq, err := m.decorator.Decorate(eq)
		if err != nil {
			slog.Warn("skipping earthquake", "id", eq.ID, "error", err)
			continue
		}
		layer.Append(dq.Feature())
		decorated = append(decorated, dq)
	}

	m.publish(target, mapview.OverlayEarthquakes, layer)

	// the first successful load is history, not news
	announce := m.primed.Swap(true)
	if m.pool == nil {
		return
	}
	for _, dq := range decorated {
		if err := m.pool.Submit(ctx, archiveJob{quake: dq, announce: announce}); err != nil {
			return
		}
	}
}

func (m *Manager) handlePlates(target *mapview.Map, fc *geojson.FeatureCollection) {
	m.publish(target, mapview.OverlayPlates, fc)
}

func (m *Manager) publish(target *mapview.Map, overlay string, fc *geojson.FeatureCollection) {
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	if err := target.SetOverlay(overlay, fc); err != nil {
		slog.Error("error setting overlay", "overlay", overlay, "error", err)
		return
	}
	if m.metrics != nil {
		m.metrics.LayerFeatures.WithLabelValues(overlay).Set(float64(len(fc.Features)))
	}
	slog.Debug("overlay updated", "overlay", overlay, "count", len(fc.Features))
}

func (m *Manager) archive(ctx context.Context, job archiveJob) error {
	record := job.quake.Earthquake
	record.CreatedAt = time.Now()

	inserted, err := m.repo.Add(ctx, &record)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}
	if m.metrics != nil {
		m.metrics.Archived.Inc()
	}

	if job.announce && m.broadcaster != nil {
		m.broadcaster.Broadcast(job.quake)
	}

	slog.Debug("archived earthquake", "id", record.ID, "magnitude", record.Magnitude)
	return nil
}

// Stop waits for the pollers to exit after ctx is cancelled, then archives every
// job still queued before returning. Refresh must not be called after Stop.
func (m *Manager) Stop() {
	m.wg.Wait()
	if m.pool != nil {
		m.pool.Stop()
	}
	slog.Info("ingestion manager stopped")
}
