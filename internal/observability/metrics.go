package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for feed fetching, classification and the archive.
type Metrics struct {
	FeedFetches       *prometheus.CounterVec   // labels: feed={earthquakes,plates}, outcome={success,error}
	FeedFetchDuration *prometheus.HistogramVec // labels: feed
	FeedCache         *prometheus.CounterVec   // labels: result={lookup,miss}
	MalformedFeatures prometheus.Counter
	LayerFeatures     *prometheus.GaugeVec   // labels: layer
	Classified        *prometheus.CounterVec // labels: color
	Archived          prometheus.Counter
	StreamSubscribers prometheus.Gauge
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_map",
			Name:      "feed_fetches_total",
			Help:      help("Feed fetches by feed and outcome."),
		}, []string{"feed", "outcome"}),
		FeedFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quake_map",
			Name:      "feed_fetch_duration_seconds",
			Help:      help("Duration of a feed fetch including decode."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"feed"}),
		FeedCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_map",
			Name:      "feed_cache_total",
			Help:      help("Feed cache lookups and upstream misses."),
		}, []string{"result"}),
		MalformedFeatures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_map",
			Name:      "malformed_features_total",
			Help:      help("Earthquake features skipped for missing or invalid attributes."),
		}),
		LayerFeatures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "quake_map",
			Name:      "layer_features",
			Help:      help("Number of features currently in each overlay."),
		}, []string{"layer"}),
		Classified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_map",
			Name:      "classified_total",
			Help:      help("Earthquakes styled, by tier color."),
		}, []string{"color"}),
		Archived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_map",
			Name:      "archived_total",
			Help:      help("Earthquakes newly written to the archive."),
		}),
		StreamSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_map",
			Name:      "stream_subscribers",
			Help:      help("Open live stream connections."),
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.FeedFetches,
		m.FeedFetchDuration,
		m.FeedCache,
		m.MalformedFeatures,
		m.LayerFeatures,
		m.Classified,
		m.Archived,
		m.StreamSubscribers,
	)

	return m
}

// NewMetricsForTesting creates unregistered metrics so tests can build as many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
