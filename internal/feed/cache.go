package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang/groupcache"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/go-quake-map/internal/observability"
)

// BodyGetter downloads a raw feed body.
type BodyGetter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

var groupSeq atomic.Uint64

// CachedFetcher is a read-through cache in front of a BodyGetter. Bodies are keyed
// by URL and the start of the current window, so every caller within one window
// shares a single upstream download and concurrent misses are coalesced.
type CachedFetcher struct {
	inner   BodyGetter
	group   *groupcache.Group
	window  time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewCachedFetcher wraps inner. A nil clock uses real time; metrics may be nil.
func NewCachedFetcher(inner BodyGetter, window time.Duration, cacheBytes int64, clock clockwork.Clock, metrics *observability.Metrics) *CachedFetcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c := &CachedFetcher{
		inner:   inner,
		window:  window,
		clock:   clock,
		metrics: metrics,
	}
	// group names are process-global
	name := fmt.Sprintf("feed-%d", groupSeq.Add(1))
	c.group = groupcache.NewGroup(name, cacheBytes, groupcache.GetterFunc(c.load))
	return c
}

func (c *CachedFetcher) FetchGeoJSON(ctx context.Context, url string) (*geojson.FeatureCollection, error) {
	if c.metrics != nil {
		c.metrics.FeedCache.WithLabelValues("lookup").Inc()
	}

	var body []byte
	if err := c.group.Get(ctx, c.key(url), groupcache.AllocatingByteSliceSink(&body)); err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &FetchError{URL: url, Err: err}
	}
	return decode(url, body)
}

// key is "window-start|url".
func (c *CachedFetcher) key(url string) string {
	start := c.clock.Now().Truncate(c.window)
	return fmt.Sprintf("%d|%s", start.Unix(), url)
}

func (c *CachedFetcher) load(ctx context.Context, key string, dest groupcache.Sink) error {
	_, url, ok := strings.Cut(key, "|")
	if !ok {
		return errors.New("expected window|url cache key: " + key)
	}

	if c.metrics != nil {
		c.metrics.FeedCache.WithLabelValues("miss").Inc()
	}

	body, err := c.inner.Get(ctx, url)
	if err != nil {
		return err
	}
	return dest.SetBytes(body)
}
