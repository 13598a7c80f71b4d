package stream

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-quake-map/internal/decorate"
	"github.com/mr1hm/go-quake-map/internal/observability"
)

// subscriberBuffer covers one refresh worth of new earthquakes for a typical feed.
const subscriberBuffer = 100

// Broadcaster fans newly archived earthquakes out to live stream subscribers.
type Broadcaster struct {
	subscribers map[uint64]chan decorate.Decorated
	nextID      atomic.Uint64
	mu          sync.RWMutex
	closed      bool
	metrics     *observability.Metrics
}

// NewBroadcaster returns an empty Broadcaster; metrics may be nil.
func NewBroadcaster(metrics *observability.Metrics) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan decorate.Decorated),
		metrics:     metrics,
	}
}

// Subscribe registers a new subscriber. After Close the returned channel is already closed.
func (b *Broadcaster) Subscribe() (uint64, <-chan decorate.Decorated) {
	id := b.nextID.Add(1)
	ch := make(chan decorate.Decorated, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subscribers[id] = ch
	b.setGauge()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
		b.setGauge()
	}
}

func (b *Broadcaster) Broadcast(d decorate.Decorated) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- d:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing streams to exit gracefully
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
	b.setGauge()
}

// setGauge must be called with mu held.
func (b *Broadcaster) setGauge() {
	if b.metrics != nil {
		b.metrics.StreamSubscribers.Set(float64(len(b.subscribers)))
	}
}
