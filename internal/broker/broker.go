// Package broker is the in-process pub/sub bridge between webhook processing
// and open client streams. Subscriptions are keyed by an opaque client id; in
// practice the id is the cart id the client is waiting on.
package broker

import (
	"sync"

	"github.com/VictoriaMetrics/metrics"
	"payment-relay/internal/status"
)

var (
	publishedCounter  = metrics.GetOrCreateCounter(`broker_publish_total{result="delivered"}`)
	droppedCounter    = metrics.GetOrCreateCounter(`broker_publish_total{result="dropped"}`)
	subscribedCounter = metrics.GetOrCreateCounter(`broker_subscriptions_total`)
)

type Broker struct {
	mu            sync.Mutex
	subscriptions map[string]chan status.Status
}

func New() *Broker {
	return &Broker{
		subscriptions: make(map[string]chan status.Status),
	}
}

// Subscribe registers the single live subscription for clientID and returns
// its receive channel. A second Subscribe for the same id replaces the first;
// the superseded channel is closed so an abandoned reader unblocks instead of
// waiting forever.
func (b *Broker) Subscribe(clientID string) <-chan status.Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.subscriptions[clientID]; ok {
		close(old)
	}

	ch := make(chan status.Status, 1)
	b.subscriptions[clientID] = ch
	subscribedCounter.Inc()
	return ch
}

// Publish delivers st to the subscriber for clientID, if any. Publishing
// before anyone subscribed is a silent no-op: the streaming side compensates
// by polling the store. The send never blocks the caller; if the subscriber
// has not drained a previous delivery the new one is dropped.
func (b *Broker) Publish(clientID string, st status.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscriptions[clientID]
	if !ok {
		droppedCounter.Inc()
		return
	}

	select {
	case ch <- st:
		publishedCounter.Inc()
	default:
		droppedCounter.Inc()
	}
}

// HasSubscriber reports whether a live subscription exists for clientID.
func (b *Broker) HasSubscriber(clientID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.subscriptions[clientID]
	return ok
}

// Unsubscribe detaches and closes the subscription for clientID, provided ch
// is still the live one. A caller whose subscription was replaced by a newer
// connection holds a stale channel and must not tear down its successor.
// Calling it with no live subscription is a no-op.
func (b *Broker) Unsubscribe(clientID string, ch <-chan status.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()

	live, ok := b.subscriptions[clientID]
	if !ok || live != ch {
		return
	}
	close(live)
	delete(b.subscriptions, clientID)
}
