package bus

import (
	"log/slog"
	"sync"
)

// subscriberBuffer is the capacity of each subscriber's queue. Publishers
// never block: a subscriber whose queue is full misses the event.
const subscriberBuffer = 64

// Subscription is one subscriber's view of a bus key. Events arrive on C
// until Close is called or the bus shuts down.
type Subscription[P any] struct {
	ch    chan P
	close func()
	once  sync.Once
}

// C returns the channel events are delivered on. It is closed when the
// subscription ends.
func (s *Subscription[P]) C() <-chan P {
	return s.ch
}

// Close deregisters the subscription. Safe to call more than once.
func (s *Subscription[P]) Close() {
	s.once.Do(s.close)
}

// Bus is an in-memory publish/subscribe exchange keyed by K. Publish
// delivers to every subscriber registered under the same key and never
// blocks the caller.
type Bus[K comparable, P any] struct {
	mu          sync.RWMutex
	subscribers map[K]map[*Subscription[P]]bool
	closed      bool
	logger      *slog.Logger
}

// New creates a Bus.
func New[K comparable, P any](logger *slog.Logger) *Bus[K, P] {
	return &Bus[K, P]{
		subscribers: make(map[K]map[*Subscription[P]]bool),
		logger:      logger.With(slog.String("component", "bus")),
	}
}

// Subscribe registers a new subscriber under key. Events published after
// Subscribe returns are delivered; events published before it are not.
func (b *Bus[K, P]) Subscribe(key K) *Subscription[P] {
	sub := &Subscription[P]{
		ch: make(chan P, subscriberBuffer),
	}
	sub.close = func() {
		b.unsubscribe(key, sub)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(sub.ch)
		sub.once.Do(func() {})
		return sub
	}

	subs, ok := b.subscribers[key]
	if !ok {
		subs = make(map[*Subscription[P]]bool)
		b.subscribers[key] = subs
	}
	subs[sub] = true
	return sub
}

func (b *Bus[K, P]) unsubscribe(key K, sub *Subscription[P]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	subs, ok := b.subscribers[key]
	if !ok || !subs[sub] {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.subscribers, key)
	}
	close(sub.ch)
}

// Publish delivers event to every subscriber of key. Subscribers whose
// queue is full are skipped rather than blocking the publisher.
func (b *Bus[K, P]) Publish(key K, event P) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	dropped := 0
	for sub := range b.subscribers[key] {
		select {
		case sub.ch <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.logger.Warn("event dropped - subscriber buffer full",
			slog.Any("key", key),
			slog.Int("dropped", dropped))
	}
}

// SubscriberCount returns the number of subscribers registered under key.
func (b *Bus[K, P]) SubscriberCount(key K) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[key])
}

// Close shuts down the bus, closing every subscriber channel. Subsequent
// publishes are dropped and subsequent subscriptions receive a closed
// channel.
func (b *Bus[K, P]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.subscribers {
		for sub := range subs {
			sub.once.Do(func() {})
			close(sub.ch)
		}
	}
	b.subscribers = nil
}
