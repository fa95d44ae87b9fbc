package broadcast

import (
	"sync"

	"lxcloud/internal/logger"
	"lxcloud/internal/observability/metrics"

	"go.uber.org/zap"
)

// Hub fans screen updates out to currently-connected viewers. Publish
// never blocks: each subscriber has a buffered channel and events are
// dropped for subscribers that cannot keep up. Nothing is queued for
// viewers that are not connected.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	bufferSize  int
}

// Subscriber is one connected viewer.
type Subscriber struct {
	ch chan ScreenUpdate
}

// Events returns the subscriber's receive channel. It is closed when the
// subscriber is removed from the hub.
func (s *Subscriber) Events() <-chan ScreenUpdate {
	return s.ch
}

func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		bufferSize:  bufferSize,
	}
}

func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{ch: make(chan ScreenUpdate, h.bufferSize)}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()

	logger.Debug("Viewer subscribed", zap.Int("subscribers", count))
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.ch)
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	logger.Debug("Viewer unsubscribed", zap.Int("subscribers", count))
}

// Publish delivers the event to every subscriber that has buffer space.
func (h *Hub) Publish(event ScreenUpdate) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub.ch <- event:
			metrics.BroadcastPublished.Inc()
		default:
			metrics.BroadcastDropped.Inc()
		}
	}
}

// SubscriberCount reports the number of connected viewers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
