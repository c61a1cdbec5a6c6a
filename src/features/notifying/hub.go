package notifying

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultSubscriberBuffer = 16

// Sink receives every published notification. Implementations must not block.
type Sink interface {
	Notify(n Notification)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(n Notification)

func (f SinkFunc) Notify(n Notification) { f(n) }

// Hub fans notifications out to sinks and streaming subscribers.
type Hub struct {
	mu          sync.RWMutex
	sinks       []Sink
	subscribers map[string]chan Notification
	buffer      int
	closed      bool
}

// NewHub creates a hub whose subscriber channels hold buffer notifications.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		subscribers: make(map[string]chan Notification),
		buffer:      buffer,
	}
}

// AddSink registers a sink for all future notifications.
func (h *Hub) AddSink(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks = append(h.sinks, s)
}

// Subscribe returns an id and a channel receiving every future notification.
// The channel is closed by Unsubscribe or Close.
func (h *Hub) Subscribe() (string, <-chan Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := uuid.New().String()
	ch := make(chan Notification, h.buffer)
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subscribers[id] = ch
	slog.Debug("Notification subscriber added", "id", id, "subscribers", len(h.subscribers))
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(ch)
		slog.Debug("Notification subscriber removed", "id", id, "subscribers", len(h.subscribers))
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Publish stamps n and delivers it. Slow subscribers lose the notification
// instead of blocking the publisher.
func (h *Hub) Publish(n Notification) Notification {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Time.IsZero() {
		n.Time = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return n
	}
	for _, s := range h.sinks {
		s.Notify(n)
	}
	for id, ch := range h.subscribers {
		select {
		case ch <- n:
		default:
			slog.Warn("Notification subscriber is full, dropping notification", "id", id, "kind", n.Kind)
		}
	}
	return n
}

// Close ends every subscription. Publishing after Close is a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
}

// LogSink writes notifications to the application log.
func LogSink() Sink {
	return SinkFunc(func(n Notification) {
		switch n.Kind {
		case KindError:
			slog.Error("Notification", "kind", n.Kind, "message", n.Message)
		case KindFileDetected:
			if n.File == nil {
				slog.Info("Notification", "kind", n.Kind, "message", n.Message)
				return
			}
			slog.Info("Notification", "kind", n.Kind, "message", n.Message, "path", n.File.Path, "id", n.File.ID)
		default:
			slog.Info("Notification", "kind", n.Kind, "message", n.Message)
		}
	})
}
