// Package realtime fans out notification events to live subscribers such as
// WebSocket sessions. Delivery is best effort: a subscriber whose buffer is full
// misses the event, and nothing is replayed.
package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/vindel10/vindel-api/internal/models"
)

// Subscription is one live listener for a user's events.
type Subscription struct {
	ID     uint64
	UserID string
	Events <-chan models.NotificationEvent

	ch chan models.NotificationEvent
}

// Hub is a concurrency-safe per-user publish/subscribe dispatcher.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[uint64]*Subscription
	nextID  uint64
	bufSize int
	dropped atomic.Uint64
}

// NewHub constructs a hub with the given per-subscriber buffer. Values <= 0
// default to 32.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 32
	}
	return &Hub{subs: make(map[string]map[uint64]*Subscription), bufSize: bufSize}
}

// Subscribe registers a listener for userID. Callers must Unsubscribe when done.
func (h *Hub) Subscribe(userID string) *Subscription {
	ch := make(chan models.NotificationEvent, h.bufSize)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &Subscription{ID: h.nextID, UserID: userID, Events: ch, ch: ch}
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[uint64]*Subscription)
	}
	h.subs[userID][sub.ID] = sub
	return sub
}

// Unsubscribe removes the listener and closes its channel. Repeated calls are
// ignored.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	userSubs := h.subs[sub.UserID]
	if _, ok := userSubs[sub.ID]; !ok {
		return
	}
	delete(userSubs, sub.ID)
	if len(userSubs) == 0 {
		delete(h.subs, sub.UserID)
	}
	close(sub.ch)
}

// Publish delivers event to every listener of userID and returns how many
// received it.
func (h *Hub) Publish(userID string, event models.NotificationEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, sub := range h.subs[userID] {
		select {
		case sub.ch <- event:
			delivered++
		default:
			h.dropped.Add(1)
		}
	}
	return delivered
}

// Subscribers returns the number of live listeners for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Dropped returns how many events were discarded because a buffer was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
