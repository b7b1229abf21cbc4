package identity

import "sync"

// Hub fans session events out to subscribers. Each subscriber owns the
// unsubscribe func it was handed.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]func(SessionEvent)
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]func(SessionEvent))}
}

// Subscribe registers fn and returns an idempotent unsubscribe func.
func (h *Hub) Subscribe(fn func(SessionEvent)) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers evt to every current subscriber, outside the lock. A
// subscriber removed while earlier callbacks run is skipped.
func (h *Hub) Publish(evt SessionEvent) {
	h.mu.RLock()
	ids := make([]uint64, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.mu.RLock()
		fn, ok := h.subs[id]
		h.mu.RUnlock()
		if ok {
			fn(evt)
		}
	}
}

func (h *Hub) size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
