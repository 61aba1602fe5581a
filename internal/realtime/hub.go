package realtime

import "sync"

// Hub fans server-side notifications out to the live sessions of the
// identity they address. Bridges cover change-driven notifications;
// the hub covers the ones the write path raises directly, such as the
// level-up on a check-in, which never ride the change exchange.
//
// A session subscribes for its identity; an identity may hold several
// subscriptions at once (one per open connection).
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[uint64]map[int]chan Notification
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]map[int]chan Notification)}
}

// Subscribe registers a session for userID's notifications. The cancel
// func releases the subscription; calling it more than once is safe.
func (h *Hub) Subscribe(userID uint64) (<-chan Notification, func()) {
	ch := make(chan Notification, 16)

	h.mu.Lock()
	id := h.next
	h.next++
	m := h.subs[userID]
	if m == nil {
		m = make(map[int]chan Notification)
		h.subs[userID] = m
	}
	m[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if m := h.subs[userID]; m != nil {
			delete(m, id)
			if len(m) == 0 {
				delete(h.subs, userID)
			}
		}
	}
	return ch, cancel
}

// Notify delivers n to every subscription of the identity it targets.
// Notifications without a target identity are dropped. Slow consumers
// are skipped rather than blocked on.
func (h *Hub) Notify(n Notification) {
	target, ok := notificationTarget(n)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[target] {
		select {
		case ch <- n:
		default:
		}
	}
}

// notificationTarget resolves which identity a notification addresses.
// Only the variants the write path raises carry one; the rest are
// bridge-local and never pass through the hub.
func notificationTarget(n Notification) (uint64, bool) {
	switch v := n.(type) {
	case LevelUp:
		return v.UserID, true
	}
	return 0, false
}
