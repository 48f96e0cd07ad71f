package core

import "sync"

// Room is the subscriber partition for one room identifier.
type Room struct {
	ID string

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewRoom constructs a room with no subscribers.
func NewRoom(id string) *Room {
	return &Room{
		ID:   id,
		subs: make(map[*Subscription]struct{}),
	}
}

// Add inserts a subscription. Returns true if newly added.
func (r *Room) Add(sub *Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.subs[sub]; exists {
		return false
	}
	r.subs[sub] = struct{}{}
	return true
}

// Remove deletes a subscription. Returns true if removed.
func (r *Room) Remove(sub *Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.subs[sub]; !exists {
		return false
	}
	delete(r.subs, sub)
	return true
}

// Broadcast hands ev to every subscriber without blocking and returns the
// deliveries that were dropped.
func (r *Room) Broadcast(ev *Event) []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var dropped []error
	for sub := range r.subs {
		if err := sub.conn.deliver(ev); err != nil {
			dropped = append(dropped, err)
		}
	}
	return dropped
}

// Len returns the number of subscribers.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Empty returns true if nobody is subscribed.
func (r *Room) Empty() bool {
	return r.Len() == 0
}

func (r *Room) clear() {
	r.mu.Lock()
	r.subs = make(map[*Subscription]struct{})
	r.mu.Unlock()
}
