package core

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Subscription binds one connection to one room.
type Subscription struct {
	conn *Connection
	room string
}

// Room returns the subscribed room identifier.
func (s *Subscription) Room() string { return s.room }

// ConnID returns the subscribed connection id.
func (s *Subscription) ConnID() string { return s.conn.ID }

// Hub fans events out to the subscribers of each room.
//
// Room identifiers are partition keys only: subscribing or publishing to an
// unknown room uses an empty partition. Publishing never blocks on a slow
// subscriber; events that do not fit in its buffer are dropped.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	subs   map[string]*Subscription // by connection id
	closed bool
	log    *zerolog.Logger
}

// NewHub creates a new chat hub instance.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		rooms: make(map[string]*Room),
		subs:  make(map[string]*Subscription),
		log:   logger,
	}
}

// Run blocks until ctx is done and then closes the hub.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.Close()
}

// Close drops every subscription. Later operations return ErrHubClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, room := range h.rooms {
		room.clear()
	}
	h.rooms = make(map[string]*Room)
	h.subs = make(map[string]*Subscription)
	h.log.Info().Msg("hub closed")
}

// Subscribe binds conn to room, replacing any previous subscription of conn.
func (h *Hub) Subscribe(conn *Connection, room string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if conn.closed() {
		return nil, ErrConnectionClosed
	}

	if prev, ok := h.subs[conn.ID]; ok {
		h.removeLocked(prev)
	}

	sub := &Subscription{conn: conn, room: room}
	r, ok := h.rooms[room]
	if !ok {
		r = NewRoom(room)
		h.rooms[room] = r
	}
	r.Add(sub)
	h.subs[conn.ID] = sub
	conn.setRoom(room)

	h.log.Debug().Str("conn_id", conn.ID).Str("room", room).Int("subscribers", r.Len()).Msg("subscribed")
	return sub, nil
}

// Unsubscribe removes sub. Stale or repeated calls are no-ops.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.subs[sub.conn.ID]; ok && current == sub {
		h.removeLocked(sub)
	}
}

// Detach removes whatever subscription conn holds.
// It is registered as a Registry unregister hook.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subs[conn.ID]; ok {
		h.removeLocked(sub)
	}
}

func (h *Hub) removeLocked(sub *Subscription) {
	delete(h.subs, sub.conn.ID)
	r, ok := h.rooms[sub.room]
	if !ok {
		return
	}
	r.Remove(sub)
	if r.Empty() {
		delete(h.rooms, sub.room)
	}
	h.log.Debug().Str("conn_id", sub.conn.ID).Str("room", sub.room).Msg("unsubscribed")
}

// Publish delivers ev to every current subscriber of room. Events published
// to the same room are delivered in publish order.
func (h *Hub) Publish(room string, ev *Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHubClosed
	}

	r, ok := h.rooms[room]
	if !ok {
		return nil
	}

	for _, err := range r.Broadcast(ev) {
		h.log.Debug().Err(err).Str("room", room).Stringer("kind", ev.Kind).Msg("event dropped")
	}
	return nil
}

// Subscription returns the active subscription of a connection.
func (h *Hub) Subscription(connID string) (*Subscription, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sub, ok := h.subs[connID]
	return sub, ok
}

// RoomSize returns the number of subscribers in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r, ok := h.rooms[room]; ok {
		return r.Len()
	}
	return 0
}

// Rooms lists the rooms that currently have subscribers.
func (h *Hub) Rooms() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		rooms = append(rooms, id)
	}
	sort.Strings(rooms)
	return rooms
}
