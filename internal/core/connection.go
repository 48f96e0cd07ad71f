package core

import "sync"

// Connection is a live client as seen by the core layer.
type Connection struct {
	ID          string
	SessionID   string
	RemoteAddr  string
	Fingerprint string // empty when the address could not be normalized

	events    chan *Event
	done      chan struct{}
	closeOnce sync.Once

	mu         sync.Mutex
	room       string
	subscribed bool
}

func newConnection(id, sessionID, remoteAddr, fingerprint string, buffer int) *Connection {
	if buffer <= 0 {
		buffer = 1
	}
	return &Connection{
		ID:          id,
		SessionID:   sessionID,
		RemoteAddr:  remoteAddr,
		Fingerprint: fingerprint,
		events:      make(chan *Event, buffer),
		done:        make(chan struct{}),
	}
}

// Events streams events delivered to this connection. The channel is never
// closed; select on Done to detect disconnects.
func (c *Connection) Events() <-chan *Event {
	return c.events
}

// Done is closed once the connection has been unregistered.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Room returns the room of the current subscription and whether there is
// one. It survives disconnect so unregister hooks can still read it, and is
// cleared by an explicit unsubscribe.
func (c *Connection) Room() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room, c.subscribed
}

func (c *Connection) setRoom(room string) {
	c.mu.Lock()
	c.room = room
	c.subscribed = true
	c.mu.Unlock()
}

func (c *Connection) clearRoom() {
	c.mu.Lock()
	c.room = ""
	c.subscribed = false
	c.mu.Unlock()
}

func (c *Connection) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// deliver hands ev to the connection without blocking.
func (c *Connection) deliver(ev *Event) error {
	if c.closed() {
		return &DeliveryError{ConnID: c.ID, Room: ev.Room, Reason: "connection closed"}
	}
	select {
	case c.events <- ev:
		return nil
	default:
		return &DeliveryError{ConnID: c.ID, Room: ev.Room, Reason: "buffer full"}
	}
}
