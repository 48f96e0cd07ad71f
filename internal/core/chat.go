package core

import (
	"context"
	"fmt"
)

// Chat bundles the realtime components and executes client commands.
type Chat struct {
	Registry *Registry
	Hub      *Hub
	Typing   *TypingTracker
	Pipeline *Pipeline
	History  *History
}

// NewChat wires the components together. Disconnect cleanup runs in order:
// registry removal, hub detach, typing release.
func NewChat(registry *Registry, hub *Hub, typing *TypingTracker, pipeline *Pipeline, history *History) *Chat {
	registry.OnUnregister(hub.Detach)
	registry.OnUnregister(typing.Release)
	return &Chat{
		Registry: registry,
		Hub:      hub,
		Typing:   typing,
		Pipeline: pipeline,
		History:  history,
	}
}

// Connect registers a new client connection.
func (c *Chat) Connect(sessionID, remoteAddr string) *Connection {
	return c.Registry.Register(sessionID, remoteAddr)
}

// Disconnect unregisters conn and runs its cleanup.
func (c *Chat) Disconnect(conn *Connection) {
	c.Registry.Unregister(conn.ID)
}

// Execute runs cmd on behalf of conn. A sent message is returned so the
// caller can acknowledge it.
func (c *Chat) Execute(ctx context.Context, conn *Connection, cmd Command) (*Message, error) {
	switch cmd.Kind {
	case CommandSubscribe:
		if _, ok := c.Hub.Subscription(conn.ID); ok {
			c.leave(conn)
		}
		if _, err := c.Hub.Subscribe(conn, cmd.Room); err != nil {
			return nil, err
		}
		return nil, nil

	case CommandUnsubscribe:
		if _, ok := c.Hub.Subscription(conn.ID); !ok {
			return nil, coreError(ErrCodeNotSubscribed, "not subscribed")
		}
		c.leave(conn)
		return nil, nil

	case CommandTyping:
		if _, ok := c.Hub.Subscription(conn.ID); !ok {
			return nil, coreError(ErrCodeNotSubscribed, "subscribe to a room first")
		}
		return nil, c.Typing.SetTyping(conn, cmd.IsTyping)

	case CommandSendMessage:
		sub, ok := c.Hub.Subscription(conn.ID)
		if !ok {
			return nil, coreError(ErrCodeNotSubscribed, "subscribe to a room first")
		}
		return c.Pipeline.Submit(ctx, Submission{
			Content:    cmd.Content,
			Room:       sub.Room(),
			SessionID:  conn.SessionID,
			RemoteAddr: conn.RemoteAddr,
		})

	default:
		return nil, coreError(ErrCodeBadRequest, fmt.Sprintf("unknown command %d", cmd.Kind))
	}
}

// leave detaches conn from its room and clears its typing presence there.
// Afterwards conn has no room, so a later disconnect releases nothing.
func (c *Chat) leave(conn *Connection) {
	c.Hub.Detach(conn)
	c.Typing.Release(conn)
	conn.clearRoom()
}
