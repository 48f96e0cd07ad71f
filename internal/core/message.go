package core

import (
	"time"

	"github.com/vovakirdan/murmur/internal/store"
)

// Message is the domain model for a chat message.
type Message struct {
	ID          int64
	Content     string
	SessionID   string
	RemoteAddr  string
	Fingerprint string // empty when the address could not be normalized
	Room        string // empty for the default room
	CreatedAt   time.Time
}

func messageFromStore(m *store.Message) *Message {
	msg := &Message{
		ID:          m.ID,
		Content:     m.Content,
		SessionID:   m.SessionID,
		RemoteAddr:  m.RemoteAddr,
		Fingerprint: m.Fingerprint,
		CreatedAt:   m.CreatedAt,
	}
	if m.RoomID != nil {
		msg.Room = *m.RoomID
	}
	return msg
}

func (m *Message) toStore() *store.Message {
	rec := &store.Message{
		Content:     m.Content,
		SessionID:   m.SessionID,
		RemoteAddr:  m.RemoteAddr,
		Fingerprint: m.Fingerprint,
	}
	if m.Room != "" {
		room := m.Room
		rec.RoomID = &room
	}
	return rec
}
