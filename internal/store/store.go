package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Room represents an administratively created chat room.
type Room struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message represents a persisted chat message.
type Message struct {
	ID          int64
	Content     string
	SessionID   string
	RemoteAddr  string
	Fingerprint string
	RoomID      *string // nil for the default room
	CreatedAt   time.Time
}

// ListQuery selects a window of the ordered message log.
type ListQuery struct {
	// RoomID restricts results to one room when non-nil.
	// A pointer to "" selects the default room.
	RoomID *string
	Limit  int
	Offset int
}

// MessageStore handles message persistence.
type MessageStore interface {
	// AppendMessage persists msg, filling in ID and CreatedAt.
	// The message is visible to ListMessages once this returns nil.
	AppendMessage(ctx context.Context, msg *Message) error

	// ListMessages returns messages ordered by (created_at, id) ascending
	// together with the total number of messages matching the filter.
	ListMessages(ctx context.Context, q ListQuery) ([]*Message, int, error)
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom creates a new room.
	CreateRoom(ctx context.Context, name string) (*Room, error)

	// GetRoom retrieves a room by its identifier. Identifiers that are not
	// decimal integers report ErrNotFound.
	GetRoom(ctx context.Context, id string) (*Room, error)

	// ListRooms lists all rooms ordered by creation.
	ListRooms(ctx context.Context) ([]*Room, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	MessageStore
	RoomStore

	// Close closes the underlying database connection.
	Close() error
}
