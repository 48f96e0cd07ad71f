// Package postgres implements store.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vovakirdan/murmur/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id          BIGSERIAL PRIMARY KEY,
	content     TEXT NOT NULL,
	session_id  TEXT NOT NULL,
	remote_addr TEXT NOT NULL DEFAULT '',
	fingerprint TEXT NOT NULL DEFAULT '',
	room_id     TEXT,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, created_at, id);
CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at, id);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
`

// PostgresStore implements store.Store backed by a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL, verifies the connection and applies the schema.
func New(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// AppendMessage persists a message and fills in its ID and CreatedAt.
func (s *PostgresStore) AppendMessage(ctx context.Context, msg *store.Message) error {
	var roomID *string
	if msg.RoomID != nil && *msg.RoomID != "" {
		roomID = msg.RoomID
	}

	// TIMESTAMPTZ keeps microseconds.
	createdAt := time.Now().UTC().Truncate(time.Microsecond)
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (content, session_id, remote_addr, fingerprint, room_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		msg.Content, msg.SessionID, msg.RemoteAddr, msg.Fingerprint, roomID, createdAt,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	msg.CreatedAt = createdAt
	return nil
}

// ListMessages returns a window of messages in ascending (created_at, id) order.
func (s *PostgresStore) ListMessages(ctx context.Context, q store.ListQuery) ([]*store.Message, int, error) {
	var (
		where string
		args  []any
	)
	switch {
	case q.RoomID == nil:
	case *q.RoomID == "":
		where = "WHERE room_id IS NULL"
	default:
		where = "WHERE room_id = $1"
		args = append(args, *q.RoomID)
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM messages "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	var limit *int
	if q.Limit > 0 {
		limit = &q.Limit
	}
	offset := max(q.Offset, 0)

	n := len(args)
	query := fmt.Sprintf(`
		SELECT id, content, session_id, remote_addr, fingerprint, room_id, created_at
		FROM messages %s
		ORDER BY created_at ASC, id ASC
		LIMIT $%d OFFSET $%d`, where, n+1, n+2)

	rows, err := s.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.Content, &msg.SessionID, &msg.RemoteAddr,
			&msg.Fingerprint, &msg.RoomID, &msg.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan message: %w", err)
		}
		msg.CreatedAt = msg.CreatedAt.UTC()
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, total, nil
}

// CreateRoom creates a new room.
func (s *PostgresStore) CreateRoom(ctx context.Context, name string) (*store.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("room name is required")
	}

	now := time.Now().UTC()
	room := store.Room{Name: name, CreatedAt: now, UpdatedAt: now}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO rooms (name, created_at, updated_at)
		VALUES ($1, $2, $3)
		RETURNING id`, name, now, now).Scan(&room.ID)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}
	return &room, nil
}

// GetRoom retrieves a room by its identifier.
func (s *PostgresStore) GetRoom(ctx context.Context, id string) (*store.Room, error) {
	roomID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("room %q: %w", id, store.ErrNotFound)
	}

	var room store.Room
	err = s.pool.QueryRow(ctx, `
		SELECT id, name, created_at, updated_at
		FROM rooms
		WHERE id = $1`, roomID).Scan(&room.ID, &room.Name, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("room %q: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	return &room, nil
}

// ListRooms lists all rooms ordered by creation.
func (s *PostgresStore) ListRooms(ctx context.Context) ([]*store.Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, created_at, updated_at
		FROM rooms
		ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}

	rooms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*store.Room, error) {
		var room store.Room
		err := row.Scan(&room.ID, &room.Name, &room.CreatedAt, &room.UpdatedAt)
		return &room, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan rooms: %w", err)
	}
	return rooms, nil
}
