package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/murmur/internal/store"
	"github.com/vovakirdan/murmur/internal/store/sqlite"
)

func mustEvent(t *testing.T, conn *Connection, kind EventKind) *Event {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-conn.Events():
			if ev != nil && ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("expected %v event not received by %s", kind, conn.ID)
			return nil
		}
	}
}

func mustNoEvent(t *testing.T, conn *Connection) {
	t.Helper()

	select {
	case ev := <-conn.Events():
		t.Fatalf("unexpected event for %s: %+v", conn.ID, ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestHistory(t *testing.T) *History {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewHistory(st, 0)
}

// newTestChat wires a full Chat over an in-memory store.
func newTestChat(t *testing.T) *Chat {
	t.Helper()

	hub := NewHub(nil)
	history := newTestHistory(t)
	return NewChat(
		NewRegistry(32, nil),
		hub,
		NewTypingTracker(hub, 0, nil),
		NewPipeline(history, hub, nil),
		history,
	)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*Event
	err    error
}

func (p *recordingPublisher) Publish(_ string, ev *Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) published() []*Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Event(nil), p.events...)
}

var errStoreDown = errors.New("database is locked")

type failingStore struct{}

func (failingStore) AppendMessage(context.Context, *store.Message) error {
	return errStoreDown
}

func (failingStore) ListMessages(context.Context, store.ListQuery) ([]*store.Message, int, error) {
	return nil, 0, errStoreDown
}
