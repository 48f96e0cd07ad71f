package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TypingTracker keeps the per-room set of fingerprints that are typing.
// State lives only in memory.
type TypingTracker struct {
	mu    sync.Mutex
	rooms map[string]map[string]time.Time // room -> fingerprint -> last signal
	pub   Publisher
	idle  time.Duration
	now   func() time.Time
	log   *zerolog.Logger
}

// NewTypingTracker builds a tracker that republishes through pub.
// idle > 0 enables expiry of entries that saw no signal for that long (see Run).
func NewTypingTracker(pub Publisher, idle time.Duration, logger *zerolog.Logger) *TypingTracker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &TypingTracker{
		rooms: make(map[string]map[string]time.Time),
		pub:   pub,
		idle:  idle,
		now:   time.Now,
		log:   logger,
	}
}

// Handle applies a typing signal for room and republishes it to the room.
// Signals without a fingerprint are ignored. The publish happens after the
// tracker lock is released.
func (t *TypingTracker) Handle(room string, ev TypingEvent) error {
	if !t.apply(room, ev) {
		return nil
	}
	return t.pub.Publish(room, NewTypingEvent(room, ev.Fingerprint, ev.IsTyping))
}

// Observe records a typing signal that was already delivered elsewhere,
// such as one relayed from another instance. Nothing is published.
func (t *TypingTracker) Observe(room string, ev TypingEvent) {
	t.apply(room, ev)
}

func (t *TypingTracker) apply(room string, ev TypingEvent) bool {
	if ev.Fingerprint == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if ev.IsTyping {
		set, ok := t.rooms[room]
		if !ok {
			set = make(map[string]time.Time)
			t.rooms[room] = set
		}
		set[ev.Fingerprint] = t.now()
	} else {
		t.removeLocked(room, ev.Fingerprint)
	}
	return true
}

// SetTyping applies a typing signal coming from conn in its subscribed room.
// Connections without a fingerprint or subscription are ignored.
func (t *TypingTracker) SetTyping(conn *Connection, isTyping bool) error {
	room, subscribed := conn.Room()
	if !subscribed || conn.Fingerprint == "" {
		return nil
	}
	return t.Handle(room, TypingEvent{Fingerprint: conn.Fingerprint, IsTyping: isTyping})
}

// Release publishes a stop-typing signal for a disconnected connection in
// the last room it subscribed to. It is registered as a Registry unregister hook.
func (t *TypingTracker) Release(conn *Connection) {
	room, subscribed := conn.Room()
	if !subscribed || conn.Fingerprint == "" {
		return
	}
	if err := t.Handle(room, TypingEvent{Fingerprint: conn.Fingerprint, IsTyping: false}); err != nil {
		t.log.Warn().Err(err).Str("conn_id", conn.ID).Str("room", room).Msg("publish typing release")
	}
}

// Typing returns the sorted fingerprints currently typing in room.
func (t *TypingTracker) Typing(room string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.rooms[room]
	out := make([]string, 0, len(set))
	for fp := range set {
		out = append(out, fp)
	}
	sort.Strings(out)
	return out
}

// Run expires idle entries until ctx is done. It returns immediately when
// no idle timeout is configured.
func (t *TypingTracker) Run(ctx context.Context) {
	if t.idle <= 0 {
		return
	}

	ticker := time.NewTicker(max(t.idle/2, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}

// Sweep expires entries idle for longer than the configured timeout and
// publishes a stop-typing signal for each. Returns the number expired.
func (t *TypingTracker) Sweep() int {
	if t.idle <= 0 {
		return 0
	}

	type entry struct{ room, fp string }

	t.mu.Lock()
	cutoff := t.now().Add(-t.idle)
	var expired []entry
	for room, set := range t.rooms {
		for fp, last := range set {
			if last.After(cutoff) {
				continue
			}
			t.removeLocked(room, fp)
			expired = append(expired, entry{room: room, fp: fp})
		}
	}
	t.mu.Unlock()

	for _, e := range expired {
		if err := t.pub.Publish(e.room, NewTypingEvent(e.room, e.fp, false)); err != nil {
			t.log.Warn().Err(err).Str("room", e.room).Msg("publish typing expiry")
		}
	}
	return len(expired)
}

func (t *TypingTracker) removeLocked(room, fingerprint string) {
	set, ok := t.rooms[room]
	if !ok {
		return
	}
	delete(set, fingerprint)
	if len(set) == 0 {
		delete(t.rooms, room)
	}
}
