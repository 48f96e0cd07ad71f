package core

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/murmur/internal/identity"
	"github.com/vovakirdan/murmur/internal/utils"
)

// UnregisterHook runs synchronously when a connection is unregistered.
type UnregisterHook func(*Connection)

// Registry tracks live connections.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	hooks  []UnregisterHook
	buffer int
	log    *zerolog.Logger
}

// NewRegistry creates a registry whose connections buffer up to buffer
// outbound events each.
func NewRegistry(buffer int, logger *zerolog.Logger) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Registry{
		conns:  make(map[string]*Connection),
		buffer: buffer,
		log:    logger,
	}
}

// OnUnregister appends a cleanup hook. Hooks run in the order they were added.
func (r *Registry) OnUnregister(hook UnregisterHook) {
	r.mu.Lock()
	r.hooks = append(r.hooks, hook)
	r.mu.Unlock()
}

// Register creates a connection for a client. A blank sessionID is replaced
// with a generated one; the fingerprint is derived from remoteAddr and may be empty.
func (r *Registry) Register(sessionID, remoteAddr string) *Connection {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	fingerprint, _ := identity.Normalize(remoteAddr)

	conn := newConnection(utils.NewID(), sessionID, remoteAddr, fingerprint, r.buffer)

	r.mu.Lock()
	r.conns[conn.ID] = conn
	total := len(r.conns)
	r.mu.Unlock()

	r.log.Debug().
		Str("conn_id", conn.ID).
		Str("session_id", sessionID).
		Str("fingerprint", fingerprint).
		Int("total", total).
		Msg("connection registered")
	return conn
}

// Unregister removes a connection and runs the cleanup hooks before
// returning. Unknown or already removed ids are ignored.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	conn, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	hooks := append([]UnregisterHook(nil), r.hooks...)
	total := len(r.conns)
	r.mu.Unlock()

	if !ok {
		return
	}

	conn.close()
	for _, hook := range hooks {
		hook(conn)
	}

	r.log.Debug().Str("conn_id", id).Int("total", total).Msg("connection unregistered")
}

// Lookup returns the live connection with the given id.
func (r *Registry) Lookup(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
