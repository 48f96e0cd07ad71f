package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/murmur/internal/config"
	"github.com/vovakirdan/murmur/internal/core"
	"github.com/vovakirdan/murmur/internal/store"
	"github.com/vovakirdan/murmur/internal/store/sqlite"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	store   *sqlite.SQLiteStore
	chat    *core.Chat
	handler http.Handler
	server  *httptest.Server
	cfg     config.Config
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ShutdownTimeout = time.Second
	for _, fn := range mutate {
		fn(&cfg)
	}

	logger := zerolog.Nop()
	st := createTestStore(t)

	hub := core.NewHub(&logger)
	history := core.NewHistory(st, cfg.Chat.MaxMessageChars)
	chat := core.NewChat(
		core.NewRegistry(cfg.Chat.ClientBuffer, &logger),
		hub,
		core.NewTypingTracker(hub, cfg.Chat.TypingIdleTimeout, &logger),
		core.NewPipeline(history, hub, &logger),
		history,
	)

	server := NewServer(Deps{Chat: chat, Rooms: st}, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{store: st, chat: chat, handler: server.Handler, server: ts, cfg: cfg}
}

func (e *testEnv) createRoom(t *testing.T, name string) *store.Room {
	t.Helper()

	room, err := e.store.CreateRoom(context.Background(), name)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room
}

// do serves req in-process from remoteAddr and returns the recorded response.
func (e *testEnv) do(req *http.Request, remoteAddr string) *httptest.ResponseRecorder {
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	resp := httptest.NewRecorder()
	e.handler.ServeHTTP(resp, req)
	return resp
}
