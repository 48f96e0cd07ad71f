package http

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/murmur/internal/config"
	"github.com/vovakirdan/murmur/internal/proto"
)

type outboundFrame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func dialWS(t *testing.T, ctx context.Context, env *testEnv, query string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(env.server.URL, "http", "ws", 1) + "/ws" + query
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	hello := readFrame(t, ctx, conn)
	if hello.Type != proto.OutboundTypeEvent || hello.Event != proto.EventHello {
		t.Fatalf("expected hello, got %+v", hello)
	}
	return conn
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) outboundFrame {
	t.Helper()

	var frame outboundFrame
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return frame
}

// readUntil skips frames until one matches event, or fails the test.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) outboundFrame {
	t.Helper()

	for {
		frame := readFrame(t, ctx, conn)
		if frame.Type == proto.OutboundTypeEvent && frame.Event == event {
			return frame
		}
	}
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	var raw json.RawMessage
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		raw = payload
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: raw}); err != nil {
		t.Fatalf("write inbound: %v", err)
	}
}

func TestWebSocketHello(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(env.server.URL, "http", "ws", 1) + "/ws?session_id=sess-1"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	frame := readFrame(t, ctx, conn)
	var hello proto.Hello
	if err := json.Unmarshal(frame.Data, &hello); err != nil {
		t.Fatalf("unmarshal hello: %v", err)
	}
	if hello.SessionID != "sess-1" || hello.IPAddress != "127.0.0.1" {
		t.Fatalf("unexpected hello %+v", hello)
	}
	if hello.NormalizedIP == nil || *hello.NormalizedIP != "127.0.0.1" {
		t.Fatalf("unexpected normalized ip %v", hello.NormalizedIP)
	}
}

func TestWebSocketMessageFanOut(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dialWS(t, ctx, env, "?session_id=alice&room_id=5")
	readUntil(t, ctx, connA, proto.EventSubscribed)

	connB := dialWS(t, ctx, env, "?session_id=bob")
	send(t, ctx, connB, proto.InboundTypeSubscribe, map[string]any{"room_id": 5})
	sub := readUntil(t, ctx, connB, proto.EventSubscribed)
	var subscribed proto.Subscribed
	json.Unmarshal(sub.Data, &subscribed)
	if subscribed.RoomID != "5" {
		t.Fatalf("unexpected subscribed payload %s", sub.Data)
	}

	connC := dialWS(t, ctx, env, "?session_id=carol&room_id=6")
	readUntil(t, ctx, connC, proto.EventSubscribed)

	send(t, ctx, connA, proto.InboundTypeMsg, proto.MsgData{Content: "hi there"})

	for _, conn := range []*websocket.Conn{connA, connB} {
		frame := readUntil(t, ctx, conn, proto.EventMessage)
		var msg proto.Message
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			t.Fatalf("unmarshal message: %v", err)
		}
		if msg.Content != "hi there" || msg.SessionID != "alice" || msg.RoomID != "5" || msg.ID == 0 {
			t.Fatalf("unexpected message payload %+v", msg)
		}
	}

	// The message is in history for room 5 only.
	room := "5"
	_, total, err := env.chat.History.List(ctx, &room, 0, 0)
	if err != nil || total != 1 {
		t.Fatalf("expected one stored message, total=%d err=%v", total, err)
	}

	shortCtx, shortCancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer shortCancel()
	var frame outboundFrame
	if err := wsjson.Read(shortCtx, connC, &frame); err == nil {
		t.Fatalf("room 6 subscriber received %+v", frame)
	}
}

func TestWebSocketTypingAndDisconnect(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	watcher := dialWS(t, ctx, env, "?session_id=w&room_id=lobby")
	readUntil(t, ctx, watcher, proto.EventSubscribed)

	typistURL := strings.Replace(env.server.URL, "http", "ws", 1) + "/ws?session_id=t&room_id=lobby"
	typist, _, err := websocket.Dial(ctx, typistURL, nil)
	if err != nil {
		t.Fatalf("dial typist: %v", err)
	}
	readUntil(t, ctx, typist, proto.EventSubscribed)

	send(t, ctx, typist, proto.InboundTypeTyping, proto.TypingData{IsTyping: true})

	frame := readUntil(t, ctx, watcher, proto.EventTyping)
	var typing proto.Typing
	json.Unmarshal(frame.Data, &typing)
	if !typing.IsTyping || typing.RoomID != "lobby" || typing.NormalizedIP != "127.0.0.1" {
		t.Fatalf("unexpected typing payload %+v", typing)
	}

	typist.Close(websocket.StatusNormalClosure, "bye")

	frame = readUntil(t, ctx, watcher, proto.EventTyping)
	json.Unmarshal(frame.Data, &typing)
	if typing.IsTyping {
		t.Fatal("expected stop-typing after the typist disconnected")
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.chat.Registry.Count() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 1 live connection, got %d", env.chat.Registry.Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, env, "")

	send(t, ctx, conn, proto.InboundTypeMsg, proto.MsgData{Content: "too early"})
	frame := readFrame(t, ctx, conn)
	if frame.Type != proto.OutboundTypeError || frame.Error.Code != "not_subscribed" {
		t.Fatalf("expected not_subscribed, got %+v", frame)
	}

	send(t, ctx, conn, "join", nil)
	frame = readFrame(t, ctx, conn)
	if frame.Type != proto.OutboundTypeError || frame.Error.Code != "invalid_message" {
		t.Fatalf("expected invalid_message, got %+v", frame)
	}

	send(t, ctx, conn, proto.InboundTypeSubscribe, nil)
	readUntil(t, ctx, conn, proto.EventSubscribed)

	send(t, ctx, conn, proto.InboundTypeMsg, proto.MsgData{Content: "   "})
	frame = readFrame(t, ctx, conn)
	if frame.Type != proto.OutboundTypeError || frame.Error.Code != "validation_failed" {
		t.Fatalf("expected validation_failed, got %+v", frame)
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Chat.InboundRate = 0.001
		cfg.Chat.InboundBurst = 2
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, env, "")

	for range 3 {
		send(t, ctx, conn, proto.InboundTypeUnsubscribe, nil)
	}

	var codes []string
	for range 3 {
		frame := readFrame(t, ctx, conn)
		if frame.Error != nil {
			codes = append(codes, frame.Error.Code)
		}
	}
	if len(codes) != 3 || codes[0] != "not_subscribed" || codes[1] != "not_subscribed" || codes[2] != "rate_limited" {
		t.Fatalf("unexpected error codes %v", codes)
	}
}
