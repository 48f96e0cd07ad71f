package core

import (
	"context"
	"testing"
)

func TestChatSubscribeSendAndReceive(t *testing.T) {
	chat := newTestChat(t)
	ctx := context.Background()

	alice := chat.Connect("s-alice", "2601:19b:1082:76b0:1bf0:57bd:2cdf:5156")
	bob := chat.Connect("s-bob", "10.1.1.1")
	defer chat.Disconnect(alice)
	defer chat.Disconnect(bob)

	for _, c := range []*Connection{alice, bob} {
		if _, err := chat.Execute(ctx, c, Command{Kind: CommandSubscribe, Room: "7"}); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}

	msg, err := chat.Execute(ctx, alice, Command{Kind: CommandSendMessage, Content: "hey"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Room != "7" || msg.SessionID != "s-alice" {
		t.Fatalf("unexpected message %+v", msg)
	}

	for _, c := range []*Connection{alice, bob} {
		ev := mustEvent(t, c, EventMessage)
		if ev.Message.ID != msg.ID {
			t.Fatalf("%s: expected message %d, got %d", c.SessionID, msg.ID, ev.Message.ID)
		}
	}
}

func TestChatRequiresSubscription(t *testing.T) {
	chat := newTestChat(t)
	ctx := context.Background()
	conn := chat.Connect("s", "10.0.0.1")

	for _, cmd := range []Command{
		{Kind: CommandSendMessage, Content: "hi"},
		{Kind: CommandTyping, IsTyping: true},
		{Kind: CommandUnsubscribe},
	} {
		_, err := chat.Execute(ctx, conn, cmd)
		if ce := ToCoreError(err); err == nil || ce.Code != ErrCodeNotSubscribed {
			t.Fatalf("command %d: expected not_subscribed, got %v", cmd.Kind, err)
		}
	}

	if _, err := chat.Execute(ctx, conn, Command{Kind: CommandKind(99)}); ToCoreError(err).Code != ErrCodeBadRequest {
		t.Fatalf("expected bad_request for unknown command, got %v", err)
	}
}

func TestChatSwitchingRoomsReleasesTyping(t *testing.T) {
	chat := newTestChat(t)
	ctx := context.Background()

	typist := chat.Connect("s1", "2001:db8::1")
	watcher := chat.Connect("s2", "2001:db8:ffff::1")
	chat.Execute(ctx, typist, Command{Kind: CommandSubscribe, Room: "a"})
	chat.Execute(ctx, watcher, Command{Kind: CommandSubscribe, Room: "a"})

	if _, err := chat.Execute(ctx, typist, Command{Kind: CommandTyping, IsTyping: true}); err != nil {
		t.Fatalf("typing: %v", err)
	}
	mustEvent(t, watcher, EventTyping)

	chat.Execute(ctx, typist, Command{Kind: CommandSubscribe, Room: "b"})

	ev := mustEvent(t, watcher, EventTyping)
	if ev.Typing.IsTyping {
		t.Fatal("expected stop-typing after leaving the room")
	}
	if len(chat.Typing.Typing("a")) != 0 {
		t.Fatal("typing entry survived room switch")
	}
	if chat.Hub.RoomSize("a") != 1 || chat.Hub.RoomSize("b") != 1 {
		t.Fatalf("unexpected room sizes a=%d b=%d", chat.Hub.RoomSize("a"), chat.Hub.RoomSize("b"))
	}
}

func TestChatDisconnectCleansUp(t *testing.T) {
	chat := newTestChat(t)
	ctx := context.Background()

	typist := chat.Connect("s1", "2001:db8::1")
	watcher := chat.Connect("s2", "10.0.0.2")
	chat.Execute(ctx, typist, Command{Kind: CommandSubscribe, Room: "r"})
	chat.Execute(ctx, watcher, Command{Kind: CommandSubscribe, Room: "r"})
	chat.Execute(ctx, typist, Command{Kind: CommandTyping, IsTyping: true})
	mustEvent(t, watcher, EventTyping)

	chat.Disconnect(typist)
	chat.Disconnect(typist)

	ev := mustEvent(t, watcher, EventTyping)
	if ev.Typing.IsTyping || ev.Typing.Fingerprint != typist.Fingerprint {
		t.Fatalf("expected stop-typing on disconnect, got %+v", ev.Typing)
	}
	if _, ok := chat.Hub.Subscription(typist.ID); ok {
		t.Fatal("subscription survived disconnect")
	}
	if chat.Registry.Count() != 1 {
		t.Fatalf("expected 1 live connection, got %d", chat.Registry.Count())
	}

	// Later messages do not reach the disconnected client.
	chat.Execute(ctx, watcher, Command{Kind: CommandSendMessage, Content: "still here?"})
	mustEvent(t, watcher, EventMessage)
	for {
		select {
		case ev := <-typist.Events():
			if ev.Kind == EventMessage {
				t.Fatal("disconnected client received a message")
			}
			continue
		default:
		}
		break
	}
}

func TestChatUnsubscribe(t *testing.T) {
	chat := newTestChat(t)
	ctx := context.Background()
	conn := chat.Connect("s", "")

	chat.Execute(ctx, conn, Command{Kind: CommandSubscribe, Room: "r"})
	if _, err := chat.Execute(ctx, conn, Command{Kind: CommandUnsubscribe}); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if chat.Hub.RoomSize("r") != 0 {
		t.Fatal("expected room to be empty")
	}
	if _, err := chat.Execute(ctx, conn, Command{Kind: CommandSendMessage, Content: "x"}); err == nil {
		t.Fatal("expected send after unsubscribe to fail")
	}
}

func TestChatUnsubscribedConnectionLeavesOldRoomAlone(t *testing.T) {
	chat := newTestChat(t)
	ctx := context.Background()

	// Both tabs share one /64 and therefore one fingerprint.
	first := chat.Connect("s1", "2001:db8::1")
	second := chat.Connect("s2", "2001:db8::2")

	chat.Execute(ctx, first, Command{Kind: CommandSubscribe, Room: "r1"})
	if _, err := chat.Execute(ctx, first, Command{Kind: CommandUnsubscribe}); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}

	chat.Execute(ctx, second, Command{Kind: CommandSubscribe, Room: "r1"})
	chat.Execute(ctx, second, Command{Kind: CommandTyping, IsTyping: true})
	mustEvent(t, second, EventTyping)

	if _, err := chat.Execute(ctx, first, Command{Kind: CommandSubscribe, Room: "r2"}); err != nil {
		t.Fatalf("subscribe r2: %v", err)
	}
	mustNoEvent(t, second)

	chat.Disconnect(first)
	mustNoEvent(t, second)

	if got := chat.Typing.Typing("r1"); len(got) != 1 || got[0] != second.Fingerprint {
		t.Fatalf("expected r1 typing set [%s], got %v", second.Fingerprint, got)
	}
}
