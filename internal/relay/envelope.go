package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vovakirdan/murmur/internal/core"
)

type envelope struct {
	Origin  string       `json:"origin"`
	Room    string       `json:"room"`
	Kind    string       `json:"kind"`
	Message *wireMessage `json:"message,omitempty"`
	Typing  *wireTyping  `json:"typing,omitempty"`
}

type wireMessage struct {
	ID          int64     `json:"id"`
	Content     string    `json:"content"`
	SessionID   string    `json:"session_id"`
	RemoteAddr  string    `json:"ip_address"`
	Fingerprint string    `json:"normalized_ip"`
	CreatedAt   time.Time `json:"created_at"`
}

type wireTyping struct {
	Fingerprint string `json:"normalized_ip"`
	IsTyping    bool   `json:"is_typing"`
}

func encode(origin, room string, ev *core.Event) ([]byte, error) {
	env := envelope{Origin: origin, Room: room, Kind: ev.Kind.String()}
	switch ev.Kind {
	case core.EventMessage:
		m := ev.Message
		env.Message = &wireMessage{
			ID:          m.ID,
			Content:     m.Content,
			SessionID:   m.SessionID,
			RemoteAddr:  m.RemoteAddr,
			Fingerprint: m.Fingerprint,
			CreatedAt:   m.CreatedAt,
		}
	case core.EventTyping:
		env.Typing = &wireTyping{Fingerprint: ev.Typing.Fingerprint, IsTyping: ev.Typing.IsTyping}
	default:
		return nil, fmt.Errorf("unsupported event kind %v", ev.Kind)
	}
	return json.Marshal(env)
}

func decode(payload string) (string, *core.Event, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return "", nil, err
	}

	switch {
	case env.Kind == core.EventMessage.String() && env.Message != nil:
		m := env.Message
		return env.Origin, core.NewMessageEvent(&core.Message{
			ID:          m.ID,
			Content:     m.Content,
			SessionID:   m.SessionID,
			RemoteAddr:  m.RemoteAddr,
			Fingerprint: m.Fingerprint,
			Room:        env.Room,
			CreatedAt:   m.CreatedAt,
		}), nil
	case env.Kind == core.EventTyping.String() && env.Typing != nil:
		return env.Origin, core.NewTypingEvent(env.Room, env.Typing.Fingerprint, env.Typing.IsTyping), nil
	default:
		return "", nil, fmt.Errorf("unknown relay event kind %q", env.Kind)
	}
}
