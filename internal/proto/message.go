package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeSubscribe   = "subscribe"
	InboundTypeUnsubscribe = "unsubscribe"
	InboundTypeTyping      = "typing"
	InboundTypeMsg         = "msg"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventHello      = "hello"
	EventSubscribed = "subscribed"
	EventMessage    = "message"
	EventTyping     = "typing"
)

// SubscribeData binds the connection to a room. A missing room_id selects
// the default room.
type SubscribeData struct {
	RoomID RoomID `json:"room_id"`
}

// TypingData reports that the client started or stopped typing.
type TypingData struct {
	IsTyping bool `json:"is_typing"`
}

// MsgData is a chat message from the client, sent to its subscribed room.
type MsgData struct {
	Content string `json:"content"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Hello is sent once after the connection is accepted.
type Hello struct {
	SessionID    string  `json:"session_id"`
	IPAddress    string  `json:"ip_address"`
	NormalizedIP *string `json:"normalized_ip"`
}

// Subscribed confirms a subscription.
type Subscribed struct {
	RoomID RoomID `json:"room_id"`
}

// Message is the JSON form of a stored chat message, shared by the REST API
// and the realtime channel.
type Message struct {
	ID           int64     `json:"id"`
	Content      string    `json:"content"`
	SessionID    string    `json:"session_id"`
	IPAddress    string    `json:"ip_address"`
	NormalizedIP *string   `json:"normalized_ip"`
	RoomID       RoomID    `json:"room_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Typing is a typing presence change in a room.
type Typing struct {
	RoomID       RoomID `json:"room_id"`
	NormalizedIP string `json:"normalized_ip"`
	IsTyping     bool   `json:"is_typing"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
