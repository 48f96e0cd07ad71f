package core

// EventKind tags the payload an Event carries.
type EventKind int

const (
	// EventMessage carries a persisted chat message.
	EventMessage EventKind = iota
	// EventTyping carries a typing presence change.
	EventTyping
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventTyping:
		return "typing"
	default:
		return "unknown"
	}
}

// Event is fanned out to the subscribers of a room.
// Exactly one of Message or Typing is set, according to Kind.
type Event struct {
	Kind    EventKind
	Room    string
	Message *Message
	Typing  *TypingEvent
}

// TypingEvent signals that a fingerprint started or stopped typing.
type TypingEvent struct {
	Fingerprint string
	IsTyping    bool
}

// NewMessageEvent wraps a persisted message for fan-out to its room.
func NewMessageEvent(msg *Message) *Event {
	return &Event{Kind: EventMessage, Room: msg.Room, Message: msg}
}

// NewTypingEvent builds a typing presence event for room.
func NewTypingEvent(room, fingerprint string, isTyping bool) *Event {
	return &Event{
		Kind:   EventTyping,
		Room:   room,
		Typing: &TypingEvent{Fingerprint: fingerprint, IsTyping: isTyping},
	}
}

// Publisher fans events out to a room.
type Publisher interface {
	Publish(room string, ev *Event) error
}
