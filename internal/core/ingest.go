package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/murmur/internal/identity"
)

// Submission is an inbound chat message before validation.
type Submission struct {
	Content    string
	Room       string
	SessionID  string
	RemoteAddr string
}

// Pipeline validates, persists and then publishes inbound messages.
// A message is published only after it is durably stored; publish
// failures never undo the write.
type Pipeline struct {
	history *History
	pub     Publisher
	log     *zerolog.Logger
}

// NewPipeline wires the message log to a publisher.
func NewPipeline(history *History, pub Publisher, logger *zerolog.Logger) *Pipeline {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Pipeline{history: history, pub: pub, log: logger}
}

// Submit stores sub and fans it out to its room.
// Errors are *ValidationError or *StorageError.
func (p *Pipeline) Submit(ctx context.Context, sub Submission) (*Message, error) {
	if err := validateMessage(sub.Content, sub.SessionID, p.history.maxChars); err != nil {
		return nil, err
	}

	fingerprint, _ := identity.Normalize(sub.RemoteAddr)

	msg, err := p.history.Append(ctx, Message{
		Content:     sub.Content,
		SessionID:   sub.SessionID,
		RemoteAddr:  sub.RemoteAddr,
		Fingerprint: fingerprint,
		Room:        sub.Room,
	})
	if err != nil {
		return nil, err
	}

	if err := p.pub.Publish(msg.Room, NewMessageEvent(msg)); err != nil {
		p.log.Warn().Err(err).Int64("message_id", msg.ID).Str("room", msg.Room).Msg("publish message")
	}
	return msg, nil
}
