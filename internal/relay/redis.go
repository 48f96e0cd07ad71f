// Package relay fans room events out across server instances over Redis pub/sub.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/murmur/internal/core"
	"github.com/vovakirdan/murmur/internal/utils"
)

const defaultPublishTimeout = 2 * time.Second

// Bridge publishes events to the local hub and mirrors them to every other
// instance listening on the same Redis channel.
type Bridge struct {
	local   core.Publisher
	client  *redis.Client
	channel string
	origin  string
	timeout time.Duration
	ready   chan struct{}
	observe atomic.Pointer[func(room string, ev core.TypingEvent)]
	log     *zerolog.Logger
}

// New creates a bridge in front of local. Run must be called once to
// receive events from other instances.
func New(local core.Publisher, client *redis.Client, channel string, timeout time.Duration, logger *zerolog.Logger) *Bridge {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &Bridge{
		local:   local,
		client:  client,
		channel: channel,
		origin:  utils.NewID(),
		timeout: timeout,
		ready:   make(chan struct{}),
		log:     logger,
	}
}

// Publish delivers ev locally and then relays it. A relay failure is logged
// and does not fail the call: local subscribers already have the event.
func (b *Bridge) Publish(room string, ev *core.Event) error {
	if err := b.local.Publish(room, ev); err != nil {
		return err
	}

	payload, err := encode(b.origin, room, ev)
	if err != nil {
		b.log.Error().Err(err).Str("room", room).Msg("encode relay event")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.log.Warn().Err(err).Str("room", room).Stringer("kind", ev.Kind).Msg("relay publish")
	}
	return nil
}

// Ready is closed once Run has an active subscription.
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready
}

// Run subscribes to the relay channel and forwards events from other
// instances to the local hub until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	close(b.ready)
	b.log.Info().Str("channel", b.channel).Str("origin", b.origin).Msg("relay subscribed")

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			b.forward(msg.Payload)
		}
	}
}

// ObserveTyping registers fn to receive typing signals relayed from other
// instances, before they are delivered locally.
func (b *Bridge) ObserveTyping(fn func(room string, ev core.TypingEvent)) {
	b.observe.Store(&fn)
}

func (b *Bridge) forward(payload string) {
	origin, ev, err := decode(payload)
	if err != nil {
		b.log.Warn().Err(err).Msg("drop malformed relay event")
		return
	}
	if origin == b.origin {
		return
	}
	if ev.Kind == core.EventTyping && ev.Typing != nil {
		if fn := b.observe.Load(); fn != nil {
			(*fn)(ev.Room, *ev.Typing)
		}
	}
	if err := b.local.Publish(ev.Room, ev); err != nil && !errors.Is(err, core.ErrHubClosed) {
		b.log.Warn().Err(err).Str("room", ev.Room).Msg("relay deliver")
	}
}
