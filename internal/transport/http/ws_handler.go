package http

import (
	"context"
	"errors"
	"io"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/murmur/internal/core"
	"github.com/vovakirdan/murmur/internal/proto"
)

// WSOptions tunes the realtime endpoint.
type WSOptions struct {
	AllowedOrigins []string
	InboundRate    float64
	InboundBurst   int
	MaxFrameBytes  int64
}

// WSHandler upgrades HTTP connections and bridges them to the chat core.
type WSHandler struct {
	chat *core.Chat
	opts WSOptions
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(chat *core.Chat, opts WSOptions, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{chat: chat, opts: opts, log: logger}
}

// Handle serves GET /ws?session_id=&room_id=. When room_id is present the
// connection is subscribed to that room right away.
func (h *WSHandler) Handle(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = c.GetHeader(HeaderSessionID)
	}
	remoteAddr := c.ClientIP()
	initialRoom, autoSubscribe := c.GetQuery("room_id")

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.opts.AllowedOrigins,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.opts.MaxFrameBytes > 0 {
		conn.SetReadLimit(h.opts.MaxFrameBytes)
	}

	client := h.chat.Connect(sessionID, remoteAddr)
	defer h.chat.Disconnect(client)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	if err := wsjson.Write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: proto.EventHello,
		Data:  proto.Hello{SessionID: client.SessionID, IPAddress: remoteAddr, NormalizedIP: optional(client.Fingerprint)},
	}); err != nil {
		h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("write ws hello")
		return
	}

	if autoSubscribe {
		if err := h.execute(ctx, conn, client, core.Command{Kind: core.CommandSubscribe, Room: initialRoom}); err != nil {
			return
		}
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Connection) error {
	limiter := newInboundLimiter(h.opts.InboundRate, h.opts.InboundBurst)
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("read ws inbound")
			return err
		}

		if !limiter.allow() {
			if err := h.writeError(ctx, conn, &core.CoreError{Code: core.ErrCodeRateLimited, Message: "too many messages"}); err != nil {
				return err
			}
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			if err := wsjson.Write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeError, Error: protoErr}); err != nil {
				return err
			}
			continue
		}

		if err := h.execute(ctx, conn, client, *cmd); err != nil {
			return err
		}
	}
}

// execute runs cmd and reports its outcome to the client. Only transport
// failures and hub shutdown are returned.
func (h *WSHandler) execute(ctx context.Context, conn *websocket.Conn, client *core.Connection, cmd core.Command) error {
	_, err := h.chat.Execute(ctx, client, cmd)
	if err != nil {
		h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("command failed")
		if writeErr := h.writeError(ctx, conn, core.ToCoreError(err)); writeErr != nil {
			return writeErr
		}
		if errors.Is(err, core.ErrHubClosed) {
			return err
		}
		return nil
	}

	if cmd.Kind == core.CommandSubscribe {
		return wsjson.Write(ctx, conn, proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventSubscribed,
			Data:  proto.Subscribed{RoomID: proto.RoomID(cmd.Room)},
		})
	}
	return nil
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Connection) error {
	for {
		select {
		case event := <-client.Events():
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, err *core.CoreError) error {
	return wsjson.Write(ctx, conn, errorOutbound(err))
}
