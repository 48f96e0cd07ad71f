package http

import (
	"encoding/json"

	"github.com/vovakirdan/murmur/internal/core"
	"github.com/vovakirdan/murmur/internal/proto"
)

func messageToProto(m *core.Message) proto.Message {
	return proto.Message{
		ID:           m.ID,
		Content:      m.Content,
		SessionID:    m.SessionID,
		IPAddress:    m.RemoteAddr,
		NormalizedIP: optional(m.Fingerprint),
		RoomID:       proto.RoomID(m.Room),
		CreatedAt:    m.CreatedAt,
	}
}

func messagesToProto(messages []*core.Message) []proto.Message {
	out := make([]proto.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageToProto(m))
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeSubscribe:
		var data proto.SubscribeData
		if !isEmpty(inbound.Data) {
			if err := json.Unmarshal(inbound.Data, &data); err != nil {
				return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: err.Error()}
			}
		}
		return &core.Command{Kind: core.CommandSubscribe, Room: string(data.RoomID)}, nil
	case proto.InboundTypeUnsubscribe:
		return &core.Command{Kind: core.CommandUnsubscribe}, nil
	case proto.InboundTypeTyping:
		var data proto.TypingData
		if !isEmpty(inbound.Data) {
			if err := json.Unmarshal(inbound.Data, &data); err != nil {
				return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid typing payload"}
			}
		}
		return &core.Command{Kind: core.CommandTyping, IsTyping: data.IsTyping}, nil
	case proto.InboundTypeMsg:
		var data proto.MsgData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid msg payload"}
		}
		return &core.Command{Kind: core.CommandSendMessage, Content: data.Content}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

func isEmpty(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessage,
			Data:  messageToProto(event.Message),
		}
	case core.EventTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventTyping,
			Data: proto.Typing{
				RoomID:       proto.RoomID(event.Room),
				NormalizedIP: event.Typing.Fingerprint,
				IsTyping:     event.Typing.IsTyping,
			},
		}
	default:
		return errorOutbound(&core.CoreError{Code: core.ErrCodeUnknownInternal, Message: "unknown event"})
	}
}

func errorOutbound(err *core.CoreError) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: err.Code, Msg: err.Message},
	}
}
