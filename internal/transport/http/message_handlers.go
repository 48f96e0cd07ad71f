package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/murmur/internal/core"
	"github.com/vovakirdan/murmur/internal/identity"
	"github.com/vovakirdan/murmur/internal/proto"
	"github.com/vovakirdan/murmur/internal/store"
)

// MessageHandlers provides HTTP handlers for message history and submission.
type MessageHandlers struct {
	chat  *core.Chat
	rooms store.RoomStore
	log   *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(chat *core.Chat, rooms store.RoomStore, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		chat:  chat,
		rooms: rooms,
		log:   logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ValidationErrorResponse lists every invalid field.
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Errors []FieldErrorEntry `json:"errors"`
}

// FieldErrorEntry describes one invalid field.
type FieldErrorEntry struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// PaginationResponse describes where a page sits in the history.
type PaginationResponse struct {
	Page        int  `json:"page"`
	PerPage     int  `json:"per_page"`
	TotalCount  int  `json:"total_count"`
	TotalPages  int  `json:"total_pages"`
	HasNextPage bool `json:"has_next_page"`
	HasPrevPage bool `json:"has_prev_page"`
}

// MessagesResponse is one page of messages.
type MessagesResponse struct {
	Messages   []proto.Message    `json:"messages"`
	Pagination PaginationResponse `json:"pagination"`
}

// CreateMessageRequest represents the create message request body.
type CreateMessageRequest struct {
	Message struct {
		Content string       `json:"content"`
		RoomID  proto.RoomID `json:"room_id"`
	} `json:"message"`
}

// IPResponse reports the caller's address as the server sees it.
type IPResponse struct {
	IPAddress    string  `json:"ip_address"`
	NormalizedIP *string `json:"normalized_ip"`
	Error        string  `json:"error,omitempty"`
}

// ListMessages handles paginated history across all rooms, or one room
// when room_id is given.
// GET /api/messages
func (h *MessageHandlers) ListMessages(c *gin.Context) {
	var room *string
	if id, ok := c.GetQuery("room_id"); ok {
		room = &id
	}
	h.renderPage(c, room)
}

// ListRoomMessages handles paginated history of one persisted room.
// GET /api/messages/:roomId
func (h *MessageHandlers) ListRoomMessages(c *gin.Context) {
	room, err := h.resolveRoom(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Room not found"})
			return
		}
		h.log.Error().Err(err).Str("room_id", c.Param("roomId")).Msg("failed to look up room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve messages", Message: "Database error occurred"})
		return
	}
	h.renderPage(c, &room)
}

func (h *MessageHandlers) renderPage(c *gin.Context, room *string) {
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))

	result, err := h.chat.History.Page(c.Request.Context(), room, page, perPage)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve messages", Message: "Database error occurred"})
		return
	}

	p := result.Pagination
	c.JSON(http.StatusOK, MessagesResponse{
		Messages: messagesToProto(result.Messages),
		Pagination: PaginationResponse{
			Page:        p.Page,
			PerPage:     p.PerPage,
			TotalCount:  p.TotalCount,
			TotalPages:  p.TotalPages,
			HasNextPage: p.HasNextPage,
			HasPrevPage: p.HasPrevPage,
		},
	})
}

// CreateMessage stores a message in a persisted room and broadcasts it.
// POST /api/messages
func (h *MessageHandlers) CreateMessage(c *gin.Context) {
	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if strings.TrimSpace(string(req.Message.RoomID)) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room_id is required"})
		return
	}

	room, err := h.resolveRoom(c.Request.Context(), string(req.Message.RoomID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid room_id"})
			return
		}
		h.log.Error().Err(err).Msg("failed to look up room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to save message", Message: "Database error occurred"})
		return
	}

	msg, err := h.chat.Pipeline.Submit(c.Request.Context(), core.Submission{
		Content:    req.Message.Content,
		Room:       room,
		SessionID:  sessionID(c),
		RemoteAddr: c.ClientIP(),
	})
	if err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusUnprocessableEntity, validationResponse(verr))
			return
		}
		h.log.Error().Err(err).Str("room", room).Msg("failed to save message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to save message", Message: "Database error occurred"})
		return
	}

	h.log.Debug().Int64("message_id", msg.ID).Str("room", room).Msg("message created")
	c.JSON(http.StatusCreated, messageToProto(msg))
}

// ShowIP reports the caller's address and fingerprint. It always answers 200.
// GET /api/ip
func (h *MessageHandlers) ShowIP(c *gin.Context) {
	ip := c.ClientIP()
	resp := IPResponse{IPAddress: ip}

	if fp, ok := identity.Normalize(ip); ok {
		resp.NormalizedIP = &fp
	} else {
		resp.Error = "Failed to normalize IP address"
	}
	c.JSON(http.StatusOK, resp)
}

// resolveRoom returns the canonical identifier of a persisted room.
func (h *MessageHandlers) resolveRoom(ctx context.Context, id string) (string, error) {
	room, err := h.rooms.GetRoom(ctx, strings.TrimSpace(id))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(room.ID, 10), nil
}

func validationResponse(verr *core.ValidationError) ValidationErrorResponse {
	resp := ValidationErrorResponse{Error: "validation failed"}
	for _, f := range verr.Fields {
		resp.Errors = append(resp.Errors, FieldErrorEntry{Field: f.Field, Message: f.Message})
	}
	return resp
}
