package core

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/vovakirdan/murmur/internal/store"
)

const (
	// MaxContentLength bounds message content, counted in characters.
	MaxContentLength = 10000
	// DefaultPerPage is used when a caller asks for an invalid page size.
	DefaultPerPage = 50
	// MaxPerPage caps the page size of history reads.
	MaxPerPage = 100
)

// History is the ordered, append-only message log.
type History struct {
	store    store.MessageStore
	maxChars int
}

// NewHistory builds a message log over st. maxChars <= 0 selects MaxContentLength.
func NewHistory(st store.MessageStore, maxChars int) *History {
	if maxChars <= 0 {
		maxChars = MaxContentLength
	}
	return &History{store: st, maxChars: maxChars}
}

// Append validates and persists draft. ID and CreatedAt of draft are ignored.
func (h *History) Append(ctx context.Context, draft Message) (*Message, error) {
	if err := validateMessage(draft.Content, draft.SessionID, h.maxChars); err != nil {
		return nil, err
	}

	rec := draft.toStore()
	if err := h.store.AppendMessage(ctx, rec); err != nil {
		return nil, &StorageError{Op: "append", Err: err}
	}
	return messageFromStore(rec), nil
}

// List returns messages in ascending creation order. A nil room lists every
// room; the total reflects the same filter.
func (h *History) List(ctx context.Context, room *string, limit, offset int) ([]*Message, int, error) {
	recs, total, err := h.store.ListMessages(ctx, store.ListQuery{RoomID: room, Limit: limit, Offset: offset})
	if err != nil {
		return nil, 0, &StorageError{Op: "list", Err: err}
	}

	messages := make([]*Message, 0, len(recs))
	for _, rec := range recs {
		messages = append(messages, messageFromStore(rec))
	}
	return messages, total, nil
}

// Pagination describes where a page sits in the message log.
type Pagination struct {
	Page        int
	PerPage     int
	TotalCount  int
	TotalPages  int
	HasNextPage bool
	HasPrevPage bool
}

// Page is one page of history.
type Page struct {
	Messages   []*Message
	Pagination Pagination
}

// Page reads a 1-based page of history. page < 1 becomes 1; perPage is
// capped at MaxPerPage and falls back to DefaultPerPage when < 1.
func (h *History) Page(ctx context.Context, room *string, page, perPage int) (*Page, error) {
	page, perPage = ClampPage(page, perPage)

	messages, total, err := h.List(ctx, room, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}

	totalPages := (total + perPage - 1) / perPage
	return &Page{
		Messages: messages,
		Pagination: Pagination{
			Page:        page,
			PerPage:     perPage,
			TotalCount:  total,
			TotalPages:  totalPages,
			HasNextPage: page < totalPages,
			HasPrevPage: page > 1,
		},
	}, nil
}

// ClampPage normalizes user-supplied pagination parameters.
func ClampPage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	perPage = min(perPage, MaxPerPage)
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	return page, perPage
}

func validateMessage(content, sessionID string, maxChars int) error {
	verr := &ValidationError{}
	switch {
	case strings.TrimSpace(content) == "":
		verr.add("content", "can't be blank")
	case utf8.RuneCountInString(content) > maxChars:
		verr.add("content", "is too long")
	}
	if strings.TrimSpace(sessionID) == "" {
		verr.add("session_id", "can't be blank")
	}
	return verr.orNil()
}
