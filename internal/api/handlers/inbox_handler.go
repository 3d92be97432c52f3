package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/icd-messaging-backend/internal/api/response"
	"github.com/welldanyogia/icd-messaging-backend/internal/auth"
	apperrors "github.com/welldanyogia/icd-messaging-backend/internal/errors"
	"github.com/welldanyogia/icd-messaging-backend/internal/services"
)

// InboxHandler serves one-shot reads of the caller's merged inbox
type InboxHandler struct {
	messages *services.MessageService
}

// NewInboxHandler creates a new InboxHandler
func NewInboxHandler(messages *services.MessageService) *InboxHandler {
	return &InboxHandler{messages: messages}
}

// InboxResponse is a filtered inbox view
type InboxResponse struct {
	Messages    interface{} `json:"messages"`
	Total       int         `json:"total"`
	UnreadCount int         `json:"unreadCount"`
}

// List handles GET /api/inbox?type=&read=
func (h *InboxHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	identity, ok := auth.FromContext(ctx)
	if !ok {
		return response.Error(c, apperrors.ErrAuthenticationRequired)
	}

	inboxType, err := services.ParseInboxType(c.QueryParam("type"))
	if err != nil {
		return response.Error(c, err)
	}

	messages, err := h.messages.GetInboxMessages(ctx)
	if err != nil {
		return response.Error(c, err)
	}
	unread := services.UnreadCount(messages, identity.UID)

	view := services.MessagesByType(messages, identity, inboxType)
	if raw := c.QueryParam("read"); raw != "" {
		read, err := strconv.ParseBool(raw)
		if err != nil {
			return response.Error(c, apperrors.NewValidationError("read", "boolean", "read must be true or false"))
		}
		view = services.MessagesByReadStatus(view, identity.UID, read)
	}

	return response.Success(c, InboxResponse{
		Messages:    view,
		Total:       len(view),
		UnreadCount: unread,
	})
}

// UnreadCount handles GET /api/inbox/unread-count
func (h *InboxHandler) UnreadCount(c echo.Context) error {
	ctx := c.Request().Context()
	identity, ok := auth.FromContext(ctx)
	if !ok {
		return response.Error(c, apperrors.ErrAuthenticationRequired)
	}

	messages, err := h.messages.GetInboxMessages(ctx)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]int{"count": services.UnreadCount(messages, identity.UID)})
}
