package handlers

import (
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/icd-messaging-backend/internal/api/response"
	"github.com/welldanyogia/icd-messaging-backend/internal/auth"
	apperrors "github.com/welldanyogia/icd-messaging-backend/internal/errors"
	"github.com/welldanyogia/icd-messaging-backend/internal/websocket"
)

// WebSocketHandler upgrades authenticated requests into live inbox connections
type WebSocketHandler struct {
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *websocket.Hub, upgrader gorillaws.Upgrader) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, upgrader: upgrader}
}

// Connect handles GET /ws
func (h *WebSocketHandler) Connect(c echo.Context) error {
	identity, ok := auth.FromContext(c.Request().Context())
	if !ok {
		return response.Error(c, apperrors.ErrAuthenticationRequired)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error
		return nil
	}

	h.hub.Serve(conn, identity)
	return nil
}
