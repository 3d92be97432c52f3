package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/icd-messaging-backend/internal/api/response"
	"github.com/welldanyogia/icd-messaging-backend/internal/services"
)

// SentHandler serves the caller's sent folder
type SentHandler struct {
	sent *services.SentService
}

// NewSentHandler creates a new SentHandler
func NewSentHandler(sent *services.SentService) *SentHandler {
	return &SentHandler{sent: sent}
}

// List handles GET /api/sent?filter=
func (h *SentHandler) List(c echo.Context) error {
	filter, err := services.ParseSentFilter(c.QueryParam("filter"))
	if err != nil {
		return response.Error(c, err)
	}

	messages, err := h.sent.GetSentMessages(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, h.sent.Filter(messages, filter))
}

// Counts handles GET /api/sent/counts
func (h *SentHandler) Counts(c echo.Context) error {
	messages, err := h.sent.GetSentMessages(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, h.sent.Counts(messages))
}
