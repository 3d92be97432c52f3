package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/icd-messaging-backend/internal/websocket"
)

const pingTimeout = 2 * time.Second

// Pinger checks that the message store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsProvider reports live push activity
type StatsProvider interface {
	Stats() websocket.HubStats
}

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	store Pinger
	hub   StatsProvider
}

// NewHealthHandler creates a new HealthHandler. hub may be nil.
func NewHealthHandler(store Pinger, hub StatsProvider) *HealthHandler {
	return &HealthHandler{store: store, hub: hub}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// ReadyResponse represents the readiness response
type ReadyResponse struct {
	Status    string              `json:"status"`
	Reason    string              `json:"reason,omitempty"`
	WebSocket *websocket.HubStats `json:"websocket,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	services := make(map[string]string)
	status := "healthy"

	if err := h.ping(c.Request().Context()); err != nil {
		services["database"] = "unhealthy"
		status = "unhealthy"
	} else {
		services["database"] = "healthy"
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, HealthResponse{
		Status:   status,
		Services: services,
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c echo.Context) error {
	if err := h.ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, ReadyResponse{
			Status: "not ready",
			Reason: "database ping failed",
		})
	}

	resp := ReadyResponse{Status: "ready"}
	if h.hub != nil {
		stats := h.hub.Stats()
		resp.WebSocket = &stats
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return h.store.Ping(ctx)
}
