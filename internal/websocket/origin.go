package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/welldanyogia/icd-messaging-backend/internal/logger"
)

const defaultOrigin = "http://localhost:3000"

// NewSecureUpgrader creates a WebSocket upgrader that only accepts the given origins.
// Rejections are recorded through audit.
func NewSecureUpgrader(origins []string, audit *logger.AuditLogger) websocket.Upgrader {
	if audit == nil {
		audit = logger.NewAuditLogger(nil)
	}

	allowed := make(map[string]bool, len(origins))
	for _, origin := range origins {
		if origin != "" {
			allowed[origin] = true
		}
	}
	if len(allowed) == 0 {
		allowed[defaultOrigin] = true
	}

	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// Allow same-origin requests (empty Origin)
			if origin == "" || allowed[origin] {
				return true
			}

			audit.InvalidOrigin(r.RemoteAddr, origin)
			return false
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// DefaultUpgrader returns an upgrader that allows all origins (for development)
func DefaultUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}
