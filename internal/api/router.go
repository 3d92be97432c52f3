package api

import (
	"log/slog"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/welldanyogia/icd-messaging-backend/internal/api/handlers"
	"github.com/welldanyogia/icd-messaging-backend/internal/api/middleware"
	"github.com/welldanyogia/icd-messaging-backend/internal/auth"
	"github.com/welldanyogia/icd-messaging-backend/internal/logger"
	"github.com/welldanyogia/icd-messaging-backend/internal/services"
	"github.com/welldanyogia/icd-messaging-backend/internal/websocket"
)

// metricsSubsystem prefixes the HTTP metrics exported on /metrics
const metricsSubsystem = "icd_messaging"

// bodyLimit leaves room above the attachment ceiling so oversize files get a validation error
const bodyLimit = "32M"

const (
	defaultRate  = 10
	defaultBurst = 20
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	Messages *services.MessageService
	Sent     *services.SentService
	Store    handlers.Pinger
	Hub      *websocket.Hub
	Verifier *auth.TokenVerifier
	Limiter  *middleware.KeyedRateLimiter
	Logger   *slog.Logger
	Audit    *logger.AuditLogger

	AllowedOrigins []string
	Production     bool
	MetricsEnabled bool

	// Upgrader overrides the origin-checked WebSocket upgrader
	Upgrader *gorillaws.Upgrader
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Audit == nil {
		cfg.Audit = logger.NewAuditLogger(cfg.Logger)
	}
	if cfg.Limiter == nil {
		cfg.Limiter = middleware.NewKeyedRateLimiter(defaultRate, defaultBurst)
	}

	// 1. Recover from panics
	e.Use(middleware.Recover())

	// 2. Request ids, security headers and CORS
	e.Use(middleware.RequestID())
	e.Use(middleware.SecureHeaders())
	e.Use(middleware.SecureCORS(cfg.AllowedOrigins, cfg.Production))
	e.Use(echomw.BodyLimit(bodyLimit))

	// 3. Metrics
	if cfg.MetricsEnabled {
		e.Use(echoprometheus.NewMiddleware(metricsSubsystem))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	// 4. Request logging
	e.Use(middleware.RequestLogger(cfg.Logger))

	upgrader := websocket.NewSecureUpgrader(middleware.AllowedOrigins(cfg.AllowedOrigins, cfg.Production), cfg.Audit)
	if cfg.Upgrader != nil {
		upgrader = *cfg.Upgrader
	}

	healthHandler := handlers.NewHealthHandler(cfg.Store, cfg.Hub)
	messageHandler := handlers.NewMessageHandler(cfg.Messages, cfg.Audit)
	attachmentHandler := handlers.NewAttachmentHandler(cfg.Messages, cfg.Audit)
	inboxHandler := handlers.NewInboxHandler(cfg.Messages)
	sentHandler := handlers.NewSentHandler(cfg.Sent)
	wsHandler := handlers.NewWebSocketHandler(cfg.Hub, upgrader)

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	// Everything else needs an identity; limits are keyed by uid once it is known
	protected := []echo.MiddlewareFunc{
		middleware.IdentityAuth(cfg.Verifier, cfg.Audit),
		middleware.RateLimiter(cfg.Limiter, cfg.Audit),
	}

	e.GET("/ws", wsHandler.Connect, protected...)

	api := e.Group("/api", protected...)

	messages := api.Group("/messages")
	messages.POST("", messageHandler.Create)
	messages.POST("/drafts", messageHandler.CreateDraft)
	messages.GET("/drafts", messageHandler.ListDrafts)
	messages.GET("/:id", messageHandler.Get)
	messages.POST("/:id/send", messageHandler.SendDraft)
	messages.PATCH("/:id/read", messageHandler.MarkAsRead)
	messages.PATCH("/:id/archive", messageHandler.Archive)
	messages.PATCH("/:id/unarchive", messageHandler.Unarchive)
	messages.DELETE("/:id", messageHandler.Delete)
	messages.GET("/:id/attachment", attachmentHandler.Download)

	inbox := api.Group("/inbox")
	inbox.GET("", inboxHandler.List)
	inbox.GET("/unread-count", inboxHandler.UnreadCount)

	sent := api.Group("/sent")
	sent.GET("", sentHandler.List)
	sent.GET("/counts", sentHandler.Counts)

	return e
}
