// Package smtp is the inbound mail gateway. Every accepted recipient of an
// inbound mail receives it as a direct message sent by the mail's author.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/welldanyogia/icd-messaging-backend/internal/attachment"
	"github.com/welldanyogia/icd-messaging-backend/internal/config"
	"github.com/welldanyogia/icd-messaging-backend/internal/logger"
	"github.com/welldanyogia/icd-messaging-backend/internal/services"
)

// Security limits
const (
	DefaultMaxMessageSize = 25 * 1024 * 1024 // 25 MB
	DefaultMaxRecipients  = 100
	DefaultReadTimeout    = 60 * time.Second
	DefaultWriteTimeout   = 60 * time.Second
	DefaultMaxLineLength  = 2000
	DefaultDeliverTimeout = 30 * time.Second
)

// MessageSender stores a composed message on behalf of the identity in ctx
type MessageSender interface {
	SendMessageWithAttachment(ctx context.Context, in services.ComposeInput, file *attachment.File) (string, error)
}

// Backend implements the go-smtp Backend interface
type Backend struct {
	messages       MessageSender
	domains        map[string]bool
	deliverTimeout time.Duration
	logger         *slog.Logger
	audit          *logger.AuditLogger
}

// BackendConfig holds configuration for the SMTP backend
type BackendConfig struct {
	Messages       MessageSender
	Domains        []string
	DeliverTimeout time.Duration
	Logger         *slog.Logger
	Audit          *logger.AuditLogger
}

// NewBackend creates a new SMTP backend
func NewBackend(cfg *BackendConfig) *Backend {
	b := &Backend{
		messages:       cfg.Messages,
		domains:        make(map[string]bool, len(cfg.Domains)),
		deliverTimeout: cfg.DeliverTimeout,
		logger:         cfg.Logger,
		audit:          cfg.Audit,
	}
	for _, d := range cfg.Domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			b.domains[d] = true
		}
	}
	if b.deliverTimeout <= 0 {
		b.deliverTimeout = DefaultDeliverTimeout
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.audit == nil {
		b.audit = logger.NewAuditLogger(b.logger)
	}
	return b
}

// Accepts reports whether mail for domain is delivered here
func (b *Backend) Accepts(domain string) bool {
	return b.domains[strings.ToLower(domain)]
}

// NewSession creates a new SMTP session
func (b *Backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	remote := c.Conn().RemoteAddr().String()
	b.logger.Info("new SMTP connection", slog.String("remote_addr", remote))
	return NewSession(b, remote), nil
}

// ServerConfig holds security configuration for the SMTP server
type ServerConfig struct {
	Addr           string
	Domain         string
	MaxMessageSize int64
	MaxRecipients  int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowInsecure  bool
	TLSConfig      *tls.Config
}

// ServerConfigFrom builds the server settings, loading the TLS key pair when one is configured
func ServerConfigFrom(cfg config.SMTPConfig) (*ServerConfig, error) {
	sc := &ServerConfig{
		Addr:           cfg.Addr,
		Domain:         cfg.Hostname,
		MaxMessageSize: cfg.MaxMessageSize,
		MaxRecipients:  cfg.MaxRecipients,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		AllowInsecure:  cfg.AllowInsecure,
	}

	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load SMTP TLS key pair: %w", err)
		}
		sc.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}
	return sc, nil
}

// NewSecureServer creates a new SMTP server with security settings
func NewSecureServer(backend *Backend, cfg *ServerConfig) *smtp.Server {
	s := smtp.NewServer(backend)

	s.Addr = cfg.Addr
	s.Domain = cfg.Domain

	s.MaxMessageBytes = DefaultMaxMessageSize
	if cfg.MaxMessageSize > 0 {
		s.MaxMessageBytes = cfg.MaxMessageSize
	}

	s.MaxRecipients = DefaultMaxRecipients
	if cfg.MaxRecipients > 0 {
		s.MaxRecipients = cfg.MaxRecipients
	}

	s.ReadTimeout = DefaultReadTimeout
	if cfg.ReadTimeout > 0 {
		s.ReadTimeout = cfg.ReadTimeout
	}

	s.WriteTimeout = DefaultWriteTimeout
	if cfg.WriteTimeout > 0 {
		s.WriteTimeout = cfg.WriteTimeout
	}

	s.AllowInsecureAuth = cfg.AllowInsecure
	if cfg.TLSConfig != nil {
		s.TLSConfig = cfg.TLSConfig
	}

	// Set max line length to prevent buffer overflow attacks
	s.MaxLineLength = DefaultMaxLineLength

	return s
}
