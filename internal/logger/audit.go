package logger

import (
	"log/slog"
	"time"
)

// AuditLogger records security-relevant events.
// Tokens and message content are never logged.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger wraps logger. A nil logger uses slog.Default.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger.With(slog.String("component", "audit"))}
}

// NewAuditLoggerWithHandler creates an AuditLogger with a custom handler
func NewAuditLoggerWithHandler(handler slog.Handler) *AuditLogger {
	return &AuditLogger{logger: slog.New(handler)}
}

func (a *AuditLogger) event(msg, eventType string, attrs ...any) {
	base := []any{
		slog.String("event_type", eventType),
		slog.Time("timestamp", time.Now().UTC()),
	}
	a.logger.Warn(msg, append(base, attrs...)...)
}

// AuthFailure logs a rejected identity token.
// Never logs the token itself.
func (a *AuditLogger) AuthFailure(ip, path, reason string) {
	a.event("authentication_failure", "auth_failure",
		slog.String("ip", ip),
		slog.String("path", path),
		slog.String("reason", reason),
	)
}

// RateLimitExceeded logs when a caller exceeds rate limits
func (a *AuditLogger) RateLimitExceeded(key, path string) {
	a.event("rate_limit_exceeded", "rate_limit",
		slog.String("key", key),
		slog.String("path", path),
	)
}

// InvalidOrigin logs a rejected WebSocket connection due to invalid origin
func (a *AuditLogger) InvalidOrigin(ip, origin string) {
	a.event("invalid_origin", "invalid_origin",
		slog.String("ip", ip),
		slog.String("origin", origin),
	)
}

// BlockedAttachment logs an attachment refused by the type or size rules
func (a *AuditLogger) BlockedAttachment(uid, filename, constraint string) {
	a.event("blocked_attachment", "blocked_attachment",
		slog.String("uid", uid),
		slog.String("filename", filename),
		slog.String("constraint", constraint),
	)
}

// AccessDenied logs an attempt to act on a message the caller neither sent nor received
func (a *AuditLogger) AccessDenied(uid, messageID, action string) {
	a.event("access_denied", "access_denied",
		slog.String("uid", uid),
		slog.String("message_id", messageID),
		slog.String("action", action),
	)
}

// MailRejected logs inbound mail refused by the SMTP gateway
func (a *AuditLogger) MailRejected(remoteAddr, recipient, reason string) {
	a.event("mail_rejected", "mail_rejected",
		slog.String("remote_addr", remoteAddr),
		slog.String("recipient", recipient),
		slog.String("reason", reason),
	)
}

// SecurityEvent logs a generic security event, dropping sensitive keys
func (a *AuditLogger) SecurityEvent(eventType, ip string, details map[string]string) {
	attrs := []any{slog.String("ip", ip)}
	for k, v := range details {
		// Filter out sensitive keys
		if isSensitiveKey(k) {
			continue
		}
		attrs = append(attrs, slog.String(k, v))
	}
	a.event("security_event", eventType, attrs...)
}

// GetLogger returns the underlying slog.Logger
func (a *AuditLogger) GetLogger() *slog.Logger {
	return a.logger
}

var sensitiveKeys = map[string]bool{
	"password":      true,
	"api_key":       true,
	"apikey":        true,
	"token":         true,
	"secret":        true,
	"authorization": true,
	"auth":          true,
	"credential":    true,
	"credentials":   true,
	"session":       true,
	"cookie":        true,
	"body":          true,
	"message":       true,
	"base64content": true,
}

// isSensitiveKey checks if a key might contain sensitive data
func isSensitiveKey(key string) bool {
	return sensitiveKeys[key]
}
