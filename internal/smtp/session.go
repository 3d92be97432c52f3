package smtp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-smtp"
	"github.com/welldanyogia/icd-messaging-backend/internal/attachment"
	"github.com/welldanyogia/icd-messaging-backend/internal/auth"
	apperrors "github.com/welldanyogia/icd-messaging-backend/internal/errors"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
	"github.com/welldanyogia/icd-messaging-backend/internal/services"
)

// CategoryEmail is stamped on messages that arrived by mail
const CategoryEmail = "email"

var (
	errInvalidRecipient = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 1, 1},
		Message:      "Invalid recipient address",
	}
	errUnknownDomain = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 1, 2},
		Message:      "Domain not accepted here",
	}
	errNoRecipients = &smtp.SMTPError{
		Code:         503,
		EnhancedCode: smtp.EnhancedCode{5, 5, 1},
		Message:      "No recipients specified",
	}
	errUnparsable = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 6, 0},
		Message:      "Failed to parse email",
	}
	errNoSender = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 1, 7},
		Message:      "Sender address required",
	}
	errRejected = &smtp.SMTPError{
		Code:         554,
		EnhancedCode: smtp.EnhancedCode{5, 6, 0},
		Message:      "Message rejected",
	}
	errTemporary = &smtp.SMTPError{
		Code:         451,
		EnhancedCode: smtp.EnhancedCode{4, 3, 0},
		Message:      "Temporary error",
	}
)

// Session implements the go-smtp Session interface
type Session struct {
	backend    *Backend
	remoteAddr string
	from       string
	recipients []string
}

// NewSession creates a new SMTP session
func NewSession(backend *Backend, remoteAddr string) *Session {
	return &Session{
		backend:    backend,
		remoteAddr: remoteAddr,
	}
}

// Mail handles the MAIL FROM command. The null reverse-path is accepted.
func (s *Session) Mail(from string, opts *smtp.MailOptions) error {
	s.from = strings.ToLower(strings.TrimSpace(from))
	s.backend.logger.Debug("MAIL FROM", slog.String("from", s.from))
	return nil
}

// Rcpt handles the RCPT TO command
func (s *Session) Rcpt(to string, opts *smtp.RcptOptions) error {
	localPart, domain, err := parseEmailAddress(to)
	if err != nil {
		s.backend.audit.MailRejected(s.remoteAddr, to, "invalid address")
		return errInvalidRecipient
	}
	if !s.backend.Accepts(domain) {
		s.backend.audit.MailRejected(s.remoteAddr, to, "domain not accepted")
		return errUnknownDomain
	}

	s.recipients = append(s.recipients, localPart+"@"+domain)
	s.backend.logger.Debug("RCPT TO", slog.String("to", to))
	return nil
}

// Data receives the mail and delivers it to every accepted recipient
func (s *Session) Data(r io.Reader) error {
	if len(s.recipients) == 0 {
		return errNoRecipients
	}

	parsed, err := ParseEmail(r)
	if err != nil {
		s.backend.logger.Error("failed to parse email", slog.Any("error", err))
		return errUnparsable
	}

	sender := s.senderOf(parsed)
	if !sender.Valid() {
		s.backend.audit.MailRejected(s.remoteAddr, strings.Join(s.recipients, ","), "missing sender")
		return errNoSender
	}

	att, dropped := SelectAttachment(parsed.Attachments)
	for _, a := range dropped {
		s.backend.logger.Warn("attachment dropped",
			slog.String("from", sender.Email),
			slog.String("filename", a.Filename),
			slog.String("type", a.ContentType),
			slog.Int64("size", a.Size()))
	}

	delivered := 0
	var lastErr error
	for _, rcpt := range s.recipients {
		if err := s.deliver(sender, rcpt, parsed, att); err != nil {
			lastErr = err
			s.backend.logger.Error("failed to deliver email",
				slog.String("recipient", rcpt),
				slog.Any("error", err))
			continue
		}
		delivered++
	}

	s.backend.logger.Info("email received",
		slog.String("from", sender.Email),
		slog.Int("recipients", len(s.recipients)),
		slog.Int("delivered", delivered),
		slog.String("subject", parsed.Subject))

	if delivered == 0 {
		if apperrors.IsValidation(lastErr) {
			s.backend.audit.MailRejected(s.remoteAddr, strings.Join(s.recipients, ","), lastErr.Error())
			return errRejected
		}
		return errTemporary
	}
	return nil
}

// senderOf derives the sender from the From header, or the envelope when it is
// missing. Neither is authenticated, so the identity is kept in the gateway
// namespace and never matches an internal user.
func (s *Session) senderOf(p *ParsedEmail) models.Identity {
	email := p.SenderEmail
	if email == "" {
		email = s.from
	}
	return models.ExternalIdentity(email, p.SenderName)
}

func (s *Session) deliver(sender models.Identity, rcpt string, p *ParsedEmail, att *ParsedAttachment) error {
	ctx, cancel := context.WithTimeout(auth.WithIdentity(context.Background(), sender), s.backend.deliverTimeout)
	defer cancel()

	in := services.ComposeInput{
		To:       rcpt,
		Subject:  orDefault(p.Subject, noSubject),
		Message:  orDefault(p.Body, noContent),
		Category: CategoryEmail,
	}

	// Each delivery reads the attachment afresh
	var f *attachment.File
	if att != nil {
		f = att.File()
	}

	_, err := s.backend.messages.SendMessageWithAttachment(ctx, in, f)
	return err
}

// Reset resets the session state
func (s *Session) Reset() {
	s.from = ""
	s.recipients = nil
}

// Logout handles the end of the session
func (s *Session) Logout() error {
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// parseEmailAddress splits an address into lower-cased local part and domain
func parseEmailAddress(address string) (localPart, domain string, err error) {
	address = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(address, "<"), ">"))

	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid email address: %s", address)
	}

	localPart = strings.ToLower(parts[0])
	domain = strings.ToLower(parts[1])

	if localPart == "" || domain == "" {
		return "", "", fmt.Errorf("invalid email address: %s", address)
	}

	return localPart, domain, nil
}
