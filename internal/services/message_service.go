package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/welldanyogia/icd-messaging-backend/internal/attachment"
	"github.com/welldanyogia/icd-messaging-backend/internal/auth"
	apperrors "github.com/welldanyogia/icd-messaging-backend/internal/errors"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
	"github.com/welldanyogia/icd-messaging-backend/internal/realtime"
	"github.com/welldanyogia/icd-messaging-backend/internal/repository"
	"github.com/welldanyogia/icd-messaging-backend/internal/validator"
)

// allowedTransitions lists the status changes the message lifecycle permits
var allowedTransitions = map[models.MessageStatus][]models.MessageStatus{
	models.StatusDraft:    {models.StatusSent, models.StatusDeleted},
	models.StatusSent:     {models.StatusArchived, models.StatusDeleted},
	models.StatusArchived: {models.StatusSent, models.StatusDeleted},
}

// CanTransition reports whether a message may move from one status to another
func CanTransition(from, to models.MessageStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Download is a decoded attachment ready to stream to a client
type Download struct {
	Name string
	Type string
	Data []byte
}

// MessageService handles message writes and one-shot reads for the caller in ctx
type MessageService struct {
	repo     repository.MessageRepository
	feed     *realtime.Feed
	validate *validator.Validator
	logger   *slog.Logger
	now      func() time.Time
}

// NewMessageService creates a new MessageService
func NewMessageService(
	repo repository.MessageRepository,
	feed *realtime.Feed,
	validate *validator.Validator,
	logger *slog.Logger,
) *MessageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageService{
		repo:     repo,
		feed:     feed,
		validate: validate,
		logger:   logger,
		now:      time.Now,
	}
}

func identityFrom(ctx context.Context) (models.Identity, error) {
	identity, ok := auth.FromContext(ctx)
	if !ok {
		return models.Identity{}, apperrors.ErrAuthenticationRequired
	}
	return identity, nil
}

// CreateMessage stamps the caller as sender and stores the message with the given status.
// It returns the new message id.
func (s *MessageService) CreateMessage(ctx context.Context, in ComposeInput, status models.MessageStatus) (string, error) {
	identity, err := identityFrom(ctx)
	if err != nil {
		return "", err
	}
	if status != models.StatusSent && status != models.StatusDraft {
		return "", apperrors.NewValidationError("status", "oneof", "status must be one of [sent draft]")
	}

	in.normalize()
	msg := &models.Message{
		SenderID:             identity.UID,
		SenderEmail:          identity.Email,
		SenderName:           identity.DisplayName(),
		To:                   in.To,
		RecipientDepartments: in.RecipientDepartments,
		Subject:              in.Subject,
		Body:                 in.Message,
		Status:               status,
		Priority:             in.Priority,
		Category:             in.Category,
		Timestamp:            s.now(),
	}
	if in.AttachedFile != nil && in.AttachedFile.Base64Content != "" {
		msg.AttachedFile = in.AttachedFile
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return "", apperrors.Backend(err, "create message")
	}
	s.feed.Publish(msg.ID)

	s.logger.Info("message created",
		slog.String("message_id", msg.ID),
		slog.String("status", string(status)),
		slog.Int("departments", len(msg.RecipientDepartments)),
		slog.Bool("has_attachment", msg.AttachedFile != nil))

	return msg.ID, nil
}

// SendMessageWithAttachment validates the message and optional file, then sends it.
// The file is fully read and encoded before anything is written.
func (s *MessageService) SendMessageWithAttachment(ctx context.Context, in ComposeInput, file *attachment.File) (string, error) {
	if _, err := identityFrom(ctx); err != nil {
		return "", err
	}

	in.normalize()
	if err := validateForSend(s.validate, &in); err != nil {
		return "", err
	}

	af, err := s.prepareAttachment(&in, file)
	if err != nil {
		return "", err
	}
	in.AttachedFile = af

	return s.CreateMessage(ctx, in, models.StatusSent)
}

// SaveDraft stores the message as a draft. Recipient and subject are optional;
// attachment rules still apply.
func (s *MessageService) SaveDraft(ctx context.Context, in ComposeInput, file *attachment.File) (string, error) {
	if _, err := identityFrom(ctx); err != nil {
		return "", err
	}

	in.normalize()
	if err := validateForDraft(s.validate, &in); err != nil {
		return "", err
	}

	af, err := s.prepareAttachment(&in, file)
	if err != nil {
		return "", err
	}
	in.AttachedFile = af

	return s.CreateMessage(ctx, in, models.StatusDraft)
}

func (s *MessageService) prepareAttachment(in *ComposeInput, file *attachment.File) (*models.AttachedFile, error) {
	af, err := encodeAttachment(in, file)
	if err != nil {
		if vErr := apperrors.GetValidationError(err); vErr != nil {
			s.logger.Warn("attachment rejected",
				slog.String("constraint", vErr.Constraint),
				slog.String("reason", vErr.Message))
		}
		return nil, err
	}
	return af, nil
}

// SendDraft sends one of the caller's drafts after running the full compose rules
func (s *MessageService) SendDraft(ctx context.Context, id string) error {
	identity, err := identityFrom(ctx)
	if err != nil {
		return err
	}

	msg, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if msg.SenderID != identity.UID {
		return apperrors.ErrForbidden
	}
	if msg.Status != models.StatusDraft {
		return apperrors.Wrap(apperrors.ErrInvalidTransition, "only drafts can be sent")
	}
	if err := validateForSend(s.validate, composeFrom(msg)); err != nil {
		return err
	}

	if err := s.repo.MarkSent(ctx, id, s.now()); err != nil {
		return apperrors.Backend(err, "send draft")
	}
	s.feed.Publish(id)
	return nil
}

// MarkAsRead adds the caller to the readers of a message. Reading twice is a no-op.
func (s *MessageService) MarkAsRead(ctx context.Context, id string) error {
	identity, err := identityFrom(ctx)
	if err != nil {
		return err
	}

	msg, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if msg.IsReadBy(identity.UID) {
		return nil
	}

	added, err := s.repo.AddReadReceipt(ctx, id, identity.UID, s.now())
	if err != nil {
		return apperrors.Backend(err, "mark message as read")
	}
	if added {
		s.feed.Publish(id)
	}
	return nil
}

// Archive moves a sent message out of the inbox and sent views
func (s *MessageService) Archive(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.StatusArchived)
}

// Unarchive restores an archived message
func (s *MessageService) Unarchive(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.StatusSent)
}

// Delete soft-deletes a message. Deleted messages are never shown again.
func (s *MessageService) Delete(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.StatusDeleted)
}

func (s *MessageService) transition(ctx context.Context, id string, to models.MessageStatus) error {
	identity, err := identityFrom(ctx)
	if err != nil {
		return err
	}

	msg, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !canAccess(identity, msg) {
		return apperrors.ErrForbidden
	}
	if !CanTransition(msg.Status, to) {
		return apperrors.Wrap(apperrors.ErrInvalidTransition, string(msg.Status)+" to "+string(to))
	}

	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return apperrors.Backend(err, "update message status")
	}
	s.feed.Publish(id)

	s.logger.Info("message status changed",
		slog.String("message_id", id),
		slog.String("from", string(msg.Status)),
		slog.String("to", string(to)))
	return nil
}

// GetMessage returns a message the caller sent or received
func (s *MessageService) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	identity, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}

	msg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(identity, msg) {
		return nil, apperrors.ErrForbidden
	}
	if msg.Status == models.StatusDraft && !isSender(identity, msg) {
		return nil, apperrors.ErrMessageNotFound
	}
	return msg, nil
}

// GetSentMessages returns the caller's sent messages, newest first
func (s *MessageService) GetSentMessages(ctx context.Context) ([]models.Message, error) {
	identity, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.fetchSorted(ctx, SentQuery(identity))
}

// GetInboxMessages returns the caller's merged inbox, newest first
func (s *MessageService) GetInboxMessages(ctx context.Context) ([]models.Message, error) {
	identity, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}

	direct, err := s.fetchSorted(ctx, DirectQuery(identity))
	if err != nil {
		return nil, err
	}

	var department []models.Message
	if q, ok := DepartmentQuery(identity); ok {
		department, err = s.fetchSorted(ctx, q)
		if err != nil {
			return nil, err
		}
	}

	return MergeInbox(identity.UID, direct, department), nil
}

// ListDrafts returns the caller's drafts, newest first
func (s *MessageService) ListDrafts(ctx context.Context) ([]models.Message, error) {
	identity, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.fetchSorted(ctx, DraftQuery(identity))
}

// DownloadAttachment decodes the attachment of a message the caller can see
func (s *MessageService) DownloadAttachment(ctx context.Context, id string) (*Download, error) {
	msg, err := s.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if !msg.HasAttachment() {
		return nil, apperrors.Wrap(apperrors.ErrNotFound, "message has no attachment")
	}

	data, err := attachment.Decode(msg.AttachedFile)
	if err != nil {
		return nil, err
	}
	return &Download{
		Name: msg.AttachedFile.Name,
		Type: msg.AttachedFile.Type,
		Data: data,
	}, nil
}

func (s *MessageService) load(ctx context.Context, id string) (*models.Message, error) {
	msg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Backend(err, "get message")
	}
	return msg, nil
}

// fetchSorted asks the store for an ordered result and falls back to an
// unordered one. Results are re-filtered and sorted in memory either way.
func (s *MessageService) fetchSorted(ctx context.Context, q repository.Query) ([]models.Message, error) {
	q.OrderByTimestamp = true
	messages, err := s.repo.Find(ctx, q)
	if err != nil {
		s.logger.Warn("ordered query failed, falling back to unordered",
			slog.String("error", err.Error()))
		messages, err = s.repo.Find(ctx, q.Unordered())
		if err != nil {
			return nil, apperrors.Backend(err, "list messages")
		}
	}

	out := make([]models.Message, 0, len(messages))
	for i := range messages {
		if q.Matches(&messages[i]) {
			out = append(out, messages[i])
		}
	}
	models.SortByTimestampDesc(out)
	return out, nil
}

func isSender(identity models.Identity, m *models.Message) bool {
	return m.SenderID == identity.UID ||
		m.SenderID == identity.Email ||
		(m.SenderEmail != "" && m.SenderEmail == identity.Email)
}

func isRecipient(identity models.Identity, m *models.Message) bool {
	return (m.To != "" && m.To == identity.Email) || m.HasDepartment(identity.Department)
}

func canAccess(identity models.Identity, m *models.Message) bool {
	return isSender(identity, m) || isRecipient(identity, m)
}
