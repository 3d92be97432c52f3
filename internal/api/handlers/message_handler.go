package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/icd-messaging-backend/internal/api/response"
	"github.com/welldanyogia/icd-messaging-backend/internal/attachment"
	apperrors "github.com/welldanyogia/icd-messaging-backend/internal/errors"
	"github.com/welldanyogia/icd-messaging-backend/internal/logger"
	"github.com/welldanyogia/icd-messaging-backend/internal/services"
)

// formFileField is the multipart field carrying the optional attachment
const formFileField = "file"

// MessageHandler handles message-related HTTP requests
type MessageHandler struct {
	messages *services.MessageService
	audit    *logger.AuditLogger
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messages *services.MessageService, audit *logger.AuditLogger) *MessageHandler {
	if audit == nil {
		audit = logger.NewAuditLogger(nil)
	}
	return &MessageHandler{
		messages: messages,
		audit:    audit,
	}
}

// CreatedResponse carries the id of a newly stored message
type CreatedResponse struct {
	ID string `json:"id"`
}

// Create handles POST /api/messages
func (h *MessageHandler) Create(c echo.Context) error {
	in, file, closeFile, err := h.bindCompose(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	defer closeFile()

	id, err := h.messages.SendMessageWithAttachment(c.Request().Context(), in, file)
	if err != nil {
		return h.composeFailure(c, err, file)
	}
	return response.Created(c, CreatedResponse{ID: id})
}

// CreateDraft handles POST /api/messages/drafts
func (h *MessageHandler) CreateDraft(c echo.Context) error {
	in, file, closeFile, err := h.bindCompose(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	defer closeFile()

	id, err := h.messages.SaveDraft(c.Request().Context(), in, file)
	if err != nil {
		return h.composeFailure(c, err, file)
	}
	return response.Created(c, CreatedResponse{ID: id})
}

// ListDrafts handles GET /api/messages/drafts
func (h *MessageHandler) ListDrafts(c echo.Context) error {
	drafts, err := h.messages.ListDrafts(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, drafts)
}

// SendDraft handles POST /api/messages/:id/send
func (h *MessageHandler) SendDraft(c echo.Context) error {
	id, ok := messageID(c)
	if !ok {
		return response.BadRequest(c, "invalid message ID")
	}

	if err := h.messages.SendDraft(c.Request().Context(), id); err != nil {
		return failure(c, h.audit, err, id, "send")
	}
	return response.SuccessWithMessage(c, nil, "draft sent")
}

// Get handles GET /api/messages/:id
func (h *MessageHandler) Get(c echo.Context) error {
	id, ok := messageID(c)
	if !ok {
		return response.BadRequest(c, "invalid message ID")
	}

	message, err := h.messages.GetMessage(c.Request().Context(), id)
	if err != nil {
		return failure(c, h.audit, err, id, "read")
	}
	return response.Success(c, message)
}

// MarkAsRead handles PATCH /api/messages/:id/read
func (h *MessageHandler) MarkAsRead(c echo.Context) error {
	id, ok := messageID(c)
	if !ok {
		return response.BadRequest(c, "invalid message ID")
	}

	if err := h.messages.MarkAsRead(c.Request().Context(), id); err != nil {
		return failure(c, h.audit, err, id, "mark_read")
	}
	return response.SuccessWithMessage(c, nil, "message marked as read")
}

// Archive handles PATCH /api/messages/:id/archive
func (h *MessageHandler) Archive(c echo.Context) error {
	id, ok := messageID(c)
	if !ok {
		return response.BadRequest(c, "invalid message ID")
	}

	if err := h.messages.Archive(c.Request().Context(), id); err != nil {
		return failure(c, h.audit, err, id, "archive")
	}
	return response.SuccessWithMessage(c, nil, "message archived")
}

// Unarchive handles PATCH /api/messages/:id/unarchive
func (h *MessageHandler) Unarchive(c echo.Context) error {
	id, ok := messageID(c)
	if !ok {
		return response.BadRequest(c, "invalid message ID")
	}

	if err := h.messages.Unarchive(c.Request().Context(), id); err != nil {
		return failure(c, h.audit, err, id, "unarchive")
	}
	return response.SuccessWithMessage(c, nil, "message restored")
}

// Delete handles DELETE /api/messages/:id
func (h *MessageHandler) Delete(c echo.Context) error {
	id, ok := messageID(c)
	if !ok {
		return response.BadRequest(c, "invalid message ID")
	}

	if err := h.messages.Delete(c.Request().Context(), id); err != nil {
		return failure(c, h.audit, err, id, "delete")
	}
	return response.NoContent(c)
}

// Request decoding failures reported by bindCompose
var (
	errInvalidBody   = errors.New("invalid request body")
	errInvalidUpload = errors.New("invalid file upload")
)

// bindCompose reads a JSON body, or a multipart form with an optional file part.
// It writes nothing; on error the caller answers 400 and stops.
func (h *MessageHandler) bindCompose(c echo.Context) (services.ComposeInput, *attachment.File, func(), error) {
	var in services.ComposeInput
	noop := func() {}

	if err := c.Bind(&in); err != nil {
		return services.ComposeInput{}, nil, noop, errInvalidBody
	}
	if !isMultipart(c) {
		return in, nil, noop, nil
	}

	if form, err := c.MultipartForm(); err == nil {
		in.RecipientDepartments = splitDepartments(form.Value["recipientDepartments"])
	}

	header, err := c.FormFile(formFileField)
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, noop, nil
	}
	if err != nil {
		return services.ComposeInput{}, nil, noop, errInvalidUpload
	}

	f, err := header.Open()
	if err != nil {
		return services.ComposeInput{}, nil, noop, errInvalidUpload
	}
	file := &attachment.File{
		Name:    header.Filename,
		Type:    header.Header.Get(echo.HeaderContentType),
		Size:    header.Size,
		Content: f,
	}
	return in, file, func() { f.Close() }, nil
}

func (h *MessageHandler) composeFailure(c echo.Context, err error, file *attachment.File) error {
	if vErr := apperrors.GetValidationError(err); vErr != nil && file != nil {
		switch vErr.Constraint {
		case attachment.ConstraintType, attachment.ConstraintSize:
			h.audit.BlockedAttachment(callerUID(c), file.Name, vErr.Constraint)
		}
	}
	return response.Error(c, err)
}
