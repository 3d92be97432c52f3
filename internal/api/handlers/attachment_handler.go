package handlers

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/icd-messaging-backend/internal/api/response"
	"github.com/welldanyogia/icd-messaging-backend/internal/attachment"
	"github.com/welldanyogia/icd-messaging-backend/internal/logger"
	"github.com/welldanyogia/icd-messaging-backend/internal/services"
)

// AttachmentHandler serves the file embedded in a message
type AttachmentHandler struct {
	messages *services.MessageService
	audit    *logger.AuditLogger
}

// NewAttachmentHandler creates a new AttachmentHandler
func NewAttachmentHandler(messages *services.MessageService, audit *logger.AuditLogger) *AttachmentHandler {
	return &AttachmentHandler{
		messages: messages,
		audit:    audit,
	}
}

// PreviewResponse is the inline form of an attachment
type PreviewResponse struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Size    int64  `json:"size"`
	SizeStr string `json:"sizeFormatted"`
	DataURL string `json:"dataUrl"`
}

// Download handles GET /api/messages/:id/attachment.
// With ?format=dataurl the attachment is returned as a JSON data URL instead of raw bytes.
func (h *AttachmentHandler) Download(c echo.Context) error {
	id, ok := messageID(c)
	if !ok {
		return response.BadRequest(c, "invalid message ID")
	}

	if c.QueryParam("format") == "dataurl" {
		return h.preview(c, id)
	}

	file, err := h.messages.DownloadAttachment(c.Request().Context(), id)
	if err != nil {
		return failure(c, h.audit, err, id, "download")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(file.Data)))
	return c.Blob(http.StatusOK, file.Type, file.Data)
}

func (h *AttachmentHandler) preview(c echo.Context, id string) error {
	message, err := h.messages.GetMessage(c.Request().Context(), id)
	if err != nil {
		return failure(c, h.audit, err, id, "download")
	}
	if !message.HasAttachment() {
		return response.NotFound(c, "message has no attachment")
	}

	af := message.AttachedFile
	return response.Success(c, PreviewResponse{
		Name:    af.Name,
		Type:    af.Type,
		Size:    af.Size,
		SizeStr: attachment.FormatFileSize(af.Size),
		DataURL: attachment.DataURL(af),
	})
}
