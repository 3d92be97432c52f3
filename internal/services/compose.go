package services

import (
	"github.com/welldanyogia/icd-messaging-backend/internal/attachment"
	apperrors "github.com/welldanyogia/icd-messaging-backend/internal/errors"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
	"github.com/welldanyogia/icd-messaging-backend/internal/validator"
)

// ComposeInput is the content of a message being sent or saved as a draft
type ComposeInput struct {
	To                   string               `json:"to" form:"to" validate:"omitempty,email,max=254"`
	RecipientDepartments []string             `json:"recipientDepartments" form:"recipientDepartments" validate:"omitempty,dive,max=255"`
	Subject              string               `json:"subject" form:"subject" validate:"required,max=500"`
	Message              string               `json:"message" form:"message" validate:"required"`
	Priority             models.Priority      `json:"priority" form:"priority" validate:"omitempty,oneof=low normal high"`
	Category             string               `json:"category" form:"category" validate:"max=100"`
	AttachedFile         *models.AttachedFile `json:"attachedFile,omitempty" form:"-"`
}

// normalize trims addresses and departments in place
func (in *ComposeInput) normalize() {
	in.To = validator.NormalizeEmail(in.To)
	in.RecipientDepartments = validator.NormalizeDepartments(in.RecipientDepartments)
	in.Subject = validator.SanitizeString(in.Subject, 500)
	in.Category = validator.SanitizeString(in.Category, 100)
	if in.Priority == "" {
		in.Priority = models.PriorityNormal
	}
}

// validateForSend enforces the full compose rules
func validateForSend(v *validator.Validator, in *ComposeInput) error {
	if err := v.Validate(in); err != nil {
		return err
	}
	if in.To == "" && len(in.RecipientDepartments) == 0 {
		return apperrors.NewValidationError("to", "required", "a recipient or at least one department is required")
	}
	return nil
}

// validateForDraft checks only what a draft must already get right
func validateForDraft(v *validator.Validator, in *ComposeInput) error {
	if err := v.Var("to", in.To, "omitempty,email,max=254"); err != nil {
		return err
	}
	return v.Var("priority", string(in.Priority), "omitempty,oneof=low normal high")
}

// composeFrom rebuilds the compose input of a stored message
func composeFrom(m *models.Message) *ComposeInput {
	return &ComposeInput{
		To:                   m.To,
		RecipientDepartments: m.RecipientDepartments,
		Subject:              m.Subject,
		Message:              m.Body,
		Priority:             m.Priority,
		Category:             m.Category,
	}
}

// encodeAttachment validates and encodes a multipart file, or re-validates an
// attachment that arrived already encoded in a JSON body
func encodeAttachment(in *ComposeInput, file *attachment.File) (*models.AttachedFile, error) {
	if file != nil {
		return attachment.Encode(file)
	}
	if in.AttachedFile == nil || in.AttachedFile.Base64Content == "" {
		return nil, nil
	}

	data, err := attachment.Decode(in.AttachedFile)
	if err != nil {
		return nil, apperrors.NewValidationError("attachedFile", "encoding", "attachment content is not valid base64")
	}
	return attachment.Encode(attachment.NewFile(in.AttachedFile.Name, in.AttachedFile.Type, data))
}
