package services

import (
	"strings"

	apperrors "github.com/welldanyogia/icd-messaging-backend/internal/errors"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
)

// InboxType selects a slice of the inbox
type InboxType string

const (
	InboxAll         InboxType = "all"
	InboxDirect      InboxType = "direct"
	InboxDepartment  InboxType = "department"
	InboxAttachments InboxType = "attachments"
	InboxHigh        InboxType = "high"
)

// ParseInboxType parses a type name. An empty name means all.
func ParseInboxType(s string) (InboxType, error) {
	switch t := InboxType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return InboxAll, nil
	case InboxAll, InboxDirect, InboxDepartment, InboxAttachments, InboxHigh:
		return t, nil
	default:
		return "", apperrors.NewValidationError("type", "oneof", "type must be one of [all direct department attachments high]")
	}
}

// UnreadCount counts messages uid has not read
func UnreadCount(messages []models.Message, uid string) int {
	n := 0
	for i := range messages {
		if !messages[i].IsReadBy(uid) {
			n++
		}
	}
	return n
}

// MessagesByType filters a merged inbox down to one slice
func MessagesByType(messages []models.Message, identity models.Identity, t InboxType) []models.Message {
	return filter(messages, func(m *models.Message) bool {
		switch t {
		case InboxDirect:
			return m.To != "" && m.To == identity.Email
		case InboxDepartment:
			return m.HasDepartment(identity.Department)
		case InboxAttachments:
			return m.HasAttachment()
		case InboxHigh:
			return m.Priority == models.PriorityHigh
		default:
			return true
		}
	})
}

// MessagesByReadStatus keeps the messages uid has (read) or has not (!read) read
func MessagesByReadStatus(messages []models.Message, uid string, read bool) []models.Message {
	return filter(messages, func(m *models.Message) bool {
		return m.IsReadBy(uid) == read
	})
}

func filter(messages []models.Message, keep func(*models.Message) bool) []models.Message {
	out := make([]models.Message, 0, len(messages))
	for i := range messages {
		if keep(&messages[i]) {
			out = append(out, messages[i])
		}
	}
	return out
}
