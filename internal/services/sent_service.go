package services

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/welldanyogia/icd-messaging-backend/internal/errors"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
)

// RecentWindow is how far back the recent preset reaches
const RecentWindow = 24 * time.Hour

// SentFilter is a preset over the sent list
type SentFilter string

const (
	SentAll       SentFilter = "all"
	SentDelivered SentFilter = "delivered"
	SentPending   SentFilter = "pending"
	SentFailed    SentFilter = "failed"
	SentDocuments SentFilter = "documents"
	SentRecent    SentFilter = "recent"
)

// ParseSentFilter parses a preset name. An empty name means all.
func ParseSentFilter(s string) (SentFilter, error) {
	switch f := SentFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return SentAll, nil
	case SentAll, SentDelivered, SentPending, SentFailed, SentDocuments, SentRecent:
		return f, nil
	default:
		return "", apperrors.NewValidationError("filter", "oneof", "filter must be one of [all delivered pending failed documents recent]")
	}
}

// SentCounts are the badge counts of every preset
type SentCounts struct {
	All       int `json:"all"`
	Delivered int `json:"delivered"`
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
	Documents int `json:"documents"`
	Recent    int `json:"recent"`
}

// SentService serves the caller's sent view
type SentService struct {
	messages *MessageService
	now      func() time.Time
}

// NewSentService creates a new SentService
func NewSentService(messages *MessageService) *SentService {
	return &SentService{messages: messages, now: time.Now}
}

// GetSentMessages returns the caller's sent messages, newest first
func (s *SentService) GetSentMessages(ctx context.Context) ([]models.Message, error) {
	return s.messages.GetSentMessages(ctx)
}

// Filter applies a preset
func (s *SentService) Filter(messages []models.Message, f SentFilter) []models.Message {
	now := s.now()
	return filter(messages, func(m *models.Message) bool {
		return matchesSent(m, f, now)
	})
}

// Counts returns how many messages fall under each preset
func (s *SentService) Counts(messages []models.Message) SentCounts {
	now := s.now()
	var c SentCounts
	for i := range messages {
		m := &messages[i]
		c.All++
		if matchesSent(m, SentDelivered, now) {
			c.Delivered++
		} else {
			c.Pending++
		}
		if matchesSent(m, SentFailed, now) {
			c.Failed++
		}
		if matchesSent(m, SentDocuments, now) {
			c.Documents++
		}
		if matchesSent(m, SentRecent, now) {
			c.Recent++
		}
	}
	return c
}

func matchesSent(m *models.Message, f SentFilter, now time.Time) bool {
	switch f {
	case SentDelivered:
		return len(m.ReadBy) > 0
	case SentPending:
		return len(m.ReadBy) == 0
	case SentFailed:
		return !m.HasRecipient()
	case SentDocuments:
		return m.HasAttachment()
	case SentRecent:
		return !m.Timestamp.IsZero() && m.Timestamp.After(now.Add(-RecentWindow))
	default:
		return true
	}
}
