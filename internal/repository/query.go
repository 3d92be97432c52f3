package repository

import (
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
)

// Query selects messages. Empty fields do not constrain the result.
// The same Query drives both the SQL filter and the in-memory Matches predicate
// used by live streams, so the two never disagree.
type Query struct {
	// To matches the direct recipient email
	To string
	// Department matches membership in the recipient departments
	Department string
	// SenderIDs and SenderEmail match the sender: senderId in SenderIDs OR senderEmail == SenderEmail
	SenderIDs   []string
	SenderEmail string
	Status      models.MessageStatus
	// OrderByTimestamp asks the store to sort newest first
	OrderByTimestamp bool
}

// Unordered returns a copy of q without store-side ordering
func (q Query) Unordered() Query {
	q.OrderByTimestamp = false
	return q
}

func (q Query) hasSender() bool {
	return len(q.SenderIDs) > 0 || q.SenderEmail != ""
}

// Matches reports whether m satisfies q
func (q Query) Matches(m *models.Message) bool {
	if m == nil {
		return false
	}
	if q.Status != "" && m.Status != q.Status {
		return false
	}
	if q.To != "" && m.To != q.To {
		return false
	}
	if q.Department != "" && !m.HasDepartment(q.Department) {
		return false
	}
	if q.hasSender() && !q.matchesSender(m) {
		return false
	}
	return true
}

func (q Query) matchesSender(m *models.Message) bool {
	for _, id := range q.SenderIDs {
		if id != "" && m.SenderID == id {
			return true
		}
	}
	return q.SenderEmail != "" && m.SenderEmail == q.SenderEmail
}
