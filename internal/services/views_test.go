package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/welldanyogia/icd-messaging-backend/internal/errors"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
	"github.com/welldanyogia/icd-messaging-backend/tests/fixtures"
)

func inboxFixture() []models.Message {
	return []models.Message{
		fixtures.NewMessageBuilder().WithID("direct").To(fixtures.Bob.Email).Build(),
		fixtures.NewMessageBuilder().WithID("dept").ToDepartments("HR").ReadBy(fixtures.Bob.UID).Build(),
		fixtures.NewMessageBuilder().WithID("file").To(fixtures.Bob.Email).WithAttachment("a.txt").Build(),
		fixtures.NewMessageBuilder().WithID("urgent").ToDepartments("HR").WithPriority(models.PriorityHigh).ReadBy("someone-else").Build(),
	}
}

func TestUnreadCount(t *testing.T) {
	assert.Equal(t, 3, UnreadCount(inboxFixture(), fixtures.Bob.UID))
	assert.Equal(t, 0, UnreadCount(nil, fixtures.Bob.UID))
}

func TestMessagesByType(t *testing.T) {
	msgs := inboxFixture()

	assert.Equal(t, []string{"direct", "file"}, messageIDs(MessagesByType(msgs, fixtures.Bob, InboxDirect)))
	assert.Equal(t, []string{"dept", "urgent"}, messageIDs(MessagesByType(msgs, fixtures.Bob, InboxDepartment)))
	assert.Equal(t, []string{"file"}, messageIDs(MessagesByType(msgs, fixtures.Bob, InboxAttachments)))
	assert.Equal(t, []string{"urgent"}, messageIDs(MessagesByType(msgs, fixtures.Bob, InboxHigh)))
	assert.Len(t, MessagesByType(msgs, fixtures.Bob, InboxAll), 4)
}

func TestMessagesByReadStatus(t *testing.T) {
	msgs := inboxFixture()

	assert.Equal(t, []string{"dept"}, messageIDs(MessagesByReadStatus(msgs, fixtures.Bob.UID, true)))
	assert.Equal(t, []string{"direct", "file", "urgent"}, messageIDs(MessagesByReadStatus(msgs, fixtures.Bob.UID, false)))
}

func TestParseInboxType(t *testing.T) {
	typ, err := ParseInboxType("")
	require.NoError(t, err)
	assert.Equal(t, InboxAll, typ)

	typ, err = ParseInboxType(" High ")
	require.NoError(t, err)
	assert.Equal(t, InboxHigh, typ)

	_, err = ParseInboxType("spam")
	assert.True(t, apperrors.IsValidation(err))
}

func TestSentService_FilterAndCounts(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	s := &SentService{now: func() time.Time { return now }}

	msgs := []models.Message{
		fixtures.NewMessageBuilder().WithID("read").To(fixtures.Bob.Email).ReadBy(fixtures.Bob.UID).WithTimestamp(now.Add(-time.Hour)).Build(),
		fixtures.NewMessageBuilder().WithID("unread").ToDepartments("HR").WithTimestamp(now.Add(-48 * time.Hour)).Build(),
		fixtures.NewMessageBuilder().WithID("nowhere").WithTimestamp(now.Add(-72 * time.Hour)).Build(),
		fixtures.NewMessageBuilder().WithID("doc").To(fixtures.Carol.Email).WithAttachment("r.txt").WithTimestamp(time.Time{}).Build(),
	}

	assert.Equal(t, []string{"read"}, messageIDs(s.Filter(msgs, SentDelivered)))
	assert.Equal(t, []string{"unread", "nowhere", "doc"}, messageIDs(s.Filter(msgs, SentPending)))
	assert.Equal(t, []string{"nowhere"}, messageIDs(s.Filter(msgs, SentFailed)))
	assert.Equal(t, []string{"doc"}, messageIDs(s.Filter(msgs, SentDocuments)))
	assert.Equal(t, []string{"read"}, messageIDs(s.Filter(msgs, SentRecent)))
	assert.Len(t, s.Filter(msgs, SentAll), 4)

	assert.Equal(t, SentCounts{All: 4, Delivered: 1, Pending: 3, Failed: 1, Documents: 1, Recent: 1}, s.Counts(msgs))
}

func TestParseSentFilter(t *testing.T) {
	f, err := ParseSentFilter("")
	require.NoError(t, err)
	assert.Equal(t, SentAll, f)

	f, err = ParseSentFilter("Delivered")
	require.NoError(t, err)
	assert.Equal(t, SentDelivered, f)

	_, err = ParseSentFilter("bounced")
	vErr := apperrors.GetValidationError(err)
	require.NotNil(t, vErr)
	assert.Equal(t, "filter", vErr.Field)
}
