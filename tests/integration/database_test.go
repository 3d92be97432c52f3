//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/icd-messaging-backend/internal/auth"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
	"github.com/welldanyogia/icd-messaging-backend/internal/realtime"
	"github.com/welldanyogia/icd-messaging-backend/internal/repository"
	"github.com/welldanyogia/icd-messaging-backend/internal/services"
	"github.com/welldanyogia/icd-messaging-backend/tests/fixtures"
)

// DatabaseIntegrationTestSuite runs the message store against real PostgreSQL
type DatabaseIntegrationTestSuite struct {
	suite.Suite
	pg   *Postgres
	repo repository.MessageRepository
}

func (s *DatabaseIntegrationTestSuite) SetupSuite() {
	pg, err := StartPostgres(context.Background())
	require.NoError(s.T(), err)
	s.pg = pg
	s.repo = repository.NewMessageRepository(pg.DB)
}

func (s *DatabaseIntegrationTestSuite) TearDownSuite() {
	if s.pg != nil {
		s.pg.Stop(context.Background())
	}
}

func (s *DatabaseIntegrationTestSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate())
}

func TestDatabaseIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	suite.Run(t, new(DatabaseIntegrationTestSuite))
}

func (s *DatabaseIntegrationTestSuite) create(b *fixtures.MessageBuilder) *models.Message {
	m := b.BuildPtr()
	s.Require().NoError(s.repo.Create(context.Background(), m))
	return m
}

func (s *DatabaseIntegrationTestSuite) TestPing() {
	s.NoError(s.repo.Ping(context.Background()))
}

func (s *DatabaseIntegrationTestSuite) TestCreateAndGet_RoundTripsDepartmentsAndAttachment() {
	m := s.create(fixtures.NewMessageBuilder().
		From(fixtures.Bob).
		ToDepartments("Finance", "IT").
		WithAttachment("a.txt"))

	got, err := s.repo.GetByID(context.Background(), m.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"Finance", "IT"}, got.RecipientDepartments)
	s.Require().NotNil(got.AttachedFile)
	s.Equal("aGVsbG8=", got.AttachedFile.Base64Content)
	s.Empty(got.ReadBy)
}

func (s *DatabaseIntegrationTestSuite) TestGetByID_NotFound() {
	_, err := s.repo.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *DatabaseIntegrationTestSuite) TestFind_SQLAgreesWithMatches() {
	now := time.Now().UTC().Truncate(time.Millisecond)
	s.create(fixtures.NewMessageBuilder().From(fixtures.Bob).To(fixtures.Alice.Email).WithTimestamp(now.Add(-2 * time.Minute)))
	s.create(fixtures.NewMessageBuilder().From(fixtures.Carol).ToDepartments("Finance").WithTimestamp(now.Add(-time.Minute)))
	s.create(fixtures.NewMessageBuilder().From(fixtures.Alice).To(fixtures.Bob.Email).WithTimestamp(now))
	s.create(fixtures.NewMessageBuilder().From(fixtures.Bob).To(fixtures.Alice.Email).WithStatus(models.StatusDraft))

	all, err := s.repo.Find(context.Background(), repository.Query{})
	s.Require().NoError(err)

	queries := map[string]repository.Query{
		"direct":     {To: fixtures.Alice.Email, Status: models.StatusSent, OrderByTimestamp: true},
		"department": {Department: "Finance", Status: models.StatusSent, OrderByTimestamp: true},
		"sent":       {SenderIDs: []string{fixtures.Bob.UID, fixtures.Bob.Email}, SenderEmail: fixtures.Bob.Email},
		"drafts":     {SenderIDs: []string{fixtures.Bob.UID}, Status: models.StatusDraft},
	}
	for name, q := range queries {
		s.Run(name, func() {
			got, err := s.repo.Find(context.Background(), q)
			s.Require().NoError(err)

			var want []string
			for i := range all {
				if q.Matches(&all[i]) {
					want = append(want, all[i].ID)
				}
			}
			var ids []string
			for _, m := range got {
				ids = append(ids, m.ID)
			}
			s.ElementsMatch(want, ids)
		})
	}
}

func (s *DatabaseIntegrationTestSuite) TestFind_OrdersNewestFirst() {
	now := time.Now().UTC()
	older := s.create(fixtures.NewMessageBuilder().To(fixtures.Bob.Email).WithTimestamp(now.Add(-time.Hour)))
	newer := s.create(fixtures.NewMessageBuilder().To(fixtures.Bob.Email).WithTimestamp(now))

	got, err := s.repo.Find(context.Background(), repository.Query{To: fixtures.Bob.Email, OrderByTimestamp: true})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(newer.ID, got[0].ID)
	s.Equal(older.ID, got[1].ID)
}

func (s *DatabaseIntegrationTestSuite) TestAddReadReceipt_IsIdempotent() {
	m := s.create(fixtures.NewMessageBuilder().To(fixtures.Bob.Email))
	ctx := context.Background()

	added, err := s.repo.AddReadReceipt(ctx, m.ID, fixtures.Bob.UID, time.Now())
	s.Require().NoError(err)
	s.True(added)

	added, err = s.repo.AddReadReceipt(ctx, m.ID, fixtures.Bob.UID, time.Now())
	s.Require().NoError(err)
	s.False(added)

	got, err := s.repo.GetByID(ctx, m.ID)
	s.Require().NoError(err)
	s.Equal([]string{fixtures.Bob.UID}, got.ReadBy)
	s.NotNil(got.ReadAt)

	_, err = s.repo.AddReadReceipt(ctx, "00000000-0000-0000-0000-000000000000", fixtures.Bob.UID, time.Now())
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *DatabaseIntegrationTestSuite) TestStatusUpdates() {
	m := s.create(fixtures.NewMessageBuilder().To(fixtures.Bob.Email).WithStatus(models.StatusDraft))
	ctx := context.Background()

	at := time.Now().UTC().Truncate(time.Millisecond)
	s.Require().NoError(s.repo.MarkSent(ctx, m.ID, at))
	got, err := s.repo.GetByID(ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusSent, got.Status)
	s.WithinDuration(at, got.Timestamp, time.Millisecond)

	s.Require().NoError(s.repo.UpdateStatus(ctx, m.ID, models.StatusArchived))
	got, err = s.repo.GetByID(ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusArchived, got.Status)

	s.ErrorIs(s.repo.UpdateStatus(ctx, "00000000-0000-0000-0000-000000000000", models.StatusDeleted), repository.ErrNotFound)
}

func (s *DatabaseIntegrationTestSuite) TestInboxSession_LiveOnPostgres() {
	feed := realtime.NewFeed(0)
	messages := services.NewMessageService(s.repo, feed, nil, nil)
	inbox := services.NewInboxService(s.repo, feed, messages, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	session, err := inbox.GetUserInboxMessages(ctx, fixtures.Alice)
	s.Require().NoError(err)
	defer session.Close()

	waitFor := func(n int) []models.Message {
		for {
			select {
			case msgs := <-session.Updates():
				if len(msgs) == n {
					return msgs
				}
			case <-ctx.Done():
				s.FailNow("timed out waiting for inbox update")
				return nil
			}
		}
	}

	waitFor(0)

	_, err = messages.SendMessageWithAttachment(auth.WithIdentity(ctx, fixtures.Carol), services.ComposeInput{
		RecipientDepartments: []string{"Finance"},
		Subject:              "Quarter close",
		Message:              "Numbers due Friday",
	}, nil)
	s.Require().NoError(err)

	got := waitFor(1)
	s.Equal("Quarter close", got[0].Subject)
}
