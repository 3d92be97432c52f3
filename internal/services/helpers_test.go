package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/icd-messaging-backend/internal/auth"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
	"github.com/welldanyogia/icd-messaging-backend/internal/realtime"
	"github.com/welldanyogia/icd-messaging-backend/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv wires real services over an in-memory SQLite store
type testEnv struct {
	repo     repository.MessageRepository
	feed     *realtime.Feed
	messages *MessageService
	inbox    *InboxService
	sent     *SentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every goroutine must see the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Message{}, &models.MessageDepartment{}, &models.ReadReceipt{}))
	t.Cleanup(func() { sqlDB.Close() })

	repo := repository.NewMessageRepository(db)
	feed := realtime.NewFeed(0)
	messages := NewMessageService(repo, feed, nil, discardLogger())
	return &testEnv{
		repo:     repo,
		feed:     feed,
		messages: messages,
		inbox:    NewInboxService(repo, feed, messages, discardLogger()),
		sent:     NewSentService(messages),
	}
}

func as(identity models.Identity) context.Context {
	return auth.WithIdentity(context.Background(), identity)
}

func messageIDs(messages []models.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.ID)
	}
	return out
}

// waitForInbox reads session updates until cond holds
func waitForInbox(t *testing.T, session *InboxSession, cond func([]models.Message) bool) []models.Message {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case msgs, ok := <-session.Updates():
			require.True(t, ok, "session closed")
			if cond(msgs) {
				return msgs
			}
		case <-deadline:
			t.Fatalf("timed out waiting for inbox; last published %v", messageIDs(session.Current()))
			return nil
		}
	}
}
