package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/icd-messaging-backend/internal/auth"
	"github.com/welldanyogia/icd-messaging-backend/internal/logger"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
	"github.com/welldanyogia/icd-messaging-backend/internal/realtime"
	"github.com/welldanyogia/icd-messaging-backend/internal/repository"
	"github.com/welldanyogia/icd-messaging-backend/internal/services"
	"github.com/welldanyogia/icd-messaging-backend/tests/fixtures"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServices wires real inbox and message services over in-memory SQLite
func newTestServices(t *testing.T) (*services.InboxService, *services.MessageService) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Message{}, &models.MessageDepartment{}, &models.ReadReceipt{}))
	t.Cleanup(func() { sqlDB.Close() })

	repo := repository.NewMessageRepository(db)
	feed := realtime.NewFeed(0)
	messages := services.NewMessageService(repo, feed, nil, discardLogger())
	return services.NewInboxService(repo, feed, messages, discardLogger()), messages
}

func startHub(t *testing.T, inbox InboxOpener) *Hub {
	t.Helper()
	hub := NewHub(inbox, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.done
	})
	return hub
}

func as(identity models.Identity) context.Context {
	return auth.WithIdentity(context.Background(), identity)
}

// nextInbox reads frames from ch until an inbox frame satisfying cond arrives
func nextInbox(t *testing.T, ch <-chan []byte, cond func(*InboxPayload) bool) *InboxPayload {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case data, ok := <-ch:
			require.True(t, ok, "send channel closed")
			var msg WSMessage
			require.NoError(t, json.Unmarshal(data, &msg))
			if msg.Type == MessageTypeInbox && cond(msg.Inbox) {
				return msg.Inbox
			}
		case <-deadline:
			t.Fatal("timed out waiting for inbox frame")
			return nil
		}
	}
}

func TestNewSecureUpgrader_ValidOrigin(t *testing.T) {
	upgrader := NewSecureUpgrader([]string{"http://localhost:3000", "https://icd.example"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://icd.example")

	assert.True(t, upgrader.CheckOrigin(req))
}

func TestNewSecureUpgrader_InvalidOriginIsAudited(t *testing.T) {
	var buf bytes.Buffer
	audit := logger.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	upgrader := NewSecureUpgrader([]string{"https://icd.example"}, audit)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://malicious.com")

	assert.False(t, upgrader.CheckOrigin(req))
	assert.Contains(t, buf.String(), "invalid_origin")
	assert.Contains(t, buf.String(), "http://malicious.com")
}

func TestNewSecureUpgrader_EmptyOrigin(t *testing.T) {
	upgrader := NewSecureUpgrader([]string{"https://icd.example"}, nil)

	// Same-origin requests have empty Origin header
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	assert.True(t, upgrader.CheckOrigin(req))
}

func TestNewSecureUpgrader_DefaultOrigin(t *testing.T) {
	upgrader := NewSecureUpgrader(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", defaultOrigin)

	assert.True(t, upgrader.CheckOrigin(req))
}

func TestDefaultUpgrader_AllowsAll(t *testing.T) {
	upgrader := DefaultUpgrader()

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://anything.example")

	assert.True(t, upgrader.CheckOrigin(req))
}

func TestHub_ClientsOfOneUserShareASession(t *testing.T) {
	inbox, _ := newTestServices(t)
	hub := startHub(t, inbox)

	c1 := NewClient(hub, nil, fixtures.Alice, nil)
	c2 := NewClient(hub, nil, fixtures.Alice, nil)
	hub.Register(c1)
	hub.Register(c2)

	assert.Eventually(t, func() bool {
		s := hub.Stats()
		return s.Clients == 2 && s.Sessions == 1
	}, time.Second, 10*time.Millisecond)

	hub.Unregister(c1)
	assert.Eventually(t, func() bool {
		s := hub.Stats()
		return s.Clients == 1 && s.Sessions == 1
	}, time.Second, 10*time.Millisecond)

	hub.Unregister(c2)
	assert.Eventually(t, func() bool {
		s := hub.Stats()
		return s.Clients == 0 && s.Sessions == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHub_SeparateUsersGetSeparateSessions(t *testing.T) {
	inbox, _ := newTestServices(t)
	hub := startHub(t, inbox)

	hub.Register(NewClient(hub, nil, fixtures.Alice, nil))
	hub.Register(NewClient(hub, nil, fixtures.Bob, nil))

	assert.Eventually(t, func() bool {
		return hub.Stats().Sessions == 2
	}, time.Second, 10*time.Millisecond)
}

func TestHub_PushesInitialAndLiveInbox(t *testing.T) {
	inbox, messages := newTestServices(t)
	hub := startHub(t, inbox)

	client := NewClient(hub, nil, fixtures.Alice, nil)
	hub.Register(client)

	initial := nextInbox(t, client.send, func(p *InboxPayload) bool { return true })
	assert.Empty(t, initial.Messages)
	assert.NotNil(t, initial.Messages)

	id, err := messages.CreateMessage(as(fixtures.Bob), services.ComposeInput{
		To:      fixtures.Alice.Email,
		Subject: "Budget",
		Message: "Please review",
	}, models.StatusSent)
	require.NoError(t, err)

	live := nextInbox(t, client.send, func(p *InboxPayload) bool { return len(p.Messages) == 1 })
	assert.Equal(t, id, live.Messages[0].ID)
	assert.Equal(t, 1, live.UnreadCount)
	assert.Positive(t, hub.Stats().Broadcasts)
}

func TestHub_LateJoinerGetsCurrentInbox(t *testing.T) {
	inbox, messages := newTestServices(t)
	_, err := messages.CreateMessage(as(fixtures.Bob), services.ComposeInput{
		To:      fixtures.Alice.Email,
		Subject: "Hello",
		Message: "Hi",
	}, models.StatusSent)
	require.NoError(t, err)

	hub := startHub(t, inbox)
	first := NewClient(hub, nil, fixtures.Alice, nil)
	hub.Register(first)
	nextInbox(t, first.send, func(p *InboxPayload) bool { return len(p.Messages) == 1 })

	late := NewClient(hub, nil, fixtures.Alice, nil)
	hub.Register(late)
	payload := nextInbox(t, late.send, func(p *InboxPayload) bool { return true })
	assert.Len(t, payload.Messages, 1)
}

func TestHub_RejectsClientWithoutIdentity(t *testing.T) {
	inbox, _ := newTestServices(t)
	hub := startHub(t, inbox)

	client := NewClient(hub, nil, models.Identity{}, nil)
	hub.Register(client)

	data, ok := <-client.send
	require.True(t, ok)
	var msg WSMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageTypeError, msg.Type)

	_, ok = <-client.send
	assert.False(t, ok)
	assert.Zero(t, hub.Stats().Sessions)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	inbox, _ := newTestServices(t)
	hub := NewHub(inbox, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := NewClient(hub, nil, fixtures.Alice, nil)
	hub.Register(client)
	cancel()
	<-hub.done

	for range client.send {
	}
	assert.Equal(t, HubStats{Broadcasts: hub.Stats().Broadcasts}, hub.Stats())

	// Registering after shutdown does not block
	late := NewClient(hub, nil, fixtures.Alice, nil)
	hub.Register(late)
	_, ok := <-late.send
	assert.False(t, ok)
}
