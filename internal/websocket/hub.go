package websocket

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
	"github.com/welldanyogia/icd-messaging-backend/internal/services"
	"go.uber.org/atomic"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeInbox    MessageType = "inbox"
	MessageTypeMarkRead MessageType = "mark_read"
	MessageTypeError    MessageType = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type  MessageType   `json:"type"`
	ID    string        `json:"id,omitempty"`
	Inbox *InboxPayload `json:"inbox,omitempty"`
	Error string        `json:"error,omitempty"`
}

// InboxPayload is the merged inbox pushed to a user's clients
type InboxPayload struct {
	Messages    []models.Message `json:"messages"`
	UnreadCount int              `json:"unreadCount"`
}

// InboxOpener opens live inbox sessions
type InboxOpener interface {
	GetUserInboxMessages(ctx context.Context, identity models.Identity) (*services.InboxSession, error)
	MarkAsRead(ctx context.Context, id string) error
}

// HubStats is a point-in-time view of hub activity
type HubStats struct {
	Clients    int64 `json:"clients"`
	Sessions   int64 `json:"sessions"`
	Broadcasts int64 `json:"broadcasts"`
}

// userSession is one live inbox shared by every client of the same user
type userSession struct {
	session *services.InboxSession
	clients map[*Client]bool
}

type snapshot struct {
	uid      string
	session  *services.InboxSession
	messages []models.Message
}

// Hub keeps one inbox session per connected user and fans its snapshots out to that user's clients
type Hub struct {
	inbox  InboxOpener
	logger *slog.Logger

	// uid -> live session and its clients; owned by Run
	sessions map[string]*userSession

	register   chan *Client
	unregister chan *Client
	broadcast  chan *snapshot

	clients    *atomic.Int64
	live       *atomic.Int64
	broadcasts *atomic.Int64

	ctx  context.Context
	done chan struct{}
}

// NewHub creates a new Hub instance
func NewHub(inbox InboxOpener, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		inbox:      inbox,
		logger:     logger.With(slog.String("component", "websocket")),
		sessions:   make(map[string]*userSession),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *snapshot, 64),
		clients:    atomic.NewInt64(0),
		live:       atomic.NewInt64(0),
		broadcasts: atomic.NewInt64(0),
		ctx:        context.Background(),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns when ctx is cancelled,
// closing every session and client.
func (h *Hub) Run(ctx context.Context) {
	h.ctx = ctx
	defer close(h.done)
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.remove(client)

		case snap := <-h.broadcast:
			h.fanout(snap)
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.closeSend()
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Stats returns current client, session and broadcast counters
func (h *Hub) Stats() HubStats {
	return HubStats{
		Clients:    h.clients.Load(),
		Sessions:   h.live.Load(),
		Broadcasts: h.broadcasts.Load(),
	}
}

func (h *Hub) add(client *Client) {
	uid := client.identity.UID
	us, ok := h.sessions[uid]
	if !ok {
		session, err := h.inbox.GetUserInboxMessages(h.ctx, client.identity)
		if err != nil {
			h.logger.Warn("failed to open inbox session", slog.String("uid", uid), slog.Any("error", err))
			client.sendError("failed to open inbox")
			client.closeSend()
			return
		}
		us = &userSession{session: session, clients: make(map[*Client]bool)}
		h.sessions[uid] = us
		h.live.Inc()
		go h.pump(uid, session)
	}

	us.clients[client] = true
	h.clients.Inc()
	h.logger.Debug("client registered", slog.String("uid", uid), slog.Int("user_clients", len(us.clients)))

	// Late joiners get the current inbox right away
	if us.session.State() == services.StateLive {
		if data, err := encodeInbox(us.session.Current(), uid); err == nil {
			client.offer(data)
		}
	}
}

func (h *Hub) remove(client *Client) {
	uid := client.identity.UID
	us, ok := h.sessions[uid]
	if !ok || !us.clients[client] {
		return
	}

	delete(us.clients, client)
	client.closeSend()
	h.clients.Dec()
	h.logger.Debug("client unregistered", slog.String("uid", uid))

	if len(us.clients) == 0 {
		delete(h.sessions, uid)
		h.live.Dec()
		go us.session.Close()
	}
}

// pump forwards session snapshots into the hub loop until the session stops
func (h *Hub) pump(uid string, session *services.InboxSession) {
	for msgs := range session.Updates() {
		select {
		case h.broadcast <- &snapshot{uid: uid, session: session, messages: msgs}:
		case <-h.done:
			return
		}
	}
}

func (h *Hub) fanout(snap *snapshot) {
	us, ok := h.sessions[snap.uid]
	if !ok || us.session != snap.session {
		return
	}

	data, err := encodeInbox(snap.messages, snap.uid)
	if err != nil {
		h.logger.Error("failed to marshal inbox", slog.Any("error", err))
		return
	}
	for client := range us.clients {
		client.offer(data)
	}
	h.broadcasts.Inc()
}

func (h *Hub) shutdown() {
	for uid, us := range h.sessions {
		for client := range us.clients {
			client.closeSend()
			h.clients.Dec()
		}
		us.session.Close()
		delete(h.sessions, uid)
		h.live.Dec()
	}
}

func encodeInbox(messages []models.Message, uid string) ([]byte, error) {
	if messages == nil {
		messages = []models.Message{}
	}
	return json.Marshal(WSMessage{
		Type: MessageTypeInbox,
		Inbox: &InboxPayload{
			Messages:    messages,
			UnreadCount: services.UnreadCount(messages, uid),
		},
	})
}

// Serve runs a connected client for identity until the connection ends
func (h *Hub) Serve(conn *websocket.Conn, identity models.Identity) {
	client := NewClient(h, conn, identity, h.logger)
	h.Register(client)
	go client.WritePump()
	client.ReadPump()
}
