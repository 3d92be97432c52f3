package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/welldanyogia/icd-messaging-backend/internal/auth"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	sendBuffer = 16
)

// Client represents a WebSocket client connection for one authenticated user
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	identity models.Identity
	logger   *slog.Logger

	// mu guards send against writes after close
	mu     sync.Mutex
	closed bool
}

// NewClient creates a new Client instance
func NewClient(hub *Hub, conn *websocket.Conn, identity models.Identity, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		identity: identity,
		logger:   logger.With(slog.String("uid", identity.UID)),
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", slog.Any("error", err))
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming WebSocket messages
func (c *Client) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid message format")
		return
	}

	switch msg.Type {
	case MessageTypeMarkRead:
		if msg.ID == "" {
			c.sendError("id is required")
			return
		}
		ctx, cancel := context.WithTimeout(auth.WithIdentity(context.Background(), c.identity), writeWait)
		defer cancel()
		if err := c.hub.inbox.MarkAsRead(ctx, msg.ID); err != nil {
			c.logger.Warn("mark as read failed", slog.String("message_id", msg.ID), slog.Any("error", err))
			c.sendError(err.Error())
		}

	default:
		c.sendError("unknown message type")
	}
}

// offer queues data, discarding the oldest pending frame when the buffer is full.
// Inbox frames are full snapshots so only the newest matters.
func (c *Client) offer(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for {
		select {
		case c.send <- data:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(errMsg string) {
	data, err := json.Marshal(WSMessage{
		Type:  MessageTypeError,
		Error: errMsg,
	})
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		// Buffer full, skip
	}
}

// closeSend closes the outbound channel once, which ends WritePump
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
