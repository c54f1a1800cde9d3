package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// ClientEventHandler receives decoded client-originated events. The hub never
// interprets event payloads itself; business logic lives behind this
// interface.
type ClientEventHandler interface {
	HandleClientEvent(client *Client, event string, data json.RawMessage)
}

// Client is a middleman between one websocket connection and the hub.
// UserID is uuid.Nil for unauthenticated connections, which are accepted but
// never joined to a personal room.
type Client struct {
	Hub *Hub

	UserID uuid.UUID

	Conn *websocket.Conn

	// Buffered channel of outbound frames.
	Send chan []byte

	Handler ClientEventHandler

	// rooms this client has joined; owned by the hub.
	rooms map[string]bool
}

// NewClient prepares a client for registration with the hub.
func NewClient(hub *Hub, userID uuid.UUID, conn *websocket.Conn, handler ClientEventHandler) *Client {
	return &Client{
		Hub:     hub,
		UserID:  userID,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		Handler: handler,
		rooms:   make(map[string]bool),
	}
}

// SendEvent queues a single event frame for this connection only.
func (c *Client) SendEvent(event string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to marshal event payload", "event", event, "err", err)
		return
	}
	payload, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return
	}
	select {
	case c.Send <- payload:
	default:
		slog.Warn("send buffer full, event dropped", "user", c.UserID, "event", event)
	}
}

// ReadPump pumps frames from the websocket connection to the event handler.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read error", "user", c.UserID, "err", err)
			}
			break
		}

		var envelope Envelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			slog.Warn("malformed client frame", "user", c.UserID, "err", err)
			continue
		}
		if c.Handler != nil {
			c.Handler.HandleClientEvent(c, envelope.Event, envelope.Data)
		}
	}
}

// WritePump pumps frames from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Warn("websocket write error", "user", c.UserID, "err", err)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
