// Package simulator drives the chat API the way a real frontend does: one
// ChatClient per user, holding the local view a browser tab would hold and
// reconciling it against live events and re-fetches.
package simulator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"hirehub/internal/chat"
	"hirehub/internal/engine/actors"
	"hirehub/internal/models"
	ws "hirehub/internal/websocket"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ChatClient is one user's connection to the system: an authenticated HTTP
// client plus a live channel. Incoming live messages are merged into a set
// keyed by record id, never appended, so the optimistic echo racing the
// authoritative broadcast cannot duplicate entries.
type ChatClient struct {
	BaseURL string
	WSURL   string
	UserID  uuid.UUID
	Token   string

	HTTPClient *http.Client

	mu            sync.Mutex
	conn          *websocket.Conn
	joined        map[string]bool
	messages      map[string]map[uuid.UUID]*models.Message
	conversations []*models.Conversation
	notifications []*actors.NotificationEvent
}

func NewChatClient(baseURL, wsURL string, userID uuid.UUID, token string) *ChatClient {
	return &ChatClient{
		BaseURL:    baseURL,
		WSURL:      wsURL,
		UserID:     userID,
		Token:      token,
		HTTPClient: &http.Client{},
		joined:     make(map[string]bool),
		messages:   make(map[string]map[uuid.UUID]*models.Message),
	}
}

// Connect opens the live channel and reconciles local state with the stores:
// room membership is not preserved server-side across reconnects, so every
// previously joined room is re-joined, and history is re-fetched because
// missed events are never replayed.
func (c *ChatClient) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.WSURL+"?token="+c.Token, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %v", err)
	}

	c.mu.Lock()
	c.conn = conn
	rejoin := make([]string, 0, len(c.joined))
	for room := range c.joined {
		rejoin = append(rejoin, room)
	}
	c.mu.Unlock()

	go c.listen(conn)

	for _, room := range rejoin {
		if err := c.writeEvent(ws.EventJoinChat, map[string]string{"conversationId": room}); err != nil {
			return err
		}
		var history actors.ConversationHistory
		counterpart, err := c.counterpartOf(room)
		if err != nil {
			continue
		}
		if err := c.doJSON(http.MethodGet, "/chat/messages/"+counterpart.String(), nil, &history); err != nil {
			return err
		}
		c.replaceConversation(history.ConversationID, history.Messages)
	}

	if _, err := c.Conversations(); err != nil {
		return err
	}
	return nil
}

// Close tears down the live channel; local state is kept for the reconnect.
func (c *ChatClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *ChatClient) listen(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var envelope ws.Envelope
		if err := json.Unmarshal(payload, &envelope); err != nil {
			continue
		}
		c.handleEvent(envelope)
	}
}

func (c *ChatClient) handleEvent(envelope ws.Envelope) {
	switch envelope.Event {
	case ws.EventNewMessage:
		var message models.Message
		if err := json.Unmarshal(envelope.Data, &message); err != nil {
			return
		}
		if message.ID == uuid.Nil {
			// Optimistic echo from another tab, no record id yet; the
			// authoritative broadcast will carry one.
			return
		}
		c.mergeMessage(&message)

	case ws.EventMessageRead:
		var receipt actors.ReadReceipt
		if err := json.Unmarshal(envelope.Data, &receipt); err != nil {
			return
		}
		c.applyReadReceipt(&receipt)

	case ws.EventNewNotification:
		var notification actors.NotificationEvent
		if err := json.Unmarshal(envelope.Data, &notification); err != nil {
			return
		}
		c.mu.Lock()
		c.notifications = append(c.notifications, &notification)
		c.mu.Unlock()

	default:
		slog.Debug("client ignoring event", "event", envelope.Event, "user", c.UserID)
	}
}

// mergeMessage is idempotent: the same record arriving twice (own echo plus
// broadcast, or a re-fetch overlapping a live event) lands on one entry.
func (c *ChatClient) mergeMessage(message *models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conversation, ok := c.messages[message.ConversationID]
	if !ok {
		conversation = make(map[uuid.UUID]*models.Message)
		c.messages[message.ConversationID] = conversation
	}
	conversation[message.ID] = message
}

// applyReadReceipt flips the read state of own outgoing messages addressed
// to the reader, locally, without a round-trip fetch.
func (c *ChatClient) applyReadReceipt(receipt *actors.ReadReceipt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, message := range c.messages[receipt.ConversationID] {
		if message.SenderID == c.UserID && message.ReceiverID == receipt.ReaderID {
			message.IsRead = true
		}
	}
}

func (c *ChatClient) replaceConversation(conversationID string, history []*models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conversation := make(map[uuid.UUID]*models.Message, len(history))
	for _, message := range history {
		conversation[message.ID] = message
	}
	c.messages[conversationID] = conversation
}

// JoinChat joins a conversation room on the live channel.
func (c *ChatClient) JoinChat(conversationID string) error {
	c.mu.Lock()
	c.joined[conversationID] = true
	c.mu.Unlock()
	return c.writeEvent(ws.EventJoinChat, map[string]string{"conversationId": conversationID})
}

// LeaveChat leaves a conversation room.
func (c *ChatClient) LeaveChat(conversationID string) error {
	c.mu.Lock()
	delete(c.joined, conversationID)
	c.mu.Unlock()
	return c.writeEvent(ws.EventLeaveChat, map[string]string{"conversationId": conversationID})
}

func (c *ChatClient) writeEvent(event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(ws.Envelope{Event: event, Data: raw})
}

// StartChat opens (or resumes) a conversation with another user.
func (c *ChatClient) StartChat(otherUserID uuid.UUID) (*actors.StartConversationResponse, error) {
	var response actors.StartConversationResponse
	err := c.doJSON(http.MethodPost, "/chat/start", map[string]string{"providerId": otherUserID.String()}, &response)
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// SendMessage sends through the authoritative HTTP path and merges the
// stored record locally; the live broadcast of the same record is absorbed
// by the id-keyed merge.
func (c *ChatClient) SendMessage(receiverID uuid.UUID, body string) (*models.Message, error) {
	var message models.Message
	err := c.doJSON(http.MethodPost, "/chat/send", map[string]string{
		"receiverId": receiverID.String(),
		"message":    body,
	}, &message)
	if err != nil {
		return nil, err
	}
	c.mergeMessage(&message)
	return &message, nil
}

// Conversations re-fetches the conversation list aggregate.
func (c *ChatClient) Conversations() ([]*models.Conversation, error) {
	var conversations []*models.Conversation
	if err := c.doJSON(http.MethodGet, "/chat/conversations", nil, &conversations); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.conversations = conversations
	c.mu.Unlock()
	return conversations, nil
}

// History fetches (and server-side marks read) the conversation with one
// counterpart, replacing the local copy.
func (c *ChatClient) History(otherUserID uuid.UUID) (*actors.ConversationHistory, error) {
	var history actors.ConversationHistory
	if err := c.doJSON(http.MethodGet, "/chat/messages/"+otherUserID.String(), nil, &history); err != nil {
		return nil, err
	}
	c.replaceConversation(history.ConversationID, history.Messages)
	return &history, nil
}

// MarkRead marks the conversation with otherUserID as read.
func (c *ChatClient) MarkRead(otherUserID uuid.UUID) error {
	var response actors.MarkReadResponse
	return c.doJSON(http.MethodPost, "/chat/mark-read", map[string]string{"otherUserId": otherUserID.String()}, &response)
}

// UnreadCount fetches the total unread message count.
func (c *ChatClient) UnreadCount() (int64, error) {
	var response actors.UnreadCountResponse
	if err := c.doJSON(http.MethodGet, "/chat/unread-count", nil, &response); err != nil {
		return 0, err
	}
	return response.UnreadCount, nil
}

// Messages returns the local view of a conversation, oldest first.
func (c *ChatClient) Messages(conversationID string) []*models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	messages := make([]*models.Message, 0, len(c.messages[conversationID]))
	for _, message := range c.messages[conversationID] {
		copied := *message
		messages = append(messages, &copied)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].SentAt.Before(messages[j].SentAt)
	})
	return messages
}

// Notifications returns the live notifications received so far.
func (c *ChatClient) Notifications() []*actors.NotificationEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	notifications := make([]*actors.NotificationEvent, len(c.notifications))
	copy(notifications, c.notifications)
	return notifications
}

func (c *ChatClient) counterpartOf(conversationID string) (uuid.UUID, error) {
	return chat.Counterpart(conversationID, c.UserID)
}

func (c *ChatClient) doJSON(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
