package simulator

import (
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"time"

	"hirehub/internal/database"
	"hirehub/internal/engine"
	"hirehub/internal/handlers"
	"hirehub/internal/middleware"
	"hirehub/internal/models"
	"hirehub/internal/utils"
	ws "hirehub/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Harness boots the full stack on in-memory stores: hub, actor engine, and
// HTTP server on a loopback port. No external services needed.
type Harness struct {
	Server *httptest.Server
	Store  *database.MemoryStore
	Hub    *ws.Hub
	Auth   *middleware.Authenticator
}

func NewHarness() *Harness {
	store := database.NewMemoryStore()
	hub := ws.NewHub()
	go hub.Run()

	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, engine.Stores{
		Messages:      store,
		Notifications: store,
		Users:         store,
	}, hub, utils.NewMetricsCollector())

	auth := middleware.NewAuthenticator("simulator-secret", time.Hour)
	server := handlers.NewServer(system, eng, hub, auth, utils.NewMetricsCollector(), nil)

	return &Harness{
		Server: httptest.NewServer(server.Router()),
		Store:  store,
		Hub:    hub,
		Auth:   auth,
	}
}

func (h *Harness) Close() {
	h.Server.Close()
}

func (h *Harness) BaseURL() string {
	return h.Server.URL
}

func (h *Harness) WSURL() string {
	return "ws" + strings.TrimPrefix(h.Server.URL, "http") + "/ws"
}

// NewUser seeds a user and returns a connected client for them.
func (h *Harness) NewUser(username string) (*ChatClient, error) {
	user := &models.UserSummary{ID: uuid.New(), Username: username}
	h.Store.AddUser(user)

	token, err := h.Auth.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}
	client := NewChatClient(h.BaseURL(), h.WSURL(), user.ID, token)
	if err := client.Connect(); err != nil {
		return nil, err
	}
	return client, nil
}

// RunScenario exercises a full two-user exchange end to end: open a
// conversation, trade messages over the live channel, read receipts, a
// reconnect with state reconciliation, and the conversation list aggregate.
func RunScenario(h *Harness) error {
	alice, err := h.NewUser("alice")
	if err != nil {
		return fmt.Errorf("alice connect: %w", err)
	}
	defer alice.Close()

	bob, err := h.NewUser("bob")
	if err != nil {
		return fmt.Errorf("bob connect: %w", err)
	}
	defer bob.Close()

	started, err := alice.StartChat(bob.UserID)
	if err != nil {
		return fmt.Errorf("start chat: %w", err)
	}
	conversationID := started.ConversationID
	slog.Info("conversation opened", "id", conversationID)

	if err := alice.JoinChat(conversationID); err != nil {
		return err
	}
	if err := bob.JoinChat(conversationID); err != nil {
		return err
	}

	sent, err := alice.SendMessage(bob.UserID, "Hi, is the listing still available?")
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	// Bob should see the message live, without fetching.
	if err := waitUntil(func() bool {
		for _, message := range bob.Messages(conversationID) {
			if message.ID == sent.ID {
				return true
			}
		}
		return false
	}); err != nil {
		return fmt.Errorf("live delivery to bob: %w", err)
	}
	slog.Info("live delivery confirmed", "messageId", sent.ID)

	// And a notification on his personal room.
	if err := waitUntil(func() bool {
		return len(bob.Notifications()) > 0
	}); err != nil {
		return fmt.Errorf("notification fan-out: %w", err)
	}

	unread, err := bob.UnreadCount()
	if err != nil {
		return err
	}
	if unread != 1 {
		return fmt.Errorf("bob unread count: got %d, want 1", unread)
	}

	// Bob opens the conversation, which marks it read and emits a receipt
	// that should flip Alice's local copy without a fetch.
	if _, err := bob.History(alice.UserID); err != nil {
		return err
	}
	if err := waitUntil(func() bool {
		for _, message := range alice.Messages(conversationID) {
			if message.ID == sent.ID && message.IsRead {
				return true
			}
		}
		return false
	}); err != nil {
		return fmt.Errorf("read receipt to alice: %w", err)
	}
	slog.Info("read receipt confirmed")

	reply, err := bob.SendMessage(alice.UserID, "Yes it is, when would suit you?")
	if err != nil {
		return err
	}

	// Bob drops and reconnects mid-conversation; the client re-joins its
	// rooms and re-fetches, so its view converges with the store.
	bob.Close()
	another, err := alice.SendMessage(bob.UserID, "How about tomorrow morning?")
	if err != nil {
		return err
	}
	if err := bob.Connect(); err != nil {
		return fmt.Errorf("bob reconnect: %w", err)
	}
	if err := waitUntil(func() bool {
		seen := map[uuid.UUID]bool{}
		for _, message := range bob.Messages(conversationID) {
			seen[message.ID] = true
		}
		return seen[sent.ID] && seen[reply.ID] && seen[another.ID]
	}); err != nil {
		return fmt.Errorf("reconnect convergence: %w", err)
	}
	slog.Info("reconnect convergence confirmed")

	// Alice hasn't acknowledged Bob's reply yet, so her list shows unread.
	conversations, err := alice.Conversations()
	if err != nil {
		return err
	}
	if len(conversations) != 1 {
		return fmt.Errorf("alice conversations: got %d, want 1", len(conversations))
	}
	top := conversations[0]
	if top.LastMessage == nil || top.LastMessage.ID != another.ID {
		return fmt.Errorf("conversation list last message mismatch")
	}
	if !top.Unread {
		return fmt.Errorf("alice should see the conversation unread before acknowledging %s", reply.ID)
	}

	if err := alice.MarkRead(bob.UserID); err != nil {
		return err
	}
	conversations, err = alice.Conversations()
	if err != nil {
		return err
	}
	if conversations[0].Unread {
		return fmt.Errorf("alice conversation still unread after mark-read")
	}

	slog.Info("scenario complete",
		"messages", len(bob.Messages(conversationID)),
		"notifications", len(bob.Notifications()))
	return nil
}

func waitUntil(condition func() bool) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("condition not met within 5s")
}
