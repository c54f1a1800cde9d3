package actors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"hirehub/internal/chat"
	"hirehub/internal/database"
	"hirehub/internal/models"
	"hirehub/internal/utils"
	ws "hirehub/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for ChatActor
type (
	StartConversationMsg struct {
		UserID      uuid.UUID `json:"userId"`
		OtherUserID uuid.UUID `json:"otherUserId"`
	}

	SendMessageMsg struct {
		SenderID   uuid.UUID `json:"senderId"`
		ReceiverID uuid.UUID `json:"receiverId"`
		Body       string    `json:"body"`
	}

	GetConversationMsg struct {
		UserID      uuid.UUID `json:"userId"`
		OtherUserID uuid.UUID `json:"otherUserId"`
	}

	GetConversationsMsg struct {
		UserID uuid.UUID `json:"userId"`
	}

	MarkConversationReadMsg struct {
		ConversationID string    `json:"conversationId"`
		ReaderID       uuid.UUID `json:"readerId"`
	}

	GetUnreadCountMsg struct {
		UserID uuid.UUID `json:"userId"`
	}
)

// Response types for ChatActor
type (
	StartConversationResponse struct {
		ConversationID string              `json:"conversationId"`
		Participant    *models.UserSummary `json:"participant"`
		HasHistory     bool                `json:"hasHistory"`
	}

	ConversationHistory struct {
		ConversationID string              `json:"conversationId"`
		Counterpart    *models.UserSummary `json:"counterpart"`
		Messages       []*models.Message   `json:"messages"`
	}

	// ReadReceipt is the payload of a live "message-read" event.
	ReadReceipt struct {
		ConversationID string    `json:"conversationId"`
		ReaderID       uuid.UUID `json:"readerId"`
	}

	MarkReadResponse struct {
		Count int64 `json:"count"`
	}

	UnreadCountResponse struct {
		UnreadCount int64 `json:"unreadCount"`
	}
)

const storeTimeout = 5 * time.Second

// ChatActor owns every mutation of the message store. Sending is two-phase:
// the store write commits first, then post-commit hooks fan the record out to
// live connections and create the receiver's notification. Each hook fails
// independently; a hook failure never rolls back or fails the committed send.
type ChatActor struct {
	messages      database.MessageStore
	users         database.UserStore
	notifications *actor.PID
	hub           *ws.Hub
	metrics       *utils.MetricsCollector

	onMessageSent []func(actor.Context, *models.Message) error
}

func NewChatActor(
	messages database.MessageStore,
	users database.UserStore,
	notifications *actor.PID,
	hub *ws.Hub,
	metrics *utils.MetricsCollector,
) *ChatActor {
	a := &ChatActor{
		messages:      messages,
		users:         users,
		notifications: notifications,
		hub:           hub,
		metrics:       metrics,
	}
	a.onMessageSent = []func(actor.Context, *models.Message) error{
		a.dispatchLiveMessage,
		a.createMessageNotification,
	}
	return a
}

func (a *ChatActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *StartConversationMsg:
		a.handleStartConversation(context, msg)
	case *SendMessageMsg:
		a.handleSendMessage(context, msg)
	case *GetConversationMsg:
		a.handleGetConversation(context, msg)
	case *GetConversationsMsg:
		a.handleGetConversations(context, msg)
	case *MarkConversationReadMsg:
		a.handleMarkRead(context, msg)
	case *GetUnreadCountMsg:
		a.handleUnreadCount(context, msg)
	}
}

func (a *ChatActor) handleStartConversation(context actor.Context, msg *StartConversationMsg) {
	if msg.UserID == msg.OtherUserID {
		context.Respond(utils.NewInvalidInputError("cannot start a conversation with yourself"))
		return
	}

	ctx, cancel := newStoreContext()
	defer cancel()

	participant, err := a.users.UserSummary(ctx, msg.OtherUserID)
	if err != nil {
		context.Respond(userLookupError(msg.OtherUserID, err))
		return
	}

	conversationID := chat.ConversationID(msg.UserID, msg.OtherUserID)
	history, err := a.messages.MessagesByConversation(ctx, conversationID)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "failed to load conversation", err))
		return
	}

	context.Respond(&StartConversationResponse{
		ConversationID: conversationID,
		Participant:    participant,
		HasHistory:     len(history) > 0,
	})
}

// handleSendMessage validates, persists, then runs the post-commit hooks.
// Success is decided by persistence alone: the sender gets the stored record
// back whether or not anyone is live to receive it.
func (a *ChatActor) handleSendMessage(context actor.Context, msg *SendMessageMsg) {
	startTime := time.Now()

	body := strings.TrimSpace(msg.Body)
	if body == "" {
		context.Respond(utils.NewInvalidInputError("message body is empty"))
		return
	}
	if msg.SenderID == msg.ReceiverID {
		context.Respond(utils.NewInvalidInputError("cannot send a message to yourself"))
		return
	}

	ctx, cancel := newStoreContext()
	defer cancel()

	receiver, err := a.users.UserSummary(ctx, msg.ReceiverID)
	if err != nil {
		context.Respond(userLookupError(msg.ReceiverID, err))
		return
	}
	sender, err := a.users.UserSummary(ctx, msg.SenderID)
	if err != nil {
		context.Respond(userLookupError(msg.SenderID, err))
		return
	}

	message := &models.Message{
		ID:             uuid.New(),
		ConversationID: chat.ConversationID(msg.SenderID, msg.ReceiverID),
		SenderID:       msg.SenderID,
		ReceiverID:     msg.ReceiverID,
		Body:           body,
		SentAt:         time.Now(),
		IsRead:         false,
	}

	if err := a.messages.SaveMessage(ctx, message); err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "failed to save message", err))
		return
	}

	message.Sender = sender
	message.Receiver = receiver

	a.runPostCommitHooks(context, message)

	if a.metrics != nil {
		a.metrics.AddOperationLatency("send_message", time.Since(startTime))
	}
	context.Respond(message)
}

func (a *ChatActor) runPostCommitHooks(context actor.Context, message *models.Message) {
	for _, hook := range a.onMessageSent {
		if err := hook(context, message); err != nil {
			// The primary write already committed; side-effect failures are
			// logged and swallowed.
			slog.Warn("post-commit hook failed", "message", message.ID, "err", err)
		}
	}
}

func (a *ChatActor) dispatchLiveMessage(_ actor.Context, message *models.Message) error {
	if a.hub == nil {
		return nil
	}
	a.hub.Emit(message.ConversationID, ws.EventNewMessage, message)
	return nil
}

func (a *ChatActor) createMessageNotification(context actor.Context, message *models.Message) error {
	if a.notifications == nil {
		return nil
	}
	senderName := message.SenderID.String()
	if message.Sender != nil {
		senderName = message.Sender.Username
	}
	context.Send(a.notifications, &CreateNotificationMsg{
		UserID:      message.ReceiverID,
		Type:        models.NotificationMessage,
		Message:     fmt.Sprintf("New message from %s", senderName),
		RelatedID:   message.ID.String(),
		RelatedKind: "message",
	})
	return nil
}

// handleGetConversation returns the full history with a side effect: every
// message addressed to the caller is marked read, and the read receipt goes
// out live to the room.
func (a *ChatActor) handleGetConversation(context actor.Context, msg *GetConversationMsg) {
	ctx, cancel := newStoreContext()
	defer cancel()

	counterpart, err := a.users.UserSummary(ctx, msg.OtherUserID)
	if err != nil {
		context.Respond(userLookupError(msg.OtherUserID, err))
		return
	}

	conversationID := chat.ConversationID(msg.UserID, msg.OtherUserID)

	modified, err := a.messages.MarkConversationRead(ctx, conversationID, msg.UserID)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "failed to mark conversation read", err))
		return
	}
	a.emitReadReceipt(conversationID, msg.UserID, modified)

	history, err := a.messages.MessagesByConversation(ctx, conversationID)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "failed to load conversation", err))
		return
	}
	a.expandIdentities(ctx, history)

	context.Respond(&ConversationHistory{
		ConversationID: conversationID,
		Counterpart:    counterpart,
		Messages:       history,
	})
}

// handleGetConversations derives the conversation list: one entry per
// counterpart carrying the latest message, unread when the latest received
// message is still unread. Computed from the message store on every call;
// there is no conversation table to drift from it.
func (a *ChatActor) handleGetConversations(context actor.Context, msg *GetConversationsMsg) {
	ctx, cancel := newStoreContext()
	defer cancel()

	history, err := a.messages.MessagesByUser(ctx, msg.UserID)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "failed to load messages", err))
		return
	}

	type group struct {
		last         *models.Message
		lastReceived *models.Message
	}
	groups := make(map[uuid.UUID]*group)

	// Input is sorted oldest first; on equal timestamps the later entry in
	// the stable order wins.
	for _, m := range history {
		counterpartID := m.SenderID
		if m.SenderID == msg.UserID {
			counterpartID = m.ReceiverID
		}
		g, ok := groups[counterpartID]
		if !ok {
			g = &group{}
			groups[counterpartID] = g
		}
		if g.last == nil || !m.SentAt.Before(g.last.SentAt) {
			g.last = m
		}
		if m.ReceiverID == msg.UserID && (g.lastReceived == nil || !m.SentAt.Before(g.lastReceived.SentAt)) {
			g.lastReceived = m
		}
	}

	conversations := make([]*models.Conversation, 0, len(groups))
	for counterpartID, g := range groups {
		counterpart, err := a.users.UserSummary(ctx, counterpartID)
		if err != nil {
			counterpart = &models.UserSummary{ID: counterpartID}
		}
		a.expandIdentities(ctx, []*models.Message{g.last})
		conversations = append(conversations, &models.Conversation{
			ConversationID: chat.ConversationID(msg.UserID, counterpartID),
			Counterpart:    counterpart,
			LastMessage:    g.last,
			Unread:         g.lastReceived != nil && !g.lastReceived.IsRead,
		})
	}
	sortConversations(conversations)

	context.Respond(conversations)
}

func (a *ChatActor) handleMarkRead(context actor.Context, msg *MarkConversationReadMsg) {
	if !chat.IsParticipant(msg.ConversationID, msg.ReaderID) {
		context.Respond(utils.NewAppError(utils.ErrForbidden, "not a participant of this conversation", nil))
		return
	}

	ctx, cancel := newStoreContext()
	defer cancel()

	modified, err := a.messages.MarkConversationRead(ctx, msg.ConversationID, msg.ReaderID)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "failed to mark conversation read", err))
		return
	}
	a.emitReadReceipt(msg.ConversationID, msg.ReaderID, modified)

	context.Respond(&MarkReadResponse{Count: modified})
}

func (a *ChatActor) handleUnreadCount(context actor.Context, msg *GetUnreadCountMsg) {
	ctx, cancel := newStoreContext()
	defer cancel()

	count, err := a.messages.CountUnreadMessages(ctx, msg.UserID)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "failed to count unread messages", err))
		return
	}
	context.Respond(&UnreadCountResponse{UnreadCount: count})
}

func (a *ChatActor) emitReadReceipt(conversationID string, readerID uuid.UUID, modified int64) {
	if a.hub == nil || modified == 0 {
		return
	}
	a.hub.Emit(conversationID, ws.EventMessageRead, &ReadReceipt{
		ConversationID: conversationID,
		ReaderID:       readerID,
	})
}

// expandIdentities attaches sender/receiver summaries for immediate display.
func (a *ChatActor) expandIdentities(ctx context.Context, messages []*models.Message) {
	cache := make(map[uuid.UUID]*models.UserSummary)
	lookup := func(id uuid.UUID) *models.UserSummary {
		if summary, ok := cache[id]; ok {
			return summary
		}
		summary, err := a.users.UserSummary(ctx, id)
		if err != nil {
			summary = &models.UserSummary{ID: id}
		}
		cache[id] = summary
		return summary
	}
	for _, m := range messages {
		if m == nil {
			continue
		}
		m.Sender = lookup(m.SenderID)
		m.Receiver = lookup(m.ReceiverID)
	}
}

func sortConversations(conversations []*models.Conversation) {
	// Newest first; freshness here is advisory, exact tie order is not.
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastMessage.SentAt.After(conversations[j].LastMessage.SentAt)
	})
}

func newStoreContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}

func userLookupError(id uuid.UUID, err error) *utils.AppError {
	if errors.Is(err, database.ErrNotFound) {
		return utils.NewUserNotFoundError(id.String())
	}
	return utils.NewAppError(utils.ErrDatabase, "failed to look up user", err)
}
