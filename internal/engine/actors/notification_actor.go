package actors

import (
	"errors"
	"time"

	"hirehub/internal/database"
	"hirehub/internal/models"
	"hirehub/internal/utils"
	ws "hirehub/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for NotificationActor
type (
	CreateNotificationMsg struct {
		UserID      uuid.UUID               `json:"userId"`
		Type        models.NotificationType `json:"type"`
		Message     string                  `json:"message"`
		RelatedID   string                  `json:"relatedId,omitempty"`
		RelatedKind string                  `json:"relatedKind,omitempty"`
	}

	ListNotificationsMsg struct {
		UserID uuid.UUID `json:"userId"`
		Limit  int64     `json:"limit"`
	}

	MarkNotificationReadMsg struct {
		NotificationID uuid.UUID `json:"notificationId"`
		UserID         uuid.UUID `json:"userId"`
	}

	MarkAllNotificationsReadMsg struct {
		UserID uuid.UUID `json:"userId"`
	}

	GetUnreadNotificationsMsg struct {
		UserID uuid.UUID `json:"userId"`
	}
)

// NotificationEvent is the compact payload pushed to a user's personal room.
type NotificationEvent struct {
	ID        uuid.UUID               `json:"id"`
	Type      models.NotificationType `json:"type"`
	Message   string                  `json:"message"`
	CreatedAt time.Time               `json:"createdAt"`
}

const defaultNotificationLimit = 50

// NotificationActor owns the notification store. Any producer (chat send,
// hire flow, verification flow) creates alerts through it; on commit the
// compact payload goes to the target's personal room only, never to a
// conversation room.
type NotificationActor struct {
	store   database.NotificationStore
	hub     *ws.Hub
	metrics *utils.MetricsCollector
}

func NewNotificationActor(store database.NotificationStore, hub *ws.Hub, metrics *utils.MetricsCollector) *NotificationActor {
	return &NotificationActor{
		store:   store,
		hub:     hub,
		metrics: metrics,
	}
}

func (a *NotificationActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *CreateNotificationMsg:
		a.handleCreate(context, msg)
	case *ListNotificationsMsg:
		a.handleList(context, msg)
	case *MarkNotificationReadMsg:
		a.handleMarkRead(context, msg)
	case *MarkAllNotificationsReadMsg:
		a.handleMarkAllRead(context, msg)
	case *GetUnreadNotificationsMsg:
		a.handleUnreadCount(context, msg)
	}
}

// respond is used instead of context.Respond because creation is often
// fire-and-forget (a post-commit hook with no sender to reply to).
func respond(context actor.Context, response interface{}) {
	if context.Sender() != nil {
		context.Respond(response)
	}
}

func (a *NotificationActor) handleCreate(context actor.Context, msg *CreateNotificationMsg) {
	startTime := time.Now()

	if !msg.Type.Valid() {
		respond(context, utils.NewInvalidInputError("unrecognized notification type: "+string(msg.Type)))
		return
	}
	// A reference is only meaningful with its kind tag; one without the
	// other is malformed.
	if (msg.RelatedID == "") != (msg.RelatedKind == "") {
		respond(context, utils.NewInvalidInputError("relatedId and relatedKind must be set together"))
		return
	}

	notification := &models.Notification{
		ID:          uuid.New(),
		UserID:      msg.UserID,
		Type:        msg.Type,
		Message:     msg.Message,
		IsRead:      false,
		RelatedID:   msg.RelatedID,
		RelatedKind: msg.RelatedKind,
		CreatedAt:   time.Now(),
	}

	ctx, cancel := newStoreContext()
	defer cancel()

	if err := a.store.SaveNotification(ctx, notification); err != nil {
		respond(context, utils.NewAppError(utils.ErrDatabase, "failed to save notification", err))
		return
	}

	if a.hub != nil {
		a.hub.EmitToUser(notification.UserID, ws.EventNewNotification, &NotificationEvent{
			ID:        notification.ID,
			Type:      notification.Type,
			Message:   notification.Message,
			CreatedAt: notification.CreatedAt,
		})
	}

	if a.metrics != nil {
		a.metrics.AddOperationLatency("create_notification", time.Since(startTime))
	}
	respond(context, notification)
}

func (a *NotificationActor) handleList(context actor.Context, msg *ListNotificationsMsg) {
	limit := msg.Limit
	if limit <= 0 {
		limit = defaultNotificationLimit
	}

	ctx, cancel := newStoreContext()
	defer cancel()

	notifications, err := a.store.RecentNotifications(ctx, msg.UserID, limit)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "failed to list notifications", err))
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	context.Respond(notifications)
}

func (a *NotificationActor) handleMarkRead(context actor.Context, msg *MarkNotificationReadMsg) {
	ctx, cancel := newStoreContext()
	defer cancel()

	err := a.store.MarkNotificationRead(ctx, msg.NotificationID, msg.UserID)
	if errors.Is(err, database.ErrNotFound) {
		context.Respond(utils.NewAppError(utils.ErrNotificationNotFound,
			"Notification not found: "+msg.NotificationID.String(), nil))
		return
	}
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "failed to mark notification read", err))
		return
	}
	context.Respond(&MarkReadResponse{Count: 1})
}

func (a *NotificationActor) handleMarkAllRead(context actor.Context, msg *MarkAllNotificationsReadMsg) {
	ctx, cancel := newStoreContext()
	defer cancel()

	modified, err := a.store.MarkAllNotificationsRead(ctx, msg.UserID)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "failed to mark notifications read", err))
		return
	}
	context.Respond(&MarkReadResponse{Count: modified})
}

func (a *NotificationActor) handleUnreadCount(context actor.Context, msg *GetUnreadNotificationsMsg) {
	ctx, cancel := newStoreContext()
	defer cancel()

	count, err := a.store.CountUnreadNotifications(ctx, msg.UserID)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "failed to count unread notifications", err))
		return
	}
	context.Respond(&UnreadCountResponse{UnreadCount: count})
}
