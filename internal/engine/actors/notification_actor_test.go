package actors

import (
	"encoding/json"
	"testing"
	"time"

	"hirehub/internal/database"
	"hirehub/internal/models"
	"hirehub/internal/utils"
	ws "hirehub/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notificationFixture struct {
	system *actor.ActorSystem
	store  *database.MemoryStore
	hub    *ws.Hub
	pid    *actor.PID
}

func newNotificationFixture(t *testing.T) *notificationFixture {
	t.Helper()

	store := database.NewMemoryStore()
	hub := ws.NewHub()
	go hub.Run()

	system := actor.NewActorSystem()
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewNotificationActor(store, hub, utils.NewMetricsCollector())
	}))

	return &notificationFixture{system: system, store: store, hub: hub, pid: pid}
}

func (f *notificationFixture) ask(t *testing.T, msg interface{}) interface{} {
	t.Helper()
	result, err := f.system.Root.RequestFuture(f.pid, msg, 2*time.Second).Result()
	require.NoError(t, err)
	return result
}

func TestCreateNotification(t *testing.T) {
	f := newNotificationFixture(t)
	userID := uuid.New()

	result := f.ask(t, &CreateNotificationMsg{
		UserID:      userID,
		Type:        models.NotificationHireRequest,
		Message:     "carol wants to hire you",
		RelatedID:   uuid.New().String(),
		RelatedKind: "hire_request",
	})
	notification, ok := result.(*models.Notification)
	require.True(t, ok, "got %T", result)
	assert.NotEqual(t, uuid.Nil, notification.ID)
	assert.Equal(t, userID, notification.UserID)
	assert.False(t, notification.IsRead)
	assert.False(t, notification.CreatedAt.IsZero())
}

func TestCreateNotificationRejectsUnknownType(t *testing.T) {
	f := newNotificationFixture(t)

	result := f.ask(t, &CreateNotificationMsg{
		UserID:  uuid.New(),
		Type:    models.NotificationType("carrier_pigeon"),
		Message: "squawk",
	})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "got %T", result)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)
}

func TestCreateNotificationRejectsDanglingReference(t *testing.T) {
	f := newNotificationFixture(t)

	result := f.ask(t, &CreateNotificationMsg{
		UserID:    uuid.New(),
		Type:      models.NotificationMessage,
		Message:   "incomplete reference",
		RelatedID: uuid.New().String(), // no kind
	})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)

	result = f.ask(t, &CreateNotificationMsg{
		UserID:      uuid.New(),
		Type:        models.NotificationMessage,
		Message:     "kind without id",
		RelatedKind: "message",
	})
	appErr, ok = result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)
}

func TestCreateNotificationPushesToPersonalRoom(t *testing.T) {
	f := newNotificationFixture(t)
	userID := uuid.New()

	client := ws.NewClient(f.hub, userID, nil, nil)
	f.hub.Register <- client
	assert.Eventually(t, func() bool {
		return f.hub.RoomSize(ws.PersonalRoom(userID)) == 1
	}, time.Second, 10*time.Millisecond)

	result := f.ask(t, &CreateNotificationMsg{
		UserID:  userID,
		Type:    models.NotificationPaymentReceived,
		Message: "payment received for booking",
	})
	created, ok := result.(*models.Notification)
	require.True(t, ok)

	select {
	case payload := <-client.Send:
		var envelope ws.Envelope
		require.NoError(t, json.Unmarshal(payload, &envelope))
		assert.Equal(t, ws.EventNewNotification, envelope.Event)
		var event NotificationEvent
		require.NoError(t, json.Unmarshal(envelope.Data, &event))
		assert.Equal(t, created.ID, event.ID)
		assert.Equal(t, models.NotificationPaymentReceived, event.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no live notification received")
	}
}

func TestListNotificationsNewestFirstWithLimit(t *testing.T) {
	f := newNotificationFixture(t)
	userID := uuid.New()

	for i := 0; i < 5; i++ {
		f.ask(t, &CreateNotificationMsg{
			UserID:  userID,
			Type:    models.NotificationMessage,
			Message: "n",
		})
	}

	result := f.ask(t, &ListNotificationsMsg{UserID: userID, Limit: 3})
	notifications, ok := result.([]*models.Notification)
	require.True(t, ok, "got %T", result)
	require.Len(t, notifications, 3)
	for i := 1; i < len(notifications); i++ {
		assert.False(t, notifications[i].CreatedAt.After(notifications[i-1].CreatedAt),
			"listing must be newest first")
	}

	// Unset limit falls back to the default, empty result is a JSON array.
	result = f.ask(t, &ListNotificationsMsg{UserID: uuid.New()})
	empty, ok := result.([]*models.Notification)
	require.True(t, ok)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMarkNotificationRead(t *testing.T) {
	f := newNotificationFixture(t)
	userID := uuid.New()

	created := f.ask(t, &CreateNotificationMsg{
		UserID:  userID,
		Type:    models.NotificationBadgeGranted,
		Message: "badge granted",
	}).(*models.Notification)

	result := f.ask(t, &MarkNotificationReadMsg{NotificationID: created.ID, UserID: userID})
	marked, ok := result.(*MarkReadResponse)
	require.True(t, ok, "got %T", result)
	assert.EqualValues(t, 1, marked.Count)

	// Marking again succeeds; the record is simply already read.
	result = f.ask(t, &MarkNotificationReadMsg{NotificationID: created.ID, UserID: userID})
	_, ok = result.(*MarkReadResponse)
	require.True(t, ok)
}

func TestMarkNotificationReadWrongOwnerOrMissing(t *testing.T) {
	f := newNotificationFixture(t)
	owner := uuid.New()

	created := f.ask(t, &CreateNotificationMsg{
		UserID:  owner,
		Type:    models.NotificationVerificationApproved,
		Message: "verification approved",
	}).(*models.Notification)

	// Another user cannot acknowledge someone else's notification; the store
	// scopes the lookup by owner so it reads as not found.
	result := f.ask(t, &MarkNotificationReadMsg{NotificationID: created.ID, UserID: uuid.New()})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "got %T", result)
	assert.Equal(t, utils.ErrNotificationNotFound, appErr.Code)

	result = f.ask(t, &MarkNotificationReadMsg{NotificationID: uuid.New(), UserID: owner})
	appErr, ok = result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrNotificationNotFound, appErr.Code)
}

func TestMarkAllNotificationsReadScopedToUser(t *testing.T) {
	f := newNotificationFixture(t)
	userA := uuid.New()
	userB := uuid.New()

	for i := 0; i < 3; i++ {
		f.ask(t, &CreateNotificationMsg{UserID: userA, Type: models.NotificationMessage, Message: "a"})
	}
	f.ask(t, &CreateNotificationMsg{UserID: userB, Type: models.NotificationMessage, Message: "b"})

	result := f.ask(t, &MarkAllNotificationsReadMsg{UserID: userA})
	marked, ok := result.(*MarkReadResponse)
	require.True(t, ok)
	assert.EqualValues(t, 3, marked.Count)

	countA := f.ask(t, &GetUnreadNotificationsMsg{UserID: userA}).(*UnreadCountResponse)
	assert.Zero(t, countA.UnreadCount)

	countB := f.ask(t, &GetUnreadNotificationsMsg{UserID: userB}).(*UnreadCountResponse)
	assert.EqualValues(t, 1, countB.UnreadCount, "other users' unread state untouched")

	// Repeat is a no-op.
	result = f.ask(t, &MarkAllNotificationsReadMsg{UserID: userA})
	marked, ok = result.(*MarkReadResponse)
	require.True(t, ok)
	assert.Zero(t, marked.Count)
}
