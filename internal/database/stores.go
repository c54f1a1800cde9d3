package database

import (
	"context"
	"errors"

	"hirehub/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned by store lookups when no matching record exists.
var ErrNotFound = errors.New("not found")

// MessageStore is the durable record of every chat message.
type MessageStore interface {
	SaveMessage(ctx context.Context, message *models.Message) error
	MessagesByConversation(ctx context.Context, conversationID string) ([]*models.Message, error)
	MessagesByUser(ctx context.Context, userID uuid.UUID) ([]*models.Message, error)
	// MarkConversationRead flips read=false->true for every message in the
	// conversation addressed to readerID and returns the number mutated.
	MarkConversationRead(ctx context.Context, conversationID string, readerID uuid.UUID) (int64, error)
	CountUnreadMessages(ctx context.Context, userID uuid.UUID) (int64, error)
}

// NotificationStore is the durable record of user-facing alerts.
type NotificationStore interface {
	SaveNotification(ctx context.Context, notification *models.Notification) error
	RecentNotifications(ctx context.Context, userID uuid.UUID, limit int64) ([]*models.Notification, error)
	// MarkNotificationRead returns ErrNotFound when no notification with that
	// id belongs to userID.
	MarkNotificationRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error)
}

// UserStore resolves user ids to display summaries. Profile CRUD is owned by
// the profile service; this subsystem only reads.
type UserStore interface {
	// UserSummary returns ErrNotFound for unknown ids.
	UserSummary(ctx context.Context, id uuid.UUID) (*models.UserSummary, error)
}
