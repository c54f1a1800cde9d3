package database

import (
	"context"
	"fmt"
	"time"

	"hirehub/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationDocument represents the MongoDB document structure for notifications
type NotificationDocument struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"userId"`
	Type        string    `bson:"type"`
	Message     string    `bson:"message"`
	IsRead      bool      `bson:"isRead"`
	RelatedID   string    `bson:"relatedId,omitempty"`
	RelatedKind string    `bson:"relatedKind,omitempty"`
	CreatedAt   time.Time `bson:"createdAt"`
}

func (d *NotificationDocument) toModel() *models.Notification {
	id, _ := uuid.Parse(d.ID)
	userID, _ := uuid.Parse(d.UserID)

	return &models.Notification{
		ID:          id,
		UserID:      userID,
		Type:        models.NotificationType(d.Type),
		Message:     d.Message,
		IsRead:      d.IsRead,
		RelatedID:   d.RelatedID,
		RelatedKind: d.RelatedKind,
		CreatedAt:   d.CreatedAt,
	}
}

// SaveNotification persists a new notification
func (m *MongoDB) SaveNotification(ctx context.Context, notification *models.Notification) error {
	doc := NotificationDocument{
		ID:          notification.ID.String(),
		UserID:      notification.UserID.String(),
		Type:        string(notification.Type),
		Message:     notification.Message,
		IsRead:      notification.IsRead,
		RelatedID:   notification.RelatedID,
		RelatedKind: notification.RelatedKind,
		CreatedAt:   notification.CreatedAt,
	}

	_, err := m.Notifications.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to save notification: %v", err)
	}

	return nil
}

// RecentNotifications retrieves a user's notifications, newest first
func (m *MongoDB) RecentNotifications(ctx context.Context, userID uuid.UUID, limit int64) ([]*models.Notification, error) {
	filter := bson.M{"userId": userID.String()}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := m.Notifications.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %v", err)
	}
	defer cursor.Close(ctx)

	var notifications []*models.Notification
	for cursor.Next(ctx) {
		var doc NotificationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode notification: %v", err)
		}
		notifications = append(notifications, doc.toModel())
	}

	return notifications, nil
}

// MarkNotificationRead flips the read flag of one notification owned by userID
func (m *MongoDB) MarkNotificationRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	filter := bson.M{
		"_id":    id.String(),
		"userId": userID.String(),
	}
	update := bson.M{"$set": bson.M{"isRead": true}}

	result, err := m.Notifications.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %v", err)
	}

	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkAllNotificationsRead bulk-flips every unread notification for userID
func (m *MongoDB) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	filter := bson.M{
		"userId": userID.String(),
		"isRead": false,
	}
	update := bson.M{"$set": bson.M{"isRead": true}}

	result, err := m.Notifications.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %v", err)
	}

	return result.ModifiedCount, nil
}

// CountUnreadNotifications counts a user's unread notifications
func (m *MongoDB) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	filter := bson.M{
		"userId": userID.String(),
		"isRead": false,
	}

	count, err := m.Notifications.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %v", err)
	}

	return count, nil
}
