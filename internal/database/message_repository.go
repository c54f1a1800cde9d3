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

// MessageDocument represents the MongoDB document structure for chat messages
type MessageDocument struct {
	ID             string    `bson:"_id"`
	ConversationID string    `bson:"conversationId"`
	SenderID       string    `bson:"senderId"`
	ReceiverID     string    `bson:"receiverId"`
	Body           string    `bson:"body"`
	SentAt         time.Time `bson:"sentAt"`
	IsRead         bool      `bson:"isRead"`
}

func (d *MessageDocument) toModel() *models.Message {
	id, _ := uuid.Parse(d.ID)
	senderID, _ := uuid.Parse(d.SenderID)
	receiverID, _ := uuid.Parse(d.ReceiverID)

	return &models.Message{
		ID:             id,
		ConversationID: d.ConversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Body:           d.Body,
		SentAt:         d.SentAt,
		IsRead:         d.IsRead,
	}
}

// SaveMessage persists a new chat message
func (m *MongoDB) SaveMessage(ctx context.Context, message *models.Message) error {
	doc := MessageDocument{
		ID:             message.ID.String(),
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID.String(),
		ReceiverID:     message.ReceiverID.String(),
		Body:           message.Body,
		SentAt:         message.SentAt,
		IsRead:         message.IsRead,
	}

	_, err := m.Messages.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to save message: %v", err)
	}

	return nil
}

// MessagesByConversation retrieves all messages for a conversation, oldest first
func (m *MongoDB) MessagesByConversation(ctx context.Context, conversationID string) ([]*models.Message, error) {
	filter := bson.M{"conversationId": conversationID}
	opts := options.Find().SetSort(bson.D{{Key: "sentAt", Value: 1}})

	cursor, err := m.Messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation messages: %v", err)
	}
	defer cursor.Close(ctx)

	var messages []*models.Message
	for cursor.Next(ctx) {
		var doc MessageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode message: %v", err)
		}
		messages = append(messages, doc.toModel())
	}

	return messages, nil
}

// MessagesByUser retrieves all messages a user sent or received, oldest first
func (m *MongoDB) MessagesByUser(ctx context.Context, userID uuid.UUID) ([]*models.Message, error) {
	userIDStr := userID.String()

	filter := bson.M{
		"$or": []bson.M{
			{"senderId": userIDStr},
			{"receiverId": userIDStr},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "sentAt", Value: 1}})

	cursor, err := m.Messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get user messages: %v", err)
	}
	defer cursor.Close(ctx)

	var messages []*models.Message
	for cursor.Next(ctx) {
		var doc MessageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode message: %v", err)
		}
		messages = append(messages, doc.toModel())
	}

	return messages, nil
}

// MarkConversationRead flips every unread message addressed to readerID in the
// conversation. Idempotent: a second call matches nothing and mutates zero.
func (m *MongoDB) MarkConversationRead(ctx context.Context, conversationID string, readerID uuid.UUID) (int64, error) {
	filter := bson.M{
		"conversationId": conversationID,
		"receiverId":     readerID.String(),
		"isRead":         false,
	}
	update := bson.M{"$set": bson.M{"isRead": true}}

	result, err := m.Messages.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to mark conversation read: %v", err)
	}

	return result.ModifiedCount, nil
}

// CountUnreadMessages counts messages addressed to userID that are still unread
func (m *MongoDB) CountUnreadMessages(ctx context.Context, userID uuid.UUID) (int64, error) {
	filter := bson.M{
		"receiverId": userID.String(),
		"isRead":     false,
	}

	count, err := m.Messages.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %v", err)
	}

	return count, nil
}
