package database

import (
	"context"
	"errors"
	"fmt"

	"hirehub/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserDocument is the slice of the user profile document this subsystem
// reads. The profile service owns the full document.
type UserDocument struct {
	ID        string `bson:"_id"`
	Username  string `bson:"username"`
	AvatarURL string `bson:"avatarUrl,omitempty"`
}

// UserSummary resolves a user id to its display summary
func (m *MongoDB) UserSummary(ctx context.Context, id uuid.UUID) (*models.UserSummary, error) {
	var doc UserDocument
	err := m.Users.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}

	userID, _ := uuid.Parse(doc.ID)
	return &models.UserSummary{
		ID:        userID,
		Username:  doc.Username,
		AvatarURL: doc.AvatarURL,
	}, nil
}
