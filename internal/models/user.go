package models

import "github.com/google/uuid"

// UserSummary is the slice of a user profile this subsystem needs for
// existence checks and identity expansion. Full profiles live with the
// profile service.
type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
}
