// Package chat derives conversation identifiers from participant pairs.
package chat

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const separator = ":"

// ConversationID returns the identifier for the conversation between a and b.
// The two ids are sorted lexicographically before joining, so both
// participants derive the same value independently. The result is used as
// both the storage key and the live-room name.
func ConversationID(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if y < x {
		x, y = y, x
	}
	return x + separator + y
}

// Participants splits a conversation id back into its two participant ids.
func Participants(conversationID string) (uuid.UUID, uuid.UUID, error) {
	parts := strings.SplitN(conversationID, separator, 2)
	if len(parts) != 2 {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed conversation id: %q", conversationID)
	}
	a, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed conversation id: %q", conversationID)
	}
	b, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed conversation id: %q", conversationID)
	}
	return a, b, nil
}

// IsParticipant reports whether userID is one of the two ids the
// conversation id was derived from.
func IsParticipant(conversationID string, userID uuid.UUID) bool {
	a, b, err := Participants(conversationID)
	if err != nil {
		return false
	}
	return a == userID || b == userID
}

// Counterpart returns the other participant of the conversation from
// userID's point of view.
func Counterpart(conversationID string, userID uuid.UUID) (uuid.UUID, error) {
	a, b, err := Participants(conversationID)
	if err != nil {
		return uuid.Nil, err
	}
	switch userID {
	case a:
		return b, nil
	case b:
		return a, nil
	}
	return uuid.Nil, fmt.Errorf("user %s is not a participant of %q", userID, conversationID)
}
