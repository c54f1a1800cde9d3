package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType enumerates the alert kinds producers may create.
type NotificationType string

const (
	NotificationMessage              NotificationType = "message"
	NotificationHireRequest          NotificationType = "hire_request"
	NotificationHireAccepted         NotificationType = "hire_accepted"
	NotificationVerificationApproved NotificationType = "verification_approved"
	NotificationBadgeGranted         NotificationType = "badge_granted"
	NotificationPaymentReceived      NotificationType = "payment_received"
)

// Valid reports whether t is one of the enumerated notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationMessage, NotificationHireRequest, NotificationHireAccepted,
		NotificationVerificationApproved, NotificationBadgeGranted, NotificationPaymentReceived:
		return true
	}
	return false
}

// Notification is a user-facing alert. RelatedID and RelatedKind are set
// together or not at all.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"userId"`
	Type        NotificationType `json:"type"`
	Message     string           `json:"message"`
	IsRead      bool             `json:"isRead"`
	RelatedID   string           `json:"relatedId,omitempty"`
	RelatedKind string           `json:"relatedKind,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}
