package database

import (
	"context"
	"sort"
	"sync"

	"hirehub/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of the store interfaces, used by
// tests and the self-contained simulator. Records live in insertion order;
// listings stable-sort by timestamp so ties keep arrival order.
type MemoryStore struct {
	mu            sync.RWMutex
	messages      []*models.Message
	notifications []*models.Notification
	users         map[uuid.UUID]*models.UserSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[uuid.UUID]*models.UserSummary),
	}
}

// AddUser seeds a user summary. Stands in for the external profile service.
func (s *MemoryStore) AddUser(user *models.UserSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func (s *MemoryStore) SaveMessage(_ context.Context, message *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *message
	stored.Sender = nil
	stored.Receiver = nil
	s.messages = append(s.messages, &stored)
	return nil
}

func (s *MemoryStore) MessagesByConversation(_ context.Context, conversationID string) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var messages []*models.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			copied := *m
			messages = append(messages, &copied)
		}
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].SentAt.Before(messages[j].SentAt)
	})
	return messages, nil
}

func (s *MemoryStore) MessagesByUser(_ context.Context, userID uuid.UUID) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var messages []*models.Message
	for _, m := range s.messages {
		if m.SenderID == userID || m.ReceiverID == userID {
			copied := *m
			messages = append(messages, &copied)
		}
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].SentAt.Before(messages[j].SentAt)
	})
	return messages, nil
}

func (s *MemoryStore) MarkConversationRead(_ context.Context, conversationID string, readerID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var modified int64
	for _, m := range s.messages {
		if m.ConversationID == conversationID && m.ReceiverID == readerID && !m.IsRead {
			m.IsRead = true
			modified++
		}
	}
	return modified, nil
}

func (s *MemoryStore) CountUnreadMessages(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, m := range s.messages {
		if m.ReceiverID == userID && !m.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) SaveNotification(_ context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *notification
	s.notifications = append(s.notifications, &stored)
	return nil
}

func (s *MemoryStore) RecentNotifications(_ context.Context, userID uuid.UUID, limit int64) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var notifications []*models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			copied := *n
			notifications = append(notifications, &copied)
		}
	}
	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	if limit > 0 && int64(len(notifications)) > limit {
		notifications = notifications[:limit]
	}
	return notifications, nil
}

func (s *MemoryStore) MarkNotificationRead(_ context.Context, id uuid.UUID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) MarkAllNotificationsRead(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var modified int64
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			modified++
		}
	}
	return modified, nil
}

func (s *MemoryStore) CountUnreadNotifications(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) UserSummary(_ context.Context, id uuid.UUID) (*models.UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}
