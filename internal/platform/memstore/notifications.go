package memstore

import (
	"context"
	"fmt"
	"time"

	"perftrack/internal/domain/notifications"
	"perftrack/internal/domain/workflow"
)

func (s *Store) CreateNotification(_ context.Context, n notifications.Notification) (notifications.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.nextID()
	s.notifications = append(s.notifications, n)
	return n, nil
}

// ListNotifications returns newest first.
func (s *Store) ListNotifications(_ context.Context, userID int64, unreadOnly bool, limit, offset int) ([]notifications.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []notifications.Notification{}
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if n.UserID != userID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		out = append(out, n)
	}
	return page(out, limit, offset), nil
}

func (s *Store) CountUnread(_ context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, n := range s.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			total++
		}
	}
	return total, nil
}

func (s *Store) MarkRead(_ context.Context, userID, notificationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.ID != notificationID || n.UserID != userID {
			continue
		}
		if n.ReadAt == nil {
			now := time.Now().UTC()
			n.ReadAt = &now
		}
		return nil
	}
	return fmt.Errorf("notification %d: %w", notificationID, workflow.ErrNotFound)
}
