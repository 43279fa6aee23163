package notifications

import (
	"context"
	"log/slog"
	"time"

	"perftrack/internal/domain/directory"
	"perftrack/internal/domain/workflow"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Directory interface {
	GetUser(ctx context.Context, id int64) (directory.User, error)
}

// Service stores in-app notifications and optionally mirrors them by e-mail.
// It implements workflow.Notifier.
type Service struct {
	store       StoreAPI
	dir         Directory
	Mailer      Mailer
	DefaultFrom string
	now         func() time.Time
}

func New(store StoreAPI, dir Directory, mailer Mailer) *Service {
	return &Service{store: store, dir: dir, Mailer: mailer, DefaultFrom: defaultFrom, now: time.Now}
}

func (s *Service) Send(ctx context.Context, n workflow.Notification) error {
	stored, err := s.store.CreateNotification(ctx, Notification{
		UserID:         n.RecipientID,
		Category:       n.Category,
		Message:        n.Message,
		RelatedType:    n.RelatedType,
		RelatedID:      n.RelatedID,
		Priority:       n.Priority,
		ActionRequired: n.ActionRequired,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		return err
	}

	if s.Mailer == nil || s.dir == nil {
		return nil
	}
	user, err := s.dir.GetUser(ctx, stored.UserID)
	if err != nil {
		slog.Warn("notification email lookup failed", "err", err, "userId", stored.UserID)
		return nil
	}
	if user.Email == "" || !user.IsActive() {
		return nil
	}
	if err := s.Mailer.Send(ctx, s.DefaultFrom, user.Email, subject(stored), stored.Message); err != nil {
		slog.Warn("notification email send failed", "err", err, "notificationId", stored.ID)
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]Notification, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListNotifications(ctx, userID, unreadOnly, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, userID int64) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	return s.store.MarkRead(ctx, userID, notificationID)
}

func subject(n Notification) string {
	prefix := ""
	if n.ActionRequired {
		prefix = "[Action required] "
	}
	return prefix + n.Category
}
