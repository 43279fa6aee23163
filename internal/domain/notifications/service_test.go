package notifications_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/directory"
	"perftrack/internal/domain/notifications"
	"perftrack/internal/domain/workflow"
	"perftrack/internal/platform/memstore"
)

type sentMail struct {
	to, subject string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, _, to, subject, _ string) error {
	m.sent = append(m.sent, sentMail{to: to, subject: subject})
	return m.err
}

func setup(t *testing.T, mailer notifications.Mailer) (*notifications.Service, directory.User, directory.User) {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	active, err := store.CreateUser(ctx, directory.User{Email: "active@example.com", Role: auth.RoleEmployee, Status: directory.StatusActive})
	require.NoError(t, err)
	gone, err := store.CreateUser(ctx, directory.User{Email: "gone@example.com", Role: auth.RoleEmployee, Status: directory.StatusInactive})
	require.NoError(t, err)
	return notifications.New(store, store, mailer), active, gone
}

func TestSendStoresAndMails(t *testing.T) {
	mailer := &fakeMailer{}
	svc, active, gone := setup(t, mailer)
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, workflow.Notification{RecipientID: active.ID, Category: "GoalSubmitted", Message: "review me", Priority: workflow.PriorityHigh, ActionRequired: true}))
	require.NoError(t, svc.Send(ctx, workflow.Notification{RecipientID: gone.ID, Category: "GoalApproved", Message: "approved"}))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "active@example.com", mailer.sent[0].to)
	assert.Equal(t, "[Action required] GoalSubmitted", mailer.sent[0].subject)

	inbox, err := svc.List(ctx, active.ID, false, 0, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, workflow.PriorityHigh, inbox[0].Priority)
	assert.True(t, inbox[0].ActionRequired)

	inbox, err = svc.List(ctx, gone.ID, false, 10, 0)
	require.NoError(t, err)
	assert.Len(t, inbox, 1, "inactive users still get in-app notifications")
}

func TestMailFailureIsSwallowed(t *testing.T) {
	svc, active, _ := setup(t, &fakeMailer{err: errors.New("smtp timeout")})
	err := svc.Send(context.Background(), workflow.Notification{RecipientID: active.ID, Category: "ReviewCompleted", Message: "done"})
	require.NoError(t, err)

	unread, err := svc.CountUnread(context.Background(), active.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestMarkRead(t *testing.T) {
	svc, active, gone := setup(t, nil)
	ctx := context.Background()
	for _, msg := range []string{"one", "two"} {
		require.NoError(t, svc.Send(ctx, workflow.Notification{RecipientID: active.ID, Category: "GoalApproved", Message: msg}))
	}

	inbox, err := svc.List(ctx, active.ID, true, 0, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, "two", inbox[0].Message, "newest first")

	require.ErrorIs(t, svc.MarkRead(ctx, gone.ID, inbox[0].ID), workflow.ErrNotFound)
	require.NoError(t, svc.MarkRead(ctx, active.ID, inbox[0].ID))
	require.NoError(t, svc.MarkRead(ctx, active.ID, inbox[0].ID))

	unread, err := svc.CountUnread(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
	inbox, err = svc.List(ctx, active.ID, true, 0, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "one", inbox[0].Message)
}
