package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perftrack/internal/requestctx"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

type recordingAuditor struct {
	records []AuditRecord
}

func (r *recordingAuditor) Record(_ context.Context, rec AuditRecord) error {
	r.records = append(r.records, rec)
	return nil
}

type panickingNotifier struct{}

func (panickingNotifier) Send(context.Context, Notification) error { panic("boom") }

func TestDispatcherDefaultsAndRequestID(t *testing.T) {
	notifier := &recordingNotifier{}
	auditor := &recordingAuditor{}
	d := NewDispatcher(notifier, auditor, InlineRunner{})

	ctx := requestctx.WithRequestID(context.Background(), "req-42")
	d.Notify(ctx, Notification{RecipientID: 7, Category: "GoalApproved"})
	d.Audit(ctx, AuditRecord{ActorID: 1, Action: "GoalApproved"})

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, PriorityMedium, notifier.sent[0].Priority)
	require.Len(t, auditor.records, 1)
	assert.Equal(t, "req-42", auditor.records[0].RequestID)
	assert.Equal(t, OutcomeSuccess, auditor.records[0].Outcome)
	assert.False(t, auditor.records[0].OccurredAt.IsZero())
}

func TestDispatcherSkipsMissingRecipient(t *testing.T) {
	notifier := &recordingNotifier{}
	d := NewDispatcher(notifier, nil, InlineRunner{})
	d.Notify(context.Background(), Notification{Category: "x"})
	assert.Empty(t, notifier.sent)
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("smtp down")}
	d := NewDispatcher(failing, nil, InlineRunner{})
	assert.NotPanics(t, func() {
		d.Notify(context.Background(), Notification{RecipientID: 1})
	})

	d = NewDispatcher(panickingNotifier{}, nil, InlineRunner{})
	assert.NotPanics(t, func() {
		d.Notify(context.Background(), Notification{RecipientID: 1})
	})
}

func TestDispatcherSurvivesCancelledContext(t *testing.T) {
	notifier := &recordingNotifier{}
	d := NewDispatcher(notifier, nil, InlineRunner{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Notify(ctx, Notification{RecipientID: 3})
	require.Len(t, notifier.sent, 1)
}

func TestValidateRating(t *testing.T) {
	for _, rating := range []int{1, 3, 5} {
		assert.NoError(t, ValidateRating("rating", rating))
	}
	for _, rating := range []int{0, 6, -1} {
		assert.ErrorIs(t, ValidateRating("rating", rating), ErrInvalidInput)
	}
}

func TestValidateText(t *testing.T) {
	assert.NoError(t, ValidateText("comments", "clarify timeline", 100))
	assert.ErrorIs(t, ValidateText("comments", "   ", 100), ErrInvalidInput)
	assert.ErrorIs(t, ValidateText("comments", "abcdef", 3), ErrInvalidInput)
}
