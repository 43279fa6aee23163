package reviews_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/cycles"
	"perftrack/internal/domain/directory"
	"perftrack/internal/domain/goals"
	"perftrack/internal/domain/reviews"
	"perftrack/internal/domain/workflow"
	"perftrack/internal/platform/memstore"
)

type recorder struct {
	mu      sync.Mutex
	sent    []workflow.Notification
	actions []string
}

func (r *recorder) Send(_ context.Context, n workflow.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recorder) Record(_ context.Context, rec workflow.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, rec.Action)
	return nil
}

func (r *recorder) count(userID int64, category string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, sent := range r.sent {
		if sent.RecipientID == userID && sent.Category == category {
			n++
		}
	}
	return n
}

type fixture struct {
	ctx      context.Context
	store    *memstore.Store
	svc      *reviews.Service
	events   *recorder
	cycle    cycles.Cycle
	admin    auth.Caller
	manager  auth.Caller
	other    auth.Caller
	employee auth.Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()

	add := func(email string, role auth.Role, managerID *int64) auth.Caller {
		u, err := store.CreateUser(ctx, directory.User{Email: email, FullName: email, Role: role, Status: directory.StatusActive, ManagerID: managerID})
		require.NoError(t, err)
		return auth.Caller{UserID: u.ID, Role: role}
	}
	admin := add("admin@example.com", auth.RoleAdmin, nil)
	manager := add("manager@example.com", auth.RoleManager, &admin.UserID)
	other := add("other@example.com", auth.RoleManager, &admin.UserID)
	employee := add("employee@example.com", auth.RoleEmployee, &manager.UserID)

	cycle, err := store.CreateCycle(ctx, cycles.Cycle{
		Name:      "2026 H1",
		StartDate: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC),
		Status:    cycles.StatusActive,
	})
	require.NoError(t, err)

	events := &recorder{}
	dispatch := workflow.NewDispatcher(events, events, workflow.InlineRunner{})
	gate := cycles.NewService(store, dispatch)
	return &fixture{
		ctx:      ctx,
		store:    store,
		svc:      reviews.NewService(store, store, gate, store, dispatch),
		events:   events,
		cycle:    cycle,
		admin:    admin,
		manager:  manager,
		other:    other,
		employee: employee,
	}
}

func (f *fixture) goal(t *testing.T, status goals.Status) goals.Goal {
	t.Helper()
	g, err := f.store.CreateGoal(f.ctx, goals.Goal{
		AssignedTo:      f.employee.UserID,
		AssignedManager: f.manager.UserID,
		Title:           "goal",
		Status:          status,
	})
	require.NoError(t, err)
	return g
}

func (f *fixture) submitSelf(t *testing.T) reviews.Review {
	t.Helper()
	r, err := f.svc.SubmitSelfAssessment(f.ctx, f.employee, reviews.SelfAssessment{CycleID: f.cycle.ID, Text: "hit every target", Rating: 4})
	require.NoError(t, err)
	return r
}

var managerReview = reviews.ManagerReview{Feedback: "solid half", Rating: 4, Justification: "delivered report early"}

func TestScenarioReviewLifecycle(t *testing.T) {
	f := newFixture(t)
	done := f.goal(t, goals.StatusCompleted)
	f.goal(t, goals.StatusInProgress)

	r := f.submitSelf(t)
	assert.Equal(t, reviews.StatusSelfAssessmentCompleted, r.Status)
	require.NotNil(t, r.SelfRating)
	assert.Equal(t, 4, *r.SelfRating)
	require.Len(t, r.GoalLinks, 1)
	assert.Equal(t, done.ID, r.GoalLinks[0].GoalID)
	assert.Equal(t, 1, f.events.count(f.manager.UserID, reviews.CategorySelfAssessmentSubmitted))

	r, err := f.svc.SubmitManagerReview(f.ctx, f.manager, r.ID, managerReview)
	require.NoError(t, err)
	assert.Equal(t, reviews.StatusCompleted, r.Status)
	require.NotNil(t, r.ReviewedBy)
	assert.Equal(t, f.manager.UserID, *r.ReviewedBy)
	assert.Equal(t, 1, f.events.count(f.employee.UserID, reviews.CategoryReviewCompleted))

	r, err = f.svc.AcknowledgeReview(f.ctx, f.employee, r.ID, "thanks")
	require.NoError(t, err)
	assert.Equal(t, reviews.StatusCompletedAndAcknowledged, r.Status)
	assert.Equal(t, 1, f.events.count(f.manager.UserID, reviews.CategoryReviewAcknowledged))

	_, err = f.svc.AcknowledgeReview(f.ctx, f.employee, r.ID, "again")
	require.ErrorIs(t, err, workflow.ErrInvalidState)
	_, err = f.svc.UpdateSelfAssessmentDraft(f.ctx, f.employee, r.ID, "rewrite", 5)
	require.ErrorIs(t, err, workflow.ErrInvalidState)
	_, err = f.svc.SubmitManagerReview(f.ctx, f.manager, r.ID, managerReview)
	require.ErrorIs(t, err, workflow.ErrInvalidState)
}

func TestSecondSelfAssessmentIsAlreadySubmitted(t *testing.T) {
	f := newFixture(t)
	f.submitSelf(t)

	_, err := f.svc.SubmitSelfAssessment(f.ctx, f.employee, reviews.SelfAssessment{CycleID: f.cycle.ID, Text: "again", Rating: 5})
	require.ErrorIs(t, err, workflow.ErrAlreadySubmitted)
}

func TestSelfAssessmentDefaultsToActiveCycle(t *testing.T) {
	f := newFixture(t)
	r, err := f.svc.SubmitSelfAssessment(f.ctx, f.employee, reviews.SelfAssessment{Text: "done", Rating: 3})
	require.NoError(t, err)
	assert.Equal(t, f.cycle.ID, r.CycleID)
}

func TestSelfAssessmentValidation(t *testing.T) {
	f := newFixture(t)
	for _, in := range []reviews.SelfAssessment{
		{CycleID: f.cycle.ID, Text: "ok", Rating: 0},
		{CycleID: f.cycle.ID, Text: "ok", Rating: 6},
		{CycleID: f.cycle.ID, Text: "   ", Rating: 3},
	} {
		_, err := f.svc.SubmitSelfAssessment(f.ctx, f.employee, in)
		require.ErrorIs(t, err, workflow.ErrInvalidInput)
	}
	_, err := f.svc.SubmitSelfAssessment(f.ctx, f.employee, reviews.SelfAssessment{CycleID: 999, Text: "ok", Rating: 3})
	require.ErrorIs(t, err, workflow.ErrNotFound)

	all, err := f.store.ListReviews(f.ctx, reviews.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSelfAssessmentRequiresActiveCycle(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.UpdateCycle(f.ctx, f.cycle.ID, func(c *cycles.Cycle) error {
		c.Status = cycles.StatusClosed
		return nil
	})
	require.NoError(t, err)

	_, err = f.svc.SubmitSelfAssessment(f.ctx, f.employee, reviews.SelfAssessment{CycleID: f.cycle.ID, Text: "late", Rating: 3})
	require.ErrorIs(t, err, workflow.ErrInvalidState)
	_, err = f.svc.SubmitSelfAssessment(f.ctx, f.employee, reviews.SelfAssessment{Text: "late", Rating: 3})
	require.ErrorIs(t, err, workflow.ErrNoActiveCycle)
}

func TestDraftThenSubmitDoesNotDuplicateLinks(t *testing.T) {
	f := newFixture(t)
	f.goal(t, goals.StatusCompleted)
	f.goal(t, goals.StatusCompleted)

	opened, err := f.svc.OpenReviews(f.ctx, f.admin, f.cycle.ID)
	require.NoError(t, err)
	require.Equal(t, 3, opened)

	mine, err := f.svc.List(f.ctx, f.employee, reviews.ListFilter{CycleID: f.cycle.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	draft, err := f.svc.UpdateSelfAssessmentDraft(f.ctx, f.employee, mine[0].ID, "first pass", 3)
	require.NoError(t, err)
	assert.Equal(t, reviews.StatusPending, draft.Status)
	assert.Empty(t, draft.GoalLinks)

	r := f.submitSelf(t)
	require.Len(t, r.GoalLinks, 2)

	f.goal(t, goals.StatusCompleted)
	r, err = f.svc.UpdateSelfAssessmentDraft(f.ctx, f.employee, r.ID, "second pass", 4)
	require.NoError(t, err)
	assert.Equal(t, reviews.StatusSelfAssessmentCompleted, r.Status)
	assert.Len(t, r.GoalLinks, 3)

	r, err = f.svc.UpdateSelfAssessmentDraft(f.ctx, f.employee, r.ID, "third pass", 4)
	require.NoError(t, err)
	assert.Len(t, r.GoalLinks, 3)
}

func TestConcurrentSelfAssessmentSubmitsOnce(t *testing.T) {
	f := newFixture(t)
	f.goal(t, goals.StatusCompleted)

	const callers = 8
	var wins, dupes atomic.Int32
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.SubmitSelfAssessment(f.ctx, f.employee, reviews.SelfAssessment{CycleID: f.cycle.ID, Text: "done", Rating: 4})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, workflow.ErrAlreadySubmitted):
				dupes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(callers-1), dupes.Load())
	r, err := f.store.FindReview(f.ctx, f.cycle.ID, f.employee.UserID)
	require.NoError(t, err)
	assert.Len(t, r.GoalLinks, 1)
}

type failingOnceFinder struct {
	reviews.GoalFinder
	failed atomic.Bool
}

func (f *failingOnceFinder) ListGoals(ctx context.Context, filter goals.ListFilter) ([]goals.Goal, error) {
	if f.failed.CompareAndSwap(false, true) {
		return nil, errors.New("goal storage unavailable")
	}
	return f.GoalFinder.ListGoals(ctx, filter)
}

func TestFailedGoalLookupLeavesSelfAssessmentRetryable(t *testing.T) {
	f := newFixture(t)
	done := f.goal(t, goals.StatusCompleted)
	dispatch := workflow.NewDispatcher(f.events, f.events, workflow.InlineRunner{})
	svc := reviews.NewService(f.store, f.store, cycles.NewService(f.store, dispatch), &failingOnceFinder{GoalFinder: f.store}, dispatch)
	in := reviews.SelfAssessment{CycleID: f.cycle.ID, Text: "hit every target", Rating: 4}

	_, err := svc.SubmitSelfAssessment(f.ctx, f.employee, in)
	require.Error(t, err)
	_, err = f.store.FindReview(f.ctx, f.cycle.ID, f.employee.UserID)
	require.ErrorIs(t, err, workflow.ErrNotFound)
	assert.Zero(t, f.events.count(f.manager.UserID, reviews.CategorySelfAssessmentSubmitted))

	r, err := svc.SubmitSelfAssessment(f.ctx, f.employee, in)
	require.NoError(t, err)
	assert.Equal(t, reviews.StatusSelfAssessmentCompleted, r.Status)
	require.Len(t, r.GoalLinks, 1)
	assert.Equal(t, done.ID, r.GoalLinks[0].GoalID)
	assert.Equal(t, 1, f.events.count(f.manager.UserID, reviews.CategorySelfAssessmentSubmitted))
}

func TestFailedGoalLookupLeavesDraftUntouched(t *testing.T) {
	f := newFixture(t)
	f.goal(t, goals.StatusCompleted)
	submitted := f.submitSelf(t)
	f.goal(t, goals.StatusCompleted)

	dispatch := workflow.NewDispatcher(f.events, f.events, workflow.InlineRunner{})
	svc := reviews.NewService(f.store, f.store, cycles.NewService(f.store, dispatch), &failingOnceFinder{GoalFinder: f.store}, dispatch)

	_, err := svc.UpdateSelfAssessmentDraft(f.ctx, f.employee, submitted.ID, "rewritten", 5)
	require.Error(t, err)
	stored, err := f.store.GetReview(f.ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, "hit every target", stored.SelfAssessment)
	assert.Len(t, stored.GoalLinks, 1)

	r, err := svc.UpdateSelfAssessmentDraft(f.ctx, f.employee, submitted.ID, "rewritten", 5)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", r.SelfAssessment)
	assert.Len(t, r.GoalLinks, 2)
}

func TestManagerReviewRequiresSelfAssessment(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.OpenReviews(f.ctx, f.admin, f.cycle.ID)
	require.NoError(t, err)
	pending, err := f.store.FindReview(f.ctx, f.cycle.ID, f.employee.UserID)
	require.NoError(t, err)

	_, err = f.svc.SubmitManagerReview(f.ctx, f.manager, pending.ID, managerReview)
	require.ErrorIs(t, err, workflow.ErrInvalidState)

	f.submitSelf(t)
	_, err = f.svc.SubmitManagerReview(f.ctx, f.other, pending.ID, managerReview)
	require.ErrorIs(t, err, workflow.ErrUnauthorized)
	_, err = f.svc.SubmitManagerReview(f.ctx, f.admin, pending.ID, managerReview)
	require.ErrorIs(t, err, workflow.ErrUnauthorized)

	bad := managerReview
	bad.Rating = 9
	_, err = f.svc.SubmitManagerReview(f.ctx, f.manager, pending.ID, bad)
	require.ErrorIs(t, err, workflow.ErrInvalidInput)

	_, err = f.svc.SubmitManagerReview(f.ctx, f.manager, pending.ID, managerReview)
	require.NoError(t, err)
}

func TestAcknowledgeOnlyByReviewedEmployee(t *testing.T) {
	f := newFixture(t)
	r := f.submitSelf(t)

	_, err := f.svc.AcknowledgeReview(f.ctx, f.employee, r.ID, "")
	require.ErrorIs(t, err, workflow.ErrInvalidState)

	_, err = f.svc.SubmitManagerReview(f.ctx, f.manager, r.ID, managerReview)
	require.NoError(t, err)
	_, err = f.svc.AcknowledgeReview(f.ctx, f.manager, r.ID, "")
	require.ErrorIs(t, err, workflow.ErrUnauthorized)
}

func TestOpenReviewsIsIdempotentAndAdminOnly(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.OpenReviews(f.ctx, f.manager, f.cycle.ID)
	require.ErrorIs(t, err, workflow.ErrUnauthorized)

	created, err := f.svc.OpenReviews(f.ctx, f.admin, f.cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, created, "admin has no manager and is skipped")
	assert.Equal(t, 1, f.events.count(f.employee.UserID, reviews.CategoryReviewOpened))

	created, err = f.svc.OpenReviews(f.ctx, f.admin, f.cycle.ID)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestVisibility(t *testing.T) {
	f := newFixture(t)
	r := f.submitSelf(t)

	_, err := f.svc.Get(f.ctx, f.manager, r.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(f.ctx, f.other, r.ID)
	require.ErrorIs(t, err, workflow.ErrUnauthorized)

	list, err := f.svc.List(f.ctx, f.manager, reviews.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = f.svc.List(f.ctx, f.other, reviews.ListFilter{UserIDs: []int64{f.employee.UserID}})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = f.svc.List(f.ctx, f.admin, reviews.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
