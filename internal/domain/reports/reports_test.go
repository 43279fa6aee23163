package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/cycles"
	"perftrack/internal/domain/directory"
	"perftrack/internal/domain/goals"
	"perftrack/internal/domain/notifications"
	"perftrack/internal/domain/reports"
	"perftrack/internal/domain/reviews"
	"perftrack/internal/domain/workflow"
	"perftrack/internal/platform/memstore"
)

type fixture struct {
	ctx      context.Context
	store    *memstore.Store
	svc      *reports.Service
	reviews  *reviews.Service
	admin    auth.Caller
	manager  auth.Caller
	employee auth.Caller
	peer     auth.Caller
}

func newFixture(t *testing.T, withCycle bool) *fixture {
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
	employee := add("employee@example.com", auth.RoleEmployee, &manager.UserID)
	peer := add("peer@example.com", auth.RoleEmployee, &manager.UserID)

	if withCycle {
		_, err := store.CreateCycle(ctx, cycles.Cycle{
			Name:      "2026 H1",
			StartDate: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC),
			Status:    cycles.StatusActive,
		})
		require.NoError(t, err)
	}

	notifier := notifications.New(store, store, nil)
	dispatch := workflow.NewDispatcher(notifier, nil, workflow.InlineRunner{})
	cycleSvc := cycles.NewService(store, dispatch)
	dir := directory.NewService(store, dispatch)
	goalSvc := goals.NewService(store, dir, dispatch)
	reviewSvc := reviews.NewService(store, dir, cycleSvc, store, dispatch)
	return &fixture{
		ctx:      ctx,
		store:    store,
		svc:      reports.NewService(goalSvc, reviewSvc, cycleSvc, notifier),
		reviews:  reviewSvc,
		admin:    admin,
		manager:  manager,
		employee: employee,
		peer:     peer,
	}
}

func (f *fixture) goal(t *testing.T, owner auth.Caller, status goals.Status) {
	t.Helper()
	_, err := f.store.CreateGoal(f.ctx, goals.Goal{
		AssignedTo:      owner.UserID,
		AssignedManager: f.manager.UserID,
		Title:           "goal",
		Status:          status,
	})
	require.NoError(t, err)
}

func TestEmployeeDashboard(t *testing.T) {
	f := newFixture(t, true)
	f.goal(t, f.employee, goals.StatusInProgress)
	f.goal(t, f.employee, goals.StatusCompleted)
	f.goal(t, f.peer, goals.StatusInProgress)

	_, err := f.reviews.SubmitSelfAssessment(f.ctx, f.employee, reviews.SelfAssessment{Text: "done", Rating: 3})
	require.NoError(t, err)

	d, err := f.svc.Employee(f.ctx, f.employee)
	require.NoError(t, err)
	assert.Equal(t, 1, d.GoalsByStatus[goals.StatusInProgress])
	assert.Equal(t, 1, d.GoalsByStatus[goals.StatusCompleted])
	require.NotNil(t, d.ActiveCycle)
	assert.Equal(t, reviews.StatusSelfAssessmentCompleted, d.ReviewStatus)
}

func TestManagerDashboard(t *testing.T) {
	f := newFixture(t, true)
	f.goal(t, f.employee, goals.StatusPending)
	f.goal(t, f.peer, goals.StatusPendingCompletionApproval)
	f.goal(t, f.peer, goals.StatusInProgress)

	_, err := f.reviews.SubmitSelfAssessment(f.ctx, f.peer, reviews.SelfAssessment{Text: "done", Rating: 4})
	require.NoError(t, err)

	d, err := f.svc.Manager(f.ctx, f.manager)
	require.NoError(t, err)
	assert.Equal(t, reports.ManagerDashboard{
		TeamGoals:                  3,
		PendingGoalApprovals:       1,
		PendingCompletionApprovals: 1,
		ReviewsAwaitingFeedback:    1,
	}, d)
}

func TestAdminDashboardWithoutActiveCycle(t *testing.T) {
	f := newFixture(t, false)
	f.goal(t, f.employee, goals.StatusRejected)

	d, err := f.svc.Admin(f.ctx, f.admin)
	require.NoError(t, err)
	assert.Nil(t, d.ActiveCycle)
	assert.Equal(t, 1, d.GoalsByStatus[goals.StatusRejected])
	assert.Empty(t, d.ReviewsByStatus)

	_, err = f.svc.Admin(f.ctx, f.manager)
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)
}
