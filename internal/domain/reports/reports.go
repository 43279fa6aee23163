// Package reports builds role dashboards from the goal, review and cycle
// engines. It reads through the engines so visibility rules are the same as
// the list endpoints.
package reports

import (
	"context"
	"errors"

	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/cycles"
	"perftrack/internal/domain/goals"
	"perftrack/internal/domain/reviews"
	"perftrack/internal/domain/workflow"
)

type GoalLister interface {
	List(ctx context.Context, caller auth.Caller, filter goals.ListFilter) ([]goals.Goal, error)
}

type ReviewLister interface {
	List(ctx context.Context, caller auth.Caller, filter reviews.ListFilter) ([]reviews.Review, error)
}

type ActiveCycle interface {
	GetActive(ctx context.Context) (cycles.Cycle, error)
}

type UnreadCounter interface {
	CountUnread(ctx context.Context, userID int64) (int, error)
}

type EmployeeDashboard struct {
	GoalsByStatus       map[goals.Status]int `json:"goalsByStatus"`
	ActiveCycle         *cycles.Cycle        `json:"activeCycle,omitempty"`
	ReviewStatus        reviews.Status       `json:"reviewStatus,omitempty"`
	UnreadNotifications int                  `json:"unreadNotifications"`
}

type ManagerDashboard struct {
	TeamGoals                  int `json:"teamGoals"`
	PendingGoalApprovals       int `json:"pendingGoalApprovals"`
	PendingCompletionApprovals int `json:"pendingCompletionApprovals"`
	ReviewsAwaitingFeedback    int `json:"reviewsAwaitingFeedback"`
}

type AdminDashboard struct {
	ActiveCycle     *cycles.Cycle          `json:"activeCycle,omitempty"`
	GoalsByStatus   map[goals.Status]int   `json:"goalsByStatus"`
	ReviewsByStatus map[reviews.Status]int `json:"reviewsByStatus"`
}

type Service struct {
	goals         GoalLister
	reviews       ReviewLister
	cycles        ActiveCycle
	notifications UnreadCounter
}

func NewService(goalSvc GoalLister, reviewSvc ReviewLister, cycleSvc ActiveCycle, unread UnreadCounter) *Service {
	return &Service{goals: goalSvc, reviews: reviewSvc, cycles: cycleSvc, notifications: unread}
}

func (s *Service) Employee(ctx context.Context, caller auth.Caller) (EmployeeDashboard, error) {
	own, err := s.goals.List(ctx, caller, goals.ListFilter{OwnerID: caller.UserID})
	if err != nil {
		return EmployeeDashboard{}, err
	}
	out := EmployeeDashboard{GoalsByStatus: countGoals(own)}

	active, err := s.activeCycle(ctx)
	if err != nil {
		return EmployeeDashboard{}, err
	}
	if active != nil {
		out.ActiveCycle = active
		mine, err := s.reviews.List(ctx, caller, reviews.ListFilter{CycleID: active.ID, UserIDs: []int64{caller.UserID}})
		if err != nil {
			return EmployeeDashboard{}, err
		}
		if len(mine) > 0 {
			out.ReviewStatus = mine[0].Status
		}
	}

	if s.notifications != nil {
		out.UnreadNotifications, err = s.notifications.CountUnread(ctx, caller.UserID)
		if err != nil {
			return EmployeeDashboard{}, err
		}
	}
	return out, nil
}

// Manager counts work waiting on the caller as an assigned manager.
func (s *Service) Manager(ctx context.Context, caller auth.Caller) (ManagerDashboard, error) {
	team, err := s.goals.List(ctx, caller, goals.ListFilter{ManagerID: caller.UserID})
	if err != nil {
		return ManagerDashboard{}, err
	}
	var out ManagerDashboard
	for _, g := range team {
		if g.AssignedManager != caller.UserID || g.AssignedTo == caller.UserID {
			continue
		}
		out.TeamGoals++
		switch g.Status {
		case goals.StatusPending:
			out.PendingGoalApprovals++
		case goals.StatusPendingCompletionApproval:
			out.PendingCompletionApprovals++
		}
	}

	active, err := s.activeCycle(ctx)
	if err != nil || active == nil {
		return out, err
	}
	list, err := s.reviews.List(ctx, caller, reviews.ListFilter{CycleID: active.ID, Status: reviews.StatusSelfAssessmentCompleted})
	if err != nil {
		return ManagerDashboard{}, err
	}
	for _, r := range list {
		if r.UserID != caller.UserID {
			out.ReviewsAwaitingFeedback++
		}
	}
	return out, nil
}

func (s *Service) Admin(ctx context.Context, caller auth.Caller) (AdminDashboard, error) {
	if !caller.IsAdmin() {
		return AdminDashboard{}, workflow.ErrUnauthorized
	}
	all, err := s.goals.List(ctx, caller, goals.ListFilter{})
	if err != nil {
		return AdminDashboard{}, err
	}
	out := AdminDashboard{GoalsByStatus: countGoals(all), ReviewsByStatus: map[reviews.Status]int{}}

	active, err := s.activeCycle(ctx)
	if err != nil || active == nil {
		return out, err
	}
	out.ActiveCycle = active
	list, err := s.reviews.List(ctx, caller, reviews.ListFilter{CycleID: active.ID})
	if err != nil {
		return AdminDashboard{}, err
	}
	for _, r := range list {
		out.ReviewsByStatus[r.Status]++
	}
	return out, nil
}

func (s *Service) activeCycle(ctx context.Context) (*cycles.Cycle, error) {
	active, err := s.cycles.GetActive(ctx)
	if errors.Is(err, workflow.ErrNoActiveCycle) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &active, nil
}

func countGoals(list []goals.Goal) map[goals.Status]int {
	out := map[goals.Status]int{}
	for _, g := range list {
		out[g.Status]++
	}
	return out
}
