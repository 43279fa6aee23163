package goals

import "context"

// StoreAPI persists goals together with their feedback, progress notes and
// completion approvals. UpdateGoal runs fn inside a per-goal critical section;
// children appended with a zero ID are inserted, existing children are never
// rewritten.
type StoreAPI interface {
	CreateGoal(ctx context.Context, goal Goal) (Goal, error)
	GetGoal(ctx context.Context, id int64) (Goal, error)
	UpdateGoal(ctx context.Context, id int64, fn func(*Goal) error) (Goal, error)
	ListGoals(ctx context.Context, filter ListFilter) ([]Goal, error)
}
