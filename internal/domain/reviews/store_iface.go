package reviews

import "context"

// StoreAPI persists reviews and their goal links. The Update methods run fn
// inside a per-review critical section and save the review together with any
// goal link fn added, or nothing at all when fn or the write fails. Links are
// keyed by (review, goal) and never removed. UpdateForCycle first creates a
// Pending review for the pair when none exists, and discards it again if fn
// fails.
type StoreAPI interface {
	GetReview(ctx context.Context, id int64) (Review, error)
	FindReview(ctx context.Context, cycleID, userID int64) (Review, error)
	ListReviews(ctx context.Context, filter ListFilter) ([]Review, error)
	EnsureReview(ctx context.Context, cycleID, userID int64) (Review, bool, error)
	UpdateForCycle(ctx context.Context, cycleID, userID int64, fn func(*Review) error) (Review, error)
	UpdateReview(ctx context.Context, id int64, fn func(*Review) error) (Review, error)
}
