package cycles

import "context"

// StoreAPI persists review cycles. Implementations must reject saving a
// second Active cycle with workflow.ErrInvalidState.
type StoreAPI interface {
	GetCycle(ctx context.Context, id int64) (Cycle, error)
	ListCycles(ctx context.Context, status Status) ([]Cycle, error)
	CreateCycle(ctx context.Context, cycle Cycle) (Cycle, error)
	UpdateCycle(ctx context.Context, id int64, fn func(*Cycle) error) (Cycle, error)
}
