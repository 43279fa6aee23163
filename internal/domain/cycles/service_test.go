package cycles_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/cycles"
	"perftrack/internal/domain/workflow"
	"perftrack/internal/platform/memstore"
)

var admin = auth.Caller{UserID: 1, Role: auth.RoleAdmin}

func day(month time.Month, d int) time.Time {
	return time.Date(2026, month, d, 0, 0, 0, 0, time.UTC)
}

func input(name string, start time.Month) cycles.CycleInput {
	return cycles.CycleInput{Name: name, StartDate: day(start, 1), EndDate: day(start+2, 28)}
}

func TestLifecycleAndSingleActive(t *testing.T) {
	ctx := context.Background()
	svc := cycles.NewService(memstore.New(), workflow.NewDispatcher(nil, nil, workflow.InlineRunner{}))

	_, err := svc.GetActive(ctx)
	require.ErrorIs(t, err, workflow.ErrNoActiveCycle)

	q1, err := svc.Create(ctx, admin, input("Q1", time.January))
	require.NoError(t, err)
	assert.Equal(t, cycles.StatusDraft, q1.Status)
	q2, err := svc.Create(ctx, admin, input("Q2", time.April))
	require.NoError(t, err)

	_, err = svc.Activate(ctx, admin, q1.ID)
	require.NoError(t, err)
	_, err = svc.Activate(ctx, admin, q2.ID)
	require.ErrorIs(t, err, workflow.ErrInvalidState)

	active, err := svc.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, q1.ID, active.ID)

	_, err = svc.Close(ctx, admin, q1.ID)
	require.NoError(t, err)
	_, err = svc.Update(ctx, admin, q1.ID, input("Q1 renamed", time.January))
	require.ErrorIs(t, err, workflow.ErrInvalidState)
	_, err = svc.Activate(ctx, admin, q1.ID)
	require.ErrorIs(t, err, workflow.ErrInvalidState)

	_, err = svc.Activate(ctx, admin, q2.ID)
	require.NoError(t, err)
	active, err = svc.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, q2.ID, active.ID)
}

func TestCreateValidationAndAuthorization(t *testing.T) {
	ctx := context.Background()
	svc := cycles.NewService(memstore.New(), nil)

	backwards := cycles.CycleInput{Name: "bad", StartDate: day(time.June, 1), EndDate: day(time.May, 1)}
	_, err := svc.Create(ctx, admin, backwards)
	require.ErrorIs(t, err, workflow.ErrInvalidInput)

	_, err = svc.Create(ctx, auth.Caller{UserID: 2, Role: auth.RoleManager}, input("Q1", time.January))
	require.ErrorIs(t, err, workflow.ErrUnauthorized)

	_, err = svc.Activate(ctx, admin, 404)
	require.ErrorIs(t, err, workflow.ErrNotFound)
}

// legacyStore simulates rows written before the single-active rule existed.
type legacyStore struct {
	cycles.StoreAPI
	rows []cycles.Cycle
}

func (l legacyStore) ListCycles(context.Context, cycles.Status) ([]cycles.Cycle, error) {
	return l.rows, nil
}

func TestGetActivePrefersLatestStart(t *testing.T) {
	store := legacyStore{rows: []cycles.Cycle{
		{ID: 1, Name: "old", StartDate: day(time.January, 1), Status: cycles.StatusActive},
		{ID: 3, Name: "newest", StartDate: day(time.July, 1), Status: cycles.StatusActive},
		{ID: 2, Name: "newest twin", StartDate: day(time.July, 1), Status: cycles.StatusActive},
	}}
	svc := cycles.NewService(store, nil)

	active, err := svc.GetActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), active.ID)
}
