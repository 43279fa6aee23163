package cycles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/workflow"
)

type Service struct {
	store    StoreAPI
	dispatch *workflow.Dispatcher
	now      func() time.Time
}

func NewService(store StoreAPI, dispatch *workflow.Dispatcher) *Service {
	return &Service{store: store, dispatch: dispatch, now: time.Now}
}

// GetActive returns the Active cycle with the latest start date.
func (s *Service) GetActive(ctx context.Context) (Cycle, error) {
	active, err := s.store.ListCycles(ctx, StatusActive)
	if err != nil {
		return Cycle{}, err
	}
	if len(active) == 0 {
		return Cycle{}, workflow.ErrNoActiveCycle
	}
	latest := active[0]
	for _, c := range active[1:] {
		if c.StartDate.After(latest.StartDate) || (c.StartDate.Equal(latest.StartDate) && c.ID > latest.ID) {
			latest = c
		}
	}
	return latest, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Cycle, error) {
	return s.store.GetCycle(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Cycle, error) {
	return s.store.ListCycles(ctx, "")
}

func (s *Service) Create(ctx context.Context, caller auth.Caller, in CycleInput) (Cycle, error) {
	if !caller.IsAdmin() {
		return Cycle{}, fmt.Errorf("create cycle: %w", workflow.ErrUnauthorized)
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := workflow.Validate(in); err != nil {
		return Cycle{}, err
	}
	now := s.now().UTC()
	created, err := s.store.CreateCycle(ctx, Cycle{
		Name:                    in.Name,
		StartDate:               in.StartDate,
		EndDate:                 in.EndDate,
		Status:                  StatusDraft,
		RequiresManagerApproval: in.RequiresManagerApproval,
		EvidenceMandatory:       in.EvidenceMandatory,
		CreatedAt:               now,
		UpdatedAt:               now,
	})
	if err != nil {
		return Cycle{}, err
	}
	s.audit(ctx, caller, ActionCycleCreated, created)
	return created, nil
}

func (s *Service) Update(ctx context.Context, caller auth.Caller, id int64, in CycleInput) (Cycle, error) {
	if !caller.IsAdmin() {
		return Cycle{}, fmt.Errorf("update cycle %d: %w", id, workflow.ErrUnauthorized)
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := workflow.Validate(in); err != nil {
		return Cycle{}, err
	}
	updated, err := s.store.UpdateCycle(ctx, id, func(c *Cycle) error {
		if c.Status == StatusClosed {
			return fmt.Errorf("cycle %d is closed: %w", id, workflow.ErrInvalidState)
		}
		c.Name = in.Name
		c.StartDate = in.StartDate
		c.EndDate = in.EndDate
		c.RequiresManagerApproval = in.RequiresManagerApproval
		c.EvidenceMandatory = in.EvidenceMandatory
		c.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return Cycle{}, err
	}
	s.audit(ctx, caller, ActionCycleUpdated, updated)
	return updated, nil
}

// Activate opens a Draft cycle. Only one cycle may be Active at a time.
func (s *Service) Activate(ctx context.Context, caller auth.Caller, id int64) (Cycle, error) {
	if !caller.IsAdmin() {
		return Cycle{}, fmt.Errorf("activate cycle %d: %w", id, workflow.ErrUnauthorized)
	}
	if _, err := s.store.GetCycle(ctx, id); err != nil {
		return Cycle{}, err
	}
	current, err := s.GetActive(ctx)
	switch {
	case err == nil && current.ID != id:
		return Cycle{}, fmt.Errorf("cycle %d (%s) is already active: %w", current.ID, current.Name, workflow.ErrInvalidState)
	case err != nil && !errors.Is(err, workflow.ErrNoActiveCycle):
		return Cycle{}, err
	}

	activated, err := s.store.UpdateCycle(ctx, id, func(c *Cycle) error {
		if c.Status != StatusDraft {
			return fmt.Errorf("cycle %d is %s: %w", id, c.Status, workflow.ErrInvalidState)
		}
		c.Status = StatusActive
		c.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return Cycle{}, err
	}
	s.audit(ctx, caller, ActionCycleActivated, activated)
	return activated, nil
}

func (s *Service) Close(ctx context.Context, caller auth.Caller, id int64) (Cycle, error) {
	if !caller.IsAdmin() {
		return Cycle{}, fmt.Errorf("close cycle %d: %w", id, workflow.ErrUnauthorized)
	}
	closed, err := s.store.UpdateCycle(ctx, id, func(c *Cycle) error {
		if c.Status != StatusActive {
			return fmt.Errorf("cycle %d is %s: %w", id, c.Status, workflow.ErrInvalidState)
		}
		c.Status = StatusClosed
		c.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return Cycle{}, err
	}
	s.audit(ctx, caller, ActionCycleClosed, closed)
	return closed, nil
}

func (s *Service) audit(ctx context.Context, caller auth.Caller, action string, c Cycle) {
	s.dispatch.Audit(ctx, workflow.AuditRecord{
		ActorID:     caller.UserID,
		Action:      action,
		RelatedType: EntityCycle,
		RelatedID:   c.ID,
		Detail:      fmt.Sprintf("%s (%s)", c.Name, c.Status),
	})
}
