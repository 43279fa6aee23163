package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"

	"perftrack/internal/domain/goals"
	"perftrack/internal/domain/workflow"
)

func (s *Store) CreateGoal(_ context.Context, goal goals.Goal) (goals.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	goal.ID = s.nextID()
	s.assignChildIDs(&goal)
	s.goals[goal.ID] = cloneGoal(goal)
	return goal, nil
}

func (s *Store) GetGoal(_ context.Context, id int64) (goals.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	goal, ok := s.goals[id]
	if !ok {
		return goals.Goal{}, fmt.Errorf("goal %d: %w", id, workflow.ErrNotFound)
	}
	return cloneGoal(goal), nil
}

// UpdateGoal holds the goal's lock while fn runs; fn sees a private copy.
func (s *Store) UpdateGoal(ctx context.Context, id int64, fn func(*goals.Goal) error) (goals.Goal, error) {
	unlock := s.locks.lock("goal:" + strconv.FormatInt(id, 10))
	defer unlock()

	goal, err := s.GetGoal(ctx, id)
	if err != nil {
		return goals.Goal{}, err
	}
	if err := fn(&goal); err != nil {
		return goals.Goal{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignChildIDs(&goal)
	s.goals[id] = cloneGoal(goal)
	return goal, nil
}

func (s *Store) ListGoals(_ context.Context, filter goals.ListFilter) ([]goals.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []goals.Goal{}
	for _, g := range s.goals {
		if filter.OwnerID != 0 && g.AssignedTo != filter.OwnerID {
			continue
		}
		if filter.ManagerID != 0 && g.AssignedManager != filter.ManagerID {
			continue
		}
		if filter.Status != "" && g.Status != filter.Status {
			continue
		}
		out = append(out, cloneGoal(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, filter.Limit, filter.Offset), nil
}

// assignChildIDs must be called with s.mu held for writing.
func (s *Store) assignChildIDs(g *goals.Goal) {
	for i := range g.Feedback {
		if g.Feedback[i].ID == 0 {
			g.Feedback[i].ID = s.nextID()
			g.Feedback[i].GoalID = g.ID
		}
	}
	for i := range g.ProgressNotes {
		if g.ProgressNotes[i].ID == 0 {
			g.ProgressNotes[i].ID = s.nextID()
			g.ProgressNotes[i].GoalID = g.ID
		}
	}
	for i := range g.Approvals {
		if g.Approvals[i].ID == 0 {
			g.Approvals[i].ID = s.nextID()
			g.Approvals[i].GoalID = g.ID
		}
	}
}

func cloneGoal(g goals.Goal) goals.Goal {
	g.Feedback = slices.Clone(g.Feedback)
	g.ProgressNotes = slices.Clone(g.ProgressNotes)
	g.Approvals = slices.Clone(g.Approvals)
	g.ApprovedBy = clonePtr(g.ApprovedBy)
	g.ApprovedAt = clonePtr(g.ApprovedAt)
	g.ResubmittedAt = clonePtr(g.ResubmittedAt)
	g.EvidenceSubmittedAt = clonePtr(g.EvidenceSubmittedAt)
	g.VerifiedBy = clonePtr(g.VerifiedBy)
	g.VerifiedAt = clonePtr(g.VerifiedAt)
	g.CompletedAt = clonePtr(g.CompletedAt)
	return g
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
