package memstore

import (
	"context"
	"fmt"
	"sort"

	"perftrack/internal/domain/cycles"
	"perftrack/internal/domain/workflow"
)

func (s *Store) GetCycle(_ context.Context, id int64) (cycles.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cycle, ok := s.cycles[id]
	if !ok {
		return cycles.Cycle{}, fmt.Errorf("cycle %d: %w", id, workflow.ErrNotFound)
	}
	return cycle, nil
}

func (s *Store) ListCycles(_ context.Context, status cycles.Status) ([]cycles.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []cycles.Cycle{}
	for _, c := range s.cycles {
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartDate.After(out[j].StartDate)
	})
	return out, nil
}

func (s *Store) CreateCycle(_ context.Context, cycle cycles.Cycle) (cycles.Cycle, error) {
	s.cycleW.Lock()
	defer s.cycleW.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSingleActive(cycle); err != nil {
		return cycles.Cycle{}, err
	}
	cycle.ID = s.nextID()
	s.cycles[cycle.ID] = cycle
	return cycle, nil
}

// UpdateCycle serialises all cycle writes so the single-active rule holds.
func (s *Store) UpdateCycle(_ context.Context, id int64, fn func(*cycles.Cycle) error) (cycles.Cycle, error) {
	s.cycleW.Lock()
	defer s.cycleW.Unlock()

	s.mu.RLock()
	cycle, ok := s.cycles[id]
	s.mu.RUnlock()
	if !ok {
		return cycles.Cycle{}, fmt.Errorf("cycle %d: %w", id, workflow.ErrNotFound)
	}
	if err := fn(&cycle); err != nil {
		return cycles.Cycle{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSingleActive(cycle); err != nil {
		return cycles.Cycle{}, err
	}
	s.cycles[id] = cycle
	return cycle, nil
}

func (s *Store) checkSingleActive(cycle cycles.Cycle) error {
	if cycle.Status != cycles.StatusActive {
		return nil
	}
	for _, other := range s.cycles {
		if other.ID != cycle.ID && other.Status == cycles.StatusActive {
			return fmt.Errorf("another cycle is already active: %w", workflow.ErrInvalidState)
		}
	}
	return nil
}
