package memstore

import (
	"context"

	"perftrack/internal/domain/audit"
)

func (s *Store) InsertEvent(_ context.Context, evt audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	evt.ID = s.nextID()
	s.events = append(s.events, evt)
	return nil
}

func (s *Store) ListEvents(_ context.Context, filter audit.Filter, limit, offset int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []audit.Event{}
	for i := len(s.events) - 1; i >= 0; i-- {
		if matches(s.events[i], filter) {
			out = append(out, s.events[i])
		}
	}
	return page(out, limit, offset), nil
}

func (s *Store) CountEvents(_ context.Context, filter audit.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, evt := range s.events {
		if matches(evt, filter) {
			total++
		}
	}
	return total, nil
}

func matches(evt audit.Event, filter audit.Filter) bool {
	if filter.Action != "" && evt.Action != filter.Action {
		return false
	}
	if filter.EntityType != "" && evt.EntityType != filter.EntityType {
		return false
	}
	if filter.ActorID != 0 && evt.ActorID != filter.ActorID {
		return false
	}
	return true
}
