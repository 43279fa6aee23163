package memstore

import (
	"context"
	"fmt"
	"sort"

	"perftrack/internal/domain/directory"
	"perftrack/internal/domain/workflow"
)

func (s *Store) GetUser(_ context.Context, id int64) (directory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return directory.User{}, fmt.Errorf("user %d: %w", id, workflow.ErrNotFound)
	}
	return cloneUser(user), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (directory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			return cloneUser(user), nil
		}
	}
	return directory.User{}, fmt.Errorf("user %s: %w", email, workflow.ErrNotFound)
}

func (s *Store) ListUsers(_ context.Context, filter directory.ListFilter) ([]directory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []directory.User{}
	for _, user := range s.users {
		if filter.Status != "" && user.Status != filter.Status {
			continue
		}
		if filter.ManagerID != 0 && !user.ManagedBy(filter.ManagerID) {
			continue
		}
		out = append(out, cloneUser(user))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, filter.Limit, filter.Offset), nil
}

func (s *Store) CreateUser(_ context.Context, user directory.User) (directory.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return directory.User{}, fmt.Errorf("%w: email %s already in use", workflow.ErrInvalidInput, user.Email)
		}
	}
	user.ID = s.nextID()
	s.users[user.ID] = cloneUser(user)
	return user, nil
}

func (s *Store) UpdateUser(_ context.Context, user directory.User) (directory.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return directory.User{}, fmt.Errorf("user %d: %w", user.ID, workflow.ErrNotFound)
	}
	s.users[user.ID] = cloneUser(user)
	return user, nil
}

func cloneUser(u directory.User) directory.User {
	if u.ManagerID != nil {
		id := *u.ManagerID
		u.ManagerID = &id
	}
	return u
}
