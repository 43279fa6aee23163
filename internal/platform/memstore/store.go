// Package memstore keeps every aggregate in process memory. It backs the
// memory storage driver and the engine tests.
package memstore

import (
	"sync"

	"perftrack/internal/domain/audit"
	"perftrack/internal/domain/cycles"
	"perftrack/internal/domain/directory"
	"perftrack/internal/domain/goals"
	"perftrack/internal/domain/notifications"
	"perftrack/internal/domain/reviews"
)

var (
	_ directory.StoreAPI     = (*Store)(nil)
	_ cycles.StoreAPI        = (*Store)(nil)
	_ goals.StoreAPI         = (*Store)(nil)
	_ reviews.StoreAPI       = (*Store)(nil)
	_ notifications.StoreAPI = (*Store)(nil)
	_ audit.StoreAPI         = (*Store)(nil)
)

type Store struct {
	mu     sync.RWMutex
	seq    int64
	locks  keyedMutex
	cycleW sync.Mutex

	users         map[int64]directory.User
	cycles        map[int64]cycles.Cycle
	goals         map[int64]goals.Goal
	reviews       map[int64]reviews.Review
	reviewByPair  map[pairKey]int64
	links         map[int64]map[int64]reviews.GoalLink
	notifications []notifications.Notification
	events        []audit.Event
}

type pairKey struct {
	cycleID int64
	userID  int64
}

func New() *Store {
	return &Store{
		locks:        keyedMutex{locks: map[string]*sync.Mutex{}},
		users:        map[int64]directory.User{},
		cycles:       map[int64]cycles.Cycle{},
		goals:        map[int64]goals.Goal{},
		reviews:      map[int64]reviews.Review{},
		reviewByPair: map[pairKey]int64{},
		links:        map[int64]map[int64]reviews.GoalLink{},
	}
}

// nextID must be called with s.mu held for writing.
func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// keyedMutex hands out one mutex per entity key. Entries are never removed.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
