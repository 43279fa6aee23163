package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"time"

	"perftrack/internal/domain/reviews"
	"perftrack/internal/domain/workflow"
)

func (s *Store) GetReview(_ context.Context, id int64) (reviews.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	review, ok := s.reviews[id]
	if !ok {
		return reviews.Review{}, fmt.Errorf("review %d: %w", id, workflow.ErrNotFound)
	}
	return s.withLinks(review), nil
}

func (s *Store) FindReview(_ context.Context, cycleID, userID int64) (reviews.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.reviewByPair[pairKey{cycleID: cycleID, userID: userID}]
	if !ok {
		return reviews.Review{}, fmt.Errorf("review for user %d in cycle %d: %w", userID, cycleID, workflow.ErrNotFound)
	}
	return s.withLinks(s.reviews[id]), nil
}

func (s *Store) ListReviews(_ context.Context, filter reviews.ListFilter) ([]reviews.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []reviews.Review{}
	for _, r := range s.reviews {
		if filter.CycleID != 0 && r.CycleID != filter.CycleID {
			continue
		}
		if len(filter.UserIDs) > 0 && !slices.Contains(filter.UserIDs, r.UserID) {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, s.withLinks(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, filter.Limit, filter.Offset), nil
}

func (s *Store) EnsureReview(ctx context.Context, cycleID, userID int64) (reviews.Review, bool, error) {
	unlock := s.locks.lock(pairLockKey(cycleID, userID))
	defer unlock()
	review, created := s.ensure(cycleID, userID)
	return review, created, nil
}

// UpdateForCycle locks the (cycle, user) pair and then the review itself, the
// same order UpdateReview relies on.
func (s *Store) UpdateForCycle(ctx context.Context, cycleID, userID int64, fn func(*reviews.Review) error) (reviews.Review, error) {
	unlockPair := s.locks.lock(pairLockKey(cycleID, userID))
	defer unlockPair()

	review, created := s.ensure(cycleID, userID)
	updated, err := s.UpdateReview(ctx, review.ID, fn)
	if err != nil && created {
		s.mu.Lock()
		delete(s.reviews, review.ID)
		delete(s.links, review.ID)
		delete(s.reviewByPair, pairKey{cycleID: cycleID, userID: userID})
		s.mu.Unlock()
	}
	return updated, err
}

func (s *Store) UpdateReview(ctx context.Context, id int64, fn func(*reviews.Review) error) (reviews.Review, error) {
	unlock := s.locks.lock("review:" + strconv.FormatInt(id, 10))
	defer unlock()

	review, err := s.GetReview(ctx, id)
	if err != nil {
		return reviews.Review{}, err
	}
	if err := fn(&review); err != nil {
		return reviews.Review{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[id] = cloneReview(review)
	s.addLinks(id, review.GoalLinks)
	return s.withLinks(review), nil
}

// addLinks must be called with s.mu held for writing.
func (s *Store) addLinks(reviewID int64, added []reviews.GoalLink) {
	if len(added) == 0 {
		return
	}
	links, ok := s.links[reviewID]
	if !ok {
		links = map[int64]reviews.GoalLink{}
		s.links[reviewID] = links
	}
	now := time.Now().UTC()
	for _, l := range added {
		if _, exists := links[l.GoalID]; exists {
			continue
		}
		links[l.GoalID] = reviews.GoalLink{ReviewID: reviewID, GoalID: l.GoalID, CreatedAt: now}
	}
}

func (s *Store) ensure(cycleID, userID int64) (reviews.Review, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{cycleID: cycleID, userID: userID}
	if id, ok := s.reviewByPair[key]; ok {
		return s.withLinks(s.reviews[id]), false
	}
	now := time.Now().UTC()
	review := reviews.Review{
		ID:        s.nextID(),
		CycleID:   cycleID,
		UserID:    userID,
		Status:    reviews.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.reviews[review.ID] = review
	s.reviewByPair[key] = review.ID
	return s.withLinks(review), true
}

// withLinks must be called with s.mu held.
func (s *Store) withLinks(r reviews.Review) reviews.Review {
	r = cloneReview(r)
	r.GoalLinks = s.linksFor(r.ID)
	return r
}

func (s *Store) linksFor(reviewID int64) []reviews.GoalLink {
	out := []reviews.GoalLink{}
	for _, link := range s.links[reviewID] {
		out = append(out, link)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GoalID < out[j].GoalID })
	return out
}

func cloneReview(r reviews.Review) reviews.Review {
	r.SelfRating = clonePtr(r.SelfRating)
	r.ManagerRating = clonePtr(r.ManagerRating)
	r.ReviewedBy = clonePtr(r.ReviewedBy)
	r.AcknowledgedBy = clonePtr(r.AcknowledgedBy)
	r.AcknowledgedAt = clonePtr(r.AcknowledgedAt)
	r.SubmittedAt = clonePtr(r.SubmittedAt)
	r.CompletedAt = clonePtr(r.CompletedAt)
	r.GoalLinks = nil
	return r
}

func pairLockKey(cycleID, userID int64) string {
	return "review-pair:" + strconv.FormatInt(cycleID, 10) + ":" + strconv.FormatInt(userID, 10)
}
