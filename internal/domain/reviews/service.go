package reviews

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/cycles"
	"perftrack/internal/domain/directory"
	"perftrack/internal/domain/goals"
	"perftrack/internal/domain/workflow"
)

type Directory interface {
	GetUser(ctx context.Context, id int64) (directory.User, error)
	ListUsers(ctx context.Context, filter directory.ListFilter) ([]directory.User, error)
}

type CycleGate interface {
	GetActive(ctx context.Context) (cycles.Cycle, error)
	Get(ctx context.Context, id int64) (cycles.Cycle, error)
}

// GoalFinder reads goals straight from goal storage.
type GoalFinder interface {
	ListGoals(ctx context.Context, filter goals.ListFilter) ([]goals.Goal, error)
}

type Service struct {
	store    StoreAPI
	dir      Directory
	cycles   CycleGate
	goals    GoalFinder
	dispatch *workflow.Dispatcher
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store StoreAPI, dir Directory, gate CycleGate, finder GoalFinder, dispatch *workflow.Dispatcher, opts ...Option) *Service {
	s := &Service{store: store, dir: dir, cycles: gate, goals: finder, dispatch: dispatch, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitSelfAssessment records the caller's self-assessment for a cycle and
// links every goal they have completed. A zero cycle id means the active cycle.
func (s *Service) SubmitSelfAssessment(ctx context.Context, caller auth.Caller, in SelfAssessment) (Review, error) {
	in.Text = strings.TrimSpace(in.Text)
	if err := workflow.Validate(in); err != nil {
		return Review{}, err
	}
	employee, err := s.dir.GetUser(ctx, caller.UserID)
	if err != nil {
		return Review{}, err
	}
	cycle, err := s.resolveCycle(ctx, in.CycleID)
	if err != nil {
		return Review{}, err
	}
	if cycle.Status != cycles.StatusActive {
		return Review{}, fmt.Errorf("cycle %d is %s and not accepting submissions: %w", cycle.ID, cycle.Status, workflow.ErrInvalidState)
	}

	completed, err := s.completedGoalIDs(ctx, employee.ID)
	if err != nil {
		return Review{}, err
	}

	now := s.now().UTC()
	rating := in.Rating
	review, err := s.store.UpdateForCycle(ctx, cycle.ID, employee.ID, func(r *Review) error {
		if r.Status != StatusPending {
			return fmt.Errorf("review %d for cycle %d is %s: %w", r.ID, cycle.ID, r.Status, workflow.ErrAlreadySubmitted)
		}
		r.SelfAssessment = in.Text
		r.SelfRating = &rating
		r.Status = StatusSelfAssessmentCompleted
		r.SubmittedAt = &now
		r.UpdatedAt = now
		r.GoalLinks = addLinks(r.GoalLinks, r.ID, completed, now)
		return nil
	})
	if err != nil {
		return Review{}, err
	}

	if employee.ManagerID != nil {
		s.dispatch.Notify(ctx, workflow.Notification{
			RecipientID:    *employee.ManagerID,
			Category:       CategorySelfAssessmentSubmitted,
			Message:        fmt.Sprintf("%s submitted a self-assessment for %s", employee.FullName, cycle.Name),
			RelatedType:    EntityReview,
			RelatedID:      review.ID,
			Priority:       workflow.PriorityHigh,
			ActionRequired: true,
		})
	}
	s.audit(ctx, caller, ActionSelfAssessmentSubmitted, review, fmt.Sprintf("cycle=%d rating=%d links=%d", cycle.ID, rating, len(review.GoalLinks)))
	return review, nil
}

// UpdateSelfAssessmentDraft edits the self-assessment until the manager has reviewed it.
func (s *Service) UpdateSelfAssessmentDraft(ctx context.Context, caller auth.Caller, reviewID int64, text string, rating int) (Review, error) {
	text = strings.TrimSpace(text)
	if err := workflow.ValidateText("text", text, 10000); err != nil {
		return Review{}, err
	}
	if err := workflow.ValidateRating("rating", rating); err != nil {
		return Review{}, err
	}
	completed, err := s.completedGoalIDs(ctx, caller.UserID)
	if err != nil {
		return Review{}, err
	}
	now := s.now().UTC()
	review, err := s.store.UpdateReview(ctx, reviewID, func(r *Review) error {
		if r.UserID != caller.UserID {
			return unauthorized("edit", r.ID)
		}
		if r.Status != StatusPending && r.Status != StatusSelfAssessmentCompleted {
			return invalidState("edit", *r)
		}
		r.SelfAssessment = text
		r.SelfRating = &rating
		r.UpdatedAt = now
		if r.Status == StatusSelfAssessmentCompleted {
			r.GoalLinks = addLinks(r.GoalLinks, r.ID, completed, now)
		}
		return nil
	})
	if err != nil {
		return Review{}, err
	}
	s.audit(ctx, caller, ActionSelfAssessmentDraftUpdated, review, fmt.Sprintf("rating=%d", rating))
	return review, nil
}

// SubmitManagerReview is only open to the reviewed employee's current manager.
func (s *Service) SubmitManagerReview(ctx context.Context, caller auth.Caller, reviewID int64, in ManagerReview) (Review, error) {
	in = normalizeManagerReview(in)
	if err := workflow.Validate(in); err != nil {
		return Review{}, err
	}
	existing, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return Review{}, err
	}
	employee, err := s.dir.GetUser(ctx, existing.UserID)
	if err != nil {
		return Review{}, err
	}
	if !employee.ManagedBy(caller.UserID) {
		return Review{}, unauthorized("review", reviewID)
	}

	now := s.now().UTC()
	rating := in.Rating
	review, err := s.store.UpdateReview(ctx, reviewID, func(r *Review) error {
		if r.Status != StatusSelfAssessmentCompleted {
			return invalidState("review", *r)
		}
		reviewer := caller.UserID
		r.ManagerFeedback = in.Feedback
		r.ManagerRating = &rating
		r.RatingJustification = in.Justification
		r.CompensationRecommendation = in.CompensationRecommendation
		r.NextPeriodGoals = in.NextPeriodGoals
		r.ReviewedBy = &reviewer
		r.CompletedAt = &now
		r.Status = StatusCompleted
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Review{}, err
	}

	s.dispatch.Notify(ctx, workflow.Notification{
		RecipientID: review.UserID,
		Category:    CategoryReviewCompleted,
		Message:     "Your manager has completed your performance review",
		RelatedType: EntityReview,
		RelatedID:   review.ID,
		Priority:    workflow.PriorityHigh,
	})
	s.audit(ctx, caller, ActionManagerReviewCompleted, review, fmt.Sprintf("rating=%d", rating))
	return review, nil
}

func (s *Service) AcknowledgeReview(ctx context.Context, caller auth.Caller, reviewID int64, response string) (Review, error) {
	response = strings.TrimSpace(response)
	if len(response) > maxResponseLen {
		return Review{}, fmt.Errorf("%w: response exceeds %d characters", workflow.ErrInvalidInput, maxResponseLen)
	}
	now := s.now().UTC()
	review, err := s.store.UpdateReview(ctx, reviewID, func(r *Review) error {
		if r.UserID != caller.UserID {
			return unauthorized("acknowledge", r.ID)
		}
		if r.Status != StatusCompleted {
			return invalidState("acknowledge", *r)
		}
		acknowledger := caller.UserID
		r.AcknowledgedBy = &acknowledger
		r.AcknowledgedAt = &now
		r.EmployeeResponse = response
		r.Status = StatusCompletedAndAcknowledged
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Review{}, err
	}

	if review.ReviewedBy != nil {
		s.dispatch.Notify(ctx, workflow.Notification{
			RecipientID: *review.ReviewedBy,
			Category:    CategoryReviewAcknowledged,
			Message:     "Your review feedback was acknowledged",
			RelatedType: EntityReview,
			RelatedID:   review.ID,
			Priority:    workflow.PriorityMedium,
		})
	}
	s.audit(ctx, caller, ActionReviewAcknowledged, review, "review acknowledged")
	return review, nil
}

// OpenReviews creates Pending reviews in a cycle for every active user with a
// manager. Existing reviews are left alone. Returns the number created.
func (s *Service) OpenReviews(ctx context.Context, caller auth.Caller, cycleID int64) (int, error) {
	if !caller.IsAdmin() {
		return 0, fmt.Errorf("open reviews for cycle %d: %w", cycleID, workflow.ErrUnauthorized)
	}
	cycle, err := s.cycles.Get(ctx, cycleID)
	if err != nil {
		return 0, err
	}
	if cycle.Status == cycles.StatusClosed {
		return 0, fmt.Errorf("cycle %d is closed: %w", cycle.ID, workflow.ErrInvalidState)
	}
	users, err := s.dir.ListUsers(ctx, directory.ListFilter{Status: directory.StatusActive})
	if err != nil {
		return 0, err
	}

	created := 0
	for _, user := range users {
		if user.ManagerID == nil {
			continue
		}
		review, isNew, err := s.store.EnsureReview(ctx, cycle.ID, user.ID)
		if err != nil {
			return created, err
		}
		if !isNew {
			continue
		}
		created++
		s.dispatch.Notify(ctx, workflow.Notification{
			RecipientID:    user.ID,
			Category:       CategoryReviewOpened,
			Message:        fmt.Sprintf("Self-assessment for %s is open", cycle.Name),
			RelatedType:    EntityReview,
			RelatedID:      review.ID,
			Priority:       workflow.PriorityMedium,
			ActionRequired: true,
		})
	}
	s.dispatch.Audit(ctx, workflow.AuditRecord{
		ActorID:     caller.UserID,
		Action:      ActionReviewsOpened,
		RelatedType: cycles.EntityCycle,
		RelatedID:   cycle.ID,
		Detail:      fmt.Sprintf("%d reviews opened", created),
	})
	return created, nil
}

func (s *Service) Get(ctx context.Context, caller auth.Caller, reviewID int64) (Review, error) {
	review, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return Review{}, err
	}
	if caller.IsAdmin() || review.UserID == caller.UserID {
		return review, nil
	}
	ok, err := s.isManagerOf(ctx, caller.UserID, review.UserID)
	if err != nil {
		return Review{}, err
	}
	if !ok {
		return Review{}, unauthorized("view", review.ID)
	}
	return review, nil
}

// List returns the caller's own reviews, plus direct reports' reviews for managers.
func (s *Service) List(ctx context.Context, caller auth.Caller, filter ListFilter) ([]Review, error) {
	switch caller.Role {
	case auth.RoleAdmin:
	case auth.RoleManager:
		reports, err := s.dir.ListUsers(ctx, directory.ListFilter{ManagerID: caller.UserID})
		if err != nil {
			return nil, err
		}
		visible := []int64{caller.UserID}
		for _, u := range reports {
			visible = append(visible, u.ID)
		}
		filter.UserIDs = restrict(filter.UserIDs, visible)
	default:
		filter.UserIDs = restrict(filter.UserIDs, []int64{caller.UserID})
	}
	if filter.UserIDs != nil && len(filter.UserIDs) == 0 {
		return []Review{}, nil
	}
	return s.store.ListReviews(ctx, filter)
}

func (s *Service) resolveCycle(ctx context.Context, cycleID int64) (cycles.Cycle, error) {
	if cycleID == 0 {
		return s.cycles.GetActive(ctx)
	}
	return s.cycles.Get(ctx, cycleID)
}

func (s *Service) completedGoalIDs(ctx context.Context, userID int64) ([]int64, error) {
	completed, err := s.goals.ListGoals(ctx, goals.ListFilter{OwnerID: userID, Status: goals.StatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("list completed goals: %w", err)
	}
	ids := make([]int64, 0, len(completed))
	for _, g := range completed {
		ids = append(ids, g.ID)
	}
	return ids, nil
}

// addLinks appends a link for every goal the review does not reference yet.
func addLinks(links []GoalLink, reviewID int64, goalIDs []int64, now time.Time) []GoalLink {
	for _, goalID := range goalIDs {
		if slices.ContainsFunc(links, func(l GoalLink) bool { return l.GoalID == goalID }) {
			continue
		}
		links = append(links, GoalLink{ReviewID: reviewID, GoalID: goalID, CreatedAt: now})
	}
	return links
}

func (s *Service) isManagerOf(ctx context.Context, managerID, userID int64) (bool, error) {
	user, err := s.dir.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.ManagedBy(managerID), nil
}

func (s *Service) audit(ctx context.Context, caller auth.Caller, action string, r Review, detail string) {
	s.dispatch.Audit(ctx, workflow.AuditRecord{
		ActorID:     caller.UserID,
		Action:      action,
		RelatedType: EntityReview,
		RelatedID:   r.ID,
		Detail:      detail,
	})
}

// restrict intersects the requested ids with the visible ones. An empty
// request means all visible ids; a non-nil empty result means none.
func restrict(requested, visible []int64) []int64 {
	if len(requested) == 0 {
		return visible
	}
	out := make([]int64, 0, len(requested))
	for _, id := range requested {
		if slices.Contains(visible, id) {
			out = append(out, id)
		}
	}
	return out
}

func unauthorized(verb string, reviewID int64) error {
	return fmt.Errorf("%s review %d: %w", verb, reviewID, workflow.ErrUnauthorized)
}

func invalidState(verb string, r Review) error {
	return fmt.Errorf("cannot %s review %d in status %s: %w", verb, r.ID, r.Status, workflow.ErrInvalidState)
}

func normalizeManagerReview(in ManagerReview) ManagerReview {
	in.Feedback = strings.TrimSpace(in.Feedback)
	in.Justification = strings.TrimSpace(in.Justification)
	in.CompensationRecommendation = strings.TrimSpace(in.CompensationRecommendation)
	in.NextPeriodGoals = strings.TrimSpace(in.NextPeriodGoals)
	return in
}
