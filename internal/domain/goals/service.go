package goals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/cycles"
	"perftrack/internal/domain/directory"
	"perftrack/internal/domain/workflow"
)

type Directory interface {
	GetUser(ctx context.Context, id int64) (directory.User, error)
}

// CyclePolicy supplies the active review cycle whose policy flags apply to
// completion submissions.
type CyclePolicy interface {
	GetActive(ctx context.Context) (cycles.Cycle, error)
}

type Service struct {
	store    StoreAPI
	dir      Directory
	dispatch *workflow.Dispatcher
	cycles   CyclePolicy
	now      func() time.Time
}

type Option func(*Service)

func WithCyclePolicy(policy CyclePolicy) Option {
	return func(s *Service) {
		s.cycles = policy
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store StoreAPI, dir Directory, dispatch *workflow.Dispatcher, opts ...Option) *Service {
	s := &Service{store: store, dir: dir, dispatch: dispatch, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, caller auth.Caller, in GoalInput) (Goal, error) {
	in = normalizeInput(in)
	if err := workflow.Validate(in); err != nil {
		return Goal{}, err
	}
	employee, err := s.dir.GetUser(ctx, caller.UserID)
	if err != nil {
		return Goal{}, err
	}
	managerID := in.ManagerID
	if managerID == 0 {
		if employee.ManagerID == nil {
			return Goal{}, fmt.Errorf("%w: user %d has no manager to approve goals", workflow.ErrInvalidInput, employee.ID)
		}
		managerID = *employee.ManagerID
	}
	if managerID == employee.ID {
		return Goal{}, fmt.Errorf("%w: a goal cannot be overseen by its owner", workflow.ErrInvalidInput)
	}
	manager, err := s.dir.GetUser(ctx, managerID)
	if err != nil {
		return Goal{}, fmt.Errorf("manager %d: %w", managerID, err)
	}
	if manager.Status != directory.StatusActive || manager.Role == auth.RoleEmployee {
		return Goal{}, workflow.InvalidField("managerId", "must be an active manager or admin")
	}

	now := s.now().UTC()
	created, err := s.store.CreateGoal(ctx, Goal{
		AssignedTo:      employee.ID,
		AssignedManager: manager.ID,
		Title:           in.Title,
		Description:     in.Description,
		Category:        in.Category,
		Priority:        in.Priority,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return Goal{}, err
	}

	s.dispatch.Notify(ctx, workflow.Notification{
		RecipientID:    created.AssignedManager,
		Category:       CategoryGoalSubmitted,
		Message:        fmt.Sprintf("%s submitted goal %q for approval", employee.FullName, created.Title),
		RelatedType:    EntityGoal,
		RelatedID:      created.ID,
		Priority:       created.Priority,
		ActionRequired: true,
	})
	s.audit(ctx, caller, ActionGoalCreated, created, "goal created")
	return created, nil
}

func (s *Service) Approve(ctx context.Context, caller auth.Caller, goalID int64) (Goal, error) {
	now := s.now().UTC()
	goal, err := s.store.UpdateGoal(ctx, goalID, func(g *Goal) error {
		if !canActOnGoalAsManager(caller, *g) {
			return unauthorized("approve", g.ID)
		}
		if g.Status != StatusPending {
			return invalidState("approve", *g)
		}
		approver := caller.UserID
		g.Status = StatusInProgress
		g.ApprovedBy = &approver
		g.ApprovedAt = &now
		g.ChangeRequested = false
		g.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Goal{}, err
	}

	s.dispatch.Notify(ctx, workflow.Notification{
		RecipientID: goal.AssignedTo,
		Category:    CategoryGoalApproved,
		Message:     fmt.Sprintf("Your goal %q was approved", goal.Title),
		RelatedType: EntityGoal,
		RelatedID:   goal.ID,
		Priority:    workflow.PriorityMedium,
	})
	s.audit(ctx, caller, ActionGoalApproved, goal, "goal approved")
	return goal, nil
}

// RequestChanges flags a goal for revision by its owner. Unlike the other
// manager operations it does not require Pending; terminal goals still refuse it.
func (s *Service) RequestChanges(ctx context.Context, caller auth.Caller, goalID int64, comments string) (Goal, error) {
	comments = strings.TrimSpace(comments)
	if err := workflow.ValidateText("comments", comments, maxCommentLen); err != nil {
		return Goal{}, err
	}
	now := s.now().UTC()
	goal, err := s.store.UpdateGoal(ctx, goalID, func(g *Goal) error {
		if !canActOnGoalAsManager(caller, *g) {
			return unauthorized("request changes on", g.ID)
		}
		if g.Status.Terminal() {
			return invalidState("request changes on", *g)
		}
		g.ChangeRequested = true
		g.Feedback = append(g.Feedback, Feedback{GoalID: g.ID, AuthorID: caller.UserID, Comment: comments, CreatedAt: now})
		g.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Goal{}, err
	}

	s.dispatch.Notify(ctx, workflow.Notification{
		RecipientID:    goal.AssignedTo,
		Category:       CategoryGoalChangesRequested,
		Message:        fmt.Sprintf("Changes requested on goal %q: %s", goal.Title, comments),
		RelatedType:    EntityGoal,
		RelatedID:      goal.ID,
		Priority:       workflow.PriorityHigh,
		ActionRequired: true,
	})
	s.audit(ctx, caller, ActionGoalChangeRequested, goal, comments)
	return goal, nil
}

// Update rewrites the editable fields. Only allowed while a change request is open.
func (s *Service) Update(ctx context.Context, caller auth.Caller, goalID int64, in GoalInput) (Goal, error) {
	in = normalizeInput(in)
	if err := workflow.Validate(in); err != nil {
		return Goal{}, err
	}
	now := s.now().UTC()
	goal, err := s.store.UpdateGoal(ctx, goalID, func(g *Goal) error {
		if !canActOnGoalAsEmployee(caller, *g) {
			return unauthorized("update", g.ID)
		}
		if !g.ChangeRequested || g.Status.Terminal() {
			return fmt.Errorf("goal %d has no open change request: %w", g.ID, workflow.ErrInvalidState)
		}
		g.Title = in.Title
		g.Description = in.Description
		g.Category = in.Category
		g.Priority = in.Priority
		g.StartDate = in.StartDate
		g.EndDate = in.EndDate
		g.ChangeRequested = false
		g.ResubmittedAt = &now
		g.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Goal{}, err
	}

	s.dispatch.Notify(ctx, workflow.Notification{
		RecipientID:    goal.AssignedManager,
		Category:       CategoryGoalResubmitted,
		Message:        fmt.Sprintf("Goal %q was revised and resubmitted", goal.Title),
		RelatedType:    EntityGoal,
		RelatedID:      goal.ID,
		Priority:       goal.Priority,
		ActionRequired: true,
	})
	s.audit(ctx, caller, ActionGoalUpdated, goal, "goal resubmitted")
	return goal, nil
}

// SubmitCompletion moves an InProgress goal to PendingCompletionApproval. It
// may be repeated while the manager has asked for additional evidence.
func (s *Service) SubmitCompletion(ctx context.Context, caller auth.Caller, goalID int64, evidence Evidence) (Goal, error) {
	evidence = normalizeEvidence(evidence)
	if err := workflow.Validate(evidence); err != nil {
		return Goal{}, err
	}
	if err := s.checkEvidencePolicy(ctx, evidence); err != nil {
		return Goal{}, err
	}
	now := s.now().UTC()
	goal, err := s.store.UpdateGoal(ctx, goalID, func(g *Goal) error {
		if !canActOnGoalAsEmployee(caller, *g) {
			return unauthorized("submit completion for", g.ID)
		}
		resubmission := g.Status == StatusPendingCompletionApproval && g.CompletionApproval == ApprovalAdditionalEvidenceRequired
		if g.Status != StatusInProgress && !resubmission {
			return invalidState("submit completion for", *g)
		}
		g.Status = StatusPendingCompletionApproval
		g.Evidence = evidence
		g.EvidenceSubmittedAt = &now
		g.Verification = VerificationNotVerified
		g.VerifiedBy = nil
		g.VerifiedAt = nil
		g.VerificationNotes = ""
		g.CompletionApproval = ApprovalPending
		g.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Goal{}, err
	}

	s.dispatch.Notify(ctx, workflow.Notification{
		RecipientID:    goal.AssignedManager,
		Category:       CategoryGoalCompletionSubmitted,
		Message:        fmt.Sprintf("Goal %q was submitted as complete and awaits your review", goal.Title),
		RelatedType:    EntityGoal,
		RelatedID:      goal.ID,
		Priority:       workflow.PriorityHigh,
		ActionRequired: true,
	})
	s.audit(ctx, caller, ActionGoalCompletionSubmitted, goal, evidence.Link)
	return goal, nil
}

// VerifyEvidence records the manager's verdict on the evidence. Goal status is untouched.
func (s *Service) VerifyEvidence(ctx context.Context, caller auth.Caller, goalID int64, status VerificationStatus, notes string) (Goal, error) {
	if !status.Valid() {
		return Goal{}, fmt.Errorf("%w: unknown verification status %q", workflow.ErrInvalidInput, status)
	}
	notes = strings.TrimSpace(notes)
	if len(notes) > maxCommentLen {
		return Goal{}, fmt.Errorf("%w: notes exceed %d characters", workflow.ErrInvalidInput, maxCommentLen)
	}
	now := s.now().UTC()
	goal, err := s.store.UpdateGoal(ctx, goalID, func(g *Goal) error {
		if !canActOnGoalAsManager(caller, *g) {
			return unauthorized("verify evidence for", g.ID)
		}
		if g.Status.Terminal() || g.Evidence.Empty() {
			return fmt.Errorf("goal %d carries no reviewable evidence: %w", g.ID, workflow.ErrInvalidState)
		}
		verifier := caller.UserID
		g.Verification = status
		g.VerifiedBy = &verifier
		g.VerifiedAt = &now
		g.VerificationNotes = notes
		g.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Goal{}, err
	}
	s.audit(ctx, caller, ActionGoalEvidenceVerified, goal, string(status))
	return goal, nil
}

func (s *Service) ApproveCompletion(ctx context.Context, caller auth.Caller, goalID int64, comments string) (Goal, error) {
	comments = strings.TrimSpace(comments)
	if len(comments) > maxCommentLen {
		return Goal{}, fmt.Errorf("%w: comments exceed %d characters", workflow.ErrInvalidInput, maxCommentLen)
	}
	now := s.now().UTC()
	goal, err := s.store.UpdateGoal(ctx, goalID, func(g *Goal) error {
		if !canActOnGoalAsManager(caller, *g) {
			return unauthorized("approve completion of", g.ID)
		}
		if g.Status != StatusPendingCompletionApproval {
			return invalidState("approve completion of", *g)
		}
		g.Status = StatusCompleted
		g.CompletedAt = &now
		g.CompletionApproval = ApprovalApproved
		g.Verification = VerificationVerified
		g.Approvals = append(g.Approvals, CompletionApproval{
			GoalID:    g.ID,
			DecidedBy: caller.UserID,
			Decision:  DecisionApproved,
			Comments:  comments,
			DecidedAt: now,
		})
		g.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Goal{}, err
	}

	s.dispatch.Notify(ctx, workflow.Notification{
		RecipientID: goal.AssignedTo,
		Category:    CategoryGoalCompleted,
		Message:     fmt.Sprintf("Congratulations! Goal %q has been approved as complete", goal.Title),
		RelatedType: EntityGoal,
		RelatedID:   goal.ID,
		Priority:    workflow.PriorityMedium,
	})
	s.audit(ctx, caller, ActionGoalCompletionApproved, goal, comments)
	return goal, nil
}

// RequestAdditionalEvidence keeps the goal in PendingCompletionApproval and
// reopens it for another SubmitCompletion.
func (s *Service) RequestAdditionalEvidence(ctx context.Context, caller auth.Caller, goalID int64, reason string) (Goal, error) {
	reason = strings.TrimSpace(reason)
	if err := workflow.ValidateText("reason", reason, maxCommentLen); err != nil {
		return Goal{}, err
	}
	now := s.now().UTC()
	goal, err := s.store.UpdateGoal(ctx, goalID, func(g *Goal) error {
		if !canActOnGoalAsManager(caller, *g) {
			return unauthorized("request evidence for", g.ID)
		}
		if g.Status != StatusPendingCompletionApproval {
			return invalidState("request evidence for", *g)
		}
		g.CompletionApproval = ApprovalAdditionalEvidenceRequired
		g.Verification = VerificationNeedsAdditionalLink
		g.Feedback = append(g.Feedback, Feedback{GoalID: g.ID, AuthorID: caller.UserID, Comment: reason, CreatedAt: now})
		g.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Goal{}, err
	}

	s.dispatch.Notify(ctx, workflow.Notification{
		RecipientID:    goal.AssignedTo,
		Category:       CategoryGoalEvidenceRequested,
		Message:        fmt.Sprintf("More evidence is needed for goal %q: %s", goal.Title, reason),
		RelatedType:    EntityGoal,
		RelatedID:      goal.ID,
		Priority:       workflow.PriorityHigh,
		ActionRequired: true,
	})
	s.audit(ctx, caller, ActionGoalEvidenceRequested, goal, reason)
	return goal, nil
}

// RejectCompletion is the only transition that moves a goal backwards.
func (s *Service) RejectCompletion(ctx context.Context, caller auth.Caller, goalID int64, reason string) (Goal, error) {
	reason = strings.TrimSpace(reason)
	if err := workflow.ValidateText("reason", reason, maxCommentLen); err != nil {
		return Goal{}, err
	}
	now := s.now().UTC()
	goal, err := s.store.UpdateGoal(ctx, goalID, func(g *Goal) error {
		if !canActOnGoalAsManager(caller, *g) {
			return unauthorized("reject completion of", g.ID)
		}
		if g.Status != StatusPendingCompletionApproval {
			return invalidState("reject completion of", *g)
		}
		g.Status = StatusInProgress
		g.CompletionApproval = ApprovalRejected
		g.Approvals = append(g.Approvals, CompletionApproval{
			GoalID:    g.ID,
			DecidedBy: caller.UserID,
			Decision:  DecisionRejected,
			Comments:  reason,
			DecidedAt: now,
		})
		g.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Goal{}, err
	}

	s.dispatch.Notify(ctx, workflow.Notification{
		RecipientID: goal.AssignedTo,
		Category:    CategoryGoalCompletionRejected,
		Message:     fmt.Sprintf("Completion of goal %q was not approved: %s", goal.Title, reason),
		RelatedType: EntityGoal,
		RelatedID:   goal.ID,
		Priority:    workflow.PriorityHigh,
	})
	s.audit(ctx, caller, ActionGoalCompletionRejected, goal, reason)
	return goal, nil
}

func (s *Service) AddProgressNote(ctx context.Context, caller auth.Caller, goalID int64, note string) (Goal, error) {
	note = strings.TrimSpace(note)
	if err := workflow.ValidateText("note", note, maxNoteLen); err != nil {
		return Goal{}, err
	}
	now := s.now().UTC()
	goal, err := s.store.UpdateGoal(ctx, goalID, func(g *Goal) error {
		if !canActOnGoalAsEmployee(caller, *g) {
			return unauthorized("add progress to", g.ID)
		}
		if g.Status.Terminal() {
			return invalidState("add progress to", *g)
		}
		g.ProgressNotes = append(g.ProgressNotes, ProgressNote{GoalID: g.ID, AuthorID: caller.UserID, Note: note, CreatedAt: now})
		g.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Goal{}, err
	}
	s.audit(ctx, caller, ActionGoalProgressNoted, goal, "progress note added")
	return goal, nil
}

// Delete soft-deletes a goal by moving it to Rejected. Completed and Rejected
// goals are final and cannot be deleted.
func (s *Service) Delete(ctx context.Context, caller auth.Caller, goalID int64) (Goal, error) {
	now := s.now().UTC()
	var previous Status
	goal, err := s.store.UpdateGoal(ctx, goalID, func(g *Goal) error {
		if !canDeleteGoal(caller, *g) {
			return unauthorized("delete", g.ID)
		}
		if g.Status.Terminal() {
			return invalidState("delete", *g)
		}
		previous = g.Status
		g.Status = StatusRejected
		g.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Goal{}, err
	}
	s.audit(ctx, caller, ActionGoalDeleted, goal, fmt.Sprintf("deleted from %s by %s", previous, caller.Role))
	return goal, nil
}

func (s *Service) Get(ctx context.Context, caller auth.Caller, goalID int64) (Goal, error) {
	goal, err := s.store.GetGoal(ctx, goalID)
	if err != nil {
		return Goal{}, err
	}
	if !canViewGoal(caller, goal) {
		return Goal{}, unauthorized("view", goal.ID)
	}
	return goal, nil
}

// List narrows the filter to what the caller may see. Managers without an
// owner filter see the goals they oversee.
func (s *Service) List(ctx context.Context, caller auth.Caller, filter ListFilter) ([]Goal, error) {
	switch caller.Role {
	case auth.RoleAdmin:
	case auth.RoleManager:
		if filter.OwnerID != caller.UserID {
			filter.ManagerID = caller.UserID
		}
	default:
		filter.OwnerID = caller.UserID
		filter.ManagerID = 0
	}
	return s.store.ListGoals(ctx, filter)
}

func (s *Service) ListApprovals(ctx context.Context, caller auth.Caller, goalID int64) ([]CompletionApproval, error) {
	goal, err := s.Get(ctx, caller, goalID)
	if err != nil {
		return nil, err
	}
	return goal.Approvals, nil
}

func (s *Service) checkEvidencePolicy(ctx context.Context, evidence Evidence) error {
	if s.cycles == nil {
		return nil
	}
	active, err := s.cycles.GetActive(ctx)
	if errors.Is(err, workflow.ErrNoActiveCycle) {
		return nil
	}
	if err != nil {
		return err
	}
	if active.EvidenceMandatory && evidence.Link == "" {
		return fmt.Errorf("%w: cycle %q requires an evidence link", workflow.ErrInvalidInput, active.Name)
	}
	return nil
}

func (s *Service) audit(ctx context.Context, caller auth.Caller, action string, g Goal, detail string) {
	s.dispatch.Audit(ctx, workflow.AuditRecord{
		ActorID:     caller.UserID,
		Action:      action,
		RelatedType: EntityGoal,
		RelatedID:   g.ID,
		Detail:      detail,
	})
}

func unauthorized(verb string, goalID int64) error {
	return fmt.Errorf("%s goal %d: %w", verb, goalID, workflow.ErrUnauthorized)
}

func invalidState(verb string, g Goal) error {
	return fmt.Errorf("cannot %s goal %d in status %s: %w", verb, g.ID, g.Status, workflow.ErrInvalidState)
}

func normalizeInput(in GoalInput) GoalInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if in.Priority == "" {
		in.Priority = workflow.PriorityMedium
	}
	return in
}

func normalizeEvidence(e Evidence) Evidence {
	e.Link = strings.TrimSpace(e.Link)
	e.Description = strings.TrimSpace(e.Description)
	e.AccessNotes = strings.TrimSpace(e.AccessNotes)
	return e
}
