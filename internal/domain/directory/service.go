package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

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

func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *Service) IsManagerOf(ctx context.Context, managerID, userID int64) (bool, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.ManagedBy(managerID), nil
}

func (s *Service) ListUsers(ctx context.Context, filter ListFilter) ([]User, error) {
	return s.store.ListUsers(ctx, filter)
}

func (s *Service) DirectReports(ctx context.Context, managerID int64) ([]User, error) {
	return s.store.ListUsers(ctx, ListFilter{ManagerID: managerID, Status: StatusActive})
}

func (s *Service) CreateUser(ctx context.Context, caller auth.Caller, in UserInput) (User, error) {
	if !caller.IsAdmin() {
		return User{}, fmt.Errorf("create user: %w", workflow.ErrUnauthorized)
	}
	in = normalize(in)
	if err := workflow.Validate(in); err != nil {
		return User{}, err
	}
	if err := s.ensureEmailFree(ctx, in.Email, 0); err != nil {
		return User{}, err
	}
	if in.ManagerID != nil {
		if _, err := s.store.GetUser(ctx, *in.ManagerID); err != nil {
			return User{}, fmt.Errorf("manager %d: %w", *in.ManagerID, err)
		}
	}

	now := s.now().UTC()
	user := User{
		Email:     in.Email,
		FullName:  in.FullName,
		Role:      in.Role,
		Status:    in.Status,
		ManagerID: in.ManagerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.store.CreateUser(ctx, user)
	if err != nil {
		return User{}, err
	}
	s.dispatch.Audit(ctx, workflow.AuditRecord{
		ActorID:     caller.UserID,
		Action:      ActionUserCreated,
		RelatedType: EntityUser,
		RelatedID:   created.ID,
		Detail:      fmt.Sprintf("created %s %s", created.Role, created.Email),
	})
	return created, nil
}

func (s *Service) UpdateUser(ctx context.Context, caller auth.Caller, id int64, in UserInput) (User, error) {
	if !caller.IsAdmin() {
		return User{}, fmt.Errorf("update user %d: %w", id, workflow.ErrUnauthorized)
	}
	existing, err := s.store.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	in = normalize(in)
	if err := workflow.Validate(in); err != nil {
		return User{}, err
	}
	if err := s.ensureEmailFree(ctx, in.Email, id); err != nil {
		return User{}, err
	}
	if in.ManagerID != nil {
		if err := s.checkReportingLine(ctx, id, *in.ManagerID); err != nil {
			return User{}, err
		}
	}

	existing.Email = in.Email
	existing.FullName = in.FullName
	existing.Role = in.Role
	existing.Status = in.Status
	existing.ManagerID = in.ManagerID
	existing.UpdatedAt = s.now().UTC()

	updated, err := s.store.UpdateUser(ctx, existing)
	if err != nil {
		return User{}, err
	}
	s.dispatch.Audit(ctx, workflow.AuditRecord{
		ActorID:     caller.UserID,
		Action:      ActionUserUpdated,
		RelatedType: EntityUser,
		RelatedID:   updated.ID,
		Detail:      fmt.Sprintf("role=%s status=%s", updated.Role, updated.Status),
	})
	return updated, nil
}

// checkReportingLine rejects a manager assignment that would make userID
// report to itself, directly or through the chain above managerID.
func (s *Service) checkReportingLine(ctx context.Context, userID, managerID int64) error {
	if managerID == userID {
		return fmt.Errorf("%w: user cannot manage themselves", workflow.ErrInvalidInput)
	}
	current := managerID
	for range maxReportingDepth {
		manager, err := s.store.GetUser(ctx, current)
		if err != nil {
			return fmt.Errorf("manager %d: %w", current, err)
		}
		if manager.ManagerID == nil {
			return nil
		}
		if *manager.ManagerID == userID {
			return fmt.Errorf("%w: assigning manager %d creates a reporting cycle", workflow.ErrInvalidInput, managerID)
		}
		current = *manager.ManagerID
	}
	return fmt.Errorf("%w: reporting chain too deep", workflow.ErrInvalidInput)
}

func (s *Service) ensureEmailFree(ctx context.Context, email string, selfID int64) error {
	existing, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, workflow.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return fmt.Errorf("%w: email %s already in use", workflow.ErrInvalidInput, email)
	}
	return nil
}

func normalize(in UserInput) UserInput {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = norm.NFC.String(strings.TrimSpace(in.FullName))
	if in.Status == "" {
		in.Status = StatusActive
	}
	return in
}
