package goals

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"perftrack/internal/domain/workflow"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const goalColumns = `id, assigned_to, assigned_manager, title, description, category, priority,
  start_date, end_date, status, change_requested, approved_by, approved_at, resubmitted_at,
  evidence_link, evidence_description, evidence_access_notes, evidence_submitted_at,
  verification_status, verified_by, verified_at, verification_notes,
  completion_approval, completed_at, created_at, updated_at`

func (s *Store) CreateGoal(ctx context.Context, goal Goal) (Goal, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO goals (assigned_to, assigned_manager, title, description, category, priority,
      start_date, end_date, status, change_requested, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
    RETURNING id
  `, goal.AssignedTo, goal.AssignedManager, goal.Title, goal.Description, goal.Category, goal.Priority,
		goal.StartDate, goal.EndDate, goal.Status, goal.ChangeRequested, goal.CreatedAt, goal.UpdatedAt).Scan(&goal.ID)
	if err != nil {
		return Goal{}, err
	}
	return goal, nil
}

func (s *Store) GetGoal(ctx context.Context, id int64) (Goal, error) {
	return loadGoal(ctx, s.DB, id, false)
}

// UpdateGoal locks the goal row for the duration of fn.
func (s *Store) UpdateGoal(ctx context.Context, id int64, fn func(*Goal) error) (Goal, error) {
	var out Goal
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		goal, err := loadGoal(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(&goal); err != nil {
			return err
		}
		if err := saveGoal(ctx, tx, &goal); err != nil {
			return err
		}
		out = goal
		return nil
	})
	if err != nil {
		return Goal{}, err
	}
	return out, nil
}

func (s *Store) ListGoals(ctx context.Context, filter ListFilter) ([]Goal, error) {
	query := "SELECT " + goalColumns + " FROM goals WHERE 1=1"
	var args []any
	if filter.OwnerID != 0 {
		args = append(args, filter.OwnerID)
		query += fmt.Sprintf(" AND assigned_to = $%d", len(args))
	}
	if filter.ManagerID != 0 {
		args = append(args, filter.ManagerID)
		query += fmt.Sprintf(" AND assigned_manager = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Goal{}
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, goal)
	}
	return out, rows.Err()
}

func loadGoal(ctx context.Context, q dbtx, id int64, forUpdate bool) (Goal, error) {
	query := "SELECT " + goalColumns + " FROM goals WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	goal, err := scanGoal(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, fmt.Errorf("goal %d: %w", id, workflow.ErrNotFound)
	}
	if err != nil {
		return Goal{}, err
	}
	if goal.Feedback, err = loadFeedback(ctx, q, id); err != nil {
		return Goal{}, err
	}
	if goal.ProgressNotes, err = loadProgressNotes(ctx, q, id); err != nil {
		return Goal{}, err
	}
	if goal.Approvals, err = loadApprovals(ctx, q, id); err != nil {
		return Goal{}, err
	}
	return goal, nil
}

func saveGoal(ctx context.Context, q dbtx, g *Goal) error {
	if _, err := q.Exec(ctx, `
    UPDATE goals SET
      title = $2, description = $3, category = $4, priority = $5, start_date = $6, end_date = $7,
      status = $8, change_requested = $9, approved_by = $10, approved_at = $11, resubmitted_at = $12,
      evidence_link = $13, evidence_description = $14, evidence_access_notes = $15, evidence_submitted_at = $16,
      verification_status = $17, verified_by = $18, verified_at = $19, verification_notes = $20,
      completion_approval = $21, completed_at = $22, updated_at = $23
    WHERE id = $1
  `, g.ID, g.Title, g.Description, g.Category, g.Priority, g.StartDate, g.EndDate,
		g.Status, g.ChangeRequested, g.ApprovedBy, g.ApprovedAt, g.ResubmittedAt,
		g.Evidence.Link, g.Evidence.Description, g.Evidence.AccessNotes, g.EvidenceSubmittedAt,
		string(g.Verification), g.VerifiedBy, g.VerifiedAt, g.VerificationNotes,
		string(g.CompletionApproval), g.CompletedAt, g.UpdatedAt); err != nil {
		return err
	}

	for i := range g.Feedback {
		f := &g.Feedback[i]
		if f.ID != 0 {
			continue
		}
		if err := q.QueryRow(ctx, `
      INSERT INTO goal_feedback (goal_id, author_id, comment, created_at) VALUES ($1,$2,$3,$4) RETURNING id
    `, g.ID, f.AuthorID, f.Comment, f.CreatedAt).Scan(&f.ID); err != nil {
			return err
		}
	}
	for i := range g.ProgressNotes {
		n := &g.ProgressNotes[i]
		if n.ID != 0 {
			continue
		}
		if err := q.QueryRow(ctx, `
      INSERT INTO goal_progress_notes (goal_id, author_id, note, created_at) VALUES ($1,$2,$3,$4) RETURNING id
    `, g.ID, n.AuthorID, n.Note, n.CreatedAt).Scan(&n.ID); err != nil {
			return err
		}
	}
	for i := range g.Approvals {
		a := &g.Approvals[i]
		if a.ID != 0 {
			continue
		}
		if err := q.QueryRow(ctx, `
      INSERT INTO goal_completion_approvals (goal_id, decided_by, decision, comments, decided_at) VALUES ($1,$2,$3,$4,$5) RETURNING id
    `, g.ID, a.DecidedBy, a.Decision, a.Comments, a.DecidedAt).Scan(&a.ID); err != nil {
			return err
		}
	}
	return nil
}

func loadFeedback(ctx context.Context, q dbtx, goalID int64) ([]Feedback, error) {
	rows, err := q.Query(ctx, "SELECT id, goal_id, author_id, comment, created_at FROM goal_feedback WHERE goal_id = $1 ORDER BY id", goalID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Feedback, error) {
		var f Feedback
		err := row.Scan(&f.ID, &f.GoalID, &f.AuthorID, &f.Comment, &f.CreatedAt)
		return f, err
	})
}

func loadProgressNotes(ctx context.Context, q dbtx, goalID int64) ([]ProgressNote, error) {
	rows, err := q.Query(ctx, "SELECT id, goal_id, author_id, note, created_at FROM goal_progress_notes WHERE goal_id = $1 ORDER BY created_at, id", goalID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProgressNote, error) {
		var n ProgressNote
		err := row.Scan(&n.ID, &n.GoalID, &n.AuthorID, &n.Note, &n.CreatedAt)
		return n, err
	})
}

func loadApprovals(ctx context.Context, q dbtx, goalID int64) ([]CompletionApproval, error) {
	rows, err := q.Query(ctx, "SELECT id, goal_id, decided_by, decision, comments, decided_at FROM goal_completion_approvals WHERE goal_id = $1 ORDER BY id", goalID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (CompletionApproval, error) {
		var a CompletionApproval
		err := row.Scan(&a.ID, &a.GoalID, &a.DecidedBy, &a.Decision, &a.Comments, &a.DecidedAt)
		return a, err
	})
}

func scanGoal(row pgx.Row) (Goal, error) {
	var g Goal
	var verification, approval string
	err := row.Scan(&g.ID, &g.AssignedTo, &g.AssignedManager, &g.Title, &g.Description, &g.Category, &g.Priority,
		&g.StartDate, &g.EndDate, &g.Status, &g.ChangeRequested, &g.ApprovedBy, &g.ApprovedAt, &g.ResubmittedAt,
		&g.Evidence.Link, &g.Evidence.Description, &g.Evidence.AccessNotes, &g.EvidenceSubmittedAt,
		&verification, &g.VerifiedBy, &g.VerifiedAt, &g.VerificationNotes,
		&approval, &g.CompletedAt, &g.CreatedAt, &g.UpdatedAt)
	g.Verification = VerificationStatus(verification)
	g.CompletionApproval = ApprovalStatus(approval)
	return g, err
}
