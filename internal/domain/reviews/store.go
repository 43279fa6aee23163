package reviews

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"perftrack/internal/domain/workflow"
	cryptoutil "perftrack/internal/platform/crypto"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store keeps reviews in Postgres. The compensation recommendation column is
// sealed with Cipher when a data encryption key is configured.
type Store struct {
	DB     *pgxpool.Pool
	Cipher *cryptoutil.Cipher
}

func NewStore(db *pgxpool.Pool, cipher *cryptoutil.Cipher) *Store {
	return &Store{DB: db, Cipher: cipher}
}

const reviewColumns = `id, cycle_id, user_id, self_assessment, self_rating, manager_feedback, manager_rating,
  rating_justification, compensation_recommendation, next_period_goals, reviewed_by,
  acknowledged_by, acknowledged_at, employee_response, status, submitted_at, completed_at,
  created_at, updated_at`

func (s *Store) GetReview(ctx context.Context, id int64) (Review, error) {
	review, err := s.scanReview(s.DB.QueryRow(ctx, "SELECT "+reviewColumns+" FROM performance_reviews WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Review{}, fmt.Errorf("review %d: %w", id, workflow.ErrNotFound)
	}
	if err != nil {
		return Review{}, err
	}
	review.GoalLinks, err = loadLinks(ctx, s.DB, id)
	return review, err
}

func (s *Store) FindReview(ctx context.Context, cycleID, userID int64) (Review, error) {
	review, err := s.scanReview(s.DB.QueryRow(ctx, "SELECT "+reviewColumns+" FROM performance_reviews WHERE cycle_id = $1 AND user_id = $2", cycleID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Review{}, fmt.Errorf("review for user %d in cycle %d: %w", userID, cycleID, workflow.ErrNotFound)
	}
	if err != nil {
		return Review{}, err
	}
	review.GoalLinks, err = loadLinks(ctx, s.DB, review.ID)
	return review, err
}

func (s *Store) ListReviews(ctx context.Context, filter ListFilter) ([]Review, error) {
	query := "SELECT " + reviewColumns + " FROM performance_reviews WHERE 1=1"
	var args []any
	if filter.CycleID != 0 {
		args = append(args, filter.CycleID)
		query += fmt.Sprintf(" AND cycle_id = $%d", len(args))
	}
	if len(filter.UserIDs) > 0 {
		args = append(args, filter.UserIDs)
		query += fmt.Sprintf(" AND user_id = ANY($%d)", len(args))
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

	out := []Review{}
	for rows.Next() {
		review, err := s.scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, review)
	}
	return out, rows.Err()
}

func (s *Store) EnsureReview(ctx context.Context, cycleID, userID int64) (Review, bool, error) {
	tag, err := insertPending(ctx, s.DB, cycleID, userID)
	if err != nil {
		return Review{}, false, err
	}
	review, err := s.FindReview(ctx, cycleID, userID)
	if err != nil {
		return Review{}, false, err
	}
	return review, tag.RowsAffected() == 1, nil
}

func (s *Store) UpdateForCycle(ctx context.Context, cycleID, userID int64, fn func(*Review) error) (Review, error) {
	var out Review
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		if _, err := insertPending(ctx, tx, cycleID, userID); err != nil {
			return err
		}
		review, err := s.scanReview(tx.QueryRow(ctx, "SELECT "+reviewColumns+" FROM performance_reviews WHERE cycle_id = $1 AND user_id = $2 FOR UPDATE", cycleID, userID))
		if err != nil {
			return err
		}
		return s.mutate(ctx, tx, &review, fn, &out)
	})
	if err != nil {
		return Review{}, err
	}
	return out, nil
}

func (s *Store) UpdateReview(ctx context.Context, id int64, fn func(*Review) error) (Review, error) {
	var out Review
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		review, err := s.scanReview(tx.QueryRow(ctx, "SELECT "+reviewColumns+" FROM performance_reviews WHERE id = $1 FOR UPDATE", id))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("review %d: %w", id, workflow.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return s.mutate(ctx, tx, &review, fn, &out)
	})
	if err != nil {
		return Review{}, err
	}
	return out, nil
}

func (s *Store) mutate(ctx context.Context, tx pgx.Tx, review *Review, fn func(*Review) error, out *Review) error {
	if err := fn(review); err != nil {
		return err
	}
	compensation, err := s.Cipher.SealString(review.CompensationRecommendation)
	if err != nil {
		return fmt.Errorf("seal compensation recommendation: %w", err)
	}
	if _, err := tx.Exec(ctx, `
    UPDATE performance_reviews SET
      self_assessment = $2, self_rating = $3, manager_feedback = $4, manager_rating = $5,
      rating_justification = $6, compensation_recommendation = $7, next_period_goals = $8,
      reviewed_by = $9, acknowledged_by = $10, acknowledged_at = $11, employee_response = $12,
      status = $13, submitted_at = $14, completed_at = $15, updated_at = $16
    WHERE id = $1
  `, review.ID, review.SelfAssessment, review.SelfRating, review.ManagerFeedback, review.ManagerRating,
		review.RatingJustification, compensation, review.NextPeriodGoals,
		review.ReviewedBy, review.AcknowledgedBy, review.AcknowledgedAt, review.EmployeeResponse,
		review.Status, review.SubmittedAt, review.CompletedAt, review.UpdatedAt); err != nil {
		return err
	}
	if err := insertLinks(ctx, tx, review.ID, review.GoalLinks); err != nil {
		return err
	}
	links, err := loadLinks(ctx, tx, review.ID)
	if err != nil {
		return err
	}
	review.GoalLinks = links
	*out = *review
	return nil
}

func insertPending(ctx context.Context, q dbtx, cycleID, userID int64) (pgconn.CommandTag, error) {
	now := time.Now().UTC()
	return q.Exec(ctx, `
    INSERT INTO performance_reviews (cycle_id, user_id, status, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$4)
    ON CONFLICT (cycle_id, user_id) DO NOTHING
  `, cycleID, userID, StatusPending, now)
}

func insertLinks(ctx context.Context, q dbtx, reviewID int64, links []GoalLink) error {
	if len(links) == 0 {
		return nil
	}
	goalIDs := make([]int64, 0, len(links))
	for _, l := range links {
		goalIDs = append(goalIDs, l.GoalID)
	}
	_, err := q.Exec(ctx, `
    INSERT INTO review_goal_links (review_id, goal_id, created_at)
    SELECT $1, goal_id, now() FROM unnest($2::bigint[]) AS goal_id
    ON CONFLICT (review_id, goal_id) DO NOTHING
  `, reviewID, goalIDs)
	return err
}

func loadLinks(ctx context.Context, q dbtx, reviewID int64) ([]GoalLink, error) {
	rows, err := q.Query(ctx, "SELECT review_id, goal_id, created_at FROM review_goal_links WHERE review_id = $1 ORDER BY goal_id", reviewID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (GoalLink, error) {
		var l GoalLink
		err := row.Scan(&l.ReviewID, &l.GoalID, &l.CreatedAt)
		return l, err
	})
}

func (s *Store) scanReview(row pgx.Row) (Review, error) {
	var r Review
	var compensation []byte
	err := row.Scan(&r.ID, &r.CycleID, &r.UserID, &r.SelfAssessment, &r.SelfRating, &r.ManagerFeedback, &r.ManagerRating,
		&r.RatingJustification, &compensation, &r.NextPeriodGoals, &r.ReviewedBy,
		&r.AcknowledgedBy, &r.AcknowledgedAt, &r.EmployeeResponse, &r.Status, &r.SubmittedAt, &r.CompletedAt,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return Review{}, err
	}
	r.CompensationRecommendation, err = s.Cipher.OpenString(compensation)
	return r, err
}
