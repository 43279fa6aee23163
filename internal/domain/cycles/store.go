package cycles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"perftrack/internal/domain/workflow"
)

// singleActiveIndex is the partial unique index allowing one Active cycle.
const singleActiveIndex = "review_cycles_single_active"

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const cycleColumns = "id, name, start_date, end_date, status, requires_manager_approval, evidence_mandatory, created_at, updated_at"

func (s *Store) GetCycle(ctx context.Context, id int64) (Cycle, error) {
	cycle, err := scanCycle(s.DB.QueryRow(ctx, "SELECT "+cycleColumns+" FROM review_cycles WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Cycle{}, fmt.Errorf("cycle %d: %w", id, workflow.ErrNotFound)
	}
	return cycle, err
}

func (s *Store) ListCycles(ctx context.Context, status Status) ([]Cycle, error) {
	query := "SELECT " + cycleColumns + " FROM review_cycles"
	var args []any
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY start_date DESC, id DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Cycle{}
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cycle)
	}
	return out, rows.Err()
}

func (s *Store) CreateCycle(ctx context.Context, cycle Cycle) (Cycle, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO review_cycles (name, start_date, end_date, status, requires_manager_approval, evidence_mandatory, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, cycle.Name, cycle.StartDate, cycle.EndDate, cycle.Status, cycle.RequiresManagerApproval, cycle.EvidenceMandatory, cycle.CreatedAt, cycle.UpdatedAt).Scan(&cycle.ID)
	if err != nil {
		return Cycle{}, translate(err)
	}
	return cycle, nil
}

func (s *Store) UpdateCycle(ctx context.Context, id int64, fn func(*Cycle) error) (Cycle, error) {
	var out Cycle
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		cycle, err := scanCycle(tx.QueryRow(ctx, "SELECT "+cycleColumns+" FROM review_cycles WHERE id = $1 FOR UPDATE", id))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("cycle %d: %w", id, workflow.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if err := fn(&cycle); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
      UPDATE review_cycles
      SET name = $2, start_date = $3, end_date = $4, status = $5,
          requires_manager_approval = $6, evidence_mandatory = $7, updated_at = $8
      WHERE id = $1
    `, id, cycle.Name, cycle.StartDate, cycle.EndDate, cycle.Status, cycle.RequiresManagerApproval, cycle.EvidenceMandatory, cycle.UpdatedAt); err != nil {
			return translate(err)
		}
		out = cycle
		return nil
	})
	if err != nil {
		return Cycle{}, err
	}
	return out, nil
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == singleActiveIndex {
		return fmt.Errorf("another cycle is already active: %w", workflow.ErrInvalidState)
	}
	return err
}

func scanCycle(row pgx.Row) (Cycle, error) {
	var c Cycle
	err := row.Scan(&c.ID, &c.Name, &c.StartDate, &c.EndDate, &c.Status, &c.RequiresManagerApproval, &c.EvidenceMandatory, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
