package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"perftrack/internal/domain/workflow"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const userColumns = "id, email, full_name, role, status, manager_id, created_at, updated_at"

func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("user %d: %w", id, workflow.ErrNotFound)
	}
	return user, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("user %s: %w", email, workflow.ErrNotFound)
	}
	return user, err
}

func (s *Store) ListUsers(ctx context.Context, filter ListFilter) ([]User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE 1=1"
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.ManagerID != 0 {
		args = append(args, filter.ManagerID)
		query += fmt.Sprintf(" AND manager_id = $%d", len(args))
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

	out := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user User) (User, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO users (email, full_name, role, status, manager_id, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, user.Email, user.FullName, user.Role, user.Status, user.ManagerID, user.CreatedAt, user.UpdatedAt).Scan(&user.ID)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user User) (User, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE users
    SET email = $2, full_name = $3, role = $4, status = $5, manager_id = $6, updated_at = $7
    WHERE id = $1
  `, user.ID, user.Email, user.FullName, user.Role, user.Status, user.ManagerID, user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	if tag.RowsAffected() == 0 {
		return User{}, fmt.Errorf("user %d: %w", user.ID, workflow.ErrNotFound)
	}
	return user, nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.FullName, &user.Role, &user.Status, &user.ManagerID, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}
