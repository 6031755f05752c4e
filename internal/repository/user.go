package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/notebook/notebook/internal/model"
)

// ErrUserNotFound is returned when no users row matches.
var ErrUserNotFound = errors.New("user not found")

// UpsertUser inserts the user or refreshes email and updated_at when the id
// already exists. The single statement keeps concurrent syncs for the same id
// from racing on the primary key.
func (r *Repository) UpsertUser(ctx context.Context, identity model.Identity) (*model.User, error) {
	query := `
		INSERT INTO users (id, email, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    updated_at = GREATEST(now(), users.updated_at)
		RETURNING id, email, created_at, updated_at
	`

	var user model.User
	err := r.pool.QueryRow(ctx, query, identity.ID, identity.Email).Scan(
		&user.ID,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return &user, nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `
		SELECT id, email, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user model.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return &user, nil
}

// CountUsersByID returns how many users rows carry id. Used by tests to
// check that repeated syncs never duplicate a user.
func (r *Repository) CountUsersByID(ctx context.Context, id string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE id = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
