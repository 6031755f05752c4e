// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/notebook/notebook/internal/model"
)

// ErrInvalidIdentity is returned when an identity has no id or email.
var ErrInvalidIdentity = errors.New("identity requires id and email")

// UserStore persists users.
type UserStore interface {
	UpsertUser(ctx context.Context, identity model.Identity) (*model.User, error)
}

// UserSync mirrors provider identities into the users table.
type UserSync struct {
	store UserStore
}

// NewUserSync creates a UserSync.
func NewUserSync(store UserStore) *UserSync {
	return &UserSync{store: store}
}

// Sync creates or refreshes the user row for identity. It is a single atomic
// upsert, so concurrent calls for the same id converge on one row.
func (s *UserSync) Sync(ctx context.Context, identity model.Identity) error {
	if !identity.Valid() {
		return ErrInvalidIdentity
	}

	if _, err := s.store.UpsertUser(ctx, identity); err != nil {
		return fmt.Errorf("failed to sync user: %w", err)
	}

	return nil
}
