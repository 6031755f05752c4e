package service

import (
	"context"
	"errors"
	"testing"

	"github.com/notebook/notebook/internal/model"
)

func TestUserSync_Idempotent(t *testing.T) {
	store := newMemoryStore()
	s := NewUserSync(store)

	ident := model.Identity{ID: "user-1", Email: "a@x.com"}
	for i := 0; i < 2; i++ {
		if err := s.Sync(context.Background(), ident); err != nil {
			t.Fatalf("sync %d: %v", i, err)
		}
	}

	if len(store.users) != 1 {
		t.Fatalf("expected 1 user row, got %d", len(store.users))
	}

	if err := s.Sync(context.Background(), model.Identity{ID: "user-1", Email: "b@x.com"}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if store.users["user-1"].Email != "b@x.com" {
		t.Errorf("expected latest email, got %q", store.users["user-1"].Email)
	}
}

func TestUserSync_Errors(t *testing.T) {
	store := newMemoryStore()
	s := NewUserSync(store)

	if err := s.Sync(context.Background(), model.Identity{ID: "user-1"}); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity, got %v", err)
	}
	if store.calls != 0 {
		t.Error("invalid identity must not reach the store")
	}

	storeErr := errors.New("connection refused")
	store.err = storeErr
	if err := s.Sync(context.Background(), model.Identity{ID: "user-1", Email: "a@x.com"}); !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
