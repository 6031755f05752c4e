package routing

import (
	"context"
	"errors"

	"github.com/notebook/notebook/internal/auth"
	"github.com/notebook/notebook/internal/model"
	"github.com/notebook/notebook/internal/service"
)

// NoteFinder is the subset of service.NoteService used in-process.
type NoteFinder interface {
	FindNewestNote(ctx context.Context, authorID string) (*model.Note, error)
	CreateNote(ctx context.Context, authorID, id string) (*model.Note, error)
}

// UserSyncer is the subset of service.UserSync used in-process.
type UserSyncer interface {
	Sync(ctx context.Context, identity model.Identity) error
}

// DirectResolver resolves notes in-process instead of over HTTP. It follows
// the same steps as the create-new-note endpoint: sync the user, then create.
type DirectResolver struct {
	notes NoteFinder
	users UserSyncer
}

var _ NoteResolver = (*DirectResolver)(nil)

// NewDirectResolver creates a DirectResolver.
func NewDirectResolver(notes NoteFinder, users UserSyncer) *DirectResolver {
	return &DirectResolver{notes: notes, users: users}
}

// NewestNoteID implements NoteResolver.
func (d *DirectResolver) NewestNoteID(ctx context.Context, sess *auth.Session) (string, bool, error) {
	if sess == nil {
		return "", false, auth.ErrUnauthenticated
	}

	note, err := d.notes.FindNewestNote(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, service.ErrNoteNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return note.ID, true, nil
}

// CreateNote implements NoteResolver.
func (d *DirectResolver) CreateNote(ctx context.Context, sess *auth.Session) (string, error) {
	if sess == nil {
		return "", auth.ErrUnauthenticated
	}

	if err := d.users.Sync(ctx, model.Identity{ID: sess.UserID, Email: sess.Email}); err != nil {
		return "", err
	}

	note, err := d.notes.CreateNote(ctx, sess.UserID, "")
	if err != nil {
		return "", err
	}
	return note.ID, nil
}
