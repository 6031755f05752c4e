package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/notebook/notebook/internal/metrics"
	"github.com/notebook/notebook/internal/model"
	"github.com/notebook/notebook/internal/repository"
)

// Note service errors.
var (
	ErrNoteNotFound        = errors.New("note not found")
	ErrNoteExists          = errors.New("note id already exists")
	ErrInvalidNoteID       = errors.New("invalid note id")
	ErrNoteTooLong         = errors.New("note text too long")
	ErrConstraintViolation = errors.New("store constraint violated")
)

// NoteStore persists notes. Every method is scoped by author.
type NoteStore interface {
	CreateNote(ctx context.Context, note *model.Note) error
	FindNewestNote(ctx context.Context, authorID string) (*model.Note, error)
	GetNote(ctx context.Context, authorID, id string) (*model.Note, error)
	ListNotes(ctx context.Context, authorID string) ([]*model.Note, error)
	UpdateNoteText(ctx context.Context, authorID, id, text string) (*model.Note, error)
	DeleteNote(ctx context.Context, authorID, id string) error
}

// NoteService handles note business logic.
type NoteService struct {
	store   NoteStore
	metrics metrics.Recorder
	now     func() time.Time
}

// NewNoteService creates a new NoteService.
func NewNoteService(store NoteStore, recorder metrics.Recorder) *NoteService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &NoteService{
		store:   store,
		metrics: recorder,
		now:     time.Now,
	}
}

// CreateNote creates an empty note for authorID. An empty id generates a ULID.
// A pinned id held by another author is reported as ErrInvalidNoteID.
func (s *NoteService) CreateNote(ctx context.Context, authorID, id string) (*model.Note, error) {
	pinned := id != ""
	if !pinned {
		id = ulid.Make().String()
	} else if !model.IsValidNoteID(id) {
		return nil, ErrInvalidNoteID
	}

	now := s.now().UTC()
	note := &model.Note{
		ID:        id,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateNote(ctx, note); err != nil {
		switch {
		case errors.Is(err, repository.ErrNoteExists):
			if pinned {
				return nil, s.collision(ctx, authorID, id)
			}
			return nil, ErrNoteExists
		case errors.Is(err, repository.ErrConstraintViolation):
			return nil, fmt.Errorf("%w: %v", ErrConstraintViolation, err)
		}
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	s.metrics.IncNoteCreated()
	return note, nil
}

// FindNewestNote returns the author's most recently created note.
// Returns ErrNoteNotFound when the author has none.
func (s *NoteService) FindNewestNote(ctx context.Context, authorID string) (*model.Note, error) {
	note, err := s.store.FindNewestNote(ctx, authorID)
	if err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	return note, nil
}

// GetNote returns a note owned by authorID.
func (s *NoteService) GetNote(ctx context.Context, authorID, id string) (*model.Note, error) {
	if !model.IsValidNoteID(id) {
		return nil, ErrNoteNotFound
	}

	note, err := s.store.GetNote(ctx, authorID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	return note, nil
}

// ListNotes returns the author's notes, most recently updated first.
func (s *NoteService) ListNotes(ctx context.Context, authorID string) ([]*model.Note, error) {
	notes, err := s.store.ListNotes(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []*model.Note{}
	}
	return notes, nil
}

// UpdateNoteText replaces a note's body. Text is stored as received.
func (s *NoteService) UpdateNoteText(ctx context.Context, authorID, id, text string) (*model.Note, error) {
	if !model.IsValidNoteID(id) {
		return nil, ErrNoteNotFound
	}

	if len(text) > model.MaxNoteTextBytes {
		return nil, ErrNoteTooLong
	}
	note, err := s.store.UpdateNoteText(ctx, authorID, id, text)
	if err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}

	s.metrics.IncNoteUpdated()
	return note, nil
}

// DeleteNote removes a note owned by authorID.
func (s *NoteService) DeleteNote(ctx context.Context, authorID, id string) error {
	if !model.IsValidNoteID(id) {
		return ErrNoteNotFound
	}

	if err := s.store.DeleteNote(ctx, authorID, id); err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return ErrNoteNotFound
		}
		return err
	}

	s.metrics.IncNoteDeleted()
	return nil
}

// collision classifies a duplicate pinned id without revealing foreign notes.
func (s *NoteService) collision(ctx context.Context, authorID, id string) error {
	_, err := s.store.GetNote(ctx, authorID, id)
	switch {
	case err == nil:
		return ErrNoteExists
	case errors.Is(err, repository.ErrNoteNotFound):
		return ErrInvalidNoteID
	default:
		return fmt.Errorf("failed to check note id: %w", err)
	}
}
