package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/notebook/notebook/internal/model"
)

// Common errors for note repository operations.
var (
	ErrNoteNotFound = errors.New("note not found")
	ErrNoteExists   = errors.New("note id already exists")
)

const noteColumns = `id, author_id, text, created_at, updated_at`

// CreateNote inserts a new note. A missing author yields
// ErrConstraintViolation; a reused id yields ErrNoteExists.
func (r *Repository) CreateNote(ctx context.Context, note *model.Note) error {
	query := `
		INSERT INTO notes (id, author_id, text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		note.ID,
		note.AuthorID,
		note.Text,
		note.CreatedAt,
		note.UpdatedAt,
	)

	if err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrNoteExists
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: author %q has no user row", ErrConstraintViolation, note.AuthorID)
		}
		return fmt.Errorf("failed to create note: %w", err)
	}

	return nil
}

// FindNewestNote returns the author's note with the latest created_at.
// Equal timestamps are broken by the greater id so repeated calls agree.
func (r *Repository) FindNewestNote(ctx context.Context, authorID string) (*model.Note, error) {
	query := `
		SELECT ` + noteColumns + `
		FROM notes
		WHERE author_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	note, err := scanNote(r.pool.QueryRow(ctx, query, authorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to find newest note: %w", err)
	}

	return note, nil
}

// GetNote retrieves a note by id, scoped to its author.
func (r *Repository) GetNote(ctx context.Context, authorID, id string) (*model.Note, error) {
	query := `
		SELECT ` + noteColumns + `
		FROM notes
		WHERE id = $1 AND author_id = $2
	`

	note, err := scanNote(r.pool.QueryRow(ctx, query, id, authorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	return note, nil
}

// ListNotes returns the author's notes, most recently updated first.
func (r *Repository) ListNotes(ctx context.Context, authorID string) ([]*model.Note, error) {
	query := `
		SELECT ` + noteColumns + `
		FROM notes
		WHERE author_id = $1
		ORDER BY updated_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*model.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}

	return notes, nil
}

// UpdateNoteText replaces the note body and bumps updated_at.
func (r *Repository) UpdateNoteText(ctx context.Context, authorID, id, text string) (*model.Note, error) {
	query := `
		UPDATE notes
		SET text = $3, updated_at = GREATEST(now(), updated_at)
		WHERE id = $1 AND author_id = $2
		RETURNING ` + noteColumns

	note, err := scanNote(r.pool.QueryRow(ctx, query, id, authorID, text))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to update note: %w", err)
	}

	return note, nil
}

// DeleteNote removes a note owned by authorID.
func (r *Repository) DeleteNote(ctx context.Context, authorID, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1 AND author_id = $2`, id, authorID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNoteNotFound
	}

	return nil
}

// CountNotes returns the number of notes owned by authorID.
func (r *Repository) CountNotes(ctx context.Context, authorID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM notes WHERE author_id = $1`, authorID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return n, nil
}

// scanNote scans a single row into a Note. pgx.Rows satisfies pgx.Row.
func scanNote(row pgx.Row) (*model.Note, error) {
	var note model.Note
	err := row.Scan(
		&note.ID,
		&note.AuthorID,
		&note.Text,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	return &note, err
}
