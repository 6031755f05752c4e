// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/notebook/notebook/internal/model"
)

// NewestNoteResponse is returned by GET /api/fetch-newest-note.
// NewestNoteID is null when the user has no notes.
type NewestNoteResponse struct {
	NewestNoteID *string `json:"newestNoteId"`
}

// CreateNoteResponse is returned by POST /api/create-new-note.
type CreateNoteResponse struct {
	NoteID string `json:"noteId"`
}

// UpdateNoteRequest represents the request body for updating a note.
type UpdateNoteRequest struct {
	Text *string `json:"text"`
}

// NoteResponse represents a note in API responses.
type NoteResponse struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Preview   string    `json:"preview"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NoteListResponse is the sidebar listing, most recently updated first.
type NoteListResponse struct {
	Notes []NoteResponse `json:"notes"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToNoteResponse converts a Note model to NoteResponse DTO.
func ToNoteResponse(note *model.Note) NoteResponse {
	return NoteResponse{
		ID:        note.ID,
		Text:      note.Text,
		Preview:   note.Preview(),
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
}

// ToNoteListResponse converts notes to a NoteListResponse. The list is never null.
func ToNoteListResponse(notes []*model.Note) NoteListResponse {
	out := make([]NoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, ToNoteResponse(n))
	}
	return NoteListResponse{Notes: out}
}
