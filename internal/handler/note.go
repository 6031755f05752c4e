package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notebook/notebook/internal/auth"
	"github.com/notebook/notebook/internal/handler/dto"
	"github.com/notebook/notebook/internal/model"
	"github.com/notebook/notebook/internal/service"
)

// NoteHandler handles the authenticated notes API. Routes are mounted behind
// middleware.APIAuth, so a session is always present in the context.
type NoteHandler struct {
	notes  *service.NoteService
	users  *service.UserSync
	logger *slog.Logger
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(notes *service.NoteService, users *service.UserSync, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{
		notes:  notes,
		users:  users,
		logger: logger,
	}
}

// Routes registers the notes API on r, relative to the /api mount point.
func (h *NoteHandler) Routes(r chi.Router) {
	r.Get("/fetch-newest-note", h.FetchNewestNote)
	r.Post("/create-new-note", h.CreateNewNote)
	r.Get("/notes", h.List)
	r.Patch("/notes/{id}", h.Update)
	r.Delete("/notes/{id}", h.Delete)
}

// FetchNewestNote handles GET /api/fetch-newest-note.
func (h *NoteHandler) FetchNewestNote(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	note, err := h.notes.FindNewestNote(r.Context(), sess.UserID)
	switch {
	case errors.Is(err, service.ErrNoteNotFound):
		writeJSON(w, http.StatusOK, dto.NewestNoteResponse{})
		return
	case err != nil:
		h.logger.Error("fetch newest note failed",
			slog.String("user_id", sess.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch newest note")
		return
	}

	writeJSON(w, http.StatusOK, dto.NewestNoteResponse{NewestNoteID: &note.ID})
}

// CreateNewNote handles POST /api/create-new-note.
// The optional noteId query parameter pins the new note's id.
func (h *NoteHandler) CreateNewNote(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	// The user row must exist before a note can reference it.
	if err := h.users.Sync(r.Context(), model.Identity{ID: sess.UserID, Email: sess.Email}); err != nil {
		h.logger.Error("user sync before note create failed",
			slog.String("user_id", sess.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create note")
		return
	}

	note, err := h.notes.CreateNote(r.Context(), sess.UserID, r.URL.Query().Get("noteId"))
	if err != nil {
		h.handleServiceError(w, r, "create note", err)
		return
	}

	h.logger.Info("note_created",
		"note_id", note.ID,
		"user_id", sess.UserID,
	)

	writeJSON(w, http.StatusOK, dto.CreateNoteResponse{NoteID: note.ID})
}

// List handles GET /api/notes.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	notes, err := h.notes.ListNotes(r.Context(), sess.UserID)
	if err != nil {
		h.handleServiceError(w, r, "list notes", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToNoteListResponse(notes))
}

// Update handles PATCH /api/notes/{id}.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dto.UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, "MISSING_TEXT", "text is required")
		return
	}

	note, err := h.notes.UpdateNoteText(r.Context(), sess.UserID, chi.URLParam(r, "id"), *req.Text)
	if err != nil {
		h.handleServiceError(w, r, "update note", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToNoteResponse(note))
}

// Delete handles DELETE /api/notes/{id}.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.notes.DeleteNote(r.Context(), sess.UserID, id); err != nil {
		h.handleServiceError(w, r, "delete note", err)
		return
	}

	h.logger.Info("note_deleted", "note_id", id, "user_id", sess.UserID)

	w.WriteHeader(http.StatusNoContent)
}

// session returns the authenticated session or writes 401.
func (h *NoteHandler) session(w http.ResponseWriter, r *http.Request) (*auth.Session, bool) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return nil, false
	}
	return sess, true
}

// handleServiceError maps service errors to HTTP responses.
func (h *NoteHandler) handleServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNoteNotFound):
		writeError(w, http.StatusNotFound, "NOTE_NOT_FOUND", "Note not found")
	case errors.Is(err, service.ErrNoteExists):
		writeError(w, http.StatusConflict, "NOTE_EXISTS", "Note id already exists")
	case errors.Is(err, service.ErrInvalidNoteID):
		writeError(w, http.StatusBadRequest, "INVALID_NOTE_ID", "Invalid note id")
	case errors.Is(err, service.ErrNoteTooLong):
		writeError(w, http.StatusRequestEntityTooLarge, "NOTE_TOO_LONG", "Note text is too long")
	default:
		h.logger.Error(op+" failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+op)
	}
}
