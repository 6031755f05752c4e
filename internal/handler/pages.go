package handler

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/notebook/notebook/internal/auth"
	"github.com/notebook/notebook/internal/model"
	"github.com/notebook/notebook/internal/routing"
	"github.com/notebook/notebook/internal/service"
)

//go:embed templates/*.html static/*
var assets embed.FS

// Page template names.
const (
	pageAuth   = "auth.html"
	pageEditor = "editor.html"
)

type authPage struct {
	Title    string
	Action   string
	IsLogin  bool
	AltPath  string
	AltLabel string
}

type sidebarItem struct {
	ID      string
	Preview string
	Active  bool
}

type editorPage struct {
	Title string
	Email string
	Note  *model.Note
	Notes []sidebarItem
}

// PageHandler renders the HTML shell. Page routes sit behind the request
// router, which has already redirected anonymous or unbound requests.
type PageHandler struct {
	notes  *service.NoteService
	logger *slog.Logger
	pages  map[string]*template.Template
}

// NewPageHandler parses the embedded templates.
func NewPageHandler(notes *service.NoteService, logger *slog.Logger) (*PageHandler, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{pageAuth, pageEditor} {
		tmpl, err := template.ParseFS(assets, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &PageHandler{
		notes:  notes,
		logger: logger,
		pages:  pages,
	}, nil
}

// Login handles GET /login.
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, pageAuth, authPage{
		Title:    "Login",
		Action:   "/actions/login",
		IsLogin:  true,
		AltPath:  routing.PathSignUp,
		AltLabel: "Don't have an account? Sign up",
	})
}

// SignUp handles GET /sign-up.
func (h *PageHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	h.render(w, pageAuth, authPage{
		Title:    "Sign Up",
		Action:   "/actions/sign-up",
		AltPath:  routing.PathLogin,
		AltLabel: "Already have an account? Log in",
	})
}

// Editor handles GET /?noteId=... and shows the note next to the sidebar.
// A note that no longer exists sends the user back to / for a fresh binding.
func (h *PageHandler) Editor(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil {
		http.Redirect(w, r, routing.PathLogin, http.StatusFound)
		return
	}

	noteID := r.URL.Query().Get(routing.NoteIDParam)
	note, err := h.notes.GetNote(r.Context(), sess.UserID, noteID)
	if err != nil {
		if errors.Is(err, service.ErrNoteNotFound) {
			http.Redirect(w, r, routing.PathRoot, http.StatusFound)
			return
		}
		h.serverError(w, "load note", err)
		return
	}

	notes, err := h.notes.ListNotes(r.Context(), sess.UserID)
	if err != nil {
		h.serverError(w, "list notes", err)
		return
	}

	items := make([]sidebarItem, 0, len(notes))
	for _, n := range notes {
		items = append(items, sidebarItem{ID: n.ID, Preview: n.Preview(), Active: n.ID == note.ID})
	}

	h.render(w, pageEditor, editorPage{
		Title: note.Preview(),
		Email: sess.Email,
		Note:  note,
		Notes: items,
	})
}

// Static serves the embedded stylesheet and script under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func (h *PageHandler) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "layout.html", data); err != nil {
		h.serverError(w, "render "+name, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *PageHandler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op+" failed", slog.String("error", err.Error()))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
