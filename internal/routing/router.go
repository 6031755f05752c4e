package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/notebook/notebook/internal/auth"
	"github.com/notebook/notebook/internal/metrics"
)

// DefaultResolveTimeout bounds each note-resolution call.
const DefaultResolveTimeout = 3 * time.Second

// Paths the router acts on.
const (
	PathRoot   = "/"
	PathLogin  = "/login"
	PathSignUp = "/sign-up"

	// NoteIDParam selects the note shown on the root page.
	NoteIDParam = "noteId"
)

var errEmptyNoteID = errors.New("note resolver returned an empty id")

// bypassPrefixes are served without session resolution or a decision.
var bypassPrefixes = []string{"/api/", "/actions/", "/healthz", "/readyz", "/metrics", "/static/", "/favicon.ico"}

// bypassExtensions are image files served without session resolution.
var bypassExtensions = map[string]bool{
	".svg": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// NoteResolver finds or creates the note bound to the root page.
type NoteResolver interface {
	// NewestNoteID returns found=false when the user has no notes.
	NewestNoteID(ctx context.Context, sess *auth.Session) (id string, found bool, err error)
	CreateNote(ctx context.Context, sess *auth.Session) (string, error)
}

// SessionResolver resolves request credentials.
type SessionResolver interface {
	Resolve(ctx context.Context, c auth.Credentials) auth.Resolution
}

// Config configures a Router.
type Config struct {
	Notes    NoteResolver
	Sessions SessionResolver
	// Timeout bounds each NoteResolver call. Defaults to DefaultResolveTimeout.
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// Router decides, per request, whether to serve, redirect to login, redirect
// home, or bind the root page to a concrete note. Every failure while
// resolving a note redirects to login.
type Router struct {
	notes    NoteResolver
	sessions SessionResolver
	timeout  time.Duration
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// New creates a Router.
func New(cfg Config) *Router {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Router{
		notes:    cfg.Notes,
		sessions: cfg.Sessions,
		timeout:  timeout,
		logger:   logger,
		metrics:  recorder,
	}
}

// Decide returns the decision for a request to path with query, made by the
// caller behind sess (nil when anonymous).
func (r *Router) Decide(ctx context.Context, path string, query url.Values, sess *auth.Session) (d Decision) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("router panic",
				slog.String("path", path),
				slog.String("panic", fmt.Sprint(rec)),
			)
			d = Decision{Action: RedirectLogin, Reason: ReasonPanic}
		}
	}()

	if path == PathLogin || path == PathSignUp {
		if sess != nil {
			return Decision{Action: RedirectHome, Reason: ReasonAuthenticated}
		}
		return Decision{Action: PassThrough, Reason: ReasonAnonymous}
	}

	if path == PathRoot && query.Get(NoteIDParam) == "" {
		if sess == nil {
			return Decision{Action: RedirectLogin, Reason: ReasonAnonymous}
		}
		return r.resolveNote(ctx, sess)
	}

	return Decision{Action: PassThrough, Reason: ReasonDefault}
}

func (r *Router) resolveNote(ctx context.Context, sess *auth.Session) Decision {
	id, found, err := r.newest(ctx, sess)
	if err != nil {
		r.logger.Warn("newest note lookup failed",
			slog.String("user_id", sess.UserID),
			slog.String("error", err.Error()),
		)
		return Decision{Action: RedirectLogin, Reason: ReasonLookupFailed}
	}
	if found {
		return Decision{Action: RedirectNote, NoteID: id, Reason: ReasonNewestNote}
	}

	id, err = r.create(ctx, sess)
	if err != nil {
		r.logger.Warn("note creation failed",
			slog.String("user_id", sess.UserID),
			slog.String("error", err.Error()),
		)
		return Decision{Action: RedirectLogin, Reason: ReasonCreateFailed}
	}

	return Decision{Action: RedirectNote, NoteID: id, Reason: ReasonNoteCreated}
}

func (r *Router) newest(ctx context.Context, sess *auth.Session) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	id, found, err := r.notes.NewestNoteID(ctx, sess)
	if err == nil && found && id == "" {
		err = errEmptyNoteID
	}
	r.observe(err, start)
	return id, found, err
}

func (r *Router) create(ctx context.Context, sess *auth.Session) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	id, err := r.notes.CreateNote(ctx, sess)
	if err == nil && id == "" {
		err = errEmptyNoteID
	}
	r.observe(err, start)
	return id, err
}

func (r *Router) observe(err error, start time.Time) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	r.metrics.ObserveNoteResolution(outcome, time.Since(start))
}

// Middleware resolves the session, applies any cookie rotation to the
// response, and enforces the router decision.
func (r *Router) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if bypass(req.URL.Path) {
			next.ServeHTTP(w, req)
			return
		}

		res := r.sessions.Resolve(req.Context(), auth.CredentialsFromRequest(req))
		auth.ApplyCookies(w, res.Cookies)

		d := r.Decide(req.Context(), req.URL.Path, req.URL.Query(), res.Session)
		r.metrics.IncRouterDecision(d.Action.String(), d.Reason)

		switch d.Action {
		case RedirectLogin:
			http.Redirect(w, req, PathLogin, http.StatusFound)
		case RedirectHome:
			http.Redirect(w, req, PathRoot, http.StatusFound)
		case RedirectNote:
			http.Redirect(w, req, noteURL(req.URL.Query(), d.NoteID), http.StatusFound)
		default:
			ctx := req.Context()
			if res.Session != nil {
				ctx = auth.ContextWithSession(ctx, res.Session)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		}
	})
}

// noteURL builds /?noteId=<id>, keeping the request's other query parameters.
func noteURL(query url.Values, noteID string) string {
	q := make(url.Values, len(query)+1)
	for k, v := range query {
		q[k] = v
	}
	q.Set(NoteIDParam, noteID)
	return PathRoot + "?" + q.Encode()
}

func bypass(urlPath string) bool {
	for _, p := range bypassPrefixes {
		if strings.HasPrefix(urlPath, p) {
			return true
		}
	}
	return bypassExtensions[strings.ToLower(path.Ext(urlPath))]
}
