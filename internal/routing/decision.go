// Package routing implements the per-request redirect and note-resolution
// decision made before pages are served.
package routing

import "github.com/notebook/notebook/internal/metrics"

// Action is what the router does with a request.
type Action int

const (
	// PassThrough serves the request unchanged.
	PassThrough Action = iota
	// RedirectLogin sends the caller to /login.
	RedirectLogin
	// RedirectHome sends the caller to / without a note.
	RedirectHome
	// RedirectNote sends the caller to /?noteId=<id>.
	RedirectNote
)

// String returns the metrics label for the action.
func (a Action) String() string {
	switch a {
	case PassThrough:
		return metrics.ActionPassThrough
	case RedirectLogin:
		return metrics.ActionRedirectLogin
	case RedirectHome:
		return metrics.ActionRedirectHome
	case RedirectNote:
		return metrics.ActionRedirectNote
	default:
		return "unknown"
	}
}

// Decision reasons.
const (
	ReasonAuthenticated = "authenticated"
	ReasonAnonymous     = "anonymous"
	ReasonNewestNote    = "newest_note"
	ReasonNoteCreated   = "note_created"
	ReasonLookupFailed  = "lookup_failed"
	ReasonCreateFailed  = "create_failed"
	ReasonPanic         = "panic"
	ReasonDefault       = "default"
)

// Decision is the router's verdict for one request.
type Decision struct {
	Action Action
	// NoteID is set for RedirectNote.
	NoteID string
	Reason string
}
