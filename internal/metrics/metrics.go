// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Router decision actions, used as label values.
const (
	ActionPassThrough   = "pass_through"
	ActionRedirectLogin = "redirect_login"
	ActionRedirectHome  = "redirect_home"
	ActionRedirectNote  = "redirect_note"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Router metrics
	IncRouterDecision(action, reason string)
	ObserveNoteResolution(outcome string, duration time.Duration)

	// Account action metrics; kind is login, sign_up or logout.
	IncAccountAction(kind, outcome string)
	IncActionRateLimited()

	// Note metrics
	IncNoteCreated()
	IncNoteUpdated()
	IncNoteDeleted()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
