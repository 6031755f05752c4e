package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncRouterDecision is a no-op.
func (n *NoopRecorder) IncRouterDecision(action, reason string) {}

// ObserveNoteResolution is a no-op.
func (n *NoopRecorder) ObserveNoteResolution(outcome string, duration time.Duration) {}

// IncAccountAction is a no-op.
func (n *NoopRecorder) IncAccountAction(kind, outcome string) {}

// IncActionRateLimited is a no-op.
func (n *NoopRecorder) IncActionRateLimited() {}

// IncNoteCreated is a no-op.
func (n *NoopRecorder) IncNoteCreated() {}

// IncNoteUpdated is a no-op.
func (n *NoopRecorder) IncNoteUpdated() {}

// IncNoteDeleted is a no-op.
func (n *NoopRecorder) IncNoteDeleted() {}
