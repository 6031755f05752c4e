package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	// RouterDecisions is keyed by "action/reason".
	RouterDecisions        map[string]uint64
	NoteResolutionCount    uint64
	NoteResolutionFailures uint64
	NoteResolutionTotalNs  int64
	// AccountActions is keyed by "kind/outcome".
	AccountActions     map[string]uint64
	ActionsRateLimited uint64
	NotesCreated       uint64
	NotesUpdated       uint64
	NotesDeleted       uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu                     sync.Mutex
	routerDecisions        map[string]uint64
	accountActions         map[string]uint64
	noteResolutionCount    uint64
	noteResolutionFailures uint64
	noteResolutionTotalNs  int64
	actionsRateLimited     uint64
	notesCreated           uint64
	notesUpdated           uint64
	notesDeleted           uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		routerDecisions: make(map[string]uint64),
		accountActions:  make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	decisions := make(map[string]uint64, len(m.routerDecisions))
	for k, v := range m.routerDecisions {
		decisions[k] = v
	}
	actions := make(map[string]uint64, len(m.accountActions))
	for k, v := range m.accountActions {
		actions[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		RouterDecisions:        decisions,
		NoteResolutionCount:    atomic.LoadUint64(&m.noteResolutionCount),
		NoteResolutionFailures: atomic.LoadUint64(&m.noteResolutionFailures),
		NoteResolutionTotalNs:  atomic.LoadInt64(&m.noteResolutionTotalNs),
		AccountActions:         actions,
		ActionsRateLimited:     atomic.LoadUint64(&m.actionsRateLimited),
		NotesCreated:           atomic.LoadUint64(&m.notesCreated),
		NotesUpdated:           atomic.LoadUint64(&m.notesUpdated),
		NotesDeleted:           atomic.LoadUint64(&m.notesDeleted),
	}
}

// IncRouterDecision counts a router decision.
func (m *InMemoryRecorder) IncRouterDecision(action, reason string) {
	m.mu.Lock()
	m.routerDecisions[action+"/"+reason]++
	m.mu.Unlock()
}

// ObserveNoteResolution records a note resolution call.
func (m *InMemoryRecorder) ObserveNoteResolution(outcome string, duration time.Duration) {
	atomic.AddUint64(&m.noteResolutionCount, 1)
	if outcome != OutcomeSuccess {
		atomic.AddUint64(&m.noteResolutionFailures, 1)
	}
	atomic.AddInt64(&m.noteResolutionTotalNs, duration.Nanoseconds())
}

// IncAccountAction counts an account action.
func (m *InMemoryRecorder) IncAccountAction(kind, outcome string) {
	m.mu.Lock()
	m.accountActions[kind+"/"+outcome]++
	m.mu.Unlock()
}

// IncActionRateLimited counts a rate-limited account action.
func (m *InMemoryRecorder) IncActionRateLimited() {
	atomic.AddUint64(&m.actionsRateLimited, 1)
}

// IncNoteCreated increments note created counter.
func (m *InMemoryRecorder) IncNoteCreated() {
	atomic.AddUint64(&m.notesCreated, 1)
}

// IncNoteUpdated increments note updated counter.
func (m *InMemoryRecorder) IncNoteUpdated() {
	atomic.AddUint64(&m.notesUpdated, 1)
}

// IncNoteDeleted increments note deleted counter.
func (m *InMemoryRecorder) IncNoteDeleted() {
	atomic.AddUint64(&m.notesDeleted, 1)
}
