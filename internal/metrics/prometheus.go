package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is a Recorder backed by Prometheus collectors.
type Collector struct {
	routerDecisions *prometheus.CounterVec
	noteResolution  *prometheus.HistogramVec
	accountActions  *prometheus.CounterVec
	rateLimited     prometheus.Counter
	notes           *prometheus.CounterVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		routerDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notebook_router_decisions_total",
			Help: "Request router decisions by action and reason.",
		}, []string{"action", "reason"}),
		noteResolution: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notebook_note_resolution_seconds",
			Help:    "Latency of newest-note lookups and note creation made by the router.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"outcome"}),
		accountActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notebook_account_actions_total",
			Help: "Login, sign-up and logout attempts by outcome.",
		}, []string{"kind", "outcome"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notebook_account_actions_rate_limited_total",
			Help: "Account actions rejected by the rate limiter.",
		}),
		notes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notebook_notes_total",
			Help: "Note mutations by operation.",
		}, []string{"op"}),
	}

	reg.MustRegister(
		c.routerDecisions,
		c.noteResolution,
		c.accountActions,
		c.rateLimited,
		c.notes,
	)

	return c
}

// IncRouterDecision counts a router decision.
func (c *Collector) IncRouterDecision(action, reason string) {
	c.routerDecisions.WithLabelValues(action, reason).Inc()
}

// ObserveNoteResolution records a note resolution call.
func (c *Collector) ObserveNoteResolution(outcome string, duration time.Duration) {
	c.noteResolution.WithLabelValues(outcome).Observe(duration.Seconds())
}

// IncAccountAction counts an account action.
func (c *Collector) IncAccountAction(kind, outcome string) {
	c.accountActions.WithLabelValues(kind, outcome).Inc()
}

// IncActionRateLimited counts a rate-limited account action.
func (c *Collector) IncActionRateLimited() {
	c.rateLimited.Inc()
}

// IncNoteCreated counts a created note.
func (c *Collector) IncNoteCreated() {
	c.notes.WithLabelValues("create").Inc()
}

// IncNoteUpdated counts an updated note.
func (c *Collector) IncNoteUpdated() {
	c.notes.WithLabelValues("update").Inc()
}

// IncNoteDeleted counts a deleted note.
func (c *Collector) IncNoteDeleted() {
	c.notes.WithLabelValues("delete").Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
