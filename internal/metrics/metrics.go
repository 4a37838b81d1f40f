// Package metrics exposes navigation and agent activity as Prometheus metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vidyasagar/navshell/internal/nav"
)

// Collector implements nav.Observer and records agent commands.
type Collector struct {
	Intents       *prometheus.CounterVec
	Loads         *prometheus.CounterVec
	LoadDuration  *prometheus.HistogramVec
	AgentCommands *prometheus.CounterVec
}

// NewCollector registers navshell metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		Intents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "navshell_intents_total",
				Help: "Navigation intents submitted, by intent and result",
			},
			[]string{"intent", "result"},
		),
		Loads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "navshell_loads_total",
				Help: "Issued loads that settled, by intent and result",
			},
			[]string{"intent", "result"},
		),
		LoadDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "navshell_load_duration_seconds",
				Help:    "Time from issuing a load to its settlement",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"intent"},
		),
		AgentCommands: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "navshell_agent_commands_total",
				Help: "Agent commands handled, by command and result code",
			},
			[]string{"command", "result"},
		),
	}
}

// IntentSubmitted implements nav.Observer.
func (c *Collector) IntentSubmitted(kind nav.IntentKind, err error) {
	c.Intents.WithLabelValues(kind.String(), Result(err)).Inc()
}

// LoadSettled implements nav.Observer.
func (c *Collector) LoadSettled(kind nav.IntentKind, err error, elapsed time.Duration) {
	c.Loads.WithLabelValues(kind.String(), Result(err)).Inc()
	c.LoadDuration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

// AgentCommand records one handled agent command.
func (c *Collector) AgentCommand(command, result string) {
	c.AgentCommands.WithLabelValues(command, result).Inc()
}

// Result maps a navigation error onto a low-cardinality label.
func Result(err error) string {
	var le *nav.LoadError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, nav.ErrBusy):
		return "busy"
	case errors.Is(err, nav.ErrAtHistoryBoundary):
		return "at_history_boundary"
	case errors.Is(err, nav.ErrInvalidLocation):
		return "invalid_location"
	case errors.As(err, &le):
		return "load_failed"
	default:
		return "error"
	}
}
