package observability

import (
	"context"
	"fmt"

	"github.com/aretw0/actorflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "actorflow"

// Metrics records interpreter events as Prometheus metrics.
type Metrics struct {
	transitions    *prometheus.CounterVec
	actions        *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	noMatches      *prometheus.CounterVec
}

// NewMetrics creates the interpreter metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "transitions_total",
			Help:      "Successful state transitions.",
		}, []string{"workflow", "to"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "actions_total",
			Help:      "Dispatched actions by outcome.",
		}, []string{"method", "outcome"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "action_duration_seconds",
			Help:      "Time until every actor matched by an action answered.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		noMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "no_match_total",
			Help:      "Transition attempts where no step matched and succeeded.",
		}, []string{"workflow"}),
	}
	for _, c := range []prometheus.Collector{m.transitions, m.actions, m.actionDuration, m.noMatches} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks feeding the metrics.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.transitions.WithLabelValues(e.Workflow, e.To).Inc()
		},
		OnActionResult: func(_ context.Context, e *domain.ActionEvent) {
			outcome := "failure"
			if e.Success {
				outcome = "success"
			}
			m.actions.WithLabelValues(e.Method, outcome).Inc()
			m.actionDuration.WithLabelValues(e.Method).Observe(e.Duration.Seconds())
		},
		OnNoMatch: func(_ context.Context, e *domain.NoMatchEvent) {
			m.noMatches.WithLabelValues(e.Workflow).Inc()
		},
	}
}
