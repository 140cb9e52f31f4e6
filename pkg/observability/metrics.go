package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/joule/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the agent.
type Metrics struct {
	gatherer prometheus.Gatherer

	turns           *prometheus.CounterVec
	turnDuration    prometheus.Histogram
	workflowChanges *prometheus.CounterVec
	validations     *prometheus.CounterVec
	toolCalls       *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		gatherer: reg,
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "joule_turns_total",
				Help: "Total number of chat turns by outcome",
			},
			[]string{"outcome"},
		),
		turnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "joule_turn_duration_seconds",
				Help:    "Duration of chat turns, LLM latency included",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		workflowChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "joule_workflow_changes_total",
				Help: "Total number of workflow switches by target workflow",
			},
			[]string{"to"},
		),
		validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "joule_step_validations_total",
				Help: "Total number of step validations",
			},
			[]string{"workflow", "step", "accepted"},
		),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "joule_tool_calls_total",
				Help: "Total number of tool executions by outcome",
			},
			[]string{"tool_name", "outcome"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "joule_tool_duration_seconds",
				Help: "Duration of tool executions",
			},
			[]string{"tool_name"},
		),
	}
	reg.MustRegister(m.turns, m.turnDuration, m.workflowChanges, m.validations, m.toolCalls, m.toolDuration)
	return m
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			m.turns.WithLabelValues(outcome(e.Err != nil)).Inc()
			m.turnDuration.Observe(e.Duration.Seconds())
		},
		OnWorkflowChange: func(ctx context.Context, e *domain.WorkflowEvent) {
			m.workflowChanges.WithLabelValues(e.To.String()).Inc()
		},
		OnValidation: func(ctx context.Context, e *domain.ValidationEvent) {
			m.validations.WithLabelValues(e.Workflow.String(), e.StepID, strconv.FormatBool(e.Accepted)).Inc()
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			m.toolCalls.WithLabelValues(e.ToolName, outcome(e.IsError)).Inc()
			m.toolDuration.WithLabelValues(e.ToolName).Observe(e.Duration.Seconds())
		},
	}
}

func outcome(failed bool) string {
	if failed {
		return "error"
	}
	return "ok"
}
