package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus instrumentation for the engine.
//
// Exposed series (all prefixed "dob_"):
//
//	dob_workflows_created_total                       counter
//	dob_workflows_finished_total{status}              counter, terminal status
//	dob_tasks_finished_total{type,status}             counter, terminal status
//	dob_approvals_total{decision}                     counter, approved/rejected/delegated
//	dob_task_duration_seconds{type}                   histogram, started -> finished
//
// Register the metrics with the same registry the HTTP /metrics handler
// serves:
//
//	registry := prometheus.NewRegistry()
//	metrics := workflow.NewMetrics(registry)
//	engine := workflow.New(templates, bus, workflow.WithMetrics(metrics))
type Metrics struct {
	workflowsCreated  prometheus.Counter
	workflowsFinished *prometheus.CounterVec
	tasksFinished     *prometheus.CounterVec
	approvals         *prometheus.CounterVec
	taskDuration      *prometheus.HistogramVec
}

// NewMetrics creates and registers the engine metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		workflowsCreated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dob_workflows_created_total",
			Help: "Workflows materialized from templates.",
		}),
		workflowsFinished: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dob_workflows_finished_total",
			Help: "Workflows that reached a terminal status.",
		}, []string{"status"}),
		tasksFinished: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dob_tasks_finished_total",
			Help: "Tasks that reached a terminal status.",
		}, []string{"type", "status"}),
		approvals: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dob_approvals_total",
			Help: "Approval verdicts by decision.",
		}, []string{"decision"}),
		taskDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dob_task_duration_seconds",
			Help:    "Time from task start to terminal status.",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 60, 300, 1800},
		}, []string{"type"}),
	}
}

func (m *Metrics) workflowCreated() {
	if m != nil {
		m.workflowsCreated.Inc()
	}
}

func (m *Metrics) workflowFinished(status WorkflowStatus) {
	if m != nil {
		m.workflowsFinished.WithLabelValues(string(status)).Inc()
	}
}

func (m *Metrics) taskFinished(t *Task, now time.Time) {
	if m == nil {
		return
	}
	m.tasksFinished.WithLabelValues(t.Type, string(t.Status)).Inc()
	if t.StartedAt != nil {
		m.taskDuration.WithLabelValues(t.Type).Observe(now.Sub(*t.StartedAt).Seconds())
	}
}

func (m *Metrics) approval(decision ApprovalStatus) {
	if m != nil {
		m.approvals.WithLabelValues(string(decision)).Inc()
	}
}
