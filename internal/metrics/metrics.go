package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the tracker.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	TaskMutations    *prometheus.CounterVec
	ValidationErrors *prometheus.CounterVec
	BotCommands      *prometheus.CounterVec
	ViewBuild        *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TaskMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gantt_task_mutations_total",
			Help: "Task and dependency mutations by operation",
		}, []string{"op"}),
		ValidationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gantt_validation_errors_total",
			Help: "Rejected mutations by offending field",
		}, []string{"field"}),
		BotCommands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gantt_bot_commands_total",
			Help: "Chat commands handled by command name",
		}, []string{"command"}),
		ViewBuild: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gantt_view_build_seconds",
			Help:    "Time spent building derived views",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"view"}),
	}
}

func (m *Metrics) Mutation(op string) {
	if m == nil {
		return
	}
	m.TaskMutations.WithLabelValues(op).Inc()
}

func (m *Metrics) Rejected(field string) {
	if m == nil {
		return
	}
	m.ValidationErrors.WithLabelValues(field).Inc()
}

func (m *Metrics) Command(name string) {
	if m == nil {
		return
	}
	m.BotCommands.WithLabelValues(name).Inc()
}

// ObserveView records the time since start under the given view name.
func (m *Metrics) ObserveView(view string, start time.Time) {
	if m == nil {
		return
	}
	m.ViewBuild.WithLabelValues(view).Observe(time.Since(start).Seconds())
}
