package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Mutation("create")
	m.Mutation("create")
	m.Rejected("progress")
	m.Command("gantt")
	m.ObserveView("burndown", time.Now())

	if got := testutil.ToFloat64(m.TaskMutations.WithLabelValues("create")); got != 2 {
		t.Errorf("create mutations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ValidationErrors.WithLabelValues("progress")); got != 1 {
		t.Errorf("progress rejections = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BotCommands.WithLabelValues("gantt")); got != 1 {
		t.Errorf("gantt commands = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Mutation("create")
	m.Rejected("name")
	m.Command("help")
	m.ObserveView("gantt", time.Now())
}
