package emit

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/supersteprun/graph/graph"
)

// PrometheusObserver implements graph.Observer by recording step latency,
// active-frame counts, checkpoint counts, and node error counts as
// Prometheus metrics keyed off the lifecycle events graph.Event carries
// (step_complete, node_error, checkpoint_saved).
type PrometheusObserver struct {
	stepDuration     *prometheus.HistogramVec
	activeFrames     *prometheus.GaugeVec
	checkpointsTotal *prometheus.CounterVec
	nodeErrorsTotal  *prometheus.CounterVec
}

// NewPrometheusObserver registers its metrics with reg (use
// prometheus.DefaultRegisterer for the global registry) and returns the
// Observer.
func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	p := &PrometheusObserver{
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "graph",
			Name:      "step_duration_seconds",
			Help:      "Duration of each super-step.",
		}, []string{"thread_id"}),
		activeFrames: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "graph",
			Name:      "active_frames",
			Help:      "Number of frames scheduled for the next super-step.",
		}, []string{"thread_id"}),
		checkpointsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graph",
			Name:      "checkpoints_saved_total",
			Help:      "Number of checkpoints written.",
		}, []string{"thread_id"}),
		nodeErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graph",
			Name:      "node_errors_total",
			Help:      "Number of node faults observed.",
		}, []string{"thread_id", "node"}),
	}
	reg.MustRegister(p.stepDuration, p.activeFrames, p.checkpointsTotal, p.nodeErrorsTotal)
	return p
}

var _ graph.Observer = (*PrometheusObserver)(nil)

// Notify implements graph.Observer.
func (p *PrometheusObserver) Notify(_ context.Context, event graph.Event) {
	switch event.Kind {
	case graph.EventStepComplete:
		p.stepDuration.WithLabelValues(event.ThreadID).Observe(event.Duration.Seconds())
		p.activeFrames.WithLabelValues(event.ThreadID).Set(float64(len(event.ActiveNodes)))
	case graph.EventCheckpointSaved:
		p.checkpointsTotal.WithLabelValues(event.ThreadID).Inc()
	case graph.EventNodeError:
		p.nodeErrorsTotal.WithLabelValues(event.ThreadID, event.Node).Inc()
	}
}
