package pregel

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects Prometheus instrumentation for a Runtime,
// namespaced "pregel_":
//
//   - active_vertices (gauge): vertices computing in the current superstep.
//   - superstep_latency_ms (histogram): wall-clock duration of one full
//     superstep (compute -> route/deliver -> QueueDepth check -> merge); the
//     checkpoint save is not included.
//   - retries_total (counter): vertex retry attempts, labeled by vertex_id.
//   - merge_conflicts_total (counter): State.Merge panics recovered as
//     StateMergeError.
//   - backpressure_total (counter): mailboxes that exceeded QueueDepth,
//     failing the run with ErrBackpressureTimeout.
//   - checkpoint_failures_total (counter): Checkpointer.Save errors.
type PrometheusMetrics struct {
	activeVertices prometheus.Gauge
	stepLatency    *prometheus.HistogramVec
	retries        *prometheus.CounterVec
	mergeConflicts *prometheus.CounterVec
	backpressure   *prometheus.CounterVec
	checkpointFail *prometheus.CounterVec

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics registers all Runtime metrics with registry. Passing
// nil uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	pm := &PrometheusMetrics{enabled: true}

	pm.activeVertices = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "pregel",
		Name:      "active_vertices",
		Help:      "Number of vertices computing in the current superstep",
	})

	pm.stepLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pregel",
		Name:      "superstep_latency_ms",
		Help:      "Superstep duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000},
	}, []string{"graph_id", "status"})

	pm.retries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pregel",
		Name:      "retries_total",
		Help:      "Vertex retry attempts",
	}, []string{"graph_id", "vertex_id"})

	pm.mergeConflicts = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pregel",
		Name:      "merge_conflicts_total",
		Help:      "State.Merge failures recovered by the scheduler",
	}, []string{"graph_id"})

	pm.backpressure = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pregel",
		Name:      "backpressure_total",
		Help:      "Mailboxes that exceeded QueueDepth",
	}, []string{"graph_id", "vertex_id"})

	pm.checkpointFail = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pregel",
		Name:      "checkpoint_failures_total",
		Help:      "Checkpointer.Save errors",
	}, []string{"graph_id"})

	return pm
}

func (pm *PrometheusMetrics) RecordSuperstepLatency(graphID string, d time.Duration, status string) {
	if pm == nil || !pm.enabled {
		return
	}
	pm.stepLatency.WithLabelValues(graphID, status).Observe(float64(d.Milliseconds()))
}

func (pm *PrometheusMetrics) IncrementRetries(graphID string, vertexID VertexId) {
	if pm == nil || !pm.enabled {
		return
	}
	pm.retries.WithLabelValues(graphID, string(vertexID)).Inc()
}

func (pm *PrometheusMetrics) UpdateActiveVertices(count int) {
	if pm == nil || !pm.enabled {
		return
	}
	pm.activeVertices.Set(float64(count))
}

func (pm *PrometheusMetrics) IncrementMergeConflicts(graphID string) {
	if pm == nil || !pm.enabled {
		return
	}
	pm.mergeConflicts.WithLabelValues(graphID).Inc()
}

func (pm *PrometheusMetrics) IncrementBackpressure(graphID string, vertexID VertexId) {
	if pm == nil || !pm.enabled {
		return
	}
	pm.backpressure.WithLabelValues(graphID, string(vertexID)).Inc()
}

func (pm *PrometheusMetrics) IncrementCheckpointFailures(graphID string) {
	if pm == nil || !pm.enabled {
		return
	}
	pm.checkpointFail.WithLabelValues(graphID).Inc()
}

// Disable stops the metrics from recording without unregistering them.
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable resumes recording after Disable.
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}
