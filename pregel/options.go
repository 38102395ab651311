package pregel

import "time"

// Option is a functional option for configuring a Runtime.
//
// Example:
//
//	rt, err := pregel.NewRuntime(graph, checkpointer, emitter,
//	    pregel.WithMaxSupersteps(100),
//	    pregel.WithParallelism(16),
//	    pregel.WithDefaultVertexTimeout(10*time.Second),
//	)
type Option func(*pregelConfig) error

// pregelConfig collects options before they are applied to a Runtime.
type pregelConfig struct {
	cfg PregelConfig
}

// PregelConfig holds a Runtime's tunables. The zero value is usable but
// permissive (no superstep cap, sequential vertex execution); production
// runs should set at least MaxSupersteps.
type PregelConfig struct {
	// MaxSupersteps caps the number of supersteps a single Execute call may
	// run before returning ErrMaxStepsExceeded. Zero means unlimited (use
	// with caution: a graph with a cycle and no convergence path runs
	// forever).
	MaxSupersteps int

	// Parallelism bounds how many vertices may have Compute in flight
	// concurrently within one superstep. Zero means sequential (vertices in
	// a superstep run one at a time; the order they start in is not fixed,
	// but their outcomes are collected in VertexId order).
	Parallelism int

	// QueueDepth bounds each vertex's inbound mailbox. Zero means unbounded.
	// Because a superstep delivers all of one step's messages before any
	// vertex drains its mailbox, there is no consumer to wait on mid-step:
	// the check runs once per superstep, after delivery, and fails the run
	// with ErrBackpressureTimeout the first time any mailbox exceeds it.
	QueueDepth int

	// BackpressureTimeout is reserved for a future streaming engine capable
	// of draining mailboxes within a superstep; this synchronous,
	// superstep-at-a-time engine has no such consumer to block against, so
	// it is currently unused.
	BackpressureTimeout time.Duration

	// DefaultVertexTimeout applies to any vertex without its own
	// VertexPolicy.Timeout. Zero means unlimited.
	DefaultVertexTimeout time.Duration

	// RunWallClockBudget caps total wall-clock time for one Execute call.
	// Zero means unlimited.
	RunWallClockBudget time.Duration

	// CheckpointCadence controls when a checkpoint is saved during a run
	// with a Checkpointer configured. The zero value is CheckpointEveryStep.
	CheckpointCadence CheckpointCadence

	// ReplayMode is set by WithReplayMode. The Runtime does not consult it:
	// vertex I/O is always invoked live, and RecordedIO entries are not
	// used to answer calls.
	ReplayMode bool

	// StrictReplay (true by default) is set by WithStrictReplay. The
	// Runtime does not consult it; no replay hash check runs during
	// Execute or Resume.
	StrictReplay bool

	// Metrics, if set, receives Prometheus instrumentation for the run.
	Metrics *PrometheusMetrics

	VertexPolicies map[VertexId]*VertexPolicy
}

func defaultPregelConfig() PregelConfig {
	return PregelConfig{
		StrictReplay:   true,
		VertexPolicies: make(map[VertexId]*VertexPolicy),
	}
}

// WithMaxSupersteps caps the run at n supersteps. When exceeded, Execute
// returns a *ConvergenceError wrapping ErrMaxStepsExceeded.
func WithMaxSupersteps(n int) Option {
	return func(c *pregelConfig) error {
		c.cfg.MaxSupersteps = n
		return nil
	}
}

// WithParallelism sets the maximum number of vertices computed concurrently
// within a single superstep. A vertex is never invoked concurrently with
// itself regardless of this setting.
func WithParallelism(n int) Option {
	return func(c *pregelConfig) error {
		c.cfg.Parallelism = n
		return nil
	}
}

// WithQueueDepth bounds per-vertex mailbox capacity for backpressure
// purposes.
func WithQueueDepth(n int) Option {
	return func(c *pregelConfig) error {
		c.cfg.QueueDepth = n
		return nil
	}
}

// WithBackpressureTimeout sets PregelConfig.BackpressureTimeout. Reserved
// for a future streaming engine; this engine's synchronous superstep loop
// does not consult it.
func WithBackpressureTimeout(d time.Duration) Option {
	return func(c *pregelConfig) error {
		c.cfg.BackpressureTimeout = d
		return nil
	}
}

// WithDefaultVertexTimeout sets the Compute timeout applied to vertices
// without their own VertexPolicy.Timeout.
func WithDefaultVertexTimeout(d time.Duration) Option {
	return func(c *pregelConfig) error {
		c.cfg.DefaultVertexTimeout = d
		return nil
	}
}

// WithRunWallClockBudget caps the total wall-clock duration of one Execute
// call.
func WithRunWallClockBudget(d time.Duration) Option {
	return func(c *pregelConfig) error {
		c.cfg.RunWallClockBudget = d
		return nil
	}
}

// WithCheckpointCadence sets when a checkpoint is saved during a run with a
// Checkpointer configured. See CheckpointNever, CheckpointEveryStep,
// CheckpointEveryN and CheckpointOnHalt.
func WithCheckpointCadence(c CheckpointCadence) Option {
	return func(cfg *pregelConfig) error {
		cfg.cfg.CheckpointCadence = c
		return nil
	}
}

// WithReplayMode sets PregelConfig.ReplayMode. The Runtime does not consult
// the field; vertex calls always execute live.
func WithReplayMode(enabled bool) Option {
	return func(c *pregelConfig) error {
		c.cfg.ReplayMode = enabled
		return nil
	}
}

// WithStrictReplay sets PregelConfig.StrictReplay. The Runtime does not
// consult the field.
func WithStrictReplay(enabled bool) Option {
	return func(c *pregelConfig) error {
		c.cfg.StrictReplay = enabled
		return nil
	}
}

// WithMetrics attaches Prometheus instrumentation to the Runtime.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(c *pregelConfig) error {
		c.cfg.Metrics = m
		return nil
	}
}

// WithVertexPolicy attaches a VertexPolicy to a specific vertex ID.
func WithVertexPolicy(id VertexId, policy *VertexPolicy) Option {
	return func(c *pregelConfig) error {
		if c.cfg.VertexPolicies == nil {
			c.cfg.VertexPolicies = make(map[VertexId]*VertexPolicy)
		}
		c.cfg.VertexPolicies[id] = policy
		return nil
	}
}
