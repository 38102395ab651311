package pregel

import (
	"math/rand"
	"time"
)

// VertexPolicy configures per-vertex execution behavior: timeout and retry.
// If not specified, PregelConfig's defaults apply.
type VertexPolicy struct {
	// Timeout is the maximum duration allowed for one Compute call. If zero,
	// PregelConfig.DefaultVertexTimeout is used.
	Timeout time.Duration

	// RetryPolicy specifies automatic retry behavior for transient Compute
	// failures. If nil, no retries are attempted: a returned error is
	// immediately fatal for the run.
	RetryPolicy *RetryPolicy

	// RequireRoute marks this vertex's output labels as requiring at least
	// one matching edge; a Send call that resolves to zero targets produces
	// a RoutingError instead of being silently dropped. Useful for vertices
	// whose output must always reach a known downstream consumer.
	RequireRoute bool
}

// RetryPolicy configures exponential-backoff retry for a vertex's Compute
// call.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of Compute calls (including the
	// first). Must be >= 1; 1 means no retries.
	MaxAttempts int

	// BaseDelay is the base delay for exponential backoff between attempts.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff. Must be >= BaseDelay when both are
	// nonzero.
	MaxDelay time.Duration

	// Retryable classifies an error returned from Compute as retryable. If
	// nil, no error is retried (every failure is treated as fatal).
	Retryable func(error) bool
}

// cadenceKind selects among CheckpointCadence's variants. The zero value,
// cadenceEveryStep, is CheckpointCadence's zero value too, so an unset
// PregelConfig.CheckpointCadence checkpoints every superstep.
type cadenceKind int

const (
	cadenceEveryStep cadenceKind = iota
	cadenceNever
	cadenceEveryN
	cadenceOnHalt
)

// CheckpointCadence controls when Runtime saves a checkpoint during a run
// with a Checkpointer configured. Construct one with CheckpointNever,
// CheckpointEveryStep, CheckpointEveryN or CheckpointOnHalt.
type CheckpointCadence struct {
	kind cadenceKind
	n    int
}

// CheckpointNever disables automatic checkpointing.
func CheckpointNever() CheckpointCadence {
	return CheckpointCadence{kind: cadenceNever}
}

// CheckpointEveryStep checkpoints after every superstep. This is the
// default when a Checkpointer is configured.
func CheckpointEveryStep() CheckpointCadence {
	return CheckpointCadence{kind: cadenceEveryStep}
}

// CheckpointEveryN checkpoints every n supersteps. n <= 1 is equivalent to
// CheckpointEveryStep.
func CheckpointEveryN(n int) CheckpointCadence {
	if n <= 1 {
		return CheckpointEveryStep()
	}
	return CheckpointCadence{kind: cadenceEveryN, n: n}
}

// CheckpointOnHalt checkpoints only on a superstep in which at least one
// vertex halts (its ComputeResult.NextState is not VertexActive).
func CheckpointOnHalt() CheckpointCadence {
	return CheckpointCadence{kind: cadenceOnHalt}
}

// shouldCheckpoint reports whether superstep should be checkpointed given
// this cadence and whether any vertex halted during superstep.
func (c CheckpointCadence) shouldCheckpoint(superstep int, anyHalted bool) bool {
	switch c.kind {
	case cadenceNever:
		return false
	case cadenceEveryN:
		n := c.n
		if n <= 0 {
			n = 1
		}
		return superstep%n == 0
	case cadenceOnHalt:
		return anyHalted
	default: // cadenceEveryStep
		return true
	}
}

// Validate reports whether the RetryPolicy's fields are internally
// consistent.
func (rp *RetryPolicy) Validate() error {
	if rp.MaxAttempts < 1 {
		return ErrInvalidRetryPolicy
	}
	if rp.MaxDelay > 0 && rp.BaseDelay > 0 && rp.MaxDelay < rp.BaseDelay {
		return ErrInvalidRetryPolicy
	}
	return nil
}

// computeBackoff returns the delay before the next retry attempt, using
// exponential backoff with jitter: min(base*2^attempt, maxDelay) +
// jitter(0, base). attempt is zero-based (0 = delay before the first
// retry). rng must be the run's deterministic source so replay reproduces
// identical delays.
func computeBackoff(attempt int, base, maxDelay time.Duration, rng *rand.Rand) time.Duration {
	if base <= 0 {
		return 0
	}
	exponential := base * (1 << uint(attempt))
	if maxDelay > 0 && exponential > maxDelay {
		exponential = maxDelay
	}
	var jitter time.Duration
	if rng != nil {
		jitter = time.Duration(rng.Int63n(int64(base)))
	}
	return exponential + jitter
}
