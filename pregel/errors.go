package pregel

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the scheduler and checkpoint subsystems.
var (
	// ErrMaxStepsExceeded indicates a run reached PregelConfig.MaxSupersteps
	// without every vertex halting.
	ErrMaxStepsExceeded = errors.New("pregel: execution exceeded maximum superstep limit")

	// ErrNoProgress indicates a superstep produced an empty active set with
	// no pending mailboxes and no vertex routed to the done label: the run
	// is stuck and cannot make further progress.
	ErrNoProgress = errors.New("pregel: no active vertices and no pending messages; run cannot progress")

	// ErrBackpressureTimeout indicates a vertex's mailbox held more than
	// PregelConfig.QueueDepth messages after a superstep's delivery phase.
	// PregelConfig.BackpressureTimeout is not consulted.
	ErrBackpressureTimeout = errors.New("pregel: backpressure timeout enqueuing message")

	// ErrIdempotencyViolation indicates a checkpoint write for a
	// (graph_id, superstep) pair that was already committed with a
	// different idempotency key.
	ErrIdempotencyViolation = errors.New("pregel: checkpoint idempotency violation")

	// ErrMaxAttemptsExceeded indicates a vertex exhausted its RetryPolicy's
	// MaxAttempts without a successful Compute call.
	ErrMaxAttemptsExceeded = errors.New("pregel: vertex exceeded maximum retry attempts")

	// ErrInvalidRetryPolicy indicates a RetryPolicy failed Validate.
	ErrInvalidRetryPolicy = errors.New("pregel: invalid retry policy")

	// ErrReplayMismatch is returned by verifyReplayHash when a recorded I/O
	// hash does not match the hash computed for the corresponding response.
	ErrReplayMismatch = errors.New("pregel: replay hash mismatch")

	// ErrCancelled indicates the run's context was cancelled.
	ErrCancelled = errors.New("pregel: run cancelled")

	// ErrSchemaMismatch indicates a loaded Checkpoint's SchemaHash does not
	// match the current WorkflowState type's expected hash.
	ErrSchemaMismatch = errors.New("pregel: checkpoint schema hash mismatch")
)

// VertexError wraps a failure from a specific vertex's Compute call,
// classifying it as retryable or fatal for the scheduler's retry loop.
type VertexError struct {
	VertexID  VertexId
	Superstep int
	Attempt   int
	Retryable bool
	Cause     error
}

func (e *VertexError) Error() string {
	kind := "fatal"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("pregel: vertex %q superstep %d attempt %d: %s error: %v", e.VertexID, e.Superstep, e.Attempt, kind, e.Cause)
}

func (e *VertexError) Unwrap() error { return e.Cause }

// RoutingError indicates a label resolved to zero targets when the sending
// vertex's RequireRoute policy demanded at least one. Edges to unknown
// vertices are rejected earlier, by Graph.ConnectWhen, with a plain error.
type RoutingError struct {
	From  VertexId
	Label string
	Cause error
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("pregel: routing from %q label %q: %v", e.From, e.Label, e.Cause)
}

func (e *RoutingError) Unwrap() error { return e.Cause }

// StateMergeError indicates State.Merge panicked or otherwise could not be
// applied; the merger recovers the panic and surfaces it as this type so a
// single bad update cannot crash the scheduler goroutine.
type StateMergeError struct {
	VertexID  VertexId
	Superstep int
	Cause     error
}

func (e *StateMergeError) Error() string {
	return fmt.Sprintf("pregel: merge of update from %q at superstep %d: %v", e.VertexID, e.Superstep, e.Cause)
}

func (e *StateMergeError) Unwrap() error { return e.Cause }

// ConvergenceError indicates the run reached PregelConfig.MaxSupersteps
// (wrapping ErrMaxStepsExceeded).
type ConvergenceError struct {
	Superstep int
	Cause     error
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("pregel: failed to converge by superstep %d: %v", e.Superstep, e.Cause)
}

func (e *ConvergenceError) Unwrap() error { return e.Cause }

// CheckpointError wraps a failure saving or loading a Checkpoint.
type CheckpointError struct {
	Op    string // "save", "load", "list" or "prune"
	RunID string
	Cause error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("pregel: checkpoint %s for run %q: %v", e.Op, e.RunID, e.Cause)
}

func (e *CheckpointError) Unwrap() error { return e.Cause }
