// Package store provides durable backends for CheckpointV2 persistence,
// adapted via checkpointer.go into pregel.Checkpointer[S] implementations.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested run ID or checkpoint step does not exist.
var ErrNotFound = errors.New("not found")

// Store persists CheckpointV2 snapshots for a run, keyed by (RunID, StepID).
// checkpointer.go adapts a Store into a pregel.Checkpointer[S].
//
// Implementations provided in this package: MemStore (in-process, see
// memory.go), SQLiteStore (see sqlite.go), and MySQLStore (see mysql.go).
//
// Type parameter S is the state type to persist.
type Store[S any] interface {
	// SaveCheckpointV2 persists checkpoint. The provided implementations
	// reject a save whose IdempotencyKey is already stored; a save for an
	// existing (RunID, StepID) under a new key replaces that checkpoint.
	SaveCheckpointV2(ctx context.Context, checkpoint CheckpointV2[S]) error

	// LoadCheckpointV2 retrieves the checkpoint for runID at stepID.
	//
	// Returns ErrNotFound if no checkpoint exists at that step.
	LoadCheckpointV2(ctx context.Context, runID string, stepID int) (CheckpointV2[S], error)

	// LatestCheckpointV2Step returns the highest StepID checkpointed for
	// runID.
	//
	// Returns ErrNotFound if runID has no checkpoints.
	LatestCheckpointV2Step(ctx context.Context, runID string) (int, error)

	// ListCheckpointV2Steps returns every StepID checkpointed for runID,
	// ascending. Returns an empty slice (not an error) for an unknown
	// runID.
	ListCheckpointV2Steps(ctx context.Context, runID string) ([]int, error)

	// PruneCheckpointV2 retains only the keepLast most recent checkpoints
	// for runID, deleting older ones. keepLast <= 0 is a no-op.
	PruneCheckpointV2(ctx context.Context, runID string, keepLast int) error
}

// CheckpointV2 is a durable snapshot of a run's Pregel state, sufficient to
// resume execution or replay it deterministically.
//
// Type parameter S is the state type to persist; it must be JSON-serializable.
type CheckpointV2[S any] struct {
	// RunID uniquely identifies the execution this checkpoint belongs to.
	RunID string `json:"run_id"`

	// StepID is the superstep number at checkpoint time. Monotonically
	// increasing within a run.
	StepID int `json:"step_id"`

	// State is the accumulated WorkflowState after applying all merges up
	// to StepID. Must be JSON-serializable for persistence.
	State S `json:"state"`

	// Frontier holds this checkpoint's mailbox and active-set snapshot.
	// Type is interface{} to avoid a dependency on the pregel package; the
	// checkpointer adapter in checkpointer.go packs and unpacks it as a
	// frontierPayload{PendingMessages, ActiveSet}.
	Frontier interface{} `json:"frontier"`

	// RNGSeed is the seed for deterministic random number generation.
	// Computed from RunID to ensure consistent random values across replays.
	RNGSeed int64 `json:"rng_seed"`

	// RecordedIOs contains all captured external interactions up to this
	// checkpoint, for replay. Type is interface{} to avoid a dependency on
	// the pregel package.
	RecordedIOs interface{} `json:"recorded_ios"`

	// IdempotencyKey prevents duplicate checkpoint commits. The checkpointer
	// adapter stores the key the Runtime computes over (GraphID, Superstep,
	// ActiveSet, State). Format: "sha256:<hex>".
	IdempotencyKey string `json:"idempotency_key"`

	// Timestamp records when this checkpoint was created.
	Timestamp time.Time `json:"timestamp"`

	// Label is an optional user-defined name for this checkpoint, useful
	// for debugging or branch points (e.g. "before_retry"). Empty for
	// automatic, per-superstep checkpoints.
	Label string `json:"label,omitempty"`
}
