package pregel

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// Checkpoint is a durable snapshot of a run, sufficient to resume execution
// or deterministically replay it. When a Checkpointer is configured, a
// Checkpoint is saved after each superstep selected by
// PregelConfig.CheckpointCadence (every superstep by default).
type Checkpoint[S any] struct {
	// GraphID identifies the workflow run. Stable across the run's
	// lifetime, including resumes.
	GraphID string `json:"graph_id"`

	// Superstep is the superstep number this checkpoint was taken after.
	// Monotonically increasing within a run.
	Superstep int `json:"superstep"`

	// State is the shared WorkflowState as merged through Superstep.
	State S `json:"state"`

	// PendingMessages holds the mailbox contents awaiting delivery at the
	// start of Superstep+1, keyed by recipient VertexId.
	PendingMessages map[VertexId][]Message `json:"pending_messages"`

	// ActiveSet lists the vertices scheduled to compute in Superstep+1.
	ActiveSet []VertexId `json:"active_set"`

	// RNGSeed is the run's deterministic RNG seed, derived from GraphID by
	// initRNG. Stored so a resumed run seeds an RNG byte-identical to the
	// original.
	RNGSeed int64 `json:"rng_seed"`

	// RecordedIOs holds captured external interactions up to this
	// checkpoint (see RecordedIO).
	RecordedIOs []RecordedIO `json:"recorded_ios"`

	// IdempotencyKey is a SHA-256 hash of (GraphID, Superstep, ActiveSet,
	// State), in the form "sha256:<hex>". A Checkpointer must reject a save
	// whose (GraphID, Superstep) was already committed under a different
	// key (see ErrIdempotencyViolation).
	IdempotencyKey string `json:"idempotency_key"`

	// SchemaHash fingerprints the WorkflowState's JSON shape at save time
	// (SHA-256 of the State's marshaled zero-value field names).
	// Runtime.Resume recomputes the hash from the loaded State and fails
	// with a *CheckpointError wrapping ErrSchemaMismatch when the two
	// differ. An empty SchemaHash skips the check.
	SchemaHash string `json:"schema_hash"`

	// Timestamp records when the checkpoint was created.
	Timestamp time.Time `json:"timestamp"`

	// Label optionally names a user-initiated checkpoint (e.g.
	// "before-tool-call"). Empty for automatic, per-superstep checkpoints.
	Label string `json:"label,omitempty"`
}

// Checkpointer persists and loads Checkpoint snapshots. Implementations
// must make Save atomic: a reader must never observe a partially-written
// checkpoint.
type Checkpointer[S any] interface {
	// Save persists ckpt. It must return ErrIdempotencyViolation if a
	// checkpoint for (ckpt.GraphID, ckpt.Superstep) already exists with a
	// different IdempotencyKey.
	Save(ctx context.Context, ckpt Checkpoint[S]) error

	// Load returns the checkpoint for graphID at the given superstep.
	Load(ctx context.Context, graphID string, superstep int) (Checkpoint[S], error)

	// LoadLatest returns the most recent checkpoint for graphID.
	LoadLatest(ctx context.Context, graphID string) (Checkpoint[S], error)

	// List returns every superstep checkpointed for graphID, ascending.
	List(ctx context.Context, graphID string) ([]int, error)

	// Prune retains only the keepLast most recent checkpoints for graphID,
	// deleting older ones. keepLast <= 0 is a no-op.
	Prune(ctx context.Context, graphID string, keepLast int) error
}

// computeIdempotencyKey hashes (graphID, superstep, activeSet, state) into a
// stable "sha256:<hex>" key, mirroring the scheduler's deterministic
// ordering guarantees: activeSet is sorted before hashing so the key does
// not depend on map iteration order.
func computeIdempotencyKey[S any](graphID string, superstep int, activeSet []VertexId, state S) (string, error) {
	h := sha256.New()
	h.Write([]byte(graphID))

	stepBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(stepBytes, uint64(superstep))
	h.Write(stepBytes)

	sorted := make([]VertexId, len(activeSet))
	copy(sorted, activeSet)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, id := range sorted {
		h.Write([]byte(id))
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	h.Write(stateJSON)

	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

// computeSchemaHash fingerprints a state value's JSON field shape, used to
// detect a Checkpointer being asked to resume a run into an incompatible
// WorkflowState type.
func computeSchemaHash[S any](state S) (string, error) {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	var generic map[string]json.RawMessage
	keys := []string{}
	if err := json.Unmarshal(stateJSON, &generic); err == nil {
		for k := range generic {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}
	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}
