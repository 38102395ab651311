package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fenwick-ai/pregel-go/pregel"
)

// v2Store is the subset of Store[S] a pregel.Checkpointer adapter needs:
// the CheckpointV2 read/write path plus a way to find a run's latest step.
// SQLiteStore and MySQLStore both satisfy it.
type v2Store[S any] interface {
	SaveCheckpointV2(ctx context.Context, checkpoint CheckpointV2[S]) error
	LoadCheckpointV2(ctx context.Context, runID string, stepID int) (CheckpointV2[S], error)
	LatestCheckpointV2Step(ctx context.Context, runID string) (int, error)
	ListCheckpointV2Steps(ctx context.Context, runID string) ([]int, error)
	PruneCheckpointV2(ctx context.Context, runID string, keepLast int) error
}

// checkpointerAdapter widens a v2Store into a pregel.Checkpointer[S] by
// mapping between pregel.Checkpoint's field names and CheckpointV2's: a
// Checkpoint's PendingMessages+ActiveSet travel inside CheckpointV2.Frontier
// as a small wrapper struct, since CheckpointV2 only has a single
// interface{} slot for in-flight work.
type checkpointerAdapter[S any] struct {
	store v2Store[S]
}

// frontierPayload is the concrete shape stored in CheckpointV2.Frontier by
// checkpointerAdapter, round-tripped through JSON by the underlying store.
type frontierPayload struct {
	PendingMessages map[pregel.VertexId][]pregel.Message `json:"pending_messages"`
	ActiveSet       []pregel.VertexId                    `json:"active_set"`
}

// SQLiteCheckpointer adapts a SQLiteStore into a pregel.Checkpointer[S],
// giving Runtime.Execute/Resume a durable, queryable backend beyond the
// core package's Memory/File checkpointers.
type SQLiteCheckpointer[S any] struct {
	checkpointerAdapter[S]
	underlying *SQLiteStore[S]
}

// NewSQLiteCheckpointer opens (or creates) a SQLite-backed checkpoint store
// at path.
func NewSQLiteCheckpointer[S any](path string) (*SQLiteCheckpointer[S], error) {
	s, err := NewSQLiteStore[S](path)
	if err != nil {
		return nil, err
	}
	return &SQLiteCheckpointer[S]{checkpointerAdapter: checkpointerAdapter[S]{store: s}, underlying: s}, nil
}

// Close releases the underlying database handle.
func (c *SQLiteCheckpointer[S]) Close() error { return c.underlying.Close() }

// MySQLCheckpointer adapts a MySQLStore into a pregel.Checkpointer[S].
type MySQLCheckpointer[S any] struct {
	checkpointerAdapter[S]
	underlying *MySQLStore[S]
}

// NewMySQLCheckpointer opens a MySQL-backed checkpoint store using dsn.
func NewMySQLCheckpointer[S any](dsn string) (*MySQLCheckpointer[S], error) {
	s, err := NewMySQLStore[S](dsn)
	if err != nil {
		return nil, err
	}
	return &MySQLCheckpointer[S]{checkpointerAdapter: checkpointerAdapter[S]{store: s}, underlying: s}, nil
}

// Close releases the underlying database handle.
func (c *MySQLCheckpointer[S]) Close() error { return c.underlying.Close() }

// Save implements pregel.Checkpointer.
func (a *checkpointerAdapter[S]) Save(ctx context.Context, ckpt pregel.Checkpoint[S]) error {
	if existing, err := a.store.LoadCheckpointV2(ctx, ckpt.GraphID, ckpt.Superstep); err == nil && existing.IdempotencyKey != ckpt.IdempotencyKey {
		return &pregel.CheckpointError{Op: "save", RunID: ckpt.GraphID, Cause: pregel.ErrIdempotencyViolation}
	}
	v2 := CheckpointV2[S]{
		RunID:          ckpt.GraphID,
		StepID:         ckpt.Superstep,
		State:          ckpt.State,
		Frontier:       frontierPayload{PendingMessages: ckpt.PendingMessages, ActiveSet: ckpt.ActiveSet},
		RNGSeed:        ckpt.RNGSeed,
		RecordedIOs:    ckpt.RecordedIOs,
		IdempotencyKey: ckpt.IdempotencyKey,
		Timestamp:      ckpt.Timestamp,
		Label:          ckpt.Label,
	}
	if err := a.store.SaveCheckpointV2(ctx, v2); err != nil {
		return &pregel.CheckpointError{Op: "save", RunID: ckpt.GraphID, Cause: err}
	}
	return nil
}

// Load implements pregel.Checkpointer.
func (a *checkpointerAdapter[S]) Load(ctx context.Context, graphID string, superstep int) (pregel.Checkpoint[S], error) {
	v2, err := a.store.LoadCheckpointV2(ctx, graphID, superstep)
	if err != nil {
		return pregel.Checkpoint[S]{}, &pregel.CheckpointError{Op: "load", RunID: graphID, Cause: err}
	}
	ckpt, err := fromV2(v2)
	if err != nil {
		return pregel.Checkpoint[S]{}, &pregel.CheckpointError{Op: "load", RunID: graphID, Cause: err}
	}
	return ckpt, nil
}

// LoadLatest implements pregel.Checkpointer.
func (a *checkpointerAdapter[S]) LoadLatest(ctx context.Context, graphID string) (pregel.Checkpoint[S], error) {
	step, err := a.store.LatestCheckpointV2Step(ctx, graphID)
	if err != nil {
		return pregel.Checkpoint[S]{}, &pregel.CheckpointError{Op: "load", RunID: graphID, Cause: err}
	}
	return a.Load(ctx, graphID, step)
}

// List implements pregel.Checkpointer.
func (a *checkpointerAdapter[S]) List(ctx context.Context, graphID string) ([]int, error) {
	steps, err := a.store.ListCheckpointV2Steps(ctx, graphID)
	if err != nil {
		return nil, &pregel.CheckpointError{Op: "list", RunID: graphID, Cause: err}
	}
	return steps, nil
}

// Prune implements pregel.Checkpointer.
func (a *checkpointerAdapter[S]) Prune(ctx context.Context, graphID string, keepLast int) error {
	if err := a.store.PruneCheckpointV2(ctx, graphID, keepLast); err != nil {
		return &pregel.CheckpointError{Op: "prune", RunID: graphID, Cause: err}
	}
	return nil
}

// fromV2 converts a CheckpointV2 back into a Checkpoint. The SQLite/MySQL
// read path unmarshals Frontier and RecordedIOs into bare interface{}
// (producing map[string]interface{}/[]interface{} trees, never the
// concrete frontierPayload/[]RecordedIO types), so recovering them requires
// a marshal-then-unmarshal round trip rather than a type assertion.
func fromV2[S any](v2 CheckpointV2[S]) (pregel.Checkpoint[S], error) {
	ckpt := pregel.Checkpoint[S]{
		GraphID:        v2.RunID,
		Superstep:      v2.StepID,
		State:          v2.State,
		RNGSeed:        v2.RNGSeed,
		IdempotencyKey: v2.IdempotencyKey,
		Timestamp:      v2.Timestamp,
		Label:          v2.Label,
	}

	if v2.Frontier != nil {
		raw, err := json.Marshal(v2.Frontier)
		if err != nil {
			return ckpt, fmt.Errorf("re-marshaling frontier: %w", err)
		}
		var fp frontierPayload
		if err := json.Unmarshal(raw, &fp); err != nil {
			return ckpt, fmt.Errorf("unmarshaling frontier into pending messages/active set: %w", err)
		}
		ckpt.PendingMessages = fp.PendingMessages
		ckpt.ActiveSet = fp.ActiveSet
	}

	if v2.RecordedIOs != nil {
		raw, err := json.Marshal(v2.RecordedIOs)
		if err != nil {
			return ckpt, fmt.Errorf("re-marshaling recorded IOs: %w", err)
		}
		var ios []pregel.RecordedIO
		if err := json.Unmarshal(raw, &ios); err != nil {
			return ckpt, fmt.Errorf("unmarshaling recorded IOs: %w", err)
		}
		ckpt.RecordedIOs = ios
	}

	return ckpt, nil
}
