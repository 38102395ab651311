package pregel

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/fenwick-ai/pregel-go/pregel/emit"
)

// initRNG derives a deterministic *rand.Rand from graphID by seeding with
// the first 8 bytes of SHA-256(graphID). The same graphID always produces
// the same sequence, so two runs under the same graphID make identical
// scheduling/backoff decisions. Resume reseeds from the checkpoint's
// RNGSeed, so a resumed run's sequence starts from the beginning again
// rather than continuing where the original run stopped.
//
// Vertices must read randomness from ComputeContext.Rand, never from
// math/rand's global source, or two runs under the same graphID diverge.
func initRNG(graphID string) *rand.Rand {
	return rand.New(rand.NewSource(rngSeed(graphID))) //nolint:gosec // deterministic RNG for replay, not security
}

// rngSeed hashes graphID with SHA-256 and takes the first 8 bytes as an
// int64 seed.
func rngSeed(graphID string) int64 {
	h := sha256.Sum256([]byte(graphID))
	return int64(binary.BigEndian.Uint64(h[:8]))
}

// WorkflowResult is the outcome of Runtime.Execute: either the run reached
// the terminal "done" label with an Output payload, or it halted because
// every vertex went quiet with nothing further to deliver.
type WorkflowResult[S any] struct {
	// FinalState is the WorkflowState as merged through the run's last
	// superstep.
	FinalState S

	// Output is the value sent to the doneLabel, if any vertex routed
	// there. Nil if the run ended by quiescence instead.
	Output json.RawMessage

	// Supersteps is the number of supersteps executed.
	Supersteps int

	// RecordedIOs carries the RecordedIO entries of the checkpoint a run was
	// resumed from. The Runtime records no new entries itself; it is nil
	// for a run started by Execute.
	RecordedIOs []RecordedIO
}

// Runtime executes a Graph as a Pregel/BSP run: supersteps alternate
// delivering mailboxes, computing the active set (optionally in parallel),
// merging updates into shared state, and routing outbound messages along
// edges, until every vertex halts with an empty mailbox, a vertex routes to
// the done label, or a configured limit is hit.
type Runtime[S State[S, U], U any] struct {
	graph        *Graph[S, U]
	checkpointer Checkpointer[S]
	emitter      emit.Emitter
	metrics      *PrometheusMetrics
	cfg          PregelConfig

	graphID string
	rng     *rand.Rand
}

// NewRuntime builds a Runtime for graph. checkpointer and emitter may both
// be nil (no checkpointing, no observability).
func NewRuntime[S State[S, U], U any](graph *Graph[S, U], checkpointer Checkpointer[S], emitter emit.Emitter, opts ...Option) (*Runtime[S, U], error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	c := &pregelConfig{cfg: defaultPregelConfig()}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("pregel: applying option: %w", err)
		}
	}
	return &Runtime[S, U]{
		graph:        graph,
		checkpointer: checkpointer,
		emitter:      emitter,
		metrics:      c.cfg.Metrics,
		cfg:          c.cfg,
	}, nil
}

// Execute seeds graphID's entry vertices with input and runs supersteps
// until termination. graphID must be unique per run: it seeds the
// deterministic RNG and names the run's checkpoints.
func (rt *Runtime[S, U]) Execute(ctx context.Context, graphID string, initial S, input any) (WorkflowResult[S], error) {
	rt.graphID = graphID
	rt.rng = initRNG(graphID)

	inputMsg := NewDataMessage("input", input, PriorityNormal, ExternalSource())

	mailboxes := newMailboxSet()
	for _, entry := range rt.graph.entries {
		mailboxes.deliver(entry, inputMsg)
	}
	active := append([]VertexId{}, rt.graph.entries...)

	merger := newStateMerger[S, U](initial)
	return rt.run(ctx, active, mailboxes, merger, 0, nil)
}

// Resume reloads the latest checkpoint for graphID and continues the run
// from the superstep following it.
func (rt *Runtime[S, U]) Resume(ctx context.Context, graphID string) (WorkflowResult[S], error) {
	if rt.checkpointer == nil {
		return WorkflowResult[S]{}, fmt.Errorf("pregel: Resume requires a Checkpointer")
	}
	ckpt, err := rt.checkpointer.LoadLatest(ctx, graphID)
	if err != nil {
		return WorkflowResult[S]{}, err
	}
	if ckpt.SchemaHash != "" {
		if h, err := computeSchemaHash(ckpt.State); err == nil && h != ckpt.SchemaHash {
			return WorkflowResult[S]{}, &CheckpointError{Op: "load", RunID: graphID, Cause: ErrSchemaMismatch}
		}
	}

	rt.graphID = graphID
	rt.rng = rand.New(rand.NewSource(ckpt.RNGSeed))

	mailboxes := newMailboxSet()
	for id, msgs := range ckpt.PendingMessages {
		for _, m := range msgs {
			mailboxes.deliver(id, m)
		}
	}

	merger := newStateMerger[S, U](ckpt.State)
	return rt.run(ctx, ckpt.ActiveSet, mailboxes, merger, ckpt.Superstep, ckpt.RecordedIOs)
}

func (rt *Runtime[S, U]) run(
	ctx context.Context,
	active []VertexId,
	mailboxes mailboxSet,
	merger *stateMerger[S, U],
	startSuperstep int,
	recordedIOs []RecordedIO,
) (WorkflowResult[S], error) {
	deadline := time.Time{}
	if rt.cfg.RunWallClockBudget > 0 {
		deadline = time.Now().Add(rt.cfg.RunWallClockBudget)
	}

	superstep := startSuperstep
	for {
		if err := ctx.Err(); err != nil {
			return WorkflowResult[S]{FinalState: merger.snapshot()}, fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return WorkflowResult[S]{FinalState: merger.snapshot()}, fmt.Errorf("pregel: run wall-clock budget exceeded: %w", context.DeadlineExceeded)
		}

		toCompute := unionRecipients(active, mailboxes)
		if len(toCompute) == 0 {
			return WorkflowResult[S]{FinalState: merger.snapshot(), Supersteps: superstep, RecordedIOs: recordedIOs}, nil
		}

		superstep++
		if rt.cfg.MaxSupersteps > 0 && superstep > rt.cfg.MaxSupersteps {
			return WorkflowResult[S]{FinalState: merger.snapshot(), Supersteps: superstep - 1}, &ConvergenceError{Superstep: superstep - 1, Cause: ErrMaxStepsExceeded}
		}

		start := time.Now()
		stateSnapshot := merger.snapshot()
		if rt.metrics != nil {
			rt.metrics.UpdateActiveVertices(len(toCompute))
		}

		outcomes, err := computeSuperstep[S, U](ctx, rt, toCompute, mailboxes, superstep, stateSnapshot)
		if err != nil {
			if rt.metrics != nil {
				rt.metrics.RecordSuperstepLatency(rt.graphID, time.Since(start), "error")
			}
			return WorkflowResult[S]{FinalState: merger.snapshot(), Supersteps: superstep}, err
		}

		var updates []pendingUpdate[U]
		var doneValue []byte
		done := false
		for _, o := range outcomes {
			updates = append(updates, pendingUpdate[U]{from: o.vertexID, seq: 0, u: o.result.Update})

			if p := rt.cfg.VertexPolicies[o.vertexID]; p != nil && p.RequireRoute {
				for _, om := range o.outbox {
					if om.Label != doneLabel && len(rt.graph.routes.resolve(o.vertexID, om.Label, stateSnapshot)) == 0 {
						return WorkflowResult[S]{FinalState: merger.snapshot(), Supersteps: superstep},
							&RoutingError{From: o.vertexID, Label: om.Label, Cause: fmt.Errorf("label resolved to zero targets")}
					}
				}
			}

			deliveries, dv, isDone := routeOutcome[S, U](rt.graph, stateSnapshot, o.vertexID, o.outbox)
			for target, msgs := range deliveries {
				for _, m := range msgs {
					mailboxes.deliver(target, m)
				}
			}
			if isDone {
				done = true
				doneValue = dv
			}
		}

		if rt.cfg.QueueDepth > 0 {
			if overflowing, depth := mailboxes.overflowing(rt.cfg.QueueDepth); overflowing != "" {
				if rt.metrics != nil {
					rt.metrics.IncrementBackpressure(rt.graphID, overflowing)
				}
				return WorkflowResult[S]{FinalState: merger.snapshot(), Supersteps: superstep},
					fmt.Errorf("pregel: vertex %s mailbox holds %d messages, exceeding QueueDepth %d: %w", overflowing, depth, rt.cfg.QueueDepth, ErrBackpressureTimeout)
			}
		}

		if err := safeMerge(merger, updates); err != nil {
			if rt.metrics != nil {
				rt.metrics.IncrementMergeConflicts(rt.graphID)
			}
			return WorkflowResult[S]{FinalState: merger.snapshot(), Supersteps: superstep}, err
		}

		active = nextActiveSet(outcomes, mailboxes)

		if rt.metrics != nil {
			rt.metrics.RecordSuperstepLatency(rt.graphID, time.Since(start), "success")
		}
		rt.emitSuperstepEnd(superstep, len(outcomes))

		if rt.checkpointer != nil {
			if err := rt.checkpoint(ctx, superstep, merger, mailboxes, active, recordedIOs, anyVertexHalted(outcomes)); err != nil {
				if rt.metrics != nil {
					rt.metrics.IncrementCheckpointFailures(rt.graphID)
				}
				if rt.emitter != nil {
					rt.emitter.Emit(emit.Event{GraphID: rt.graphID, Superstep: superstep, Msg: "checkpoint_failed", Meta: map[string]interface{}{"error": err.Error()}})
				}
			}
		}

		if done {
			return WorkflowResult[S]{FinalState: merger.snapshot(), Output: doneValue, Supersteps: superstep, RecordedIOs: recordedIOs}, nil
		}
	}
}

// safeMerge applies a superstep's updates, recovering a panicking Merge as a
// *StateMergeError so one bad update cannot crash the scheduler.
func safeMerge[S State[S, U], U any](merger *stateMerger[S, U], updates []pendingUpdate[U]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StateMergeError{Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	merger.applyAll(updates)
	return nil
}

// unionRecipients merges the explicitly active set with every vertex that
// has mail waiting, producing the set of vertices to compute this
// superstep.
func unionRecipients(active []VertexId, mailboxes mailboxSet) []VertexId {
	seen := make(map[VertexId]struct{}, len(active))
	out := make([]VertexId, 0, len(active))
	for _, id := range active {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range mailboxes.recipients() {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// anyVertexHalted reports whether any vertex computed this superstep left
// the active set, i.e. its ComputeResult.NextState is not VertexActive.
func anyVertexHalted[U any](outcomes []vertexOutcome[U]) bool {
	for _, o := range outcomes {
		if o.result.NextState != VertexActive {
			return true
		}
	}
	return false
}

func (rt *Runtime[S, U]) checkpoint(ctx context.Context, superstep int, merger *stateMerger[S, U], mailboxes mailboxSet, active []VertexId, recordedIOs []RecordedIO, anyHalted bool) error {
	if !rt.cfg.CheckpointCadence.shouldCheckpoint(superstep, anyHalted) {
		return nil
	}

	state := merger.snapshot()
	pending := make(map[VertexId][]Message, len(mailboxes))
	for id, mb := range mailboxes {
		pending[id] = mb.sorted()
	}

	key, err := computeIdempotencyKey(rt.graphID, superstep, active, state)
	if err != nil {
		return &CheckpointError{Op: "save", RunID: rt.graphID, Cause: err}
	}
	schemaHash, err := computeSchemaHash(state)
	if err != nil {
		return &CheckpointError{Op: "save", RunID: rt.graphID, Cause: err}
	}

	ckpt := Checkpoint[S]{
		GraphID:         rt.graphID,
		Superstep:       superstep,
		State:           state,
		PendingMessages: pending,
		ActiveSet:       active,
		RNGSeed:         rngSeed(rt.graphID),
		RecordedIOs:     recordedIOs,
		IdempotencyKey:  key,
		SchemaHash:      schemaHash,
		Timestamp:       time.Now(),
	}
	if err := rt.checkpointer.Save(ctx, ckpt); err != nil {
		return err
	}
	rt.emitCheckpoint(superstep)
	return nil
}

func (rt *Runtime[S, U]) emitRetry(vertexID VertexId, superstep, attempt int) {
	if rt.emitter == nil {
		return
	}
	rt.emitter.Emit(emit.Event{
		GraphID:   rt.graphID,
		Superstep: superstep,
		VertexID:  string(vertexID),
		Msg:       "vertex_retry",
		Meta:      map[string]interface{}{"attempt": attempt},
	})
}

func (rt *Runtime[S, U]) emitSuperstepEnd(superstep, numVertices int) {
	if rt.emitter == nil {
		return
	}
	rt.emitter.Emit(emit.Event{
		GraphID:   rt.graphID,
		Superstep: superstep,
		Msg:       "superstep_end",
		Meta:      map[string]interface{}{"vertices_computed": numVertices},
	})
}

func (rt *Runtime[S, U]) emitCheckpoint(superstep int) {
	if rt.emitter == nil {
		return
	}
	rt.emitter.Emit(emit.Event{
		GraphID:   rt.graphID,
		Superstep: superstep,
		Msg:       "checkpoint_saved",
	})
}
