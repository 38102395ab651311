package vertex

import (
	"context"
	"fmt"

	"github.com/fenwick-ai/pregel-go/pregel"
)

// SubWorkflowVertex nests an independent Graph + Runtime inside one vertex's
// Compute call, running it to completion and folding its WorkflowResult
// into the outer run's Update. Grounded on spec.md's "parallel fan-outs
// spawn sub-workflows" and the Rust runtime's vertices/mod.rs, which listed
// a `parallel` module with no kept source — the shape here is inferred from
// Runtime.Execute already being reentrant (a Runtime has no package-level
// state, so invoking one from inside another vertex's Compute is safe).
//
// InitState builds the sub-workflow's initial state from the outer state's
// snapshot; Input builds the sub-workflow's entry input; Fold turns the
// sub-workflow's WorkflowResult into the outer Update to merge.
type SubWorkflowVertex[S pregel.State[S, U], U any, S2 pregel.State[S2, U2], U2 any] struct {
	id        pregel.VertexId
	graph     *pregel.Graph[S2, U2]
	opts      []pregel.Option
	initState func(outer S) S2
	input     func(outer S) any
	fold      func(result pregel.WorkflowResult[S2]) U
}

// NewSubWorkflowVertex builds a SubWorkflowVertex around graph, run with the
// given Pregel options on every invocation.
func NewSubWorkflowVertex[S pregel.State[S, U], U any, S2 pregel.State[S2, U2], U2 any](
	id pregel.VertexId,
	graph *pregel.Graph[S2, U2],
	initState func(outer S) S2,
	input func(outer S) any,
	fold func(result pregel.WorkflowResult[S2]) U,
	opts ...pregel.Option,
) *SubWorkflowVertex[S, U, S2, U2] {
	return &SubWorkflowVertex[S, U, S2, U2]{
		id:        id,
		graph:     graph,
		opts:      opts,
		initState: initState,
		input:     input,
		fold:      fold,
	}
}

// ID implements pregel.Vertex.
func (sv *SubWorkflowVertex[S, U, S2, U2]) ID() pregel.VertexId { return sv.id }

// Compute implements pregel.Vertex: run the nested graph to completion
// (under a fresh Runtime, graphID derived from the outer vertex/superstep
// pair for deterministic RNG seeding) and fold its result into the outer
// Update.
func (sv *SubWorkflowVertex[S, U, S2, U2]) Compute(ctx context.Context, cc *pregel.ComputeContext[S, U]) (pregel.ComputeResult[U], error) {
	rt, err := pregel.NewRuntime[S2, U2](sv.graph, nil, nil, sv.opts...)
	if err != nil {
		return pregel.ComputeResult[U]{}, fmt.Errorf("sub-workflow vertex %s: building runtime: %w", sv.id, err)
	}

	subGraphID := fmt.Sprintf("%s/%s/%d", cc.RunID(), sv.id, cc.Superstep())
	result, err := rt.Execute(ctx, subGraphID, sv.initState(cc.State()), sv.input(cc.State()))
	if err != nil {
		return pregel.ComputeResult[U]{}, fmt.Errorf("sub-workflow vertex %s: executing: %w", sv.id, err)
	}

	if result.Output != nil {
		cc.SendRaw("output", pregel.NewRawMessage("output", result.Output, pregel.PriorityNormal, pregel.Source{}))
	}

	return pregel.Halt(sv.fold(result)), nil
}
