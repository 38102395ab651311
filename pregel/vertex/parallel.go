package vertex

import (
	"context"

	"github.com/fenwick-ai/pregel-go/pregel"
)

// ParallelVertex fans the first inbound message's value out to every label
// in Branches within the same superstep, then halts. Each label is expected
// to be wired (via Graph.Connect) to one or more branch vertices, which then
// compute concurrently under the scheduler's normal per-superstep
// parallelism — fan-out itself needs no special scheduling support beyond
// an edge with several targets, already native to Pregel.
type ParallelVertex[S pregel.State[S, U], U any] struct {
	id       pregel.VertexId
	branches []string
}

// NewParallelVertex builds a ParallelVertex that forwards to each of
// branches under its own label.
func NewParallelVertex[S pregel.State[S, U], U any](id pregel.VertexId, branches []string) *ParallelVertex[S, U] {
	return &ParallelVertex[S, U]{id: id, branches: branches}
}

// ID implements pregel.Vertex.
func (p *ParallelVertex[S, U]) ID() pregel.VertexId { return p.id }

// Compute implements pregel.Vertex.
func (p *ParallelVertex[S, U]) Compute(_ context.Context, cc *pregel.ComputeContext[S, U]) (pregel.ComputeResult[U], error) {
	var zero U
	var payload interface{}
	if msgs := cc.Messages(); len(msgs) > 0 {
		_ = msgs[0].Unmarshal(&payload)
	}
	for _, label := range p.branches {
		cc.Send(label, payload)
	}
	return pregel.Halt(zero), nil
}
