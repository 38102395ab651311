// Package pregel implements a Pregel/bulk-synchronous-parallel runtime for
// executing agent workflows as a directed graph of vertices communicating by
// messages in synchronized rounds (supersteps).
package pregel

import "context"

// VertexId is an immutable string identifier, globally unique within a
// workflow instance. It is the primary key for routing and the active set.
type VertexId string

// externalSourceID is the synthetic sender identity used for messages that
// originate outside the graph (Runtime.Execute's initial input).
const externalSourceID VertexId = "__external__"

// doneLabel is the synthetic output label that terminates a workflow
// successfully, carrying the final result payload.
const doneLabel = "__done__"

// VertexState is the per-vertex activation flag.
type VertexState int

const (
	// VertexActive means the vertex is scheduled to compute in the next superstep.
	VertexActive VertexState = iota
	// VertexHalted means the vertex will not compute unless a message is routed to it.
	VertexHalted
)

func (s VertexState) String() string {
	if s == VertexHalted {
		return "halted"
	}
	return "active"
}

// ComputeResult is produced by each Vertex.Compute call. U is the
// WorkflowState's Update type.
//
// Outbound messages are not part of ComputeResult — they are written to the
// ComputeContext's outbox via Send/SendData during Compute and drained by the
// scheduler after Compute returns, matching spec.md's separation between the
// returned result and the outbox side-channel.
type ComputeResult[U any] struct {
	// Update is the delta to merge into the shared WorkflowState.
	Update U

	// NextState is the vertex's own activation state for the next superstep.
	// It is advisory only when the vertex has outstanding mail: the scheduler
	// always re-activates a vertex that has a message waiting in the next
	// mailbox, regardless of NextState (spec.md invariant: a Halted vertex
	// becomes Active again when a message is routed to it).
	NextState VertexState
}

// Halt returns a ComputeResult with NextState = VertexHalted and the given
// update merged.
func Halt[U any](update U) ComputeResult[U] {
	return ComputeResult[U]{Update: update, NextState: VertexHalted}
}

// StayActive returns a ComputeResult with NextState = VertexActive and the
// given update merged. A vertex returning StayActive with no outbound
// messages self-loops: it stays active and receives an empty mailbox next
// superstep.
func StayActive[U any](update U) ComputeResult[U] {
	return ComputeResult[U]{Update: update, NextState: VertexActive}
}

// Vertex is the compute contract every workflow node implements. S is the
// shared WorkflowState type, U its Update type.
//
// Implementations must be side-effect-free except through the passed
// ComputeContext: they read ctx.Messages()/ctx.State()/ctx.Superstep(), emit
// outbound messages via ctx.Send, and propose state changes via the returned
// ComputeResult.Update. Vertices MUST be safely callable concurrently with
// other vertices — the scheduler may invoke distinct vertices in parallel
// within the same superstep — but a single vertex is never invoked
// concurrently with itself.
type Vertex[S State[S, U], U any] interface {
	// ID returns this vertex's identifier.
	ID() VertexId

	// Compute executes one superstep's worth of work for this vertex.
	Compute(ctx context.Context, cc *ComputeContext[S, U]) (ComputeResult[U], error)
}

// VertexFunc adapts a plain function to the Vertex interface, the same way
// the teacher's graph.NodeFunc adapts a function to graph.Node.
type VertexFunc[S State[S, U], U any] struct {
	VertexID VertexId
	Fn       func(ctx context.Context, cc *ComputeContext[S, U]) (ComputeResult[U], error)
}

// ID implements Vertex.
func (f VertexFunc[S, U]) ID() VertexId { return f.VertexID }

// Compute implements Vertex.
func (f VertexFunc[S, U]) Compute(ctx context.Context, cc *ComputeContext[S, U]) (ComputeResult[U], error) {
	return f.Fn(ctx, cc)
}
