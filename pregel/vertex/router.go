package vertex

import (
	"context"

	"github.com/fenwick-ai/pregel-go/pregel"
)

// RouteFunc inspects the inbox and current state and returns a label.
// RouterVertex calls it once per inbound message, always with the whole
// inbox, and sends that message's value under the returned label. Returning
// "" drops the message.
type RouteFunc[S pregel.State[S, U], U any] func(state S, messages []pregel.Message) string

// RouterVertex is a pure vertex with no model or tool calls: it forwards
// each inbound message to a label chosen by its RouteFunc, then halts. It
// exists to turn branching logic that depends on runtime state or message
// content (rather than a static edge predicate) into an ordinary vertex,
// since Graph edges can only be evaluated against the WorkflowState
// snapshot, not a vertex's inbox.
type RouterVertex[S pregel.State[S, U], U any] struct {
	id    pregel.VertexId
	route RouteFunc[S, U]
}

// NewRouterVertex builds a RouterVertex.
func NewRouterVertex[S pregel.State[S, U], U any](id pregel.VertexId, route RouteFunc[S, U]) *RouterVertex[S, U] {
	return &RouterVertex[S, U]{id: id, route: route}
}

// ID implements pregel.Vertex.
func (r *RouterVertex[S, U]) ID() pregel.VertexId { return r.id }

// Compute implements pregel.Vertex.
func (r *RouterVertex[S, U]) Compute(_ context.Context, cc *pregel.ComputeContext[S, U]) (pregel.ComputeResult[U], error) {
	var zero U
	for _, m := range cc.Messages() {
		label := r.route(cc.State(), cc.Messages())
		if label == "" {
			continue
		}
		var v interface{}
		_ = m.Unmarshal(&v)
		cc.Send(label, v)
	}
	return pregel.Halt(zero), nil
}
