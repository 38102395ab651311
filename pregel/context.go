package pregel

import (
	"math/rand"
)

// outboundMessage pairs a routing label with the envelope to deliver. The
// label is resolved against the sending vertex's edges by the scheduler
// after Compute returns; it is never shipped over the wire to the
// recipient — the recipient only sees the Message.
type outboundMessage struct {
	Label string
	Msg   Message
}

// ComputeContext is the per-invocation handle a Vertex uses to read its
// inbox and shared state, and to stage outbound messages. One ComputeContext
// is constructed per (vertex, superstep) pair and must not be retained past
// the Compute call that received it.
type ComputeContext[S State[S, U], U any] struct {
	vertexID VertexId
	runID    string
	superstep int
	attempt   int

	messages []Message
	state    S

	rng *rand.Rand

	outbox []outboundMessage
	seq    int
}

func newComputeContext[S State[S, U], U any](vertexID VertexId, runID string, superstep, attempt int, messages []Message, state S, rng *rand.Rand) *ComputeContext[S, U] {
	return &ComputeContext[S, U]{
		vertexID:  vertexID,
		runID:     runID,
		superstep: superstep,
		attempt:   attempt,
		messages:  messages,
		state:     state,
		rng:       rng,
	}
}

// VertexID returns the ID of the vertex this context was built for.
func (c *ComputeContext[S, U]) VertexID() VertexId { return c.vertexID }

// RunID returns the workflow run's identifier, stable across retries and
// resumes of the same run.
func (c *ComputeContext[S, U]) RunID() string { return c.runID }

// Superstep returns the current (1-indexed) superstep number.
func (c *ComputeContext[S, U]) Superstep() int { return c.superstep }

// Attempt returns the retry attempt number for this vertex within this
// superstep, starting at 1. A value greater than 1 means a prior attempt
// failed and was retried per the vertex's RetryPolicy.
func (c *ComputeContext[S, U]) Attempt() int { return c.attempt }

// Messages returns this superstep's inbox, already sorted in the
// deterministic mailbox order (see mailbox.go). The slice must not be
// mutated by the caller.
func (c *ComputeContext[S, U]) Messages() []Message { return c.messages }

// State returns a read-only snapshot of the shared WorkflowState as merged
// through the end of the previous superstep. Mutating the returned value has
// no effect on the run; propose changes via the ComputeResult.Update
// returned from Compute instead.
func (c *ComputeContext[S, U]) State() S { return c.state }

// Rand returns the run's deterministic random source, seeded from the run ID
// (see initRNG). Vertices that need randomness (jittered backoff, sampling)
// must use this source instead of math/rand's global source, so that two
// runs under the same run ID make identical choices.
func (c *ComputeContext[S, U]) Rand() *rand.Rand { return c.rng }

// Send stages an outbound message under label at PriorityNormal, to be
// routed once Compute returns. The label is matched against this vertex's
// outgoing Edges; a label with no matching edge is silently dropped (no
// downstream vertex is interested), mirroring spec.md's routing-is-a-
// relation semantics, unless the vertex's VertexPolicy.RequireRoute is set,
// in which case the run fails with a *RoutingError.
func (c *ComputeContext[S, U]) Send(label string, value any) {
	c.SendPriority(label, value, PriorityNormal)
}

// SendPriority is Send with an explicit Priority for mailbox ordering at the
// recipient.
func (c *ComputeContext[S, U]) SendPriority(label string, value any, priority Priority) {
	msg := NewDataMessage(label, value, priority, Source{VertexID: c.vertexID})
	msg.seq = c.seq
	c.seq++
	c.outbox = append(c.outbox, outboundMessage{Label: label, Msg: msg})
}

// SendRaw stages an already-built Message, overriding its Source and seq to
// this context's vertex and insertion order. Used by vertex implementations
// that construct control messages directly (e.g. MessageHaltRequest).
func (c *ComputeContext[S, U]) SendRaw(label string, msg Message) {
	msg.Source = Source{VertexID: c.vertexID}
	msg.seq = c.seq
	c.seq++
	c.outbox = append(c.outbox, outboundMessage{Label: label, Msg: msg})
}

// drain returns the staged outbound messages and clears the outbox. Called
// by the scheduler immediately after Compute returns.
func (c *ComputeContext[S, U]) drain() []outboundMessage {
	out := c.outbox
	c.outbox = nil
	return out
}
