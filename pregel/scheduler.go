package pregel

import (
	"context"
	"sort"
	"sync"
	"time"
)

// vertexOutcome is one vertex's result from a single superstep, collected
// before any state merge or routing happens so the superstep can apply both
// in a fixed, scheduling-independent order.
type vertexOutcome[U any] struct {
	vertexID VertexId
	result   ComputeResult[U]
	outbox   []outboundMessage
	err      error
}

// computeSuperstep runs Compute for every vertex in toCompute, honoring
// PregelConfig.Parallelism, and returns each vertex's outcome. Vertices run
// concurrently with each other but a vertex is never invoked concurrently
// with itself. The returned slice is ordered by VertexId, independent of
// completion order, so downstream merge/route stays deterministic.
func computeSuperstep[S State[S, U], U any](
	ctx context.Context,
	rt *Runtime[S, U],
	toCompute []VertexId,
	mailboxes mailboxSet,
	superstep int,
	stateSnapshot S,
) ([]vertexOutcome[U], error) {
	sorted := make([]VertexId, len(toCompute))
	copy(sorted, toCompute)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	outcomes := make([]vertexOutcome[U], len(sorted))

	parallelism := rt.cfg.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup

	for i, id := range sorted {
		wg.Add(1)
		go func(i int, id VertexId) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			v := rt.graph.vertices[id]
			inbox := mailboxes.take(id)
			result, outbox, err := rt.computeVertex(ctx, v, id, superstep, inbox, stateSnapshot)
			for _, m := range inbox {
				if m.Kind == MessageHaltRequest {
					result.NextState = VertexHalted
					break
				}
			}
			outcomes[i] = vertexOutcome[U]{vertexID: id, result: result, outbox: outbox, err: err}
		}(i, id)
	}
	wg.Wait()

	for _, o := range outcomes {
		if o.err != nil {
			return outcomes, o.err
		}
	}
	return outcomes, nil
}

// computeVertex runs one vertex's Compute call with timeout and retry
// enforcement per its VertexPolicy, returning the final result and the
// messages it staged.
func (rt *Runtime[S, U]) computeVertex(
	ctx context.Context,
	v Vertex[S, U],
	id VertexId,
	superstep int,
	inbox []Message,
	stateSnapshot S,
) (ComputeResult[U], []outboundMessage, error) {
	policy := rt.cfg.VertexPolicies[id]
	timeout := getVertexTimeout(policy, rt.cfg.DefaultVertexTimeout)

	maxAttempts := 1
	var retry *RetryPolicy
	if policy != nil && policy.RetryPolicy != nil {
		retry = policy.RetryPolicy
		maxAttempts = retry.MaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		cc := newComputeContext[S, U](id, rt.graphID, superstep, attempt, inbox, stateSnapshot, rt.rng)

		result, err := computeWithTimeout(ctx, id, timeout, func(ctx context.Context) (ComputeResult[U], error) {
			return v.Compute(ctx, cc)
		})
		if err == nil {
			return result, cc.drain(), nil
		}

		lastErr = err
		retryable := retry != nil && retry.Retryable != nil && retry.Retryable(err)
		if !retryable || attempt == maxAttempts {
			return ComputeResult[U]{}, nil, &VertexError{VertexID: id, Superstep: superstep, Attempt: attempt, Retryable: retryable, Cause: err}
		}

		rt.emitRetry(id, superstep, attempt)
		if rt.metrics != nil {
			rt.metrics.IncrementRetries(rt.graphID, id)
		}
		delay := computeBackoff(attempt-1, retry.BaseDelay, retry.MaxDelay, rt.rng)
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ComputeResult[U]{}, nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return ComputeResult[U]{}, nil, &VertexError{VertexID: id, Superstep: superstep, Attempt: maxAttempts, Retryable: false, Cause: lastErr}
}

// routeOutcome resolves one vertex's staged outbound messages against the
// graph's edges, evaluated against stateSnapshot (the state as merged
// through the end of the previous superstep). It returns the messages to
// deliver to each recipient plus, if any message resolved to doneVertexID,
// that message's raw value as the run's final output.
func routeOutcome[S State[S, U], U any](g *Graph[S, U], stateSnapshot S, from VertexId, outbox []outboundMessage) (deliveries map[VertexId][]Message, doneValue []byte, done bool) {
	deliveries = make(map[VertexId][]Message)
	for _, om := range outbox {
		if om.Msg.Kind == MessageData && om.Label == doneLabel {
			return deliveries, om.Msg.Value, true
		}
		targets := g.routes.resolve(from, om.Label, stateSnapshot)
		for _, target := range targets {
			if target == doneVertexID {
				return deliveries, om.Msg.Value, true
			}
			deliveries[target] = append(deliveries[target], om.Msg)
		}
	}
	return deliveries, nil, false
}

// nextActiveSet computes the active set for the superstep following one
// whose outcomes are given: a vertex stays/becomes active if its
// ComputeResult said VertexActive, or if it has a message waiting in
// mailboxes (Invariant: a halted vertex reactivates on mail).
func nextActiveSet[U any](outcomes []vertexOutcome[U], mailboxes mailboxSet) []VertexId {
	active := make(map[VertexId]struct{})
	for _, o := range outcomes {
		if o.result.NextState == VertexActive {
			active[o.vertexID] = struct{}{}
		}
	}
	for _, id := range mailboxes.recipients() {
		active[id] = struct{}{}
	}
	ids := make([]VertexId, 0, len(active))
	for id := range active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
