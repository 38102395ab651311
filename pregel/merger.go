package pregel

import "sort"

// pendingUpdate pairs an Update with the vertex that produced it, so the
// merger can fold updates in a deterministic, sender-ID-ordered sequence
// regardless of the order in which the scheduler's worker goroutines
// finished Compute.
type pendingUpdate[U any] struct {
	from VertexId
	seq  int
	u    U
}

// stateMerger owns the single shared WorkflowState value and applies each
// superstep's batch of updates to it in a fixed order. Folding in sender-ID
// order (not completion order) is what lets State.Merge be merely
// commutative+associative over the batch rather than needing to tolerate
// arbitrary interleavings — the batch order is always the same for the same
// graph and the same per-vertex update set.
type stateMerger[S State[S, U], U any] struct {
	state S
}

func newStateMerger[S State[S, U], U any](initial S) *stateMerger[S, U] {
	return &stateMerger[S, U]{state: initial}
}

// snapshot returns a read-only clone of the current state for handing to a
// ComputeContext.
func (m *stateMerger[S, U]) snapshot() S {
	return m.state.Clone()
}

// applyAll merges a superstep's batch of updates into the shared state in
// deterministic order and returns the count actually applied (informational,
// used for metrics).
func (m *stateMerger[S, U]) applyAll(updates []pendingUpdate[U]) int {
	ordered := make([]pendingUpdate[U], len(updates))
	copy(ordered, updates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].from != ordered[j].from {
			return ordered[i].from < ordered[j].from
		}
		return ordered[i].seq < ordered[j].seq
	})
	for _, u := range ordered {
		m.state.Merge(u.u)
	}
	return len(ordered)
}
