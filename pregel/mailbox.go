package pregel

import "sort"

// mailbox accumulates the messages routed to a single vertex during one
// superstep's delivery phase, then yields them in the deterministic order
// Compute observes via ComputeContext.Messages.
type mailbox struct {
	messages []Message
}

func (m *mailbox) add(msg Message) {
	m.messages = append(m.messages, msg)
}

// sorted returns the mailbox's contents ordered by: Priority descending,
// then Source.VertexID ascending, then seq ascending (sender-side insertion
// order). This total order is independent of goroutine scheduling, which is
// what makes two runs of the same graph over the same inputs replay-
// identical regardless of how the scheduler parallelized vertex execution
// within a superstep.
func (m *mailbox) sorted() []Message {
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Source.VertexID != b.Source.VertexID {
			return a.Source.VertexID < b.Source.VertexID
		}
		return a.seq < b.seq
	})
	return out
}

// mailboxSet is the collection of per-vertex mailboxes being assembled
// during a superstep's delivery phase.
type mailboxSet map[VertexId]*mailbox

func newMailboxSet() mailboxSet {
	return make(mailboxSet)
}

func (s mailboxSet) deliver(to VertexId, msg Message) {
	mb, ok := s[to]
	if !ok {
		mb = &mailbox{}
		s[to] = mb
	}
	mb.add(msg)
}

// take returns the sorted messages for vertex id and removes them from the
// set, leaving the set ready for the next superstep's delivery phase.
func (s mailboxSet) take(id VertexId) []Message {
	mb, ok := s[id]
	if !ok {
		return nil
	}
	delete(s, id)
	return mb.sorted()
}

// recipients returns the set of vertex IDs with at least one pending
// message, used to compute the next superstep's active set.
func (s mailboxSet) recipients() []VertexId {
	ids := make([]VertexId, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// overflowing reports the lowest-sorted vertex whose mailbox holds more than
// depth messages, if any. A superstep is one synchronous delivery phase with
// no concurrent consumer draining mailboxes mid-flight, so QueueDepth is
// enforced as a hard cap checked after delivery rather than as a timeout
// Send blocks against; BackpressureTimeout has no effect on this engine.
func (s mailboxSet) overflowing(depth int) (VertexId, int) {
	ids := s.recipients()
	for _, id := range ids {
		if n := len(s[id].messages); n > depth {
			return id, n
		}
	}
	return "", 0
}
