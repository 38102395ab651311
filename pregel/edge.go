package pregel

import "fmt"

// Predicate gates a conditional Edge. It is evaluated against the
// WorkflowState as merged through the end of the previous superstep (the
// snapshot the sending vertex's Compute saw). Updates returned in the
// superstep that sent the routing message are merged after routing, so the
// predicate does not see them.
type Predicate[S any] func(state S) bool

// Edge connects a vertex's output label to a downstream vertex, optionally
// gated by a Predicate. Edges with a nil When always match; when more than
// one Edge matches the same (From, Label) pair, the message fans out to all
// matching targets (Invariant: routing is a relation, not a function).
type Edge[S any] struct {
	From  VertexId
	Label string
	To    VertexId
	When  Predicate[S]
}

// routeTable indexes edges by (From, Label) for O(1) lookup during routing.
type routeTable[S any] map[VertexId]map[string][]Edge[S]

func newRouteTable[S any]() routeTable[S] {
	return make(routeTable[S])
}

func (t routeTable[S]) add(e Edge[S]) {
	byLabel, ok := t[e.From]
	if !ok {
		byLabel = make(map[string][]Edge[S])
		t[e.From] = byLabel
	}
	byLabel[e.Label] = append(byLabel[e.Label], e)
}

func (t routeTable[S]) resolve(from VertexId, label string, state S) []VertexId {
	byLabel, ok := t[from]
	if !ok {
		return nil
	}
	edges, ok := byLabel[label]
	if !ok {
		return nil
	}
	targets := make([]VertexId, 0, len(edges))
	for _, e := range edges {
		if e.When == nil || e.When(state) {
			targets = append(targets, e.To)
		}
	}
	return targets
}

// Graph is the builder for a workflow's vertex/edge topology. It is
// immutable once handed to a Runtime: Runtime.Execute never mutates a Graph,
// so the same Graph value can drive concurrent runs.
type Graph[S State[S, U], U any] struct {
	vertices map[VertexId]Vertex[S, U]
	routes   routeTable[S]
	entries  []VertexId
}

// NewGraph returns an empty Graph ready for AddVertex/Connect calls.
func NewGraph[S State[S, U], U any]() *Graph[S, U] {
	return &Graph[S, U]{
		vertices: make(map[VertexId]Vertex[S, U]),
		routes:   newRouteTable[S](),
	}
}

// AddVertex registers v under its own ID. It is an error to register the
// same VertexId twice.
func (g *Graph[S, U]) AddVertex(v Vertex[S, U]) error {
	id := v.ID()
	if id == "" {
		return fmt.Errorf("pregel: vertex has empty ID")
	}
	if _, exists := g.vertices[id]; exists {
		return fmt.Errorf("pregel: duplicate vertex ID %q", id)
	}
	g.vertices[id] = v
	return nil
}

// Connect registers an unconditional edge from (from, label) to to. Both
// vertices must already be registered via AddVertex.
func (g *Graph[S, U]) Connect(from VertexId, label string, to VertexId) error {
	return g.ConnectWhen(from, label, to, nil)
}

// ConnectWhen registers a conditionally-gated edge. A nil when behaves like
// Connect.
func (g *Graph[S, U]) ConnectWhen(from VertexId, label string, to VertexId, when Predicate[S]) error {
	if _, ok := g.vertices[from]; !ok {
		return fmt.Errorf("pregel: edge references unknown source vertex %q", from)
	}
	if to != doneVertexID {
		if _, ok := g.vertices[to]; !ok {
			return fmt.Errorf("pregel: edge references unknown target vertex %q", to)
		}
	}
	g.routes.add(Edge[S]{From: from, Label: label, To: to, When: when})
	return nil
}

// doneVertexID is the synthetic terminal target: routing a message to it
// ends the workflow (see routeOutcome's handling of doneLabel).
const doneVertexID VertexId = doneLabel

// SetEntry designates the vertex(es) that receive the Runtime.Execute seed
// message and start the run in VertexActive state. At least one entry is
// required before Execute.
func (g *Graph[S, U]) SetEntry(ids ...VertexId) error {
	for _, id := range ids {
		if _, ok := g.vertices[id]; !ok {
			return fmt.Errorf("pregel: entry references unknown vertex %q", id)
		}
	}
	g.entries = append(g.entries, ids...)
	return nil
}

// Validate checks structural invariants that are cheap to verify ahead of a
// run: at least one entry vertex and at least one registered vertex.
// Reachability of vertices is not checked.
func (g *Graph[S, U]) Validate() error {
	if len(g.entries) == 0 {
		return fmt.Errorf("pregel: graph has no entry vertex; call SetEntry")
	}
	if len(g.vertices) == 0 {
		return fmt.Errorf("pregel: graph has no vertices")
	}
	return nil
}
