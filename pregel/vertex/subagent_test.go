package vertex

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fenwick-ai/pregel-go/pregel"
)

// innerState is the sub-workflow's own state type, distinct from the outer
// run's, to exercise SubWorkflowVertex's two-type-parameter bridging.
type innerState struct {
	Count int
}

func (s *innerState) Merge(delta int)    { s.Count += delta }
func (s *innerState) Clone() *innerState { return &innerState{Count: s.Count} }

func newInnerGraph(t *testing.T) *pregel.Graph[*innerState, int] {
	t.Helper()
	g := pregel.NewGraph[*innerState, int]()
	doubler := pregel.VertexFunc[*innerState, int]{
		VertexID: "double",
		Fn: func(_ context.Context, cc *pregel.ComputeContext[*innerState, int]) (pregel.ComputeResult[int], error) {
			var n int
			_ = cc.Messages()[0].Unmarshal(&n)
			cc.Send("output", n*2)
			return pregel.Halt(0), nil
		},
	}
	if err := g.AddVertex(doubler); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect("double", "output", "__done__"); err != nil {
		t.Fatal(err)
	}
	if err := g.SetEntry("double"); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestSubWorkflowVertexRunsNestedGraphToCompletion(t *testing.T) {
	inner := newInnerGraph(t)

	sv := NewSubWorkflowVertex[*pregel.UnitState, pregel.UnitUpdate, *innerState, int](
		"nested",
		inner,
		func(_ *pregel.UnitState) *innerState { return &innerState{} },
		func(_ *pregel.UnitState) any { return 21 },
		func(result pregel.WorkflowResult[*innerState]) pregel.UnitUpdate { return pregel.UnitUpdate{} },
	)

	g := pregel.NewGraph[*pregel.UnitState, pregel.UnitUpdate]()
	if err := g.AddVertex(sv); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect("nested", "output", "__done__"); err != nil {
		t.Fatal(err)
	}
	if err := g.SetEntry("nested"); err != nil {
		t.Fatal(err)
	}

	rt, err := pregel.NewRuntime[*pregel.UnitState, pregel.UnitUpdate](g, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := rt.Execute(context.Background(), "run-outer", &pregel.UnitState{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got int
	if err := json.Unmarshal(result.Output, &got); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected nested workflow's doubled output 42, got %d", got)
	}
}
