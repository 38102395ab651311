package vertex

import (
	"context"
	"testing"

	"github.com/fenwick-ai/pregel-go/pregel"
)

func TestRouterVertexForwardsToChosenLabel(t *testing.T) {
	g := pregel.NewGraph[*pregel.UnitState, pregel.UnitUpdate]()

	router := NewRouterVertex[*pregel.UnitState, pregel.UnitUpdate]("router", func(_ *pregel.UnitState, _ []pregel.Message) string {
		return "to_b"
	})
	sink := pregel.VertexFunc[*pregel.UnitState, pregel.UnitUpdate]{
		VertexID: "sink",
		Fn: func(_ context.Context, cc *pregel.ComputeContext[*pregel.UnitState, pregel.UnitUpdate]) (pregel.ComputeResult[pregel.UnitUpdate], error) {
			cc.Send("output", cc.Messages()[0])
			return pregel.Halt(pregel.UnitUpdate{}), nil
		},
	}

	if err := g.AddVertex(router); err != nil {
		t.Fatal(err)
	}
	if err := g.AddVertex(sink); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect("router", "to_b", "sink"); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect("sink", "output", "__done__"); err != nil {
		t.Fatal(err)
	}
	if err := g.SetEntry("router"); err != nil {
		t.Fatal(err)
	}

	rt, err := pregel.NewRuntime[*pregel.UnitState, pregel.UnitUpdate](g, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := rt.Execute(context.Background(), "run-router", &pregel.UnitState{}, "payload")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Output) == 0 {
		t.Fatal("expected an output payload")
	}
}

func TestRouterVertexDropsOnEmptyLabel(t *testing.T) {
	g := pregel.NewGraph[*pregel.UnitState, pregel.UnitUpdate]()
	router := NewRouterVertex[*pregel.UnitState, pregel.UnitUpdate]("router", func(_ *pregel.UnitState, _ []pregel.Message) string {
		return ""
	})
	if err := g.AddVertex(router); err != nil {
		t.Fatal(err)
	}
	if err := g.SetEntry("router"); err != nil {
		t.Fatal(err)
	}

	rt, err := pregel.NewRuntime[*pregel.UnitState, pregel.UnitUpdate](g, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := rt.Execute(context.Background(), "run-router-drop", &pregel.UnitState{}, "payload")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Output != nil {
		t.Fatal("expected no output payload when the router drops every message")
	}
}
