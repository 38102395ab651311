package pregel

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// CounterState is the shared state for the counter scenario: Merge adds its
// int delta to Count.
type CounterState struct {
	Count int
}

func (s *CounterState) Merge(delta int)     { s.Count += delta }
func (s *CounterState) Clone() *CounterState { return &CounterState{Count: s.Count} }

func newEchoGraph(t *testing.T) *Graph[*UnitState, UnitUpdate] {
	t.Helper()
	g := NewGraph[*UnitState, UnitUpdate]()
	echo := VertexFunc[*UnitState, UnitUpdate]{
		VertexID: "echo",
		Fn: func(_ context.Context, cc *ComputeContext[*UnitState, UnitUpdate]) (ComputeResult[UnitUpdate], error) {
			for _, m := range cc.Messages() {
				var v string
				_ = m.Unmarshal(&v)
				cc.Send("output", v)
			}
			return Halt(UnitUpdate{}), nil
		},
	}
	if err := g.AddVertex(echo); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect("echo", "output", doneVertexID); err != nil {
		t.Fatal(err)
	}
	if err := g.SetEntry("echo"); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestExecuteEchoScenario(t *testing.T) {
	g := newEchoGraph(t)
	rt, err := NewRuntime[*UnitState, UnitUpdate](g, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	result, err := rt.Execute(context.Background(), "run-echo", &UnitState{}, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out string
	if err := json.Unmarshal(result.Output, &out); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if out != "hello" {
		t.Fatalf("expected echoed output %q, got %q", "hello", out)
	}
}

func newCounterGraph(t *testing.T, target int) *Graph[*CounterState, int] {
	t.Helper()
	g := NewGraph[*CounterState, int]()
	counter := VertexFunc[*CounterState, int]{
		VertexID: "counter",
		Fn: func(_ context.Context, cc *ComputeContext[*CounterState, int]) (ComputeResult[int], error) {
			if cc.State().Count >= target {
				cc.Send("output", cc.State().Count)
				return Halt(0), nil
			}
			cc.Send("loop", nil)
			return StayActive(1), nil
		},
	}
	if err := g.AddVertex(counter); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect("counter", "loop", "counter"); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect("counter", "output", doneVertexID); err != nil {
		t.Fatal(err)
	}
	if err := g.SetEntry("counter"); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestExecuteCounterScenarioConverges(t *testing.T) {
	g := newCounterGraph(t, 5)
	rt, err := NewRuntime[*CounterState, int](g, nil, nil, WithMaxSupersteps(50))
	if err != nil {
		t.Fatal(err)
	}

	result, err := rt.Execute(context.Background(), "run-counter", &CounterState{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FinalState.Count != 5 {
		t.Fatalf("expected count 5, got %d", result.FinalState.Count)
	}
	if result.Supersteps == 0 {
		t.Fatalf("expected at least one superstep")
	}
}

func TestExecuteMaxSuperstepsExceeded(t *testing.T) {
	g := newCounterGraph(t, 1000)
	rt, err := NewRuntime[*CounterState, int](g, nil, nil, WithMaxSupersteps(3))
	if err != nil {
		t.Fatal(err)
	}

	_, err = rt.Execute(context.Background(), "run-exceeds", &CounterState{}, nil)
	if err == nil {
		t.Fatal("expected ErrMaxStepsExceeded")
	}
	var convErr *ConvergenceError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected *ConvergenceError, got %T: %v", err, err)
	}
	if !errors.Is(err, ErrMaxStepsExceeded) {
		t.Fatalf("expected wrapped ErrMaxStepsExceeded, got %v", err)
	}
}

func TestExecuteFanOutJoin(t *testing.T) {
	g := NewGraph[*CounterState, int]()
	split := VertexFunc[*CounterState, int]{
		VertexID: "split",
		Fn: func(_ context.Context, cc *ComputeContext[*CounterState, int]) (ComputeResult[int], error) {
			cc.Send("branch", nil)
			return Halt(0), nil
		},
	}
	makeBranch := func(id VertexId) VertexFunc[*CounterState, int] {
		return VertexFunc[*CounterState, int]{
			VertexID: id,
			Fn: func(_ context.Context, cc *ComputeContext[*CounterState, int]) (ComputeResult[int], error) {
				cc.Send("join", nil)
				return Halt(1), nil
			},
		}
	}
	join := VertexFunc[*CounterState, int]{
		VertexID: "join",
		Fn: func(_ context.Context, cc *ComputeContext[*CounterState, int]) (ComputeResult[int], error) {
			if len(cc.Messages()) < 2 {
				return StayActive(0), nil
			}
			cc.Send("output", cc.State().Count)
			return Halt(0), nil
		},
	}

	for _, v := range []Vertex[*CounterState, int]{split, makeBranch("branchA"), makeBranch("branchB"), join} {
		if err := g.AddVertex(v); err != nil {
			t.Fatal(err)
		}
	}
	mustConnect := func(from VertexId, label string, to VertexId) {
		if err := g.Connect(from, label, to); err != nil {
			t.Fatal(err)
		}
	}
	mustConnect("split", "branch", "branchA")
	mustConnect("split", "branch", "branchB")
	mustConnect("branchA", "join", "join")
	mustConnect("branchB", "join", "join")
	mustConnect("join", "output", doneVertexID)
	if err := g.SetEntry("split"); err != nil {
		t.Fatal(err)
	}

	rt, err := NewRuntime[*CounterState, int](g, nil, nil, WithMaxSupersteps(10))
	if err != nil {
		t.Fatal(err)
	}
	result, err := rt.Execute(context.Background(), "run-fanout", &CounterState{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FinalState.Count != 2 {
		t.Fatalf("expected count 2 (one per branch), got %d", result.FinalState.Count)
	}
}

func TestExecuteRetrySucceedsAfterTransientFailure(t *testing.T) {
	g := NewGraph[*UnitState, UnitUpdate]()
	calls := 0
	flaky := VertexFunc[*UnitState, UnitUpdate]{
		VertexID: "flaky",
		Fn: func(_ context.Context, cc *ComputeContext[*UnitState, UnitUpdate]) (ComputeResult[UnitUpdate], error) {
			calls++
			if cc.Attempt() < 3 {
				return ComputeResult[UnitUpdate]{}, errors.New("transient failure")
			}
			cc.Send("output", "ok")
			return Halt(UnitUpdate{}), nil
		},
	}
	if err := g.AddVertex(flaky); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect("flaky", "output", doneVertexID); err != nil {
		t.Fatal(err)
	}
	if err := g.SetEntry("flaky"); err != nil {
		t.Fatal(err)
	}

	rt, err := NewRuntime[*UnitState, UnitUpdate](g, nil, nil,
		WithVertexPolicy("flaky", &VertexPolicy{
			RetryPolicy: &RetryPolicy{
				MaxAttempts: 5,
				BaseDelay:   time.Millisecond,
				MaxDelay:    10 * time.Millisecond,
				Retryable:   func(error) bool { return true },
			},
		}),
	)
	if err != nil {
		t.Fatal(err)
	}

	result, err := rt.Execute(context.Background(), "run-retry", &UnitState{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	var out string
	_ = json.Unmarshal(result.Output, &out)
	if out != "ok" {
		t.Fatalf("expected output %q, got %q", "ok", out)
	}
}

func TestExecuteResumeFromCheckpoint(t *testing.T) {
	g := newCounterGraph(t, 3)
	ckptr := NewMemoryCheckpointer[*CounterState]()
	rt, err := NewRuntime[*CounterState, int](g, ckptr, nil, WithMaxSupersteps(1))
	if err != nil {
		t.Fatal(err)
	}

	_, err = rt.Execute(context.Background(), "run-resume", &CounterState{}, nil)
	var convErr *ConvergenceError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected a *ConvergenceError from the capped first run, got %v", err)
	}

	rt2, err := NewRuntime[*CounterState, int](g, ckptr, nil, WithMaxSupersteps(50))
	if err != nil {
		t.Fatal(err)
	}
	result, err := rt2.Resume(context.Background(), "run-resume")
	if err != nil {
		t.Fatalf("unexpected resume error: %v", err)
	}
	if result.FinalState.Count != 3 {
		t.Fatalf("expected resumed run to reach count 3, got %d", result.FinalState.Count)
	}
}

func TestCheckpointCadenceNeverSkipsAllCheckpoints(t *testing.T) {
	g := newCounterGraph(t, 3)
	ckptr := NewMemoryCheckpointer[*CounterState]()
	rt, err := NewRuntime[*CounterState, int](g, ckptr, nil, WithCheckpointCadence(CheckpointNever()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rt.Execute(context.Background(), "run-never", &CounterState{}, nil); err != nil {
		t.Fatalf("unexpected execute error: %v", err)
	}
	steps, err := ckptr.List(context.Background(), "run-never")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(steps) != 0 {
		t.Fatalf("expected no checkpoints under CheckpointNever, got %v", steps)
	}
}

func TestCheckpointCadenceEveryNSkipsIntermediateSupersteps(t *testing.T) {
	g := newCounterGraph(t, 4)
	ckptr := NewMemoryCheckpointer[*CounterState]()
	rt, err := NewRuntime[*CounterState, int](g, ckptr, nil, WithCheckpointCadence(CheckpointEveryN(2)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rt.Execute(context.Background(), "run-every-n", &CounterState{}, nil); err != nil {
		t.Fatalf("unexpected execute error: %v", err)
	}
	steps, err := ckptr.List(context.Background(), "run-every-n")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	for _, step := range steps {
		if step%2 != 0 {
			t.Fatalf("expected only even supersteps under CheckpointEveryN(2), got %v", steps)
		}
	}
	if len(steps) == 0 {
		t.Fatal("expected at least one checkpoint under CheckpointEveryN(2)")
	}
}

func TestCheckpointCadenceOnHaltOnlyChecksAtConvergence(t *testing.T) {
	g := newCounterGraph(t, 4)
	ckptr := NewMemoryCheckpointer[*CounterState]()
	rt, err := NewRuntime[*CounterState, int](g, ckptr, nil, WithCheckpointCadence(CheckpointOnHalt()))
	if err != nil {
		t.Fatal(err)
	}
	result, err := rt.Execute(context.Background(), "run-on-halt", &CounterState{}, nil)
	if err != nil {
		t.Fatalf("unexpected execute error: %v", err)
	}
	steps, err := ckptr.List(context.Background(), "run-on-halt")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(steps) != 1 || steps[0] != result.Supersteps {
		t.Fatalf("expected exactly one checkpoint at the halting superstep %d, got %v", result.Supersteps, steps)
	}
}
