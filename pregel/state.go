package pregel

// State is the contract a workflow's shared state must satisfy. S is the
// concrete state type itself, used as an F-bounded type parameter so Clone
// can return the concrete type rather than the bare interface; U is the
// associated Update (delta) type.
//
// S is conventionally a pointer type (e.g. *CounterState) whose methods have
// pointer receivers, so Merge can mutate in place — mirroring the original
// Rust contract's `fn merge(&mut self, update: Self::Update)`. A graph is
// parameterized as Graph[*CounterState, CounterUpdate], not
// Graph[CounterState, CounterUpdate].
//
// Merge must be commutative and associative: for any two updates u1, u2
// produced during the same superstep, merging them in either order must
// produce the same resulting state. The scheduler is free to apply updates
// from one superstep in any order.
//
// Clone must return a deep-enough copy that mutating the clone never affects
// the original — the scheduler hands out Clone() results as the read-only
// state view passed into every ComputeContext, and as checkpoint snapshots.
type State[S any, U any] interface {
	Merge(update U)
	Clone() S
}

// UnitUpdate is the trivial (empty) update type. Its zero value is the
// identity element for merge — no separate Empty() constructor is needed.
type UnitUpdate struct{}

// UnitState is the trivial WorkflowState implementation for workflows that
// carry no shared state beyond message passing (routing-only graphs,
// echo/counter style demos, tests). Used as *UnitState to satisfy
// State[*UnitState, UnitUpdate].
type UnitState struct{}

// Merge implements State[*UnitState, UnitUpdate]. It is a no-op.
func (s *UnitState) Merge(UnitUpdate) {}

// Clone implements State[*UnitState, UnitUpdate].
func (s *UnitState) Clone() *UnitState { return &UnitState{} }
