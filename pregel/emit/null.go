package emit

import "context"

// NullEmitter discards every event it receives.
//
// Use it when a Runtime is constructed but observability is not wanted:
// unit tests exercising supersteps, or a production deployment that ships
// metrics through a side channel instead of the Emitter interface.
//
//	rt, err := pregel.NewRuntime(graph, checkpointer, emit.NewNullEmitter())
type NullEmitter struct{}

// NewNullEmitter returns an Emitter with zero overhead.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards event.
func (n *NullEmitter) Emit(event Event) {}

// EmitBatch discards events. It never returns an error.
func (n *NullEmitter) EmitBatch(ctx context.Context, events []Event) error {
	return nil
}

// Flush is a no-op: there is nothing buffered to deliver.
func (n *NullEmitter) Flush(ctx context.Context) error {
	return nil
}
