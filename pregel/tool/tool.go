package tool

import "context"

// Tool is a single external action a ToolVertex invokes during its
// Compute call: one HTTP request, one DB query, one side effect the
// vertex can't express as a pure state transition.
//
// A ToolVertex is built with one Tool instance, builds an input map from
// its ToolConfig, and calls it exactly once per superstep before halting.
// Implementations should:
//   - Respect ctx cancellation — the runtime may abandon a superstep.
//   - Return a map[string]interface{} result, merged into the vertex's
//     outgoing message under ResultPath.
//   - Be safe to retry: a vertex whose Compute errors is retried per the
//     vertex's VertexPolicy.RetryPolicy, which may call Call again with the
//     same input.
type Tool interface {
	// Name identifies the tool. NewToolVertex binds the Tool instance
	// directly and does not compare Name() with ToolConfig.ToolName.
	Name() string

	// Call executes the tool and returns its result, or an error that
	// Compute wraps as "tool vertex <id>: calling <name>: <err>".
	Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}
