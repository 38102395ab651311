package vertex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fenwick-ai/pregel-go/pregel"
	"github.com/fenwick-ai/pregel-go/pregel/tool"
)

// ToolConfig configures a ToolVertex.
type ToolConfig struct {
	// ToolName names the tool in error messages and in the default
	// ResultPath; the tool itself is the instance passed to NewToolVertex.
	ToolName string

	// StaticArgs are merged verbatim into the call's input.
	StaticArgs map[string]interface{}

	// StateArgPaths maps an argument name to a dot-separated path
	// ("research.query") resolved against the JSON form of the current
	// WorkflowState snapshot. A resolved state arg overrides a StaticArgs
	// entry of the same name: the state is considered more current than
	// whatever was wired in at graph-construction time.
	StateArgPaths map[string]string

	// ResultPath names the output message key the tool's result is sent
	// under. Defaults to "{ToolName}_result" if empty.
	ResultPath string
}

// ToolVertex executes a single tool call and halts. Unlike AgentVertex it
// makes no model call — its arguments come from ToolConfig.StaticArgs
// merged with values resolved out of the shared WorkflowState.
//
// Grounded on the original Rust runtime's ToolVertex (tool.rs), which built
// arguments from static_args only and left state_arg_paths resolution as a
// TODO ("Skipping state arg (not yet implemented)"). This implementation
// resolves state_arg_paths against the state's JSON encoding.
type ToolVertex[S pregel.State[S, U], U any] struct {
	id     pregel.VertexId
	config ToolConfig
	tool   tool.Tool
}

// NewToolVertex builds a ToolVertex bound to a single tool.Tool instance.
func NewToolVertex[S pregel.State[S, U], U any](id pregel.VertexId, config ToolConfig, t tool.Tool) *ToolVertex[S, U] {
	return &ToolVertex[S, U]{id: id, config: config, tool: t}
}

// ID implements pregel.Vertex.
func (v *ToolVertex[S, U]) ID() pregel.VertexId { return v.id }

// Compute implements pregel.Vertex: build arguments, call the tool once,
// send its result to "output", and halt with a zero update.
func (v *ToolVertex[S, U]) Compute(ctx context.Context, cc *pregel.ComputeContext[S, U]) (pregel.ComputeResult[U], error) {
	var zero U

	args, err := v.buildArguments(cc.State())
	if err != nil {
		return pregel.ComputeResult[U]{}, fmt.Errorf("tool vertex %s: building arguments: %w", v.id, err)
	}

	out, err := v.tool.Call(ctx, args)
	if err != nil {
		return pregel.ComputeResult[U]{}, fmt.Errorf("tool vertex %s: calling %s: %w", v.id, v.config.ToolName, err)
	}

	resultPath := v.config.ResultPath
	if resultPath == "" {
		resultPath = v.config.ToolName + "_result"
	}
	cc.Send("output", map[string]interface{}{resultPath: out})

	return pregel.Halt(zero), nil
}

// buildArguments merges StaticArgs with values resolved via StateArgPaths,
// state-resolved values winning on key collision.
func (v *ToolVertex[S, U]) buildArguments(state S) (map[string]interface{}, error) {
	args := make(map[string]interface{}, len(v.config.StaticArgs)+len(v.config.StateArgPaths))
	for k, val := range v.config.StaticArgs {
		args[k] = val
	}

	if len(v.config.StateArgPaths) == 0 {
		return args, nil
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshaling state for path resolution: %w", err)
	}
	var tree interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("unmarshaling state for path resolution: %w", err)
	}

	for argName, path := range v.config.StateArgPaths {
		resolved, ok := resolvePath(tree, path)
		if ok {
			args[argName] = resolved
		}
	}
	return args, nil
}

// resolvePath walks a dot-separated path ("research.query") against a
// generic JSON tree produced by json.Unmarshal into interface{}.
func resolvePath(tree interface{}, path string) (interface{}, bool) {
	cur := tree
	for _, segment := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = obj[segment]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
