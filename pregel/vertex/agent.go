// Package vertex provides concrete Vertex implementations for common
// workflow shapes: LLM agents, single tool calls, pure routing, and nested
// sub-workflows.
package vertex

import (
	"context"
	"fmt"
	"strings"

	"github.com/fenwick-ai/pregel-go/pregel"
	"github.com/fenwick-ai/pregel-go/pregel/model"
	"github.com/fenwick-ai/pregel-go/pregel/tool"
)

// StopConditionKind enumerates the ways an AgentVertex can decide to halt
// its tool-calling loop.
type StopConditionKind int

const (
	// StopNoToolCalls halts as soon as the model responds without requesting
	// any tool calls.
	StopNoToolCalls StopConditionKind = iota
	// StopOnTool halts once the model requests a call to ToolName.
	StopOnTool
	// StopContainsText halts once the model's text response contains Pattern.
	StopContainsText
	// StopMaxIterations halts once the loop has run Count iterations.
	StopMaxIterations
	// StopStateMatch is reserved for a future extension that halts when the
	// shared WorkflowState matches a predicate. Always evaluates false today;
	// mirrors the original Rust runtime's `TODO: Implement state matching`.
	StopStateMatch
)

// StopCondition is one entry in an AgentVertex's stop-condition list. Only
// the fields relevant to Kind are read.
type StopCondition struct {
	Kind     StopConditionKind
	ToolName string
	Pattern  string
	Count    int
}

// AgentConfig configures an AgentVertex.
type AgentConfig struct {
	// SystemPrompt is prepended as the first message in every call to Model.
	SystemPrompt string

	// StopConditions are evaluated in order after each model response; the
	// loop halts on the first one that matches.
	StopConditions []StopCondition

	// MaxIterations bounds the tool-calling loop regardless of
	// StopConditions. A loop that reaches MaxIterations without otherwise
	// stopping returns an error.
	MaxIterations int

	// AllowedTools restricts which entries of Tools the model may be offered.
	// Nil means offer every tool in Tools.
	AllowedTools []string
}

// AgentVertex is an LLM-backed vertex that iterates a chat model, executing
// any requested tool calls through Tools, until a StopCondition fires or
// MaxIterations is exhausted.
//
// Grounded on the original Rust runtime's AgentVertex (agent.rs): it built
// the same system-prompt + incoming-messages history, ran the same
// check_stop_conditions set, but only stubbed tool execution. This
// implementation actually dispatches tool calls against Tools rather than
// mocking the result.
type AgentVertex[S pregel.State[S, U], U any] struct {
	id     pregel.VertexId
	config AgentConfig
	model  model.ChatModel
	tools  map[string]tool.Tool
}

// NewAgentVertex builds an AgentVertex. tools may be nil or empty for an
// agent that never calls tools (it will then always stop on
// StopNoToolCalls, or run until MaxIterations otherwise).
func NewAgentVertex[S pregel.State[S, U], U any](id pregel.VertexId, config AgentConfig, chatModel model.ChatModel, tools map[string]tool.Tool) *AgentVertex[S, U] {
	return &AgentVertex[S, U]{id: id, config: config, model: chatModel, tools: tools}
}

// ID implements pregel.Vertex.
func (a *AgentVertex[S, U]) ID() pregel.VertexId { return a.id }

// Compute implements pregel.Vertex. It halts with a zero U update; an
// AgentVertex communicates its result through the outbox ("output" message),
// not through shared-state merge.
func (a *AgentVertex[S, U]) Compute(ctx context.Context, cc *pregel.ComputeContext[S, U]) (pregel.ComputeResult[U], error) {
	var zero U

	messages := []model.Message{{Role: model.RoleSystem, Content: a.config.SystemPrompt}}
	for _, m := range cc.Messages() {
		if m.Kind != pregel.MessageData {
			continue
		}
		var v string
		if err := m.Unmarshal(&v); err != nil {
			v = string(m.Value)
		}
		messages = append(messages, model.Message{Role: model.RoleUser, Content: v})
	}
	if len(messages) == 1 {
		messages = append(messages, model.Message{Role: model.RoleUser, Content: "Begin processing."})
	}

	specs := a.toolSpecs()

	maxIter := a.config.MaxIterations
	if maxIter <= 0 {
		maxIter = 1
	}
	for iteration := 0; iteration < maxIter; iteration++ {
		out, err := a.model.Chat(ctx, messages, specs)
		if err != nil {
			return pregel.ComputeResult[U]{}, fmt.Errorf("agent vertex %s: chat: %w", a.id, err)
		}
		messages = append(messages, model.Message{Role: model.RoleAssistant, Content: out.Text})

		if a.stopMatches(out, iteration) {
			cc.Send("output", out.Text)
			return pregel.Halt(zero), nil
		}

		if len(out.ToolCalls) == 0 {
			cc.Send("output", out.Text)
			return pregel.Halt(zero), nil
		}

		for _, call := range out.ToolCalls {
			result := a.callTool(ctx, call)
			messages = append(messages, model.Message{Role: model.RoleUser, Content: result})
		}
	}

	return pregel.ComputeResult[U]{}, fmt.Errorf("agent vertex %s: max iterations (%d) reached without a stop condition", a.id, maxIter)
}

func (a *AgentVertex[S, U]) toolSpecs() []model.ToolSpec {
	if len(a.tools) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(a.config.AllowedTools))
	for _, name := range a.config.AllowedTools {
		allowed[name] = struct{}{}
	}
	var specs []model.ToolSpec
	for name := range a.tools {
		if a.config.AllowedTools != nil {
			if _, ok := allowed[name]; !ok {
				continue
			}
		}
		specs = append(specs, model.ToolSpec{Name: name})
	}
	return specs
}

func (a *AgentVertex[S, U]) callTool(ctx context.Context, call model.ToolCall) string {
	t, ok := a.tools[call.Name]
	if !ok {
		return fmt.Sprintf("error: unknown tool %q", call.Name)
	}
	out, err := t.Call(ctx, call.Input)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return fmt.Sprintf("%v", out)
}

func (a *AgentVertex[S, U]) stopMatches(out model.ChatOut, iteration int) bool {
	for _, cond := range a.config.StopConditions {
		switch cond.Kind {
		case StopNoToolCalls:
			if len(out.ToolCalls) == 0 {
				return true
			}
		case StopOnTool:
			for _, call := range out.ToolCalls {
				if call.Name == cond.ToolName {
					return true
				}
			}
		case StopContainsText:
			if cond.Pattern != "" && strings.Contains(out.Text, cond.Pattern) {
				return true
			}
		case StopMaxIterations:
			if iteration >= cond.Count {
				return true
			}
		case StopStateMatch:
			continue
		}
	}
	return false
}
