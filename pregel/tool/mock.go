package tool

import (
	"context"
	"sync"
)

// MockTool stands in for a real Tool in ToolVertex tests, without
// executing any actual side effect.
//
//	mock := &MockTool{
//	    ToolName: "fetch_price",
//	    Responses: []map[string]interface{}{{"price": 19.99}},
//	}
//	v := NewToolVertex[*OrderState, OrderDelta]("price-check", ToolConfig{ToolName: "fetch_price"}, mock)
type MockTool struct {
	// ToolName is the identifier returned by Name(); must match the
	// ToolConfig.ToolName a ToolVertex under test was built with.
	ToolName string

	// Responses is the sequence Call() returns, one per invocation. Once
	// exhausted, the last response repeats — useful for a vertex that
	// calls the same tool across several supersteps.
	Responses []map[string]interface{}

	// Err, if set, is returned by Call() instead of a response. Useful
	// for exercising a ToolVertex's retry path.
	Err error

	// Calls records every invocation, for asserting a vertex built the
	// arguments it was supposed to.
	Calls []MockToolCall

	mu        sync.Mutex
	callIndex int
}

// MockToolCall records a single invocation of Call().
type MockToolCall struct {
	Input map[string]interface{}
}

// Name implements Tool.
func (m *MockTool) Name() string {
	return m.ToolName
}

// Call implements Tool: records input, then returns Err if configured or
// the next queued response.
func (m *MockTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockToolCall{Input: input})

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return map[string]interface{}{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// Reset clears call history and rewinds the response index, for reuse
// across subtests.
func (m *MockTool) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = nil
	m.callIndex = 0
}

// CallCount returns how many times Call() has been invoked.
func (m *MockTool) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Calls)
}
