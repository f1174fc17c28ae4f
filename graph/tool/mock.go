package tool

import (
	"context"
	"sync"
)

// MockTool is a configurable Tool for tests: a fixed name, a sequence of
// canned responses (the last one repeats once exhausted), optional error
// injection, and a recorded call history. Safe for concurrent use.
type MockTool struct {
	// ToolName is the identifier returned by Name().
	ToolName string

	// Responses is the sequence of outputs Call returns, in order. Once
	// consumed, the last response repeats.
	Responses []map[string]interface{}

	// Err, if set, is returned by Call instead of a response.
	Err error

	// Calls records every Call invocation, success or failure, except one
	// made with an already-cancelled context, which returns ctx.Err()
	// without being recorded.
	Calls []MockToolCall

	// SchemaOut, if set, is returned verbatim by ToSchema. Otherwise
	// ToSchema derives a minimal schema from ToolName.
	SchemaOut *Schema

	mu        sync.Mutex
	callIndex int
}

// MockToolCall records a single invocation of Call.
type MockToolCall struct {
	Input map[string]interface{}
}

// Name implements Tool.
func (m *MockTool) Name() string {
	return m.ToolName
}

// Call implements Tool: it records the call, then returns the configured
// error or the next canned response.
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

// ToSchema implements Tool.
func (m *MockTool) ToSchema() Schema {
	if m.SchemaOut != nil {
		return *m.SchemaOut
	}
	return Schema{Name: m.ToolName}
}

// Reset clears the call history and response cursor so the mock can be
// reused across test cases.
func (m *MockTool) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}

// CallCount returns how many times Call has been invoked.
func (m *MockTool) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
