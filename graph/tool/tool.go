// Package tool defines the executable-tool collaborator contract nodes
// built with graph.ToolNode delegate to. A Tool is anything an agent
// workflow can invoke by name with structured input: a web search, a
// database query, an API call, a calculation.
package tool

import "context"

// Tool is one named, invocable capability. Implementations should validate
// their input, respect context cancellation, and return structured output;
// idempotency is encouraged where the operation allows it.
type Tool interface {
	// Name returns the unique identifier for this tool. It must match the
	// name advertised in the tool's Schema, lowercase with underscores
	// ("search_web", "get_weather").
	Name() string

	// Call executes the tool. input carries the parameters described by the
	// tool's Schema and may be nil for parameterless tools.
	Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)

	// ToSchema returns provider-agnostic metadata describing this tool: its
	// name, a human-readable description, and a JSON-Schema-like parameter
	// object. Callers use this to advertise the tool to a chat model without
	// depending on any single vendor's function-calling wire format.
	ToSchema() Schema
}

// Schema is the provider-agnostic description of a Tool's calling contract.
type Schema struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}
