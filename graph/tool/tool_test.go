package tool

import (
	"context"
	"errors"
	"testing"
)

// weatherTool is a minimal Tool used to pin the interface contract.
type weatherTool struct{}

func (weatherTool) Name() string { return "get_weather" }

func (weatherTool) Call(_ context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	location, ok := input["location"].(string)
	if !ok {
		return nil, errors.New("location parameter required")
	}
	return map[string]interface{}{"location": location, "conditions": "sunny"}, nil
}

func (weatherTool) ToSchema() Schema {
	return Schema{
		Name:        "get_weather",
		Description: "Look up current weather",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"location": map[string]interface{}{"type": "string"},
			},
			"required": []string{"location"},
		},
	}
}

func TestTool_InterfaceContract(t *testing.T) {
	var tool Tool = weatherTool{}

	if tool.Name() != "get_weather" {
		t.Fatalf("Name = %q", tool.Name())
	}

	out, err := tool.Call(context.Background(), map[string]interface{}{"location": "SF"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out["location"] != "SF" {
		t.Fatalf("out = %v, want location=SF", out)
	}

	if _, err := tool.Call(context.Background(), nil); err == nil {
		t.Fatalf("expected an error for missing required input")
	}
}

func TestTool_SchemaMatchesName(t *testing.T) {
	var tool Tool = weatherTool{}
	schema := tool.ToSchema()

	if schema.Name != tool.Name() {
		t.Fatalf("Schema.Name = %q, Name() = %q; they must agree", schema.Name, tool.Name())
	}
	params, ok := schema.Parameters["properties"].(map[string]interface{})
	if !ok {
		t.Fatalf("Parameters.properties missing: %v", schema.Parameters)
	}
	if _, ok := params["location"]; !ok {
		t.Fatalf("Parameters.properties.location missing: %v", params)
	}
}
