package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/supersteprun/graph/graph/model"
	"github.com/supersteprun/graph/graph/tool"
)

var errBoom = errors.New("boom")

func TestChatNode_AppendsAssistantMessageAndLastResponse(t *testing.T) {
	mock := &model.MockChatModel{Responses: []model.ChatOut{{Text: "hello there"}}}
	node := ChatNode("chat", mock, "be concise", nil, nil)

	state := NewState(map[string]any{
		"messages": []any{model.Message{Role: model.RoleUser, Content: "hi"}},
	}, map[string]Reducer{"messages": AppendSequence})

	raw := node.Invoke(context.Background(), state)
	delta, ok := raw.(Delta)
	if !ok {
		t.Fatalf("ChatNode returned %T, want Delta", raw)
	}

	merged := Merge(state, delta)
	messages, _ := merged.Get("messages")
	msgSlice := messages.([]any)
	if len(msgSlice) != 2 {
		t.Fatalf("messages after merge = %v, want 2 (original + assistant reply)", msgSlice)
	}
	last := msgSlice[1].(model.Message)
	if last.Role != model.RoleAssistant || last.Content != "hello there" {
		t.Fatalf("last message = %+v, want assistant/hello there", last)
	}

	if mock.CallCount() != 1 {
		t.Fatalf("CallCount = %d, want 1", mock.CallCount())
	}
	if len(mock.Calls[0].Messages) == 0 || mock.Calls[0].Messages[0].Role != model.RoleSystem {
		t.Fatalf("expected the system prompt to be prepended to the call, got %+v", mock.Calls[0].Messages)
	}
}

func TestChatNode_BindsToolsBeforeCalling(t *testing.T) {
	mock := &model.MockChatModel{Responses: []model.ChatOut{{Text: "ok"}}}
	tools := []model.ToolSpec{{Name: "search"}}
	node := ChatNode("chat", mock, "", tools, nil)

	state := NewState(map[string]any{"messages": []any{}}, nil)
	node.Invoke(context.Background(), state)

	// BindTools returns a fresh mock instance; the original is untouched.
	if mock.CallCount() != 0 {
		t.Fatalf("original mock CallCount = %d, want 0 (the bound copy should receive the call)", mock.CallCount())
	}
}

func TestChatNode_PanicsAsNodeErrorOnModelFailure(t *testing.T) {
	mock := &model.MockChatModel{Err: errBoom}
	node := ChatNode("chat", mock, "", nil, nil)

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatalf("expected ChatNode to panic on a model error")
		}
		nerr, ok := rec.(*NodeError)
		if !ok {
			t.Fatalf("panic value = %T, want *NodeError", rec)
		}
		if nerr.Node != "chat" {
			t.Fatalf("NodeError.Node = %q, want chat", nerr.Node)
		}
	}()
	node.Invoke(context.Background(), NewState(nil, nil))
}

func TestToolNode_DispatchesByName(t *testing.T) {
	search := &tool.MockTool{ToolName: "search", Responses: []map[string]interface{}{{"hits": 3}}}
	calc := &tool.MockTool{ToolName: "calc", Responses: []map[string]interface{}{{"sum": 7}}}
	node := ToolNode("tools", []tool.Tool{search, calc}, nil)

	state := NewState(map[string]any{
		"tool_call": map[string]any{"name": "calc", "arguments": map[string]interface{}{"a": 3, "b": 4}},
	}, nil)

	raw := node.Invoke(context.Background(), state)
	delta, ok := raw.(Delta)
	if !ok {
		t.Fatalf("ToolNode returned %T, want Delta", raw)
	}
	result, _ := delta["tool_result"].(map[string]interface{})
	if result["sum"] != 7 {
		t.Fatalf("tool_result = %v, want sum=7 from calc, not search", result)
	}
	if search.CallCount() != 0 || calc.CallCount() != 1 {
		t.Fatalf("search.CallCount=%d calc.CallCount=%d, want 0 and 1", search.CallCount(), calc.CallCount())
	}
}

func TestToolNode_UnknownToolPanicsAsNodeError(t *testing.T) {
	node := ToolNode("tools", []tool.Tool{&tool.MockTool{ToolName: "known"}}, nil)
	state := NewState(map[string]any{
		"tool_call": map[string]any{"name": "missing", "arguments": map[string]interface{}{}},
	}, nil)

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatalf("expected ToolNode to panic on an unknown tool name")
		}
		if _, ok := rec.(*NodeError); !ok {
			t.Fatalf("panic value = %T, want *NodeError", rec)
		}
	}()
	node.Invoke(context.Background(), state)
}

func TestToolNode_MissingToolCallKeyPanicsAsNodeError(t *testing.T) {
	node := ToolNode("tools", []tool.Tool{&tool.MockTool{ToolName: "known"}}, nil)

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatalf("expected ToolNode to panic when tool_call is missing")
		}
	}()
	node.Invoke(context.Background(), NewState(nil, nil))
}
