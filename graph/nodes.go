package graph

import (
	"context"
	"fmt"

	"github.com/supersteprun/graph/graph/model"
	"github.com/supersteprun/graph/graph/tool"
)

// modelObserverAdapter forwards a model.ChatModel's own llm_request/
// llm_response/llm_error notifications into the Runner's Observer list,
// keyed by the currently executing node's name so observers can attribute
// a collaborator's traffic to the node that triggered it.
type modelObserverAdapter struct {
	observers   []Observer
	diagnostics diagnosticSink
}

func (a modelObserverAdapter) Notify(ctx context.Context, node, kind string, info map[string]any) {
	notifyAll(ctx, a.observers, Event{Kind: EventKind(kind), Node: node, Step: -1, Info: info}, a.diagnostics)
}

// ChatNode wraps a model.ChatModel into a Node whose default callable sends
// the conversation found under the "messages" state key to the model and
// returns a Delta updating "messages" (append-sequence) and "last_response".
// systemPrompt, if non-empty, is prepended as a system message on every
// call.
func ChatNode(name string, client model.ChatModel, systemPrompt string, tools []model.ToolSpec, observers []Observer) Node {
	bound := client
	if len(tools) > 0 {
		bound = client.BindTools(tools)
	}
	bound.SetObservers(modelObserverList(observers), name)

	return NewNode(name, "chat", CallableArity2(func(ctx context.Context, state State) any {
		history, _ := state.Get("messages")
		messages := toModelMessages(history)
		if systemPrompt != "" {
			messages = append([]model.Message{{Role: model.RoleSystem, Content: systemPrompt}}, messages...)
		}

		out, err := bound.Chat(ctx, messages, nil)
		if err != nil {
			panic(&NodeError{Node: name, Cause: err})
		}

		return Delta{
			"messages":      []any{model.Message{Role: model.RoleAssistant, Content: out.Text}},
			"last_response": out,
		}
	}))
}

// modelObserverList adapts a Node's graph.Observer slice into the single
// model.Observer the ChatModel/Tool contracts expect.
func modelObserverList(observers []Observer) []model.Observer {
	if len(observers) == 0 {
		return nil
	}
	return []model.Observer{modelObserverAdapter{observers: observers}}
}

func toModelMessages(v any) []model.Message {
	switch vv := v.(type) {
	case []model.Message:
		return vv
	case []any:
		out := make([]model.Message, 0, len(vv))
		for _, item := range vv {
			if msg, ok := item.(model.Message); ok {
				out = append(out, msg)
			}
		}
		return out
	default:
		return nil
	}
}

// ToolNode wraps a set of tool.Tool implementations into a single Node.
// The node reads a "tool_call" delta key shaped like {name, arguments} from
// state, dispatches to the matching tool by name, and returns a Delta
// setting "tool_result". Unknown tool names produce a NodeError.
func ToolNode(name string, tools []tool.Tool, observers []Observer) Node {
	byName := make(map[string]tool.Tool, len(tools))
	for _, t := range tools {
		byName[t.Name()] = t
	}

	return NewNode(name, "tool", CallableArity2(func(ctx context.Context, state State) any {
		call, _ := state.Get("tool_call")
		callMap, ok := call.(map[string]any)
		if !ok {
			panic(&NodeError{Node: name, Cause: fmt.Errorf("tool_call state key missing or malformed")})
		}
		toolName, _ := callMap["name"].(string)
		args, _ := callMap["arguments"].(map[string]interface{})

		t, ok := byName[toolName]
		if !ok {
			panic(&NodeError{Node: name, Cause: fmt.Errorf("unknown tool %q", toolName)})
		}

		result, err := t.Call(ctx, args)
		if err != nil {
			panic(&NodeError{Node: name, Cause: err})
		}

		for _, obs := range modelObserverList(observers) {
			obs.Notify(ctx, name, "tool_response", map[string]any{"tool": toolName, "result": result})
		}

		return Delta{"tool_result": result}
	}))
}
