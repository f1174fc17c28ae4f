// Package model defines the chat-model collaborator contract nodes built
// with graph.ChatNode delegate to. The core treats every model vendor as an
// external collaborator described only by this interface; no
// concrete vendor SDK lives in this module.
package model

import "context"

// ChatModel is the external collaborator a ChatNode delegates to. The
// runtime never parses the message format itself — it passes Message values
// through unchanged.
type ChatModel interface {
	// Chat sends messages to the model and returns its response. tools may
	// be nil when no tool is bound.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)

	// BindTools returns a new ChatModel with tools permanently attached,
	// leaving the receiver unmodified. graph.ChatNode calls this once at
	// construction rather than passing tools on every Chat call.
	BindTools(tools []ToolSpec) ChatModel

	// SetObservers installs the runtime's observer list so request/response/
	// error notifications raised inside Chat are forwarded under nodeName,
	// the currently executing node's name. Implementations with
	// no observability of their own may treat this as a no-op.
	SetObservers(observers []Observer, nodeName string)
}

// Observer is the narrow notification sink a ChatModel or Tool forwards its
// own request/response/error events through. It intentionally does not
// depend on the graph package's richer Observer/Event types — the root
// package adapts between the two in ChatNode/ToolNode — so this package has
// no import of graph and stays usable standalone.
type Observer interface {
	Notify(ctx context.Context, node, kind string, info map[string]any)
}

// Message is a single turn in a conversation: a role (RoleSystem/RoleUser/
// RoleAssistant) and text content.
type Message struct {
	Role    string
	Content string
}

// Standard role constants for conversation messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool a model may call: a name, a description used by
// the model to decide when to call it, and a JSON-Schema-shaped parameter
// description.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

// ChatOut is a model's response to a Chat call: generated text, and/or a
// list of tool calls it wants the caller to execute.
type ChatOut struct {
	Text      string
	ToolCalls []ToolCall
}

// ToolCall is a single request from the model to invoke a named tool with
// the given input.
type ToolCall struct {
	Name  string
	Input map[string]interface{}
}
