package model

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMockChatModel_ResponseSequenceRepeatsLast(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{Text: "first"}, {Text: "second"}}}
	ctx := context.Background()

	for _, want := range []string{"first", "second", "second", "second"} {
		out, err := mock.Chat(ctx, []Message{{Role: RoleUser, Content: "hi"}}, nil)
		if err != nil {
			t.Fatalf("Chat: %v", err)
		}
		if out.Text != want {
			t.Fatalf("Text = %q, want %q", out.Text, want)
		}
	}
	if mock.CallCount() != 4 {
		t.Fatalf("CallCount = %d, want 4", mock.CallCount())
	}
}

func TestMockChatModel_NoResponsesReturnsZeroValue(t *testing.T) {
	mock := &MockChatModel{}
	out, err := mock.Chat(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out.Text != "" || out.ToolCalls != nil {
		t.Fatalf("out = %+v, want zero ChatOut", out)
	}
}

func TestMockChatModel_ErrorInjectionStillRecordsCall(t *testing.T) {
	wantErr := errors.New("API error")
	mock := &MockChatModel{Err: wantErr}

	_, err := mock.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("CallCount = %d, want 1 (failed calls are recorded too)", mock.CallCount())
	}
}

func TestMockChatModel_CallHistoryAndReset(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{Text: "ok"}}}
	tools := []ToolSpec{{Name: "search"}}

	_, _ = mock.Chat(context.Background(), []Message{{Role: RoleUser, Content: "question"}}, tools)

	if len(mock.Calls) != 1 {
		t.Fatalf("Calls len = %d, want 1", len(mock.Calls))
	}
	if mock.Calls[0].Messages[0].Content != "question" {
		t.Fatalf("recorded message = %+v", mock.Calls[0].Messages)
	}
	if len(mock.Calls[0].Tools) != 1 || mock.Calls[0].Tools[0].Name != "search" {
		t.Fatalf("recorded tools = %+v", mock.Calls[0].Tools)
	}

	mock.Reset()
	if mock.CallCount() != 0 {
		t.Fatalf("CallCount after Reset = %d, want 0", mock.CallCount())
	}
	// The response cursor resets too.
	out, _ := mock.Chat(context.Background(), nil, nil)
	if out.Text != "ok" {
		t.Fatalf("Text after Reset = %q, want ok", out.Text)
	}
}

func TestMockChatModel_BindToolsReturnsFreshClient(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{Text: "ok"}}}
	bound := mock.BindTools([]ToolSpec{{Name: "search"}})

	if _, err := bound.Chat(context.Background(), nil, nil); err != nil {
		t.Fatalf("Chat on bound client: %v", err)
	}
	if mock.CallCount() != 0 {
		t.Fatalf("original CallCount = %d, want 0 (bound copy has its own history)", mock.CallCount())
	}

	boundMock, ok := bound.(*MockChatModel)
	if !ok {
		t.Fatalf("BindTools returned %T", bound)
	}
	if got := boundMock.BoundTools(); len(got) != 1 || got[0].Name != "search" {
		t.Fatalf("BoundTools = %+v, want the bound search tool", got)
	}
}

type capturingObserver struct {
	mu    sync.Mutex
	kinds []string
	node  string
}

func (c *capturingObserver) Notify(_ context.Context, node, kind string, _ map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kinds = append(c.kinds, kind)
	c.node = node
}

func TestMockChatModel_ForwardsObserverNotifications(t *testing.T) {
	obs := &capturingObserver{}
	mock := &MockChatModel{Responses: []ChatOut{{Text: "ok"}}}
	mock.SetObservers([]Observer{obs}, "chat_node")

	if _, err := mock.Chat(context.Background(), nil, nil); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(obs.kinds) != 2 || obs.kinds[0] != "llm_request" || obs.kinds[1] != "llm_response" {
		t.Fatalf("observer kinds = %v, want [llm_request llm_response]", obs.kinds)
	}
	if obs.node != "chat_node" {
		t.Fatalf("observer node = %q, want chat_node", obs.node)
	}

	failing := &MockChatModel{Err: errors.New("boom")}
	obs2 := &capturingObserver{}
	failing.SetObservers([]Observer{obs2}, "chat_node")
	_, _ = failing.Chat(context.Background(), nil, nil)
	if len(obs2.kinds) != 2 || obs2.kinds[1] != "llm_error" {
		t.Fatalf("observer kinds on error = %v, want [llm_request llm_error]", obs2.kinds)
	}
}

func TestMockChatModel_ConcurrentCalls(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{Text: "ok"}}}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = mock.Chat(ctx, []Message{{Role: RoleUser, Content: "hi"}}, nil)
		}()
	}
	wg.Wait()

	if mock.CallCount() != 20 {
		t.Fatalf("CallCount = %d, want 20", mock.CallCount())
	}
}
