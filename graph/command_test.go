package graph

import (
	"reflect"
	"testing"
)

func TestNormalizeResult(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want Result
	}{
		{"delta passthrough", Delta{"a": 1}, Delta{"a": 1}},
		{"bare map becomes delta", map[string]any{"a": 1}, Delta{"a": 1}},
		{"command passthrough", Command{Goto: "x"}, Command{Goto: "x"}},
		{"send passthrough", Send{To: "x"}, Send{To: "x"}},
		{"nil becomes empty delta", nil, Delta{}},
		{"unrecognized becomes empty delta", 42, Delta{}},
		{"string becomes empty delta", "oops", Delta{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := normalizeResult(c.in)
			if !reflect.DeepEqual(got, c.want) {
				t.Fatalf("normalizeResult(%v) = %#v, want %#v", c.in, got, c.want)
			}
		})
	}
}

func TestMultiSend_PreservesOrder(t *testing.T) {
	ms := MultiSend{
		{To: "process_item", Payload: Delta{"item": 1}},
		{To: "process_item", Payload: Delta{"item": 2}},
		{To: "process_item", Payload: Delta{"item": 3}},
	}
	if len(ms) != 3 {
		t.Fatalf("len(ms) = %d, want 3", len(ms))
	}
	for i, s := range ms {
		if s.Payload["item"] != i+1 {
			t.Errorf("ms[%d].Payload[item] = %v, want %d", i, s.Payload["item"], i+1)
		}
	}
}
