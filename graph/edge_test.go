package graph

import (
	"context"
	"reflect"
	"testing"
)

func TestRoute_Static(t *testing.T) {
	e := NewStaticEdge("a", "b")
	got := route(context.Background(), e, NewState(nil, nil))
	want := []string{"b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("route = %v, want %v", got, want)
	}
}

func TestRoute_FanOut(t *testing.T) {
	e := NewFanOutEdge("a", []string{"b", "c", "d"})
	got := route(context.Background(), e, NewState(nil, nil))
	want := []string{"b", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("route = %v, want %v", got, want)
	}
}

func TestRoute_ConditionalWithLabelMap(t *testing.T) {
	router := RouterArity1(func(s State) any {
		v, _ := s.Get("is_positive")
		return v
	})
	e := NewConditionalEdge("check", router, map[string]string{"true": "positive", "false": "other"})

	got := route(context.Background(), e, NewState(map[string]any{"is_positive": true}, nil))
	if !reflect.DeepEqual(got, []string{"positive"}) {
		t.Fatalf("route(true) = %v, want [positive]", got)
	}

	got = route(context.Background(), e, NewState(map[string]any{"is_positive": false}, nil))
	if !reflect.DeepEqual(got, []string{"other"}) {
		t.Fatalf("route(false) = %v, want [other]", got)
	}
}

func TestRoute_ConditionalIsPureAcrossCalls(t *testing.T) {
	router := RouterArity1(func(s State) any {
		v, _ := s.Get("key")
		return v
	})
	e := NewConditionalEdge("n", router, nil)
	state := NewState(map[string]any{"key": "x"}, nil)

	first := route(context.Background(), e, state)
	second := route(context.Background(), e, state)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("router not pure: %v != %v", first, second)
	}
}

func TestCoerceToTokens(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want []string
	}{
		{"nil", nil, nil},
		{"string", "x", []string{"x"}},
		{"bool true", true, []string{"true"}},
		{"bool false", false, []string{"false"}},
		{"slice of any", []any{"a", "b"}, []string{"a", "b"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := coerceToTokens(c.in)
			if !reflect.DeepEqual(got, c.want) {
				t.Errorf("coerceToTokens(%v) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}
