package graph

import "context"

// EdgeKind distinguishes the three edge variants.
type EdgeKind int

const (
	// EdgeStatic always routes to a single, fixed destination.
	EdgeStatic EdgeKind = iota
	// EdgeConditional routes to one or more destinations chosen by a router
	// callable evaluated against the current state.
	EdgeConditional
	// EdgeFanOut routes to a fixed list of destinations, all taken at once.
	EdgeFanOut
)

// RouterArity mirrors Node's arity-dispatch for conditional edge routers: a
// router may ignore its arguments, take state only, or take state and
// context.
type (
	RouterArity0 func() any
	RouterArity1 func(state State) any
	RouterArity2 func(ctx context.Context, state State) any
)

// Edge connects a source node to one or more destinations. Exactly the
// fields relevant to Kind are populated; the rest are zero.
type Edge struct {
	From string
	Kind EdgeKind

	// To is used when Kind == EdgeStatic.
	To string

	// Router, LabelMap are used when Kind == EdgeConditional.
	Router   any
	LabelMap map[string]string

	// Destinations is used when Kind == EdgeFanOut.
	Destinations []string
}

// NewStaticEdge builds a Static edge from `from` to `to`.
func NewStaticEdge(from, to string) Edge {
	return Edge{From: from, Kind: EdgeStatic, To: to}
}

// NewConditionalEdge builds a Conditional edge whose router decides the
// destination(s) at route time; labelMap (optional, may be nil) remaps
// router output tokens to node names.
func NewConditionalEdge(from string, router any, labelMap map[string]string) Edge {
	return Edge{From: from, Kind: EdgeConditional, Router: router, LabelMap: labelMap}
}

// NewFanOutEdge builds a FanOut edge taking all of destinations simultaneously.
func NewFanOutEdge(from string, destinations []string) Edge {
	return Edge{From: from, Kind: EdgeFanOut, Destinations: destinations}
}

// route evaluates a single edge against state and returns the ordered
// sequence of destination node names it produces. It is pure: a Conditional
// edge's router may observe state but the contract assumes it does not
// mutate it; violations are undefined behavior, not detected here.
func route(ctx context.Context, edge Edge, state State) []string {
	switch edge.Kind {
	case EdgeStatic:
		return []string{edge.To}
	case EdgeFanOut:
		out := make([]string, len(edge.Destinations))
		copy(out, edge.Destinations)
		return out
	case EdgeConditional:
		tokens := coerceToTokens(invokeRouter(ctx, edge.Router, state))
		out := make([]string, len(tokens))
		for i, tok := range tokens {
			if edge.LabelMap != nil {
				if mapped, ok := edge.LabelMap[tok]; ok {
					out[i] = mapped
					continue
				}
			}
			out[i] = tok
		}
		return out
	default:
		return nil
	}
}

// invokeRouter dispatches a conditional edge's router by arity, the same way
// Node.Invoke dispatches node callables.
func invokeRouter(ctx context.Context, router any, state State) any {
	switch r := router.(type) {
	case RouterArity2:
		return r(ctx, state)
	case func(context.Context, State) any:
		return r(ctx, state)
	case RouterArity1:
		return r(state)
	case func(State) any:
		return r(state)
	case RouterArity0:
		return r()
	case func() any:
		return r()
	default:
		return nil
	}
}

// coerceToTokens normalizes a router's return value (scalar, sequence, or
// map whose keys are used) into an ordered sequence of destination tokens.
// Map keys come out in Go's unspecified map iteration order.
func coerceToTokens(v any) []string {
	switch vv := v.(type) {
	case nil:
		return nil
	case string:
		return []string{vv}
	case []string:
		out := make([]string, len(vv))
		copy(out, vv)
		return out
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case map[string]any:
		out := make([]string, 0, len(vv))
		for k := range vv {
			out = append(out, k)
		}
		return out
	case bool:
		if vv {
			return []string{"true"}
		}
		return []string{"false"}
	default:
		return nil
	}
}
