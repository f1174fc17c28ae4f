package graph

import "context"

// START and FINISH are the synthetic identity nodes every graph carries
// implicitly. Edges from START mark entry points; edges to FINISH mark exit
// points. Both execute as identity functions on state.
const (
	START  = "__start__"
	FINISH = "__finish__"
)

// Callable is the union of the three arities a Node's function may take:
// arity 0 (no args), arity 1 (state only), and arity 2 (state + context).
// A Node dispatches to whichever of these was supplied at construction.
type (
	// CallableArity0 ignores both state and context.
	CallableArity0 func() any
	// CallableArity1 receives the current state.
	CallableArity1 func(state State) any
	// CallableArity2 receives the current state and the run's context.
	CallableArity2 func(ctx context.Context, state State) any
)

// Node is an immutable, named unit of user computation. It wraps exactly one
// of the three Callable arities and a class tag consumed only by observers
// (e.g. "chat", "tool", "user"). Node names are unique within a Graph.
type Node struct {
	Name  string
	Class string

	fn0 CallableArity0
	fn1 CallableArity1
	fn2 CallableArity2
}

// NewNode builds a Node named name, classified as class, wrapping fn. fn
// must be one of CallableArity0, CallableArity1, or CallableArity2 (or a
// plain func matching one of those signatures); any other type panics, since
// this is a programming error caught at graph construction, not at runtime.
func NewNode(name, class string, fn any) Node {
	n := Node{Name: name, Class: class}
	switch f := fn.(type) {
	case CallableArity0:
		n.fn0 = f
	case func() any:
		n.fn0 = f
	case CallableArity1:
		n.fn1 = f
	case func(State) any:
		n.fn1 = f
	case CallableArity2:
		n.fn2 = f
	case func(context.Context, State) any:
		n.fn2 = f
	default:
		panic("graph: NewNode: fn must be a CallableArity0, CallableArity1, or CallableArity2")
	}
	return n
}

// identityNode returns a Node of the given name whose callable returns the
// empty Delta unconditionally — the shape START and FINISH take.
func identityNode(name string) Node {
	return NewNode(name, "system", CallableArity1(func(State) any {
		return Delta{}
	}))
}

// Invoke dispatches to the node's callable according to its declared arity
// and returns the raw result, unnormalized. Callers normalize the result into
// a Result variant via normalizeResult.
func (n Node) Invoke(ctx context.Context, state State) any {
	switch {
	case n.fn2 != nil:
		return n.fn2(ctx, state)
	case n.fn1 != nil:
		return n.fn1(state)
	case n.fn0 != nil:
		return n.fn0()
	default:
		return Delta{}
	}
}
