package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// GraphBuilder accumulates nodes and edges before Compile validates and
// freezes them into a Graph. The zero value is not usable; construct one
// with NewGraphBuilder.
type GraphBuilder struct {
	nodes map[string]Node
	order []string
	edges []Edge
	err   error
}

// NewGraphBuilder returns a builder pre-seeded with the synthetic START and
// FINISH identity nodes.
func NewGraphBuilder() *GraphBuilder {
	b := &GraphBuilder{nodes: make(map[string]Node)}
	b.nodes[START] = identityNode(START)
	b.nodes[FINISH] = identityNode(FINISH)
	b.order = append(b.order, START, FINISH)
	return b
}

// AddNode registers a node. fn must be one of the Callable arities (see
// node.go). Duplicate names are deferred faults surfaced at Compile.
func (b *GraphBuilder) AddNode(name, class string, fn any) *GraphBuilder {
	if b.err != nil {
		return b
	}
	if _, exists := b.nodes[name]; exists {
		b.err = &GraphError{Op: "AddNode(" + name + ")", Cause: ErrDuplicateNode}
		return b
	}
	if err := validateName(name); err != nil {
		b.err = &GraphError{Op: "AddNode(" + name + ")", Cause: err}
		return b
	}
	b.nodes[name] = NewNode(name, class, fn)
	b.order = append(b.order, name)
	return b
}

// AddEdge adds a Static edge from -> to.
func (b *GraphBuilder) AddEdge(from, to string) *GraphBuilder {
	b.edges = append(b.edges, NewStaticEdge(from, to))
	return b
}

// AddConditionalEdge adds a Conditional edge whose router decides the
// destination(s) at route time. labelMap may be nil.
func (b *GraphBuilder) AddConditionalEdge(from string, router any, labelMap map[string]string) *GraphBuilder {
	b.edges = append(b.edges, NewConditionalEdge(from, router, labelMap))
	return b
}

// AddFanOutEdge adds a FanOut edge taking every destination simultaneously.
func (b *GraphBuilder) AddFanOutEdge(from string, destinations []string) *GraphBuilder {
	b.edges = append(b.edges, NewFanOutEdge(from, destinations))
	return b
}

// SetEntryPoint is shorthand for AddEdge(START, name).
func (b *GraphBuilder) SetEntryPoint(name string) *GraphBuilder {
	return b.AddEdge(START, name)
}

// SetFinishPoint is shorthand for AddEdge(name, FINISH).
func (b *GraphBuilder) SetFinishPoint(name string) *GraphBuilder {
	return b.AddEdge(name, FINISH)
}

// Compile validates the accumulated nodes and edges and returns an
// immutable Graph. Validation enforces:
//   - START must have at least one outgoing edge (NoEntryPoint).
//   - Every static edge and fan-out destination must name a known node
//     (UnknownNode).
//   - Conditional edge targets are validated lazily, at route time.
//
// Non-fatal issues (nodes unreachable except from START, absence of a
// statically provable path to FINISH) are returned as warnings alongside
// the compiled Graph rather than as errors.
func (b *GraphBuilder) Compile() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}

	edgesByFrom := make(map[string][]Edge)
	hasEntry := false
	for _, e := range b.edges {
		edgesByFrom[e.From] = append(edgesByFrom[e.From], e)
		if e.From == START {
			hasEntry = true
		}
		if e.Kind == EdgeStatic {
			if _, ok := b.nodes[e.To]; !ok {
				return nil, &GraphError{Op: fmt.Sprintf("edge %s->%s", e.From, e.To), Cause: ErrUnknownNode}
			}
		}
		if e.Kind == EdgeFanOut {
			for _, d := range e.Destinations {
				if _, ok := b.nodes[d]; !ok {
					return nil, &GraphError{Op: fmt.Sprintf("fan-out edge %s->%s", e.From, d), Cause: ErrUnknownNode}
				}
			}
		}
	}
	if !hasEntry {
		return nil, &GraphError{Op: "Compile", Cause: ErrNoEntryPoint}
	}

	g := &Graph{
		nodes:       b.nodes,
		edgesByFrom: edgesByFrom,
		compiled:    true,
	}
	g.warnings = g.computeWarnings(b.order)
	return g, nil
}

// Graph is the compiled, immutable container produced by GraphBuilder.
// It validates once at Compile and is safe to share across concurrent
// Runners.
type Graph struct {
	nodes       map[string]Node
	edgesByFrom map[string][]Edge
	warnings    []string
	compiled    bool
}

// Warnings returns the non-fatal issues found at compile time.
func (g *Graph) Warnings() []string { return append([]string(nil), g.warnings...) }

func (g *Graph) computeWarnings(order []string) []string {
	var warnings []string

	incoming := make(map[string]int)
	for _, edges := range g.edgesByFrom {
		for _, e := range edges {
			for _, d := range staticDestinations(e) {
				incoming[d]++
			}
		}
	}
	for _, name := range order {
		if name == START || name == FINISH {
			continue
		}
		if incoming[name] == 0 {
			warnings = append(warnings, fmt.Sprintf("node %q has no incoming edge other than START", name))
		}
	}

	if !g.reachesFinish() {
		warnings = append(warnings, "no statically provable path from START to FINISH")
	}
	return warnings
}

// staticDestinations returns the destinations an edge is known to reach
// without invoking a router: all of them for Static/FanOut, and the
// LabelMap's declared values for Conditional (the router's live output
// can't be known statically, but labeled targets usually can).
func staticDestinations(e Edge) []string {
	switch e.Kind {
	case EdgeStatic:
		return []string{e.To}
	case EdgeFanOut:
		return append([]string(nil), e.Destinations...)
	case EdgeConditional:
		out := make([]string, 0, len(e.LabelMap))
		for _, v := range e.LabelMap {
			out = append(out, v)
		}
		return out
	default:
		return nil
	}
}

func (g *Graph) reachesFinish() bool {
	visited := map[string]bool{START: true}
	queue := []string{START}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == FINISH {
			return true
		}
		for _, e := range g.edgesByFrom[n] {
			for _, d := range staticDestinations(e) {
				if !visited[d] {
					visited[d] = true
					queue = append(queue, d)
				}
			}
		}
	}
	return visited[FINISH]
}

// FinalResult is what Invoke/Stream/Resume return once a run terminates.
type FinalResult struct {
	State    State
	Step     int
	ThreadID string
}

// StepSummary is yielded once per super-step by Stream.
type StepSummary struct {
	Step        int
	State       State
	ActiveNodes []string
	Completed   bool
}

// Invoke runs the graph to completion from initial and blocks until
// termination. If threadID is empty, a random one is generated with
// google/uuid.
func (g *Graph) Invoke(ctx context.Context, initial State, threadID string, opts ...Option) (FinalResult, error) {
	return g.run(ctx, initial, threadID, nil, opts...)
}

// Stream runs the graph like Invoke but additionally calls onStep once per
// super-step with a summary of that step.
func (g *Graph) Stream(ctx context.Context, initial State, threadID string, onStep func(StepSummary), opts ...Option) (FinalResult, error) {
	return g.run(ctx, initial, threadID, onStep, opts...)
}

// Resume loads the latest checkpoint for threadID and continues execution
// from its persisted Frontier — the pending work items the prior run paused
// on — rather than restarting from START, so already-completed upstream
// nodes are not re-executed and their deltas are not merged a second time.
// extraDelta is merged into each pending frontier item's own state (or, if
// the checkpoint's Frontier is empty because the run already reached
// FINISH, into the terminal state, which is then returned without running
// any node). The Store must be supplied via WithStore and be the one the
// prior run saved to: without WithStore, Resume gets a fresh, empty
// in-memory store and fails with ErrUnknownThread.
func (g *Graph) Resume(ctx context.Context, threadID string, extraDelta Delta, onStep func(StepSummary), opts ...Option) (FinalResult, error) {
	if !g.compiled {
		return FinalResult{}, &GraphError{Op: "Resume", Cause: ErrNotCompiled}
	}
	if threadID == "" {
		return FinalResult{}, &GraphError{Op: "Resume", Cause: ErrUnknownThread}
	}

	cfg := newRunnerConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return FinalResult{}, err
		}
	}

	cp, ok, err := cfg.store.Load(ctx, threadID, 0, false)
	if err != nil {
		return FinalResult{}, err
	}
	if !ok {
		return FinalResult{}, &GraphError{Op: "Resume", Cause: ErrUnknownThread}
	}

	r := newRunner(g, cfg, threadID)
	mergedBase := Merge(cp.State, extraDelta)

	if len(cp.Frontier) == 0 {
		return r.resumeFrom(ctx, nil, mergedBase, cp.Step, onStep)
	}

	frontier := make([]FrontierItem, len(cp.Frontier))
	for i, item := range cp.Frontier {
		frontier[i] = FrontierItem{NodeName: item.NodeName, State: Merge(item.State, extraDelta)}
	}
	return r.resumeFrom(ctx, frontier, mergedBase, cp.Step, onStep)
}

func (g *Graph) run(ctx context.Context, initial State, threadID string, onStep func(StepSummary), opts ...Option) (FinalResult, error) {
	if !g.compiled {
		return FinalResult{}, &GraphError{Op: "Invoke", Cause: ErrNotCompiled}
	}

	cfg := newRunnerConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return FinalResult{}, err
		}
	}

	if threadID == "" {
		threadID = uuid.NewString()
	} else if err := validateName(threadID); err != nil {
		return FinalResult{}, &GraphError{Op: "Invoke", Cause: err}
	}

	r := newRunner(g, cfg, threadID)
	return r.runFrom(ctx, initial, 0, onStep)
}

// sortedNodeNames is a small helper used by diagram.go and tests that want
// deterministic iteration order over a Graph's node set.
func (g *Graph) sortedNodeNames() []string {
	names := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
