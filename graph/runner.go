package graph

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// runner is the BSP scheduler. It owns the compiled Graph, the
// configured Store, the thread id, the current step counter, and the
// observer/interrupt-handler configuration carried in runnerConfig.
type runner struct {
	graph    *Graph
	cfg      *runnerConfig
	threadID string
}

func newRunner(g *Graph, cfg *runnerConfig, threadID string) *runner {
	return &runner{graph: g, cfg: cfg, threadID: threadID}
}

// nodeOutcome is the result of one execute_node call, kept alongside the
// frame that produced it so result-processing can attribute next frames and
// faults correctly.
type nodeOutcome struct {
	frame    ExecutionFrame
	result   Result
	raw      any
	err      error
	duration time.Duration
}

// runFrom executes the super-step loop starting from a single frame at
// START, for the caller's initial invocation (Graph.Invoke/Stream;
// startStep is conventionally 0).
func (r *runner) runFrom(ctx context.Context, initial State, startStep int, onStep func(StepSummary)) (FinalResult, error) {
	active := []ExecutionFrame{{NodeName: START, State: initial, Step: startStep}}
	return r.run(ctx, active, startStep, initial, onStep)
}

// resumeFrom continues execution from a checkpoint's persisted Frontier
// (Graph.Resume), dispatching exactly the frames that were pending when the
// run paused instead of restarting at START. An empty frontier means the
// prior run already reached a terminal state; there is nothing to resume,
// so this returns lastState immediately without dispatching anything.
func (r *runner) resumeFrom(ctx context.Context, frontier []FrontierItem, lastState State, startStep int, onStep func(StepSummary)) (FinalResult, error) {
	if len(frontier) == 0 {
		r.notify(ctx, Event{Kind: EventGraphStart, ThreadID: r.threadID, InitialState: lastState, Step: startStep})
		r.end(ctx, lastState, startStep)
		return FinalResult{State: lastState, Step: startStep, ThreadID: r.threadID}, nil
	}

	active := make([]ExecutionFrame, len(frontier))
	for i, item := range frontier {
		active[i] = ExecutionFrame{NodeName: item.NodeName, State: item.State, Step: startStep}
	}
	return r.run(ctx, active, startStep, lastState, onStep)
}

// run is the BSP super-step loop shared by runFrom and resumeFrom:
// it dispatches active, processes results, checkpoints, notifies, and
// repeats until a final state is reached or no frames remain.
func (r *runner) run(ctx context.Context, active []ExecutionFrame, startStep int, last State, onStep func(StepSummary)) (FinalResult, error) {
	r.notify(ctx, Event{Kind: EventGraphStart, ThreadID: r.threadID, InitialState: last, Step: startStep})

	step := startStep

	for len(active) > 0 {
		if r.cfg.maxSteps > 0 && step >= r.cfg.maxSteps {
			err := &GraphError{Op: "runFrom", Cause: ErrNoProgress}
			r.end(ctx, last, step)
			return FinalResult{}, err
		}

		stepStart := time.Now()
		outcomes, err := r.dispatch(ctx, active, step)
		if err != nil {
			r.end(ctx, last, step)
			return FinalResult{}, err
		}

		step++

		for _, o := range outcomes {
			if o.err != nil {
				nerr := &NodeError{Node: o.frame.NodeName, Cause: o.err}
				r.notify(ctx, Event{Kind: EventNodeError, ThreadID: r.threadID, Node: o.frame.NodeName, StateBefore: o.frame.State, Err: nerr, Step: step})
				r.end(ctx, last, step)
				return FinalResult{}, nerr
			}
		}

		next, finalState, discarded, pausedFrame := r.processResults(ctx, outcomes, step)

		var frontier []FrontierItem
		switch {
		case pausedFrame != nil:
			// An unhandled Interrupt paused the run at pausedFrame rather
			// than completing it; persist that single frame so a later
			// Resume (with a handler now supplied) re-runs exactly that
			// node instead of restarting from START.
			frontier = []FrontierItem{{NodeName: pausedFrame.NodeName, State: pausedFrame.State}}
		case finalState == nil:
			frontier = framesToFrontier(next)
		}

		repState := representativeState(finalState, next, last)
		cp := Checkpoint{
			ThreadID:  r.threadID,
			Step:      step,
			State:     repState,
			Frontier:  frontier,
			Timestamp: time.Now(),
			Metadata:  map[string]any{"graph_class": "graph.Graph"},
		}
		if err := r.cfg.store.Save(ctx, cp); err != nil {
			r.end(ctx, last, step)
			return FinalResult{}, err
		}
		r.notify(ctx, Event{Kind: EventCheckpointSaved, ThreadID: r.threadID, Step: step, StateAfter: repState})

		activeNodes := make([]string, len(next))
		for i, f := range next {
			activeNodes[i] = f.NodeName
		}
		if len(discarded) > 0 {
			activeNodes = append(activeNodes, discarded...)
		}
		r.notify(ctx, Event{Kind: EventStepComplete, ThreadID: r.threadID, Step: step, ActiveNodes: activeNodes, StateAfter: repState, Duration: time.Since(stepStart)})

		if onStep != nil {
			onStep(StepSummary{
				Step:        step,
				State:       repState,
				ActiveNodes: activeNodes,
				Completed:   finalState != nil,
			})
		}

		last = repState
		if finalState != nil {
			r.end(ctx, *finalState, step)
			return FinalResult{State: *finalState, Step: step, ThreadID: r.threadID}, nil
		}
		active = next
	}

	r.end(ctx, last, step)
	return FinalResult{State: last, Step: step, ThreadID: r.threadID}, nil
}

// end emits the terminal graph_end followed by shutdown — the final pair of
// notifications any run produces, on every exit path. Shutdown gives
// buffering and tracing sinks a point to flush at.
func (r *runner) end(ctx context.Context, final State, step int) {
	r.notify(ctx, Event{Kind: EventGraphEnd, ThreadID: r.threadID, FinalState: final, Step: step})
	r.notify(ctx, Event{Kind: EventShutdown, ThreadID: r.threadID, Step: step})
}

// dispatch executes every frame of the current super-step concurrently and
// waits for all of them — the BSP barrier. Results preserve
// submission order regardless of completion order.
func (r *runner) dispatch(ctx context.Context, active []ExecutionFrame, nextStep int) ([]nodeOutcome, error) {
	outcomes := make([]nodeOutcome, len(active))

	group, gctx := errgroup.WithContext(ctx)
	for i, frame := range active {
		i, frame := i, frame
		group.Go(func() error {
			outcomes[i] = r.executeNode(gctx, frame, nextStep)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// executeNode wraps a single node invocation with the node_start/node_end
// observer events, monotonic timing, and panic-to-NodeError fault capture.
func (r *runner) executeNode(ctx context.Context, frame ExecutionFrame, nextStep int) (outcome nodeOutcome) {
	outcome.frame = frame

	node, ok := r.graph.nodes[frame.NodeName]
	if !ok {
		outcome.err = fmt.Errorf("%w: %q", ErrUnknownNode, frame.NodeName)
		return outcome
	}

	r.notify(ctx, Event{Kind: EventNodeStart, ThreadID: r.threadID, Node: frame.NodeName, StateBefore: frame.State, Step: nextStep})

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			switch cause := rec.(type) {
			case *NodeError:
				outcome.err = cause.Cause
			case error:
				outcome.err = cause
			default:
				outcome.err = fmt.Errorf("panic: %v", rec)
			}
		}
		outcome.duration = time.Since(start)
		if outcome.err == nil {
			// state_after reflects the node's own delta merged in; routing and
			// sibling merges happen later, in processResults. Reducers are
			// pure, so merging here and again during result processing is safe.
			stateAfter := frame.State
			switch res := outcome.result.(type) {
			case Delta:
				stateAfter = Merge(frame.State, res)
			case Command:
				stateAfter = Merge(frame.State, res.Update)
			}
			r.notify(ctx, Event{
				Kind: EventNodeEnd, ThreadID: r.threadID, Node: frame.NodeName,
				StateBefore: frame.State, StateAfter: stateAfter, Result: outcome.raw, Duration: outcome.duration, Step: nextStep,
			})
		}
	}()

	raw := node.Invoke(ctx, frame.State)
	outcome.raw = raw
	outcome.result = normalizeResult(raw)
	return outcome
}

// processResults turns every outcome of the step just completed into
// scheduler work: the next frames, an optional final state, the names of any
// non-terminal frames discarded because a sibling frame in the same step
// already set final_state (Open Question 1 — preserved source behavior), and
// — if the frame that set final_state did so by pausing on an unhandled
// Interrupt — the frame that paused, so the caller can persist it as the
// checkpoint's Frontier and a later Resume continues that exact node instead
// of restarting from START.
func (r *runner) processResults(ctx context.Context, outcomes []nodeOutcome, step int) ([]ExecutionFrame, *State, []string, *ExecutionFrame) {
	var next []ExecutionFrame
	var finalState *State
	var discardedNodes []string
	var pausedFrame *ExecutionFrame

	for _, o := range outcomes {
		frame := o.frame
		var produced []ExecutionFrame
		var becameFinal *State
		var pausedHere *ExecutionFrame

		switch res := o.result.(type) {
		case Delta:
			merged := Merge(frame.State, res)
			produced, becameFinal = r.routeFrame(ctx, frame.NodeName, merged, step)

		case Command:
			merged := Merge(frame.State, res.Update)
			if res.Goto != "" {
				if res.Goto == FINISH {
					becameFinal = &merged
				} else {
					produced = []ExecutionFrame{{NodeName: res.Goto, State: merged, Step: step}}
				}
			} else {
				produced, becameFinal = r.routeFrame(ctx, frame.NodeName, merged, step)
			}

		case Send:
			produced, becameFinal = r.applySends(frame.State, []Send{res}, step)

		case MultiSend:
			produced, becameFinal = r.applySends(frame.State, res, step)

		case Interrupt:
			r.notify(ctx, Event{Kind: EventInterrupt, ThreadID: r.threadID, Node: frame.NodeName, Step: step, Info: map[string]any{"message": res.Message, "data": res.Data}})
			if r.cfg.interruptHandler != nil {
				if delta, handled := r.cfg.interruptHandler(res); handled {
					merged := Merge(frame.State, delta)
					produced = []ExecutionFrame{{NodeName: frame.NodeName, State: merged, Step: step}}
				} else {
					becameFinal = &frame.State
					pausedHere = &ExecutionFrame{NodeName: frame.NodeName, State: frame.State, Step: step}
				}
			} else {
				becameFinal = &frame.State
				pausedHere = &ExecutionFrame{NodeName: frame.NodeName, State: frame.State, Step: step}
			}
		}

		r.notify(ctx, Event{Kind: EventCommandProcessed, ThreadID: r.threadID, Node: frame.NodeName, Step: step, Result: o.raw})

		if finalState != nil {
			// A sibling frame already terminated this step; this frame's
			// non-terminal output is discarded (Open Question 1).
			if becameFinal == nil {
				for _, f := range produced {
					discardedNodes = append(discardedNodes, f.NodeName)
				}
			}
			continue
		}

		if becameFinal != nil {
			finalState = becameFinal
			pausedFrame = pausedHere
			for _, f := range next {
				discardedNodes = append(discardedNodes, f.NodeName)
			}
			next = nil
			continue
		}

		next = append(next, produced...)
	}

	return next, finalState, discardedNodes, pausedFrame
}

// framesToFrontier converts a super-step's next frames into the persisted
// Frontier shape, preserving each frame's destination node and state.
func framesToFrontier(frames []ExecutionFrame) []FrontierItem {
	if len(frames) == 0 {
		return nil
	}
	out := make([]FrontierItem, len(frames))
	for i, f := range frames {
		out[i] = FrontierItem{NodeName: f.NodeName, State: f.State}
	}
	return out
}

// routeFrame evaluates the outgoing edges of node against merged state
//, producing next frames and, if any destination is FINISH, a
// final state.
func (r *runner) routeFrame(ctx context.Context, node string, merged State, step int) ([]ExecutionFrame, *State) {
	edges := r.graph.edgesByFrom[node]
	if len(edges) == 0 {
		return nil, &merged
	}

	var frames []ExecutionFrame
	var finalState *State
	for _, e := range edges {
		for _, dest := range route(ctx, e, merged) {
			if dest == FINISH {
				finalState = &merged
				continue
			}
			frames = append(frames, ExecutionFrame{NodeName: dest, State: merged, Step: step})
		}
	}
	return frames, finalState
}

// applySends implements the Send/MultiSend rule: each send bypasses the
// producing node's edges entirely; a send to FINISH still produces a FINISH
// frame that is executed as identity the next step, taking one extra
// observed step rather than terminating immediately (Open Question 3).
func (r *runner) applySends(base State, sends []Send, step int) ([]ExecutionFrame, *State) {
	frames := make([]ExecutionFrame, 0, len(sends))
	for _, s := range sends {
		merged := Merge(base, s.Payload)
		frames = append(frames, ExecutionFrame{NodeName: s.To, State: merged, Step: step})
	}
	return frames, nil
}

func (r *runner) notify(ctx context.Context, event Event) {
	notifyAll(ctx, r.cfg.observers, event, r.cfg.diagnostics)
}
