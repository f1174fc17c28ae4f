package graph

import (
	"context"
	"fmt"
	"time"
)

// EventKind identifies which of the ten lifecycle events an Event
// carries.
type EventKind string

const (
	EventGraphStart       EventKind = "graph_start"
	EventGraphEnd         EventKind = "graph_end"
	EventNodeStart        EventKind = "node_start"
	EventNodeEnd          EventKind = "node_end"
	EventNodeError        EventKind = "node_error"
	EventStepComplete     EventKind = "step_complete"
	EventCommandProcessed EventKind = "command_processed"
	EventInterrupt        EventKind = "interrupt"
	EventCheckpointSaved  EventKind = "checkpoint_saved"
	EventShutdown         EventKind = "shutdown"
)

// Event is the single struct carrying every lifecycle notification the
// Runner (and external collaborators such as a chat-model client, forwarding
// under the currently executing node's name) emit. Only the fields relevant
// to Kind are populated; the rest are zero values.
type Event struct {
	Kind     EventKind
	ThreadID string
	Step     int

	Node        string
	StateBefore State
	StateAfter  State
	Result      any
	Err         error
	Duration    time.Duration

	InitialState State
	FinalState   State
	ActiveNodes  []string

	Info map[string]any
}

// Observer is a passive sink notified by the Runner. Implementations must
// never panic into the scheduler; Notify is always called through a
// recovering wrapper (see notifyAll). Notify runs synchronously on the
// goroutine that emits the event, so a blocking Notify stalls the run;
// node_start and node_end events come from a super-step's worker goroutines
// and may arrive concurrently.
type Observer interface {
	Notify(ctx context.Context, event Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(ctx context.Context, event Event)

func (f ObserverFunc) Notify(ctx context.Context, event Event) { f(ctx, event) }

// diagnosticSink receives ObserverErrors recovered from a panicking
// Observer. It is satisfied by the log subpackage's Logger, kept as a
// narrow interface here so this package doesn't import log directly.
type diagnosticSink interface {
	Error(format string, v ...any)
}

// notifyAll calls Notify on every observer, recovering any panic into an
// ObserverError reported to sink rather than letting it reach the
// scheduler.
func notifyAll(ctx context.Context, observers []Observer, event Event, sink diagnosticSink) {
	for _, obs := range observers {
		dispatchObserver(ctx, obs, event, sink)
	}
}

func dispatchObserver(ctx context.Context, obs Observer, event Event, sink diagnosticSink) {
	defer func() {
		if r := recover(); r != nil {
			oerr := &ObserverError{Event: string(event.Kind), Cause: fmt.Errorf("%v", r)}
			if sink != nil {
				sink.Error("observer panicked: %v", oerr)
			}
		}
	}()
	obs.Notify(ctx, event)
}
