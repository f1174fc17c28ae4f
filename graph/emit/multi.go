package emit

import (
	"context"
	"fmt"

	"github.com/supersteprun/graph/graph"
)

// diagnosticSink mirrors the narrow interface the graph package itself
// dispatches ObserverErrors through, so MultiObserver doesn't have to import
// the log subpackage to supply a default.
type diagnosticSink interface {
	Error(format string, v ...any)
}

type noOpSink struct{}

func (noOpSink) Error(string, ...any) {}

// MultiObserver fans an event out to every member Observer, recovering a
// panic from any one of them rather than letting it propagate. This is the
// same containment the Runner applies to its own observer list, one layer
// deeper, so a single misbehaving sink in a list built with MultiObserver
// can't take down its siblings either.
type MultiObserver struct {
	observers   []graph.Observer
	diagnostics diagnosticSink
}

// NewMultiObserver fans out to observers in order. sink receives a
// diagnostic line for any observer that panics; pass nil to discard them.
func NewMultiObserver(sink diagnosticSink, observers ...graph.Observer) *MultiObserver {
	if sink == nil {
		sink = noOpSink{}
	}
	return &MultiObserver{observers: observers, diagnostics: sink}
}

var _ graph.Observer = (*MultiObserver)(nil)

// Notify implements graph.Observer.
func (m *MultiObserver) Notify(ctx context.Context, event graph.Event) {
	for _, obs := range m.observers {
		m.dispatch(ctx, obs, event)
	}
}

func (m *MultiObserver) dispatch(ctx context.Context, obs graph.Observer, event graph.Event) {
	defer func() {
		if r := recover(); r != nil {
			m.diagnostics.Error("observer panicked on %s: %v", event.Kind, fmt.Errorf("%v", r))
		}
	}()
	obs.Notify(ctx, event)
}
