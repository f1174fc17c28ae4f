package emit

import (
	"context"

	"github.com/supersteprun/graph/graph"
)

// NullObserver implements graph.Observer by discarding every event. Useful
// when a caller wants WithObservers wired up uniformly but a particular
// environment should not pay for any observability overhead.
type NullObserver struct{}

// NewNullObserver returns a NullObserver.
func NewNullObserver() NullObserver { return NullObserver{} }

var _ graph.Observer = NullObserver{}

// Notify implements graph.Observer by doing nothing.
func (NullObserver) Notify(context.Context, graph.Event) {}
