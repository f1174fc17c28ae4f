package emit

import (
	"context"
	"sync"

	"github.com/supersteprun/graph/graph"
)

// BufferedObserver implements graph.Observer by recording every event in
// memory, keyed by thread id, with query helpers for post-execution
// inspection.
//
// Intended for tests and debugging; unbounded growth makes it unsuitable
// for long-running production workflows.
type BufferedObserver struct {
	mu     sync.RWMutex
	events map[string][]graph.Event
}

// NewBufferedObserver returns an empty BufferedObserver.
func NewBufferedObserver() *BufferedObserver {
	return &BufferedObserver{events: make(map[string][]graph.Event)}
}

var _ graph.Observer = (*BufferedObserver)(nil)

// Notify implements graph.Observer.
func (b *BufferedObserver) Notify(_ context.Context, event graph.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.ThreadID] = append(b.events[event.ThreadID], event)
}

// HistoryFilter narrows GetHistoryWithFilter's results. Zero-valued fields
// impose no constraint; multiple set fields combine with AND.
type HistoryFilter struct {
	Node    string
	Kind    graph.EventKind
	MinStep *int
	MaxStep *int
}

// GetHistory returns every event recorded for thread, in emission order.
func (b *BufferedObserver) GetHistory(thread string) []graph.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[thread]
	out := make([]graph.Event, len(events))
	copy(out, events)
	return out
}

// GetHistoryWithFilter returns thread's events matching filter, in emission
// order.
func (b *BufferedObserver) GetHistoryWithFilter(thread string, filter HistoryFilter) []graph.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []graph.Event
	for _, event := range b.events[thread] {
		if filter.Node != "" && event.Node != filter.Node {
			continue
		}
		if filter.Kind != "" && event.Kind != filter.Kind {
			continue
		}
		if filter.MinStep != nil && event.Step < *filter.MinStep {
			continue
		}
		if filter.MaxStep != nil && event.Step > *filter.MaxStep {
			continue
		}
		out = append(out, event)
	}
	return out
}

// Clear discards recorded events for thread, or every thread when thread is
// empty.
func (b *BufferedObserver) Clear(thread string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if thread == "" {
		b.events = make(map[string][]graph.Event)
		return
	}
	delete(b.events, thread)
}
