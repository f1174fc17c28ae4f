// Package store provides Checkpoint persistence backends implementing
// graph.Store: an in-memory map, a file-backed layout with two
// interchangeable textual encodings, and database-backed implementations
// over SQLite, MySQL, and Redis.
//
// Every backend here satisfies graph.Store directly, so a Runner configured
// with graph.WithStore(store.NewSQLiteStore(...)) never needs to know which
// concrete backend it is talking to.
package store

import (
	"time"

	"github.com/supersteprun/graph/graph"
)

// ErrNotFound is an alias of graph.ErrNotFound (the same error value, so
// errors.Is works against either). The backends in this package do not
// return it: Load reports a missing checkpoint as ok == false with a nil
// error.
var ErrNotFound = graph.ErrNotFound

// record is the wire-level shape every serializing backend (file, sqlite,
// mysql, redis) persists. It carries only key->value entries, never
// reducers: a reducer is a func value and cannot be serialized. States (and
// Frontier item states) loaded from these backends have no reducer table,
// and neither the Store nor Graph.Resume reattaches one, so merges into them
// use replacement semantics for every key.
type record struct {
	ThreadID  string           `json:"thread_id" yaml:"thread_id"`
	Step      int              `json:"step" yaml:"step"`
	Values    map[string]any   `json:"values" yaml:"values"`
	Frontier  []frontierRecord `json:"frontier,omitempty" yaml:"frontier,omitempty"`
	Timestamp int64            `json:"timestamp" yaml:"timestamp"`
	Metadata  map[string]any   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// frontierRecord is the wire shape of one graph.FrontierItem: the pending
// node name and its values, reducers stripped for the same reason record
// strips them from State.
type frontierRecord struct {
	NodeName string         `json:"node_name" yaml:"node_name"`
	Values   map[string]any `json:"values" yaml:"values"`
}

func toRecord(cp graph.Checkpoint) record {
	return record{
		ThreadID:  cp.ThreadID,
		Step:      cp.Step,
		Values:    cp.State.Values(),
		Frontier:  toFrontierRecords(cp.Frontier),
		Timestamp: cp.Timestamp.UnixNano(),
		Metadata:  cp.Metadata,
	}
}

// toFrontierRecords and fromFrontierRecords are the same Frontier<->wire
// conversion toRecord/toCheckpoint apply, factored out for the sqlite and
// mysql backends, which marshal the frontier into its own column rather than
// embedding it in a shared record.
func toFrontierRecords(frontier []graph.FrontierItem) []frontierRecord {
	if len(frontier) == 0 {
		return nil
	}
	out := make([]frontierRecord, len(frontier))
	for i, item := range frontier {
		out[i] = frontierRecord{NodeName: item.NodeName, Values: item.State.Values()}
	}
	return out
}

func fromFrontierRecords(records []frontierRecord) []graph.FrontierItem {
	if len(records) == 0 {
		return nil
	}
	out := make([]graph.FrontierItem, len(records))
	for i, r := range records {
		out[i] = graph.FrontierItem{NodeName: r.NodeName, State: graph.NewState(r.Values, nil)}
	}
	return out
}

func timeNow() time.Time { return time.Now() }

func unixNanoToTime(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

func (r record) toCheckpoint() graph.Checkpoint {
	return graph.Checkpoint{
		ThreadID:  r.ThreadID,
		Step:      r.Step,
		State:     graph.NewState(r.Values, nil),
		Frontier:  fromFrontierRecords(r.Frontier),
		Timestamp: unixNanoToTime(r.Timestamp),
		Metadata:  r.Metadata,
	}
}
