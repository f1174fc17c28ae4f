// Package graph provides the core graph execution engine: a Bulk-Synchronous-Parallel
// super-step scheduler for stateful, multi-actor workflows expressed as directed graphs.
package graph

// Delta is a partial state update produced by a Node. Keys absent from a Delta are left
// untouched by Merge; keys present are folded into the receiving State through the
// key's Reducer, or replace the prior value when no Reducer is registered for that key.
type Delta map[string]any

// Reducer merges a new value into an old one for a single state key. Reducers must be
// pure: given the same (old, new) pair they always produce the same merged value, and
// they must not mutate either argument.
//
// Reducer is invoked exactly once per key per Merge call.
type Reducer func(old, new any) any

// State is an immutable, keyed bag of values accompanied by a per-key Reducer table.
// Every update to a State produces a new State; the receiver is left unaffected. This
// makes State safe to hand to observers as a snapshot and safe to persist to a Store
// without the caller being able to corrupt it afterward.
//
// The reducer table is fixed for the lifetime of a run: it is supplied once, with the
// initial State passed to NewState, and every State derived from it carries the same
// table. Reducers are funcs and are not serialized: a State loaded from a serializing
// Store backend has no reducer table, and nothing reattaches one.
type State struct {
	values   map[string]any
	reducers map[string]Reducer
}

// NewState constructs a State from an initial set of values and a reducer table. A nil
// values map is treated as empty. The reducer table is not copied defensively beyond
// this call; callers should treat it as immutable for the run's duration, since the
// reducer table is fixed for the lifetime of a run.
func NewState(values map[string]any, reducers map[string]Reducer) State {
	v := make(map[string]any, len(values))
	for k, val := range values {
		v[k] = val
	}
	return State{values: v, reducers: reducers}
}

// Get returns the value stored under key and whether it was present.
func (s State) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Keys returns the set of keys currently present in the state, in no particular order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

// Values returns a shallow copy of the state's underlying map. Mutating the returned
// map does not affect s.
func (s State) Values() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Reducers returns the state's reducer table, shared (not copied) with the receiver.
func (s State) Reducers() map[string]Reducer {
	return s.reducers
}

// Merge folds delta into s and returns a new State; s is left unchanged. An empty or
// nil delta returns a state equal to the receiver (right-identity). Key ordering
// within delta has no bearing on the result since each key is merged independently.
func Merge(base State, delta Delta) State {
	if len(delta) == 0 {
		return base
	}

	merged := make(map[string]any, len(base.values)+len(delta))
	for k, v := range base.values {
		merged[k] = v
	}

	for k, v := range delta {
		if reduce, ok := base.reducers[k]; ok {
			merged[k] = reduce(base.values[k], v)
		} else {
			merged[k] = v
		}
	}

	return State{values: merged, reducers: base.reducers}
}

// Built-in reducer primitives.

// AppendSequence implements the append-sequence reducer: old ⊕ new, where new is
// coerced to a slice if it arrives as a scalar. Order is preserved; old comes first.
func AppendSequence(old, new any) any {
	oldSeq := toSlice(old)
	newSeq := toSlice(new)
	out := make([]any, 0, len(oldSeq)+len(newSeq))
	out = append(out, oldSeq...)
	out = append(out, newSeq...)
	return out
}

// ConcatText implements the concat-text reducer: string concatenation treating nil (on
// either side) as the empty string.
func ConcatText(old, new any) any {
	return toText(old) + toText(new)
}

// MergeMap implements the merge-map reducer: a shallow map merge, right-biased on key
// conflicts (new wins).
func MergeMap(old, new any) any {
	merged := make(map[string]any)
	if oldMap, ok := old.(map[string]any); ok {
		for k, v := range oldMap {
			merged[k] = v
		}
	}
	if newMap, ok := new.(map[string]any); ok {
		for k, v := range newMap {
			merged[k] = v
		}
	}
	return merged
}

func toSlice(v any) []any {
	switch vv := v.(type) {
	case nil:
		return nil
	case []any:
		return vv
	default:
		return []any{vv}
	}
}

func toText(v any) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return vv
	default:
		return ""
	}
}
