package graph

import (
	"maps"
	"slices"
)

// State represents the mutable data that flows through the graph.
// It is implemented as a map of string keys to arbitrary values.
// Handlers must not mutate the incoming state; they return a partial update
// that the executor merges according to each key's reducer.
type State map[string]any

// Clone performs a shallow copy using maps.Clone so callers can mutate
// without affecting the original map (nested references are shared
// intentionally).
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	return State(maps.Clone(map[string]any(s)))
}

// Reducer merges a key's previous value with the value from a node's partial
// update. The default reducer replaces the previous value.
type Reducer func(prev, next any) any

// Replace is the default Reducer: the update wins.
func Replace(_, next any) any {
	return next
}

// AppendRows is a Reducer for append-only [][]byte transcript logs: rows
// from the update are concatenated after the existing rows, never replacing
// or reordering them.
func AppendRows(prev, next any) any {
	rows, _ := prev.([][]byte)
	update, _ := next.([][]byte)
	if len(update) == 0 {
		return rows
	}
	return append(slices.Clone(rows), update...)
}

// mergeStates merges partial updates into base at the top level, applying
// the per-key reducers. Keys absent from reducers use Replace.
func mergeStates(reducers map[string]Reducer, base State, updates ...State) State {
	merged := base.Clone()
	for _, update := range updates {
		if update == nil {
			continue
		}
		for k, v := range update {
			if reduce, ok := reducers[k]; ok {
				merged[k] = reduce(merged[k], v)
				continue
			}
			merged[k] = v
		}
	}
	return merged
}
