package graph

import (
	"context"
	"fmt"

	"github.com/bookline-ai/bookline"
)

// Executor drives a compiled graph, one resumable conversation thread at a
// time. Threads are independent: the only shared state is the checkpoint
// store, and each Run touches a single thread identifier.
type Executor struct {
	graph *Graph
}

// Run resumes (or starts) the thread with a new user message and returns the
// lazy sequence of output fragments. The sequence ends either because the
// graph reached its finish node (conversation complete, checkpoint deleted)
// or because it reached a wait node (conversation paused, checkpoint
// persisted, awaiting the next user message).
//
// If a node fails, the error is yielded and no checkpoint is written for
// that step: the thread stays at its last suspension and the caller may
// retry with the same message.
func (e *Executor) Run(ctx context.Context, threadID, userMessage string) bookline.Generator[string, error] {
	return func(yield func(string, error) bool) {
		g := e.graph
		checkpoint, ok, err := g.saver.Get(ctx, threadID)
		if err != nil {
			yield("", fmt.Errorf("graph: loading checkpoint for thread %s: %w", threadID, err))
			return
		}
		var (
			state  State
			cursor string
		)
		if ok {
			state = checkpoint.State.Clone()
			cursor = checkpoint.Cursor
		} else {
			state = State{}
			cursor = g.entryPoint
		}
		state = mergeStates(g.reducers, state, State{g.inputKey: userMessage})

		// The writer runs synchronously inside node handlers. When the caller
		// stops consuming we finish the current node quietly and end the run
		// without touching the checkpoint.
		stopped := false
		ctx = NewWriterContext(ctx, func(fragment string) {
			if stopped {
				return
			}
			if !yield(fragment, nil) {
				stopped = true
			}
		})

		for steps := 0; ; steps++ {
			if steps >= g.maxSteps {
				yield("", fmt.Errorf("graph: exceeded maximum steps limit (%d)", g.maxSteps))
				return
			}
			if g.waits[cursor] {
				// Suspend. The cursor saved is the wait node's successor, so
				// the next message re-enters there.
				next := &Checkpoint{Cursor: g.edges[cursor], State: state}
				if err := g.saver.Put(ctx, threadID, next); err != nil {
					yield("", fmt.Errorf("graph: saving checkpoint for thread %s: %w", threadID, err))
				}
				return
			}
			update, err := e.executeNode(ctx, cursor, state)
			if stopped {
				// The caller broke out of the loop mid-node; yielding anything
				// further (the node's error included) would panic the range.
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			state = mergeStates(g.reducers, state, update)
			if cursor == g.finishPoint {
				if err := g.saver.Delete(ctx, threadID); err != nil {
					yield("", fmt.Errorf("graph: deleting checkpoint for thread %s: %w", threadID, err))
				}
				return
			}
			if router, ok := g.routers[cursor]; ok {
				next := router(ctx, state.Clone())
				if !g.known(next) {
					yield("", fmt.Errorf("graph: router on node %s chose unknown node: %s", cursor, next))
					return
				}
				cursor = next
				continue
			}
			cursor = g.edges[cursor]
		}
	}
}

// executeNode runs a single node handler against a clone of the state and
// returns its partial update.
func (e *Executor) executeNode(ctx context.Context, name string, state State) (State, error) {
	handler := e.graph.nodes[name]
	if handler == nil {
		return nil, fmt.Errorf("graph: node %s handler missing", name)
	}
	if len(e.graph.middlewares) > 0 {
		handler = ChainMiddlewares(e.graph.middlewares...)(handler)
	}
	ctx = NewNodeContext(ctx, &NodeContext{Name: name})
	update, err := handler(ctx, state.Clone())
	if err != nil {
		return nil, fmt.Errorf("graph: node %s: %w", name, err)
	}
	return update, nil
}
