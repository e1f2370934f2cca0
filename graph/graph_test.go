package graph

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/bookline-ai/bookline"
)

const stepsKey = "steps"

func stepHandler(name string) Handler {
	return func(ctx context.Context, state State) (State, error) {
		steps := getStringSlice(state[stepsKey])
		return State{stepsKey: append(steps, name)}, nil
	}
}

func getStringSlice(value any) []string {
	if v, ok := value.([]string); ok {
		return v
	}
	return []string{}
}

func collect(t *testing.T, gen bookline.Generator[string, error]) ([]string, error) {
	t.Helper()
	var fragments []string
	for fragment, err := range gen {
		if err != nil {
			return fragments, err
		}
		if fragment != "" {
			fragments = append(fragments, fragment)
		}
	}
	return fragments, nil
}

// twoStepGraph builds A -> (router) -> wait|B, wait -> A, B finish.
// The router proceeds to B once the "ready" key is set.
func twoStepGraph(saver Checkpointer) (*Executor, error) {
	g := NewGraph(WithCheckpointer(saver))
	g.AddNode("A", func(ctx context.Context, state State) (State, error) {
		input, _ := state["user_input"].(string)
		update := State{stepsKey: append(getStringSlice(state[stepsKey]), "A")}
		if strings.Contains(input, "ready") {
			update["ready"] = true
		}
		Write(ctx, "asked")
		return update, nil
	})
	g.AddNode("B", stepHandler("B"))
	g.AddRouter("A", func(_ context.Context, state State) string {
		if ready, _ := state["ready"].(bool); ready {
			return "B"
		}
		return "wait"
	}, "B", "wait")
	g.AddWaitNode("wait")
	g.AddEdge("wait", "A")
	g.SetEntryPoint("A")
	g.SetFinishPoint("B")
	return g.Compile()
}

func TestGraphCompileValidation(t *testing.T) {
	t.Run("missing entry", func(t *testing.T) {
		g := NewGraph()
		_ = g.AddNode("A", stepHandler("A"))
		_ = g.SetFinishPoint("A")
		if _, err := g.Compile(); err == nil || !strings.Contains(err.Error(), "entry point not set") {
			t.Fatalf("expected missing entry error, got %v", err)
		}
	})

	t.Run("missing finish", func(t *testing.T) {
		g := NewGraph()
		_ = g.AddNode("A", stepHandler("A"))
		_ = g.SetEntryPoint("A")
		if _, err := g.Compile(); err == nil || !strings.Contains(err.Error(), "finish point not set") {
			t.Fatalf("expected missing finish error, got %v", err)
		}
	})

	t.Run("edge validations", func(t *testing.T) {
		g := NewGraph()
		_ = g.AddNode("A", stepHandler("A"))
		_ = g.AddEdge("X", "A")
		_ = g.SetEntryPoint("A")
		_ = g.SetFinishPoint("A")
		if _, err := g.Compile(); err == nil || !strings.Contains(err.Error(), "edge from unknown node") {
			t.Fatalf("expected unknown node error, got %v", err)
		}
	})

	t.Run("router target validation", func(t *testing.T) {
		g := NewGraph()
		_ = g.AddNode("A", stepHandler("A"))
		_ = g.AddRouter("A", func(context.Context, State) string { return "A" }, "missing")
		_ = g.SetEntryPoint("A")
		_ = g.SetFinishPoint("A")
		if _, err := g.Compile(); err == nil || !strings.Contains(err.Error(), "router target unknown node") {
			t.Fatalf("expected router target error, got %v", err)
		}
	})

	t.Run("wait node needs edge", func(t *testing.T) {
		g := NewGraph()
		_ = g.AddNode("A", stepHandler("A"))
		_ = g.AddWaitNode("wait")
		_ = g.AddRouter("A", func(context.Context, State) string { return "wait" }, "wait")
		_ = g.SetEntryPoint("A")
		_ = g.SetFinishPoint("A")
		if _, err := g.Compile(); err == nil || !strings.Contains(err.Error(), "has no outgoing edge") {
			t.Fatalf("expected wait edge error, got %v", err)
		}
	})

	t.Run("dead end node", func(t *testing.T) {
		g := NewGraph()
		_ = g.AddNode("A", stepHandler("A"))
		_ = g.AddNode("B", stepHandler("B"))
		_ = g.AddEdge("A", "B")
		_ = g.AddNode("C", stepHandler("C"))
		_ = g.SetEntryPoint("A")
		_ = g.SetFinishPoint("B")
		if _, err := g.Compile(); err == nil || !strings.Contains(err.Error(), "no outgoing edge or router") {
			t.Fatalf("expected dead end error, got %v", err)
		}
	})
}

func TestExecutorSuspendsAtWaitNode(t *testing.T) {
	saver := NewMemorySaver()
	executor, err := twoStepGraph(saver)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	fragments, err := collect(t, executor.Run(context.Background(), "thread-1", "hello"))
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !reflect.DeepEqual(fragments, []string{"asked"}) {
		t.Fatalf("unexpected fragments: %v", fragments)
	}
	checkpoint, ok, err := saver.Get(context.Background(), "thread-1")
	if err != nil || !ok {
		t.Fatalf("expected checkpoint, got ok=%v err=%v", ok, err)
	}
	// Cursor points at the wait node's successor, never the wait node itself.
	if checkpoint.Cursor != "A" {
		t.Fatalf("unexpected cursor: %s", checkpoint.Cursor)
	}
	if !reflect.DeepEqual(getStringSlice(checkpoint.State[stepsKey]), []string{"A"}) {
		t.Fatalf("unexpected steps: %v", checkpoint.State[stepsKey])
	}
}

func TestExecutorResumesAndFinishes(t *testing.T) {
	saver := NewMemorySaver()
	executor, err := twoStepGraph(saver)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	ctx := context.Background()
	if _, err := collect(t, executor.Run(ctx, "thread-1", "hello")); err != nil {
		t.Fatalf("first run error: %v", err)
	}
	if _, err := collect(t, executor.Run(ctx, "thread-1", "ready now")); err != nil {
		t.Fatalf("second run error: %v", err)
	}
	// Finish deletes the checkpoint; the conversation is complete.
	if _, ok, _ := saver.Get(ctx, "thread-1"); ok {
		t.Fatal("checkpoint should be deleted at finish")
	}
}

func TestExecutorThreadsAreIndependent(t *testing.T) {
	saver := NewMemorySaver()
	executor, err := twoStepGraph(saver)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	ctx := context.Background()
	if _, err := collect(t, executor.Run(ctx, "t1", "hello")); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if _, err := collect(t, executor.Run(ctx, "t2", "hi there")); err != nil {
		t.Fatalf("run error: %v", err)
	}
	cp1, _, _ := saver.Get(ctx, "t1")
	cp2, _, _ := saver.Get(ctx, "t2")
	if cp1.State["user_input"] == cp2.State["user_input"] {
		t.Fatal("threads share state")
	}
}

func TestExecutorNoCheckpointOnNodeError(t *testing.T) {
	saver := NewMemorySaver()
	g := NewGraph(WithCheckpointer(saver))
	boom := errors.New("boom")
	calls := 0
	g.AddNode("A", func(ctx context.Context, state State) (State, error) {
		calls++
		if calls > 1 {
			return nil, boom
		}
		return State{}, nil
	})
	g.AddRouter("A", func(context.Context, State) string { return "wait" }, "wait")
	g.AddWaitNode("wait")
	g.AddEdge("wait", "A")
	g.AddNode("B", stepHandler("B"))
	g.AddEdge("A", "B")
	g.SetEntryPoint("A")
	g.SetFinishPoint("B")
	executor, err := g.Compile()
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	ctx := context.Background()
	if _, err := collect(t, executor.Run(ctx, "t", "first")); err != nil {
		t.Fatalf("first run error: %v", err)
	}
	before, _, _ := saver.Get(ctx, "t")
	if _, err := collect(t, executor.Run(ctx, "t", "second")); !errors.Is(err, boom) {
		t.Fatalf("expected node error, got %v", err)
	}
	after, ok, _ := saver.Get(ctx, "t")
	if !ok {
		t.Fatal("checkpoint lost after failed step")
	}
	// The failed step wrote nothing: the thread stays at its last good
	// suspension and the same message can be retried.
	if after.Cursor != before.Cursor || after.State["user_input"] != before.State["user_input"] {
		t.Fatalf("checkpoint mutated by failed step: %+v != %+v", after, before)
	}
}

// Cancellation is the caller simply breaking out of the fragment loop. A
// node that keeps writing, or fails, after that must end the run quietly
// instead of yielding again.
func TestExecutorAbandonedRunEndsQuietly(t *testing.T) {
	saver := NewMemorySaver()
	boom := errors.New("boom")
	g := NewGraph(WithCheckpointer(saver))
	g.AddNode("A", func(ctx context.Context, state State) (State, error) {
		Write(ctx, "first")
		Write(ctx, "second")
		return nil, boom
	})
	g.AddNode("B", stepHandler("B"))
	g.AddEdge("A", "B")
	g.SetEntryPoint("A")
	g.SetFinishPoint("B")
	executor, err := g.Compile()
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	var fragments []string
	for fragment, err := range executor.Run(context.Background(), "t", "go") {
		if err != nil {
			t.Fatalf("abandoned run yielded error: %v", err)
		}
		fragments = append(fragments, fragment)
		break
	}
	if !reflect.DeepEqual(fragments, []string{"first"}) {
		t.Fatalf("unexpected fragments: %v", fragments)
	}
	// Nothing was checkpointed for the abandoned run.
	if _, ok, _ := saver.Get(context.Background(), "t"); ok {
		t.Fatal("abandoned run wrote a checkpoint")
	}
}

func TestExecutorResumeIsIdempotentAcrossCrash(t *testing.T) {
	run := func() ([]string, string) {
		saver := NewMemorySaver()
		executor, err := twoStepGraph(saver)
		if err != nil {
			panic(err)
		}
		ctx := context.Background()
		seed := &Checkpoint{Cursor: "A", State: State{stepsKey: []string{"A"}}}
		if err := saver.Put(ctx, "t", seed); err != nil {
			panic(err)
		}
		fragments, err := collect(t, executor.Run(ctx, "t", "hello again"))
		if err != nil {
			panic(err)
		}
		cp, _, _ := saver.Get(ctx, "t")
		return fragments, cp.Cursor
	}
	frags1, cursor1 := run()
	frags2, cursor2 := run()
	if !reflect.DeepEqual(frags1, frags2) || cursor1 != cursor2 {
		t.Fatalf("resume not idempotent: %v/%s vs %v/%s", frags1, cursor1, frags2, cursor2)
	}
}

func TestExecutorAppliesReducers(t *testing.T) {
	saver := NewMemorySaver()
	g := NewGraph(
		WithCheckpointer(saver),
		WithReducer("messages", AppendRows),
	)
	g.AddNode("A", func(ctx context.Context, state State) (State, error) {
		return State{"messages": [][]byte{[]byte("row-a")}}, nil
	})
	g.AddNode("B", func(ctx context.Context, state State) (State, error) {
		return State{"messages": [][]byte{[]byte("row-b")}}, nil
	})
	g.AddRouter("A", func(context.Context, State) string { return "wait" }, "wait", "B")
	g.AddWaitNode("wait")
	g.AddEdge("wait", "B")
	g.SetEntryPoint("A")
	g.SetFinishPoint("B")
	executor, err := g.Compile()
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	ctx := context.Background()
	if _, err := collect(t, executor.Run(ctx, "t", "one")); err != nil {
		t.Fatalf("run error: %v", err)
	}
	cp, _, _ := saver.Get(ctx, "t")
	rows, _ := cp.State["messages"].([][]byte)
	if len(rows) != 1 || string(rows[0]) != "row-a" {
		t.Fatalf("unexpected rows after first run: %q", rows)
	}
	// The transcript never shrinks or reorders across resumes.
	if _, err := collect(t, executor.Run(ctx, "t", "two")); err != nil {
		t.Fatalf("second run error: %v", err)
	}
}

func TestExecutorMaxStepsGuardsRoutingLoops(t *testing.T) {
	g := NewGraph(WithMaxSteps(3))
	g.AddNode("A", stepHandler("A"))
	g.AddNode("B", stepHandler("B"))
	g.AddNode("C", stepHandler("C"))
	g.AddRouter("A", func(context.Context, State) string { return "B" }, "B")
	g.AddRouter("B", func(context.Context, State) string { return "A" }, "A")
	g.AddEdge("C", "C")
	g.SetEntryPoint("A")
	g.SetFinishPoint("C")
	executor, err := g.Compile()
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if _, err := collect(t, executor.Run(context.Background(), "t", "go")); err == nil ||
		!strings.Contains(err.Error(), "maximum steps") {
		t.Fatalf("expected max steps error, got %v", err)
	}
}

func TestExecutorMiddlewareWrapsNodes(t *testing.T) {
	var wrapped []string
	mw := func(next Handler) Handler {
		return func(ctx context.Context, state State) (State, error) {
			if node, ok := FromNodeContext(ctx); ok {
				wrapped = append(wrapped, node.Name)
			}
			return next(ctx, state)
		}
	}
	g := NewGraph(WithMiddleware(mw))
	g.AddNode("A", stepHandler("A"))
	g.AddNode("B", stepHandler("B"))
	g.AddEdge("A", "B")
	g.SetEntryPoint("A")
	g.SetFinishPoint("B")
	executor, err := g.Compile()
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if _, err := collect(t, executor.Run(context.Background(), "t", "go")); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !reflect.DeepEqual(wrapped, []string{"A", "B"}) {
		t.Fatalf("middleware missed nodes: %v", wrapped)
	}
}

func TestAppendRowsNeverDropsRows(t *testing.T) {
	prev := [][]byte{[]byte("a")}
	next := AppendRows(prev, [][]byte{[]byte("b"), []byte("c")}).([][]byte)
	if len(next) != 3 || string(next[0]) != "a" || string(next[2]) != "c" {
		t.Fatalf("unexpected merge: %q", next)
	}
	same := AppendRows(prev, nil)
	if !reflect.DeepEqual(same, prev) {
		t.Fatalf("nil update should keep rows: %v", same)
	}
}
