package graph

import (
	"context"
	"fmt"
)

// Handler is a function that processes the graph state. It receives a clone
// of the current state and returns a partial update; the executor merges the
// update according to the per-key reducers.
type Handler func(ctx context.Context, state State) (State, error)

// Router is a pure decision function: given the current state, it returns
// the name of the next node. Routers must not have side effects and must be
// deterministic for a given state.
type Router func(ctx context.Context, state State) string

// Option configures the Graph behavior.
type Option func(*Graph)

// WithMiddleware sets a global middleware applied to all node handlers.
func WithMiddleware(ms ...Middleware) Option {
	return func(g *Graph) {
		g.middlewares = ms
	}
}

// WithReducer registers a merge reducer for a state key. Keys without a
// reducer are replaced on update.
func WithReducer(key string, reducer Reducer) Option {
	return func(g *Graph) {
		g.reducers[key] = reducer
	}
}

// WithInputKey sets the state key the executor writes each new user message
// to. Defaults to "user_input".
func WithInputKey(key string) Option {
	return func(g *Graph) {
		g.inputKey = key
	}
}

// WithCheckpointer sets the checkpoint store. Defaults to an in-memory saver.
func WithCheckpointer(saver Checkpointer) Option {
	return func(g *Graph) {
		g.saver = saver
	}
}

// WithMaxSteps caps the number of node executions within a single Run call,
// guarding against routing loops that never reach a wait or finish node.
// Defaults to 50.
func WithMaxSteps(n int) Option {
	return func(g *Graph) {
		g.maxSteps = n
	}
}

// Graph represents a directed graph of processing nodes. Cycles through wait
// nodes are the normal shape of a conversation; each Run still terminates
// because wait nodes suspend execution.
type Graph struct {
	nodes         map[string]Handler
	waits         map[string]bool
	edges         map[string]string
	routers       map[string]Router
	entryPoint    string
	finishPoint   string
	inputKey      string
	maxSteps      int
	reducers      map[string]Reducer
	middlewares   []Middleware
	saver         Checkpointer
	routerTargets []routerTargets
}

// NewGraph creates a new empty Graph.
func NewGraph(opts ...Option) *Graph {
	g := &Graph{
		nodes:    make(map[string]Handler),
		waits:    make(map[string]bool),
		edges:    make(map[string]string),
		routers:  make(map[string]Router),
		reducers: make(map[string]Reducer),
		inputKey: "user_input",
		maxSteps: 50,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// AddNode adds a named node with its handler to the graph.
// Returns the graph for chaining.
func (g *Graph) AddNode(name string, handler Handler) *Graph {
	if _, ok := g.nodes[name]; ok {
		return g
	}
	g.nodes[name] = handler
	return g
}

// AddWaitNode adds a named wait pseudo-node. Reaching it suspends the run:
// the checkpoint is persisted with the cursor set to the wait node's single
// outgoing edge, so resuming re-enters at that successor, never at the wait
// node itself.
func (g *Graph) AddWaitNode(name string) *Graph {
	if g.waits[name] {
		return g
	}
	g.waits[name] = true
	return g
}

// AddEdge adds the directed edge from one node to its successor. Each node
// has at most one unconditional edge; branching goes through AddRouter.
// Returns the graph for chaining.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.edges[from] = to
	return g
}

// AddRouter attaches a router to a node. After the node executes, the router
// is evaluated against the merged state (consuming no execution step) and
// the cursor moves to its chosen target. The declared targets are validated
// at compile time.
func (g *Graph) AddRouter(from string, router Router, targets ...string) *Graph {
	g.routers[from] = router
	g.routerTargets = append(g.routerTargets, routerTargets{from: from, targets: targets})
	return g
}

// routerTargets records the declared targets of a router for validation.
type routerTargets struct {
	from    string
	targets []string
}

// SetEntryPoint marks a node as the entry point.
// Returns the graph for chaining.
func (g *Graph) SetEntryPoint(start string) *Graph {
	g.entryPoint = start
	return g
}

// SetFinishPoint marks a node as the finish point.
// Returns the graph for chaining.
func (g *Graph) SetFinishPoint(end string) *Graph {
	g.finishPoint = end
	return g
}

// known reports whether a name refers to a declared node or wait node.
func (g *Graph) known(name string) bool {
	if _, ok := g.nodes[name]; ok {
		return true
	}
	return g.waits[name]
}

// validate ensures the graph configuration is correct before compiling.
func (g *Graph) validate() error {
	if g.entryPoint == "" {
		return fmt.Errorf("graph: entry point not set")
	}
	if g.finishPoint == "" {
		return fmt.Errorf("graph: finish point not set")
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return fmt.Errorf("graph: start node not found: %s", g.entryPoint)
	}
	if _, ok := g.nodes[g.finishPoint]; !ok {
		return fmt.Errorf("graph: end node not found: %s", g.finishPoint)
	}
	for from, to := range g.edges {
		if !g.known(from) {
			return fmt.Errorf("graph: edge from unknown node: %s", from)
		}
		if !g.known(to) {
			return fmt.Errorf("graph: edge to unknown node: %s", to)
		}
	}
	for _, rt := range g.routerTargets {
		if _, ok := g.nodes[rt.from]; !ok {
			return fmt.Errorf("graph: router on unknown node: %s", rt.from)
		}
		for _, target := range rt.targets {
			if !g.known(target) {
				return fmt.Errorf("graph: router target unknown node: %s", target)
			}
		}
	}
	for name := range g.waits {
		if _, ok := g.nodes[name]; ok {
			return fmt.Errorf("graph: node %s declared as both node and wait node", name)
		}
		if _, ok := g.edges[name]; !ok {
			return fmt.Errorf("graph: wait node %s has no outgoing edge", name)
		}
	}
	for name := range g.nodes {
		if name == g.finishPoint {
			continue
		}
		_, hasEdge := g.edges[name]
		_, hasRouter := g.routers[name]
		if !hasEdge && !hasRouter {
			return fmt.Errorf("graph: node %s has no outgoing edge or router", name)
		}
	}
	return nil
}

// Compile validates the graph and returns an Executor over it.
func (g *Graph) Compile() (*Executor, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}
	if g.saver == nil {
		g.saver = NewMemorySaver()
	}
	return &Executor{graph: g}, nil
}
