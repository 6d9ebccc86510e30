package graph

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
)

// StateGraph represents a generic state-based graph with compile-time type safety.
// The type parameter S represents the state type, which is typically a struct.
//
// Example usage:
//
//	type MyState struct {
//	    Count int
//	    Name  string
//	}
//
//	g := graph.NewStateGraph[MyState]()
//	g.AddNode("increment", "Increment counter", func(ctx context.Context, state MyState) (MyState, error) {
//	    state.Count++
//	    return state, nil
//	})
type StateGraph[S any] struct {
	// nodes is a map of node names to their corresponding Node objects
	nodes map[string]TypedNode[S]

	// edges is a slice of Edge objects representing the connections between nodes
	edges []Edge

	// conditionalEdges maps a source node to the function choosing its successor
	conditionalEdges map[string]conditionalEdge[S]

	// entryPoint is the name of the entry point node in the graph
	entryPoint string
}

// NewStateGraph creates a new instance of StateGraph with type safety.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]TypedNode[S]),
		conditionalEdges: make(map[string]conditionalEdge[S]),
	}
}

// AddNode adds a new node to the state graph with the given name, description and function.
func (g *StateGraph[S]) AddNode(name string, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.nodes[name] = TypedNode[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddEdge adds a new edge to the state graph between the "from" and "to" nodes.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{
		From: from,
		To:   to,
	})
}

// AddConditionalEdge adds a conditional edge where the target node is determined at runtime.
// The optional targets list declares every node the condition may return; when
// present, Compile checks that they exist and Invoke rejects any other result.
//
// Example:
//
//	g.AddConditionalEdge("check", func(ctx context.Context, state MyState) (string, error) {
//	    if state.Count > 10 {
//	        return "high", nil
//	    }
//	    return "low", nil
//	}, "high", "low")
func (g *StateGraph[S]) AddConditionalEdge(from string, condition ConditionFunc[S], targets ...string) {
	g.conditionalEdges[from] = conditionalEdge[S]{
		condition: condition,
		targets:   targets,
	}
}

// SetEntryPoint sets the entry point node name for the state graph.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// EntryPoint returns the configured entry point.
func (g *StateGraph[S]) EntryPoint() string {
	return g.entryPoint
}

// NodeNames returns the names of all registered nodes, sorted.
func (g *StateGraph[S]) NodeNames() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validate checks that the graph is a well formed transition table: every
// referenced node exists and every node has exactly one way out.
func (g *StateGraph[S]) validate() error {
	if g.entryPoint == "" {
		return ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return fmt.Errorf("%w: entry point %s", ErrNodeNotFound, g.entryPoint)
	}

	exists := func(name string) bool {
		if name == END {
			return true
		}
		_, ok := g.nodes[name]
		return ok
	}

	outgoing := make(map[string]int, len(g.nodes))
	for _, edge := range g.edges {
		if _, ok := g.nodes[edge.From]; !ok {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, edge.From)
		}
		if !exists(edge.To) {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, edge.To)
		}
		outgoing[edge.From]++
	}

	for from, ce := range g.conditionalEdges {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
		}
		if ce.condition == nil {
			return fmt.Errorf("conditional edge from %s has no condition", from)
		}
		for _, target := range ce.targets {
			if !exists(target) {
				return fmt.Errorf("%w: %s", ErrNodeNotFound, target)
			}
		}
		outgoing[from]++
	}

	for _, name := range g.NodeNames() {
		switch n := outgoing[name]; {
		case n == 0:
			return fmt.Errorf("%w: %s", ErrNoOutgoingEdge, name)
		case n > 1:
			return fmt.Errorf("%w: %s", ErrMultipleOutgoingEdges, name)
		}
	}
	return nil
}

// StateRunnable represents a compiled state graph that can be invoked with type safety.
// A StateRunnable is safe for concurrent use once listeners are registered.
type StateRunnable[S any] struct {
	graph     *StateGraph[S]
	tracer    *Tracer
	listeners []NodeListener[S]
}

// Compile validates the state graph and returns a StateRunnable instance.
func (g *StateGraph[S]) Compile() (*StateRunnable[S], error) {
	if err := g.validate(); err != nil {
		return nil, err
	}

	return &StateRunnable[S]{
		graph: g,
	}, nil
}

// Graph returns the graph the runnable was compiled from.
func (r *StateRunnable[S]) Graph() *StateGraph[S] {
	return r.graph
}

// SetTracer sets a tracer for observability.
func (r *StateRunnable[S]) SetTracer(tracer *Tracer) {
	r.tracer = tracer
}

// GetTracer returns the current tracer.
func (r *StateRunnable[S]) GetTracer() *Tracer {
	return r.tracer
}

// WithTracer returns a new StateRunnable with the given tracer.
func (r *StateRunnable[S]) WithTracer(tracer *Tracer) *StateRunnable[S] {
	return &StateRunnable[S]{
		graph:     r.graph,
		tracer:    tracer,
		listeners: slices.Clone(r.listeners),
	}
}

// AddListener registers a listener notified about every node execution.
// Register listeners before the first call to Invoke.
func (r *StateRunnable[S]) AddListener(listener NodeListener[S]) *StateRunnable[S] {
	r.listeners = append(r.listeners, listener)
	return r
}

// Invoke executes the compiled state graph with the given input state.
func (r *StateRunnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	return r.InvokeWithConfig(ctx, initialState, nil)
}

// InvokeWithConfig executes the compiled state graph with the given input state and config.
// Nodes run one after another starting at the entry point until END is reached.
// The first failing node or transition aborts the invocation.
func (r *StateRunnable[S]) InvokeWithConfig(ctx context.Context, initialState S, config *Config) (S, error) {
	var zero S
	state := initialState

	if config != nil {
		ctx = WithConfig(ctx, config)
	}
	ctx = withRunID(ctx, uuid.NewString())

	// Start graph tracing if tracer is set
	var graphSpan *TraceSpan
	if r.tracer != nil {
		graphSpan = r.tracer.StartSpan(ctx, TraceEventGraphStart, "graph")
		ctx = ContextWithSpan(ctx, graphSpan)
	}

	fail := func(err error) (S, error) {
		if graphSpan != nil {
			r.tracer.EndSpan(ctx, graphSpan, state, err)
		}
		return zero, err
	}

	if r.tracer != nil {
		r.tracer.TraceEdgeTraversal(ctx, START, r.graph.entryPoint)
	}

	current := r.graph.entryPoint
	for current != END {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		node, ok := r.graph.nodes[current]
		if !ok {
			return fail(fmt.Errorf("%w: %s", ErrNodeNotFound, current))
		}

		next, err := r.runNode(ctx, node, state)
		if err != nil {
			return fail(err)
		}
		state = next

		nextNode, err := r.nextNode(ctx, current, state)
		if err != nil {
			return fail(err)
		}

		if r.tracer != nil {
			r.tracer.TraceEdgeTraversal(ctx, current, nextNode)
		}
		current = nextNode
	}

	// End graph tracing
	if graphSpan != nil {
		r.tracer.EndSpan(ctx, graphSpan, state, nil)
	}

	return state, nil
}

// runNode executes a single node, notifying listeners and the tracer.
func (r *StateRunnable[S]) runNode(ctx context.Context, node TypedNode[S], state S) (S, error) {
	ctx = withNodeStart(ctx, time.Now())

	var nodeSpan *TraceSpan
	if r.tracer != nil {
		nodeSpan = r.tracer.StartSpan(ctx, TraceEventNodeStart, node.Name)
	}
	r.notify(ctx, NodeEventStart, node.Name, state, nil)

	result, err := r.execute(ctx, node, state)

	if nodeSpan != nil {
		r.tracer.EndSpan(ctx, nodeSpan, result, err)
	}

	if err != nil {
		r.notify(ctx, NodeEventError, node.Name, state, err)
		var zero S
		return zero, &NodeError{Node: node.Name, Err: err}
	}

	r.notify(ctx, NodeEventComplete, node.Name, result, nil)
	return result, nil
}

// execute calls the node function, turning a panic into an error.
func (r *StateRunnable[S]) execute(ctx context.Context, node TypedNode[S], state S) (result S, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrNodePanic, p)
		}
	}()
	return node.Function(ctx, state)
}

// nextNode determines the successor of a node from its conditional edge or
// its static edge.
func (r *StateRunnable[S]) nextNode(ctx context.Context, from string, state S) (string, error) {
	if ce, ok := r.graph.conditionalEdges[from]; ok {
		next, err := ce.condition(ctx, state)
		if err != nil {
			return "", fmt.Errorf("conditional edge from %s: %w", from, err)
		}
		if next == "" {
			return "", fmt.Errorf("%w: conditional edge returned empty next node from %s", ErrInvalidTransition, from)
		}
		if len(ce.targets) > 0 && !slices.Contains(ce.targets, next) {
			return "", fmt.Errorf("%w: %s -> %s is not a declared target", ErrInvalidTransition, from, next)
		}
		if _, ok := r.graph.nodes[next]; !ok && next != END {
			return "", fmt.Errorf("%w: %s", ErrNodeNotFound, next)
		}
		return next, nil
	}

	for _, edge := range r.graph.edges {
		if edge.From == from {
			return edge.To, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, from)
}

func (r *StateRunnable[S]) notify(ctx context.Context, event NodeEvent, nodeName string, state S, err error) {
	for _, l := range r.listeners {
		l.OnNodeEvent(ctx, event, nodeName, state, err)
	}
}
