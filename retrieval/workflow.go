// Package retrieval implements the routed question answering workflow.
//
// A query first reaches checkQueryType, which asks the query model whether
// the indexed documents are needed. RouteQuery then sends it either to
// directAnswer or through retrieveDocuments and generateResponse:
//
//	START -> checkQueryType -> retrieveDocuments -> generateResponse -> END
//	                        \-> directAnswer -> END
//
// Both terminal nodes append the user's query and the model's reply to the
// conversation history, so the returned State can seed the next call.
package retrieval

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/smallnest/ragrouter/config"
	"github.com/smallnest/ragrouter/graph"
	"github.com/smallnest/ragrouter/log"
	"github.com/smallnest/ragrouter/message"
	"github.com/smallnest/ragrouter/model"
	"github.com/smallnest/ragrouter/prompt"
	"github.com/smallnest/ragrouter/rag"
)

// Workflow is a compiled retrieval workflow. It is safe for concurrent
// use once built.
type Workflow struct {
	loader    model.Loader
	retriever rag.Retriever
	renderer  prompt.Renderer
	defaults  config.AgentConfiguration
	logger    log.Logger
	listeners []graph.NodeListener[State]
	tracer    *graph.Tracer

	runnable *graph.StateRunnable[State]
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithRenderer replaces the default prompt library.
func WithRenderer(renderer prompt.Renderer) Option {
	return func(w *Workflow) {
		w.renderer = renderer
	}
}

// WithDefaults sets the models used when the invocation config names none.
func WithDefaults(defaults config.AgentConfiguration) Option {
	return func(w *Workflow) {
		w.defaults = defaults
	}
}

// WithLogger sets the logger used by the nodes.
func WithLogger(logger log.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// WithListener registers a node listener, for example a metrics collector.
func WithListener(listener graph.NodeListener[State]) Option {
	return func(w *Workflow) {
		w.listeners = append(w.listeners, listener)
	}
}

// WithTracer records graph, node and edge spans on tracer.
func WithTracer(tracer *graph.Tracer) Option {
	return func(w *Workflow) {
		w.tracer = tracer
	}
}

// New builds and compiles the workflow.
func New(loader model.Loader, retriever rag.Retriever, opts ...Option) (*Workflow, error) {
	if loader == nil {
		return nil, fmt.Errorf("%w: nil model loader", ErrWiring)
	}
	if retriever == nil {
		return nil, fmt.Errorf("%w: nil retriever", ErrWiring)
	}

	w := &Workflow{
		loader:    loader,
		retriever: retriever,
		renderer:  prompt.NewLibrary(),
		logger:    log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.renderer == nil {
		return nil, fmt.Errorf("%w: nil prompt renderer", ErrWiring)
	}
	if w.logger == nil {
		w.logger = log.GetDefaultLogger()
	}

	runnable, err := BuildGraph(w).Compile()
	if err != nil {
		return nil, err
	}
	for _, listener := range w.listeners {
		runnable.AddListener(listener)
	}
	if w.tracer != nil {
		runnable.SetTracer(w.tracer)
	}
	w.runnable = runnable
	return w, nil
}

// BuildGraph assembles the uncompiled workflow graph around w's nodes.
func BuildGraph(w *Workflow) *graph.StateGraph[State] {
	g := graph.NewStateGraph[State]()

	g.AddNode(NodeCheckQueryType, "Determine if query needs document retrieval", w.checkQueryType)
	g.AddNode(NodeDirectAnswer, "Answer directly without retrieval", w.directAnswer)
	g.AddNode(NodeRetrieveDocuments, "Retrieve relevant documents", w.retrieveDocuments)
	g.AddNode(NodeGenerateResponse, "Generate response from retrieved documents", w.generateResponse)

	g.SetEntryPoint(NodeCheckQueryType)
	g.AddConditionalEdge(NodeCheckQueryType, RouteQuery, NodeRetrieveDocuments, NodeDirectAnswer)
	g.AddEdge(NodeRetrieveDocuments, NodeGenerateResponse)
	g.AddEdge(NodeGenerateResponse, graph.END)
	g.AddEdge(NodeDirectAnswer, graph.END)

	return g
}

// Invoke answers query. history holds earlier turns of the conversation
// and is not modified. cfg may override the models through its
// Configurable map; it may be nil.
func (w *Workflow) Invoke(ctx context.Context, query string, history []message.Turn, cfg *graph.Config) (State, error) {
	if strings.TrimSpace(query) == "" {
		return State{}, ErrEmptyQuery
	}

	state := State{
		Query:    query,
		Messages: slices.Clone(history),
	}
	return w.runnable.InvokeWithConfig(ctx, state, cfg)
}

// Graph returns the compiled graph, for visualization.
func (w *Workflow) Graph() *graph.StateGraph[State] {
	return w.runnable.Graph()
}

// Exporter returns an exporter drawing the workflow graph.
func (w *Workflow) Exporter() *graph.Exporter[State] {
	return graph.GetGraphForRunnable(w.runnable)
}
