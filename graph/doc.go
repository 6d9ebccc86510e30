// Package graph provides the state graph engine the retrieval workflow runs on.
//
// A StateGraph[S] is a transition table over a typed state S. Nodes are
// functions from state to state; each node leaves through exactly one static
// edge or one conditional edge, and Compile rejects graphs that break this
// rule. Nodes execute one at a time on the invoking goroutine, so a state
// value is never shared between nodes that run concurrently.
//
// # Example Usage
//
//	type State struct {
//		Query  string
//		Answer string
//	}
//
//	g := graph.NewStateGraph[State]()
//	g.AddNode("classify", "Decide how to answer", classify)
//	g.AddNode("answer", "Answer the query", answer)
//	g.AddNode("search", "Look things up", search)
//
//	g.SetEntryPoint("classify")
//	g.AddConditionalEdge("classify", func(ctx context.Context, s State) (string, error) {
//		if strings.HasSuffix(s.Query, "?") {
//			return "search", nil
//		}
//		return "answer", nil
//	}, "search", "answer")
//	g.AddEdge("search", "answer")
//	g.AddEdge("answer", graph.END)
//
//	runnable, err := g.Compile()
//	if err != nil {
//		return err
//	}
//	result, err := runnable.InvokeWithConfig(ctx, State{Query: "why?"}, &graph.Config{
//		Configurable: map[string]any{"queryModel": "openai/gpt-4o-mini"},
//	})
//
// # Observability
//
// NodeListener receives start, complete and error events for every node;
// LoggingListener writes them through the log package. A Tracer records
// graph, node and edge spans, and Exporter renders the graph as Mermaid,
// DOT or an ASCII tree.
//
// # Errors
//
// A failing node aborts the invocation. The returned error is a *NodeError
// naming the node and wrapping the original error, so errors.Is and
// errors.As reach the cause. Panics inside nodes are recovered and reported
// as ErrNodePanic.
package graph
