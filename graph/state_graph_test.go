package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterState struct {
	Count int
	Path  []string
}

func step(name string) func(ctx context.Context, state counterState) (counterState, error) {
	return func(ctx context.Context, state counterState) (counterState, error) {
		state.Count++
		state.Path = append(state.Path, name)
		return state, nil
	}
}

func TestStateGraph_LinearInvoke(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("a", "first", step("a"))
	g.AddNode("b", "second", step("b"))
	g.AddEdge("a", "b")
	g.AddEdge("b", END)
	g.SetEntryPoint("a")

	runnable, err := g.Compile()
	require.NoError(t, err)

	result, err := runnable.Invoke(context.Background(), counterState{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, []string{"a", "b"}, result.Path)
	assert.Equal(t, "a", runnable.Graph().EntryPoint())
	assert.Equal(t, []string{"a", "b"}, runnable.Graph().NodeNames())
}

func TestStateGraph_CompileValidation(t *testing.T) {
	tests := []struct {
		name  string
		build func(g *StateGraph[counterState])
		err   error
	}{
		{
			name: "missing entry point",
			build: func(g *StateGraph[counterState]) {
				g.AddNode("a", "a", step("a"))
				g.AddEdge("a", END)
			},
			err: ErrEntryPointNotSet,
		},
		{
			name: "unknown entry point",
			build: func(g *StateGraph[counterState]) {
				g.AddNode("a", "a", step("a"))
				g.AddEdge("a", END)
				g.SetEntryPoint("missing")
			},
			err: ErrNodeNotFound,
		},
		{
			name: "edge to unknown node",
			build: func(g *StateGraph[counterState]) {
				g.AddNode("a", "a", step("a"))
				g.AddEdge("a", "ghost")
				g.SetEntryPoint("a")
			},
			err: ErrNodeNotFound,
		},
		{
			name: "undeclared conditional target",
			build: func(g *StateGraph[counterState]) {
				g.AddNode("a", "a", step("a"))
				g.AddConditionalEdge("a", func(ctx context.Context, s counterState) (string, error) {
					return END, nil
				}, "ghost")
				g.SetEntryPoint("a")
			},
			err: ErrNodeNotFound,
		},
		{
			name: "dead end node",
			build: func(g *StateGraph[counterState]) {
				g.AddNode("a", "a", step("a"))
				g.AddNode("b", "b", step("b"))
				g.AddEdge("a", "b")
				g.SetEntryPoint("a")
			},
			err: ErrNoOutgoingEdge,
		},
		{
			name: "fan out",
			build: func(g *StateGraph[counterState]) {
				g.AddNode("a", "a", step("a"))
				g.AddNode("b", "b", step("b"))
				g.AddEdge("a", "b")
				g.AddEdge("a", END)
				g.AddEdge("b", END)
				g.SetEntryPoint("a")
			},
			err: ErrMultipleOutgoingEdges,
		},
		{
			name: "edge and conditional edge from same node",
			build: func(g *StateGraph[counterState]) {
				g.AddNode("a", "a", step("a"))
				g.AddEdge("a", END)
				g.AddConditionalEdge("a", func(ctx context.Context, s counterState) (string, error) {
					return END, nil
				}, END)
				g.SetEntryPoint("a")
			},
			err: ErrMultipleOutgoingEdges,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewStateGraph[counterState]()
			tt.build(g)
			runnable, err := g.Compile()
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, runnable)
		})
	}
}

func TestStateGraph_NodeErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")

	g := NewStateGraph[counterState]()
	g.AddNode("a", "a", step("a"))
	g.AddNode("fail", "fails", func(ctx context.Context, state counterState) (counterState, error) {
		return state, boom
	})
	g.AddNode("never", "unreachable", step("never"))
	g.AddEdge("a", "fail")
	g.AddEdge("fail", "never")
	g.AddEdge("never", END)
	g.SetEntryPoint("a")

	runnable, err := g.Compile()
	require.NoError(t, err)

	result, err := runnable.Invoke(context.Background(), counterState{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "fail", nodeErr.Node)
	assert.Equal(t, "error in node fail: boom", err.Error())
	assert.Zero(t, result)
}

func TestStateGraph_PanicRecovered(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("a", "a", func(ctx context.Context, state counterState) (counterState, error) {
		panic("kaboom")
	})
	g.AddEdge("a", END)
	g.SetEntryPoint("a")

	runnable, err := g.Compile()
	require.NoError(t, err)

	_, err = runnable.Invoke(context.Background(), counterState{})
	assert.ErrorIs(t, err, ErrNodePanic)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestStateGraph_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	g := NewStateGraph[counterState]()
	g.AddNode("a", "a", func(ctx context.Context, state counterState) (counterState, error) {
		cancel()
		return step("a")(ctx, state)
	})
	g.AddNode("b", "b", step("b"))
	g.AddEdge("a", "b")
	g.AddEdge("b", END)
	g.SetEntryPoint("a")

	runnable, err := g.Compile()
	require.NoError(t, err)

	_, err = runnable.Invoke(ctx, counterState{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStateGraph_ConcurrentInvoke(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("a", "a", step("a"))
	g.AddNode("b", "b", step("b"))
	g.AddEdge("a", "b")
	g.AddEdge("b", END)
	g.SetEntryPoint("a")

	runnable, err := g.Compile()
	require.NoError(t, err)
	runnable.SetTracer(NewTracer())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			result, err := runnable.Invoke(context.Background(), counterState{Count: start})
			assert.NoError(t, err)
			assert.Equal(t, start+2, result.Count)
		}(i)
	}
	wg.Wait()
}
