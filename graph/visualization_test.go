package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passthrough(ctx context.Context, state map[string]any) (map[string]any, error) {
	return state, nil
}

func TestVisualization(t *testing.T) {
	g := NewStateGraph[map[string]any]()
	g.AddNode("A", "A", passthrough)
	g.AddNode("B", "B", passthrough)
	g.AddNode("C", "C", passthrough)

	g.SetEntryPoint("A")
	g.AddEdge("A", "B")
	g.AddConditionalEdge("B", func(ctx context.Context, state map[string]any) (string, error) { return "C", nil })
	g.AddEdge("C", END)

	_, err := g.Compile()
	assert.NoError(t, err)

	exporter := NewExporter(g)

	// Test Mermaid
	mermaid := exporter.DrawMermaid()
	assert.Contains(t, mermaid, "A --> B")
	assert.Contains(t, mermaid, "B -.-> B_condition((?))")
	assert.Contains(t, mermaid, "C --> END")

	// Test Mermaid with Options
	mermaidLR := exporter.DrawMermaidWithOptions(MermaidOptions{Direction: "LR"})
	assert.Contains(t, mermaidLR, "flowchart LR")

	// Test DOT
	dot := exporter.DrawDOT()
	assert.Contains(t, dot, "A -> B")
	assert.Contains(t, dot, "B -> B_condition [style=dashed, label=\"?\"]")

	// Test ASCII
	ascii := exporter.DrawASCII()
	assert.Contains(t, ascii, "A")
	assert.Contains(t, ascii, "B")
	assert.Contains(t, ascii, "(?)")
}

func TestVisualization_DeclaredTargets(t *testing.T) {
	g := NewStateGraph[map[string]any]()
	g.AddNode("router", "router", passthrough)
	g.AddNode("left", "left", passthrough)
	g.AddNode("right", "right", passthrough)

	g.SetEntryPoint("router")
	g.AddConditionalEdge("router", func(ctx context.Context, state map[string]any) (string, error) {
		return "left", nil
	}, "left", "right")
	g.AddEdge("left", END)
	g.AddEdge("right", END)

	runnable, err := g.Compile()
	require.NoError(t, err)

	exporter := GetGraphForRunnable(runnable)

	mermaid := exporter.DrawMermaid()
	assert.Contains(t, mermaid, "START --> router")
	assert.Contains(t, mermaid, "router -.-> left")
	assert.Contains(t, mermaid, "router -.-> right")
	assert.NotContains(t, mermaid, "router_condition")

	dot := exporter.DrawDOT()
	assert.Contains(t, dot, "router -> left [style=dashed];")
	assert.Contains(t, dot, "END [label=\"END\"")

	ascii := exporter.DrawASCII()
	assert.Contains(t, ascii, "left (?)")
	assert.Contains(t, ascii, "right (?)")
	assert.Contains(t, ascii, "END")
}

func TestVisualization_NoEntryPoint(t *testing.T) {
	g := NewStateGraph[map[string]any]()
	assert.Equal(t, "No entry point set\n", NewExporter(g).DrawASCII())
}
