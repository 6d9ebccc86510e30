package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Exporter provides methods to export graphs in different formats
type Exporter[S any] struct {
	graph *StateGraph[S]
}

// NewExporter creates a new graph exporter for the given graph
func NewExporter[S any](graph *StateGraph[S]) *Exporter[S] {
	return &Exporter[S]{graph: graph}
}

// MermaidOptions defines configuration for Mermaid diagram generation
type MermaidOptions struct {
	// Direction of the flowchart (e.g., "TD", "LR")
	Direction string
}

// DrawMermaid generates a Mermaid diagram representation of the graph
func (ge *Exporter[S]) DrawMermaid() string {
	return ge.DrawMermaidWithOptions(MermaidOptions{
		Direction: "TD",
	})
}

// DrawMermaidWithOptions generates a Mermaid diagram with custom options.
// Conditional edges with declared targets are drawn as dashed arrows to
// each target; undeclared ones point at a "?" placeholder.
func (ge *Exporter[S]) DrawMermaidWithOptions(opts MermaidOptions) string {
	var sb strings.Builder

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}
	fmt.Fprintf(&sb, "flowchart %s\n", direction)

	// Add entry point styling
	if ge.graph.entryPoint != "" {
		fmt.Fprintf(&sb, "    %s[[\"%s\"]]\n", ge.graph.entryPoint, ge.graph.entryPoint)
		fmt.Fprintf(&sb, "    %s --> %s\n", START, ge.graph.entryPoint)
		sb.WriteString("    START([\"START\"])\n")
		sb.WriteString("    style START fill:#90EE90\n")
	}

	for _, name := range ge.graph.NodeNames() {
		if name != ge.graph.entryPoint {
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", name, name)
		}
	}

	if ge.referencesEnd() {
		sb.WriteString("    END([\"END\"])\n")
		sb.WriteString("    style END fill:#FFB6C1\n")
	}

	for _, edge := range ge.graph.edges {
		fmt.Fprintf(&sb, "    %s --> %s\n", edge.From, edge.To)
	}

	for _, from := range ge.conditionalSources() {
		targets := ge.graph.conditionalEdges[from].targets
		if len(targets) == 0 {
			fmt.Fprintf(&sb, "    %s -.-> %s_condition((?))\n", from, from)
			fmt.Fprintf(&sb, "    style %s_condition fill:#FFFFE0,stroke:#333,stroke-dasharray: 5 5\n", from)
			continue
		}
		for _, to := range targets {
			fmt.Fprintf(&sb, "    %s -.-> %s\n", from, to)
		}
	}

	if ge.graph.entryPoint != "" {
		fmt.Fprintf(&sb, "    style %s fill:#87CEEB\n", ge.graph.entryPoint)
	}

	return sb.String()
}

// DrawDOT generates a DOT (Graphviz) representation of the graph
func (ge *Exporter[S]) DrawDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=TD;\n")
	sb.WriteString("    node [shape=box];\n")

	if ge.graph.entryPoint != "" {
		sb.WriteString("    START [label=\"START\", shape=ellipse, style=filled, fillcolor=lightgreen];\n")
		fmt.Fprintf(&sb, "    START -> %s;\n", ge.graph.entryPoint)
		fmt.Fprintf(&sb, "    %s [style=filled, fillcolor=lightblue];\n", ge.graph.entryPoint)
	}

	if ge.referencesEnd() {
		sb.WriteString("    END [label=\"END\", shape=ellipse, style=filled, fillcolor=lightpink];\n")
	}

	for _, edge := range ge.graph.edges {
		fmt.Fprintf(&sb, "    %s -> %s;\n", edge.From, edge.To)
	}

	for _, from := range ge.conditionalSources() {
		targets := ge.graph.conditionalEdges[from].targets
		if len(targets) == 0 {
			fmt.Fprintf(&sb, "    %s -> %s_condition [style=dashed, label=\"?\"];\n", from, from)
			fmt.Fprintf(&sb, "    %s_condition [label=\"?\", shape=diamond, style=filled, fillcolor=lightyellow];\n", from)
			continue
		}
		for _, to := range targets {
			fmt.Fprintf(&sb, "    %s -> %s [style=dashed];\n", from, to)
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// DrawASCII generates an ASCII tree representation of the graph
func (ge *Exporter[S]) DrawASCII() string {
	if ge.graph.entryPoint == "" {
		return "No entry point set\n"
	}

	var sb strings.Builder
	visited := make(map[string]bool)

	sb.WriteString("Graph Execution Flow:\n")
	sb.WriteString("├── START\n")

	ge.drawASCIINode(ge.graph.entryPoint, "│   ", true, visited, &sb)

	return sb.String()
}

// drawASCIINode recursively draws ASCII representation of nodes.
// Conditional targets are suffixed with "(?)".
func (ge *Exporter[S]) drawASCIINode(nodeName string, prefix string, isLast bool, visited map[string]bool, sb *strings.Builder) {
	ge.drawASCIILabel(nodeName, nodeName, prefix, isLast, visited, sb)
}

func (ge *Exporter[S]) drawASCIILabel(nodeName, label string, prefix string, isLast bool, visited map[string]bool, sb *strings.Builder) {
	connector := "├──"
	nextPrefix := prefix + "│   "
	if isLast {
		connector = "└──"
		nextPrefix = prefix + "    "
	}

	if visited[nodeName] && nodeName != END {
		fmt.Fprintf(sb, "%s%s %s (cycle)\n", prefix, connector, label)
		return
	}
	visited[nodeName] = true

	fmt.Fprintf(sb, "%s%s %s\n", prefix, connector, label)

	if nodeName == END {
		return
	}

	type child struct {
		name  string
		label string
	}
	children := make([]child, 0)
	for _, edge := range ge.graph.edges {
		if edge.From == nodeName {
			children = append(children, child{name: edge.To, label: edge.To})
		}
	}

	if ce, ok := ge.graph.conditionalEdges[nodeName]; ok {
		if len(ce.targets) == 0 {
			children = append(children, child{label: "(?)"})
		}
		for _, to := range ce.targets {
			children = append(children, child{name: to, label: to + " (?)"})
		}
	}

	sort.SliceStable(children, func(i, j int) bool { return children[i].label < children[j].label })

	for i, c := range children {
		isLastChild := i == len(children)-1
		if c.name == "" {
			condConnector := "├──"
			if isLastChild {
				condConnector = "└──"
			}
			fmt.Fprintf(sb, "%s%s %s\n", nextPrefix, condConnector, c.label)
			continue
		}
		ge.drawASCIILabel(c.name, c.label, nextPrefix, isLastChild, visited, sb)
	}
}

func (ge *Exporter[S]) referencesEnd() bool {
	for _, edge := range ge.graph.edges {
		if edge.To == END {
			return true
		}
	}
	for _, ce := range ge.graph.conditionalEdges {
		for _, to := range ce.targets {
			if to == END {
				return true
			}
		}
	}
	return false
}

func (ge *Exporter[S]) conditionalSources() []string {
	sources := make([]string, 0, len(ge.graph.conditionalEdges))
	for from := range ge.graph.conditionalEdges {
		sources = append(sources, from)
	}
	sort.Strings(sources)
	return sources
}

// GetGraphForRunnable returns an Exporter for the compiled graph's visualization
func GetGraphForRunnable[S any](r *StateRunnable[S]) *Exporter[S] {
	return NewExporter(r.graph)
}
