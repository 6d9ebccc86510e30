package graph

import (
	"context"
	"errors"
)

// END is a special constant used to represent the end node in the graph.
const END = "END"

// START is the virtual node preceding the entry point. It only appears in
// exported diagrams and trace spans.
const START = "START"

var (
	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when a node is not found in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when no outgoing edge is found for a node.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrMultipleOutgoingEdges is returned by Compile when a node has more
	// than one outgoing transition. Nodes run one at a time, so fan-out has
	// no meaning for this engine.
	ErrMultipleOutgoingEdges = errors.New("multiple outgoing edges found for node")

	// ErrInvalidTransition is returned when a conditional edge selects a
	// node it did not declare as a target.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrNodePanic is wrapped into the error returned when a node panics.
	ErrNodePanic = errors.New("node panicked")
)

// TypedNode represents a typed node in the graph.
type TypedNode[S any] struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes the functionality of the node.
	Description string

	// Function receives the current state and returns the next state.
	Function func(ctx context.Context, state S) (S, error)
}

// Edge represents an edge in the graph.
type Edge struct {
	// From is the name of the node from which the edge originates.
	From string

	// To is the name of the node to which the edge points.
	To string
}

// ConditionFunc picks the next node from the state produced by the source
// node. Returning an error aborts the invocation.
type ConditionFunc[S any] func(ctx context.Context, state S) (string, error)

type conditionalEdge[S any] struct {
	condition ConditionFunc[S]
	targets   []string
}
