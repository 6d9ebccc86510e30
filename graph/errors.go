package graph

import "fmt"

// NodeError is returned by StateRunnable.Invoke when a node function fails.
// It keeps the original error reachable through errors.Is and errors.As.
type NodeError struct {
	// Node is the name of the failing node
	Node string
	// Err is the error returned by the node function
	Err error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("error in node %s: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
