package graph

import (
	"context"
	"time"

	"github.com/smallnest/ragrouter/log"
)

// NodeEvent represents different types of node events
type NodeEvent string

const (
	// NodeEventStart indicates a node has started execution
	NodeEventStart NodeEvent = "start"

	// NodeEventComplete indicates a node has completed successfully
	NodeEventComplete NodeEvent = "complete"

	// NodeEventError indicates a node encountered an error
	NodeEventError NodeEvent = "error"
)

// NodeListener defines the interface for typed node event listeners.
// Listeners are called synchronously on the invoking goroutine, so they
// must not block.
type NodeListener[S any] interface {
	// OnNodeEvent is called when a node event occurs
	OnNodeEvent(ctx context.Context, event NodeEvent, nodeName string, state S, err error)
}

// NodeListenerFunc is a function adapter for NodeListener
type NodeListenerFunc[S any] func(ctx context.Context, event NodeEvent, nodeName string, state S, err error)

// OnNodeEvent implements the NodeListener interface
func (f NodeListenerFunc[S]) OnNodeEvent(ctx context.Context, event NodeEvent, nodeName string, state S, err error) {
	f(ctx, event, nodeName, state, err)
}

// LoggingListener writes node lifecycle events to a log.Logger.
type LoggingListener[S any] struct {
	logger log.Logger
}

// NewLoggingListener creates a listener logging through logger. A nil
// logger falls back to the package default.
func NewLoggingListener[S any](logger log.Logger) *LoggingListener[S] {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &LoggingListener[S]{logger: logger}
}

// OnNodeEvent implements the NodeListener interface
func (l *LoggingListener[S]) OnNodeEvent(ctx context.Context, event NodeEvent, nodeName string, _ S, err error) {
	var elapsed time.Duration
	if start, ok := NodeStartTime(ctx); ok {
		elapsed = time.Since(start)
	}

	switch event {
	case NodeEventStart:
		l.logger.Debug("Node: %s started (run %s)", nodeName, RunID(ctx))
	case NodeEventComplete:
		l.logger.Info("Node: %s completed in %v", nodeName, elapsed)
	case NodeEventError:
		l.logger.Error("Node: %s failed after %v: %v", nodeName, elapsed, err)
	}
}
