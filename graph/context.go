package graph

import (
	"context"
	"time"
)

// Config carries per-invocation settings into node functions.
type Config struct {
	// Configurable holds caller supplied values, such as model identifiers.
	Configurable map[string]any

	// Tags are free-form labels attached to the invocation.
	Tags []string

	// Metadata holds additional key-value pairs for observability.
	Metadata map[string]any
}

type (
	configKey    struct{}
	runIDKey     struct{}
	nodeStartKey struct{}
)

// WithConfig adds the config to the context.
func WithConfig(ctx context.Context, config *Config) context.Context {
	return context.WithValue(ctx, configKey{}, config)
}

// GetConfig retrieves the config from the context, or nil when the
// invocation was started without one.
func GetConfig(ctx context.Context) *Config {
	config, _ := ctx.Value(configKey{}).(*Config)
	return config
}

func withRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID returns the identifier of the invocation the context belongs to.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

func withNodeStart(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, nodeStartKey{}, t)
}

// NodeStartTime returns when the currently executing node started. It is
// set on the context handed to node functions and node listeners.
func NodeStartTime(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(nodeStartKey{}).(time.Time)
	return t, ok
}
