// Package config resolves per-invocation agent settings and loads process
// settings from the environment, a .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/smallnest/ragrouter/graph"
)

const (
	// KeyQueryModel is the Configurable key selecting the routing model.
	KeyQueryModel = "queryModel"

	// KeyResponseModel is the Configurable key selecting the answering model.
	KeyResponseModel = "responseModel"
)

// ErrNoQueryModel is returned when neither the invocation nor the defaults
// name a query model.
var ErrNoQueryModel = errors.New("no query model configured")

// AgentConfiguration names the models one invocation uses. Model ids have
// the form provider/model.
type AgentConfiguration struct {
	QueryModel    string
	ResponseModel string
}

// EnsureAgentConfiguration resolves the agent configuration for an
// invocation. Values in cfg.Configurable win over defaults; an empty
// ResponseModel falls back to QueryModel.
func EnsureAgentConfiguration(cfg *graph.Config, defaults AgentConfiguration) (AgentConfiguration, error) {
	resolved := defaults

	if cfg != nil {
		var err error
		if resolved.QueryModel, err = stringValue(cfg.Configurable, KeyQueryModel, resolved.QueryModel); err != nil {
			return AgentConfiguration{}, err
		}
		if resolved.ResponseModel, err = stringValue(cfg.Configurable, KeyResponseModel, resolved.ResponseModel); err != nil {
			return AgentConfiguration{}, err
		}
	}

	if resolved.QueryModel == "" {
		return AgentConfiguration{}, ErrNoQueryModel
	}
	if resolved.ResponseModel == "" {
		resolved.ResponseModel = resolved.QueryModel
	}
	return resolved, nil
}

func stringValue(values map[string]any, key, fallback string) (string, error) {
	v, ok := values[key]
	if !ok || v == nil {
		return fallback, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("configurable %s: expected string, got %T", key, v)
	}
	if s = strings.TrimSpace(s); s == "" {
		return fallback, nil
	}
	return s, nil
}
