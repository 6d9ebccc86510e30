package retrieval

import (
	"errors"
	"fmt"

	"github.com/smallnest/ragrouter/message"
	"github.com/smallnest/ragrouter/rag"
)

// Route is the router's classification of a query.
type Route string

const (
	// RouteRetrieve sends the query through retrieval and generation.
	RouteRetrieve Route = "retrieve"

	// RouteDirect answers the query without retrieval.
	RouteDirect Route = "direct"
)

// Valid reports whether r is one of the known routes.
func (r Route) Valid() bool {
	return r == RouteRetrieve || r == RouteDirect
}

// RouteDecision is the structured output requested from the query model.
type RouteDecision struct {
	Route        Route  `json:"route" jsonschema:"enum=retrieve,enum=direct,description=Whether the query needs document retrieval"`
	DirectAnswer string `json:"directAnswer,omitempty" jsonschema:"description=Optional short answer when the route is direct"`
}

// State is the per-invocation workflow state.
type State struct {
	Query string

	// Route is nil until checkQueryType sets it. It is written once.
	Route *Route

	Documents []rag.Document
	Messages  []message.Turn

	// ProposedAnswer holds the router's optional inline answer. No node
	// reads it.
	ProposedAnswer string
}

// setRoute records the route. A second call is a wiring error.
func (s *State) setRoute(r Route) error {
	if s.Route != nil {
		return fmt.Errorf("%w: already %q", ErrRouteAlreadySet, *s.Route)
	}
	s.Route = &r
	return nil
}

var (
	// ErrWiring marks defects in how the workflow was assembled, as opposed
	// to failures of the model or retriever.
	ErrWiring = errors.New("workflow wiring error")

	// ErrRouteNotSet is returned when dispatch runs before the router.
	ErrRouteNotSet = fmt.Errorf("%w: route not set", ErrWiring)

	// ErrInvalidRoute is returned when dispatch sees an unknown route.
	ErrInvalidRoute = fmt.Errorf("%w: invalid route", ErrWiring)

	// ErrRouteAlreadySet is returned when the router runs twice on one state.
	ErrRouteAlreadySet = fmt.Errorf("%w: route already set", ErrWiring)

	// ErrEmptyQuery is returned by Invoke for a blank query.
	ErrEmptyQuery = errors.New("query is empty")
)
