package retrieval

import (
	"context"
	"fmt"

	"github.com/smallnest/ragrouter/config"
	"github.com/smallnest/ragrouter/graph"
	"github.com/smallnest/ragrouter/message"
	"github.com/smallnest/ragrouter/model"
	"github.com/smallnest/ragrouter/prompt"
	"github.com/smallnest/ragrouter/rag"
)

// Node names of the workflow graph.
const (
	NodeCheckQueryType    = "checkQueryType"
	NodeDirectAnswer      = "directAnswer"
	NodeRetrieveDocuments = "retrieveDocuments"
	NodeGenerateResponse  = "generateResponse"
)

var routeSchema = model.MustSchemaFor[RouteDecision]()

// RouteQuery picks the node that follows checkQueryType. It only reads
// state.Route.
func RouteQuery(_ context.Context, state State) (string, error) {
	if state.Route == nil {
		return "", ErrRouteNotSet
	}
	switch *state.Route {
	case RouteRetrieve:
		return NodeRetrieveDocuments, nil
	case RouteDirect:
		return NodeDirectAnswer, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRoute, *state.Route)
	}
}

// agentConfig resolves the models for the running invocation.
func (w *Workflow) agentConfig(ctx context.Context) (config.AgentConfiguration, error) {
	return config.EnsureAgentConfiguration(graph.GetConfig(ctx), w.defaults)
}

func (w *Workflow) loadModel(ctx context.Context, pick func(config.AgentConfiguration) string) (model.ChatModel, error) {
	agent, err := w.agentConfig(ctx)
	if err != nil {
		return nil, err
	}
	return w.loader.Load(ctx, pick(agent))
}

func queryModel(a config.AgentConfiguration) string    { return a.QueryModel }
func responseModel(a config.AgentConfiguration) string { return a.ResponseModel }

func (w *Workflow) checkQueryType(ctx context.Context, state State) (State, error) {
	w.logger.Info("Node: %s - Query: %s", NodeCheckQueryType, state.Query)

	if state.Route != nil {
		return state, fmt.Errorf("%w: already %q", ErrRouteAlreadySet, *state.Route)
	}

	m, err := w.loadModel(ctx, queryModel)
	if err != nil {
		return state, err
	}

	instruction, err := w.renderer.Render(prompt.TemplateRouter, map[string]any{"query": state.Query})
	if err != nil {
		return state, err
	}

	turns := message.Normalize([]message.Turn{message.HumanTurn(instruction)})
	decision, err := model.InvokeStructured[RouteDecision](ctx, m, turns, routeSchema)
	if err != nil {
		return state, err
	}
	if !decision.Route.Valid() {
		return state, fmt.Errorf("%w: route %q", model.ErrSchemaCoercion, decision.Route)
	}

	if err := state.setRoute(decision.Route); err != nil {
		return state, err
	}
	state.ProposedAnswer = decision.DirectAnswer

	w.logger.Info("Node: %s - Route: %s", NodeCheckQueryType, decision.Route)
	return state, nil
}

func (w *Workflow) directAnswer(ctx context.Context, state State) (State, error) {
	w.logger.Info("Node: %s - Query: %s", NodeDirectAnswer, state.Query)

	m, err := w.loadModel(ctx, responseModel)
	if err != nil {
		return state, err
	}

	question := message.HumanTurn(state.Query)
	reply, err := m.Invoke(ctx, message.Normalize([]message.Turn{question}))
	if err != nil {
		return state, err
	}

	state.Messages = append(state.Messages, question, reply)
	w.logger.Debug("Generated direct answer: %d chars", len(reply.Content))
	return state, nil
}

func (w *Workflow) retrieveDocuments(ctx context.Context, state State) (State, error) {
	w.logger.Info("Node: %s - Query: %s", NodeRetrieveDocuments, state.Query)

	docs, err := w.retriever.Retrieve(ctx, state.Query)
	if err != nil {
		return state, err
	}

	state.Documents = rag.Deduplicate(docs)
	w.logger.Info("Retrieved %d document(s), %d after deduplication", len(docs), len(state.Documents))
	return state, nil
}

func (w *Workflow) generateResponse(ctx context.Context, state State) (State, error) {
	w.logger.Info("Node: %s - %d document(s) in context", NodeGenerateResponse, len(state.Documents))

	m, err := w.loadModel(ctx, responseModel)
	if err != nil {
		return state, err
	}

	instruction, err := w.renderer.Render(prompt.TemplateResponse, map[string]any{
		"question": state.Query,
		"context":  rag.FormatDocuments(state.Documents),
	})
	if err != nil {
		return state, err
	}

	input := append(message.Normalize(state.Messages), message.HumanTurn(instruction))
	reply, err := m.Invoke(ctx, input)
	if err != nil {
		return state, err
	}

	state.Messages = append(state.Messages, message.HumanTurn(state.Query), reply)
	w.logger.Info("Generated response: %d chars", len(reply.Content))
	return state, nil
}
