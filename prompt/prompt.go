// Package prompt renders the instruction templates sent to the chat models.
package prompt

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/prompts"
)

// TemplateID names a template in a Library.
type TemplateID string

const (
	// TemplateRouter asks the query model to pick a route. Variables: query.
	TemplateRouter TemplateID = "router"

	// TemplateResponse asks the response model to answer from retrieved
	// context. Variables: question, context.
	TemplateResponse TemplateID = "response"
)

var (
	// ErrUnknownTemplate is returned when rendering an unregistered template.
	ErrUnknownTemplate = errors.New("unknown template")

	// ErrMissingVariable is returned when a template variable has no value.
	ErrMissingVariable = errors.New("missing template variable")
)

// Renderer renders a template with the given variables.
type Renderer interface {
	Render(id TemplateID, vars map[string]any) (string, error)
}

const routerTemplate = `You are a router. Decide whether the user's query needs information retrieved from the indexed documents or can be answered directly.

User query: {{.query}}

Choose "retrieve" when the query asks about facts, details or explanations that would be found in the documents.
Choose "direct" when the query is a greeting, a question about your capabilities, or general knowledge that needs no documents.

Respond with ONLY a JSON object such as {"route": "retrieve"}. You may add "directAnswer" with a short answer when the route is "direct".`

const responseTemplate = `You are an assistant answering questions about the user's documents.
Use only the context below. If the answer is not in the context, say that you don't know.
Cite the source and page of the documents you use.

{{.context}}

Question: {{.question}}`

// Library is a concurrency-safe set of templates.
type Library struct {
	mu        sync.RWMutex
	templates map[TemplateID]prompts.PromptTemplate
}

// NewLibrary returns a library holding the default router and response
// templates.
func NewLibrary() *Library {
	l := &Library{templates: make(map[TemplateID]prompts.PromptTemplate)}
	l.templates[TemplateRouter] = prompts.NewPromptTemplate(routerTemplate, []string{"query"})
	l.templates[TemplateResponse] = prompts.NewPromptTemplate(responseTemplate, []string{"question", "context"})
	return l
}

// Register adds or replaces a template. The template uses Go template
// syntax, e.g. {{.query}}, and declares the variables it requires.
func (l *Library) Register(id TemplateID, template string, inputVariables ...string) error {
	tmpl := prompts.NewPromptTemplate(template, inputVariables)

	// Render once with placeholders to reject malformed templates early.
	probe := make(map[string]any, len(inputVariables))
	for _, v := range inputVariables {
		probe[v] = v
	}
	if _, err := tmpl.Format(probe); err != nil {
		return fmt.Errorf("template %s: %w", id, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[id] = tmpl
	return nil
}

// Render implements Renderer.
func (l *Library) Render(id TemplateID, vars map[string]any) (string, error) {
	l.mu.RLock()
	tmpl, ok := l.templates[id]
	l.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, id)
	}

	for _, v := range tmpl.InputVariables {
		if _, ok := vars[v]; !ok {
			return "", fmt.Errorf("%w: %s needs %q", ErrMissingVariable, id, v)
		}
	}

	out, err := tmpl.Format(vars)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", id, err)
	}
	return out, nil
}
