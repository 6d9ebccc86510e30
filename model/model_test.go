package model

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/ragrouter/message"
)

type mockLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	messages []llms.MessageContent
	jsonMode bool
}

func (m *mockLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = messages
	opts := llms.CallOptions{}
	for _, o := range options {
		o(&opts)
	}
	m.jsonMode = opts.JSONMode
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *mockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLangChainModel_Invoke(t *testing.T) {
	llm := &mockLLM{reply: "Paris"}
	m := NewLangChainModel("fake/model", llm)

	reply, err := m.Invoke(context.Background(), []message.Turn{
		{Role: "user", Content: "Hi", Metadata: map[string]any{"name": "x"}},
		{Role: "ai", Content: "Hello"},
		message.HumanTurn("Capital of France?"),
	})
	require.NoError(t, err)
	assert.Equal(t, message.AssistantTurn("Paris"), reply)
	assert.Equal(t, "fake/model", m.ID())

	assert.Equal(t, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "Hi"),
		llms.TextParts(llms.ChatMessageTypeAI, "Hello"),
		llms.TextParts(llms.ChatMessageTypeHuman, "Capital of France?"),
	}, llm.messages)
}

func TestLangChainModel_Errors(t *testing.T) {
	boom := errors.New("rate limited")
	_, err := NewLangChainModel("x/y", &mockLLM{err: boom}).Invoke(context.Background(), nil)
	assert.ErrorIs(t, err, boom)

	empty := ChatModelFunc(func(ctx context.Context, turns []message.Turn, opts ...llms.CallOption) (message.Turn, error) {
		return message.Turn{}, ErrEmptyResponse
	})
	_, err = InvokePrompt(context.Background(), empty, "hi")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

type decision struct {
	Route  string `json:"route" jsonschema:"enum=retrieve,enum=direct"`
	Answer string `json:"answer,omitempty"`
}

func TestInvokeStructured(t *testing.T) {
	schema, err := SchemaFor[decision]()
	require.NoError(t, err)
	assert.Contains(t, schema.String(), `"required":["route"]`)

	tests := []struct {
		name     string
		reply    string
		expected decision
		err      error
	}{
		{"plain json", `{"route":"direct","answer":"Paris"}`, decision{Route: "direct", Answer: "Paris"}, nil},
		{"fenced json", "```json\n{\"route\": \"retrieve\"}\n```", decision{Route: "retrieve"}, nil},
		{"one line fence", "```json{\"route\": \"retrieve\"}```", decision{Route: "retrieve"}, nil},
		{"leading prose", `Here you go: {"route":"direct"}`, decision{Route: "direct"}, nil},
		{"prose around fence", "Sure.\n```json\n{\"route\": \"retrieve\"}\n```\nHope that helps.", decision{Route: "retrieve"}, nil},
		{"extra fields allowed", `{"route":"retrieve","why":"docs"}`, decision{Route: "retrieve"}, nil},
		{"bad enum", `{"route":"maybe"}`, decision{}, ErrSchemaCoercion},
		{"missing field", `{"answer":"x"}`, decision{}, ErrSchemaCoercion},
		{"not json", `I think retrieve`, decision{}, ErrSchemaCoercion},
		{"empty", "  ", decision{}, ErrSchemaCoercion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &mockLLM{reply: tt.reply}
			got, err := InvokeStructured[decision](context.Background(), NewLangChainModel("x/y", llm), []message.Turn{message.HumanTurn("q")}, schema)
			assert.True(t, llm.jsonMode)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"  [1, 2]  ", "[1, 2]"},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`The answer is {"a":{"b":2}} as requested.`, `{"a":{"b":2}}`},
		{"no json here", "no json here"},
		{"} backwards {", "} backwards {"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractJSON(tt.in), tt.in)
	}
}

func TestInvokeStructured_ModelErrorIsNotCoercion(t *testing.T) {
	boom := errors.New("timeout")
	_, err := InvokeStructured[decision](context.Background(), NewLangChainModel("x/y", &mockLLM{err: boom}), nil, MustSchemaFor[decision]())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrSchemaCoercion)
}

func TestParseID(t *testing.T) {
	provider, name, err := ParseID("OpenAI/gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "openai", provider)
	assert.Equal(t, "gpt-4o-mini", name)

	_, name, err = ParseID("ollama/library/llama3")
	require.NoError(t, err)
	assert.Equal(t, "library/llama3", name)

	for _, bad := range []string{"", "gpt-4", "/x", "x/"} {
		_, _, err := ParseID(bad)
		assert.ErrorIs(t, err, ErrInvalidModelID, bad)
	}
}

func TestProviderLoader(t *testing.T) {
	l := NewProviderLoader(ProviderOptions{})

	var mu sync.Mutex
	created := 0
	l.Register("fake", func(ctx context.Context, name string) (llms.Model, error) {
		mu.Lock()
		defer mu.Unlock()
		created++
		return &mockLLM{reply: name}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := l.Load(context.Background(), "fake/echo")
			assert.NoError(t, err)
			reply, err := InvokePrompt(context.Background(), m, "hi")
			assert.NoError(t, err)
			assert.Equal(t, "echo", reply.Content)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)

	_, err := l.Load(context.Background(), "nope/x")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = l.LoadEmbedder(context.Background(), "fake/echo")
	assert.ErrorIs(t, err, ErrNoEmbeddings)

	boom := errors.New("no key")
	l.Register("broken", func(ctx context.Context, name string) (llms.Model, error) { return nil, boom })
	_, err = l.Load(context.Background(), "broken/x")
	assert.ErrorIs(t, err, boom)
}

func TestLoaderFunc(t *testing.T) {
	var requested string
	loader := LoaderFunc(func(ctx context.Context, id string) (ChatModel, error) {
		requested = id
		return ChatModelFunc(func(ctx context.Context, turns []message.Turn, opts ...llms.CallOption) (message.Turn, error) {
			return message.AssistantTurn("ok"), nil
		}), nil
	})

	m, err := loader.Load(context.Background(), "any/model")
	require.NoError(t, err)
	assert.Equal(t, "any/model", requested)

	reply, err := InvokePrompt(context.Background(), m, "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Content)
}
