package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/smallnest/ragrouter/log"
)

var (
	// ErrInvalidModelID is returned for identifiers not shaped like provider/model.
	ErrInvalidModelID = errors.New("invalid model id, expected provider/model")

	// ErrUnknownProvider is returned for providers without a registered factory.
	ErrUnknownProvider = errors.New("unknown model provider")

	// ErrNoEmbeddings is returned when a provider client cannot create embeddings.
	ErrNoEmbeddings = errors.New("provider does not support embeddings")
)

// Loader resolves a "provider/model" identifier to a chat model.
type Loader interface {
	Load(ctx context.Context, id string) (ChatModel, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, id string) (ChatModel, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, id string) (ChatModel, error) {
	return f(ctx, id)
}

// Factory creates a langchaingo model for a model name of one provider.
type Factory func(ctx context.Context, name string) (llms.Model, error)

// ParseID splits "provider/model" into its parts. Model names may contain
// further slashes, as in "ollama/library/llama3".
func ParseID(id string) (provider, name string, err error) {
	provider, name, ok := strings.Cut(strings.TrimSpace(id), "/")
	if !ok || provider == "" || name == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidModelID, id)
	}
	return strings.ToLower(provider), name, nil
}

// ProviderLoader creates one client per identifier and caches it. It is
// safe for concurrent use.
type ProviderLoader struct {
	mu        sync.Mutex
	factories map[string]Factory
	clients   map[string]llms.Model
	logger    log.Logger
}

// ProviderOptions configures the built-in providers.
type ProviderOptions struct {
	OpenAIBaseURL   string
	OpenAIToken     string
	OllamaServerURL string
}

// NewProviderLoader returns a loader with the openai and ollama providers
// registered.
func NewProviderLoader(opts ProviderOptions) *ProviderLoader {
	l := &ProviderLoader{
		factories: make(map[string]Factory),
		clients:   make(map[string]llms.Model),
		logger:    log.GetDefaultLogger(),
	}

	l.Register("openai", func(ctx context.Context, name string) (llms.Model, error) {
		clientOpts := []openai.Option{openai.WithModel(name)}
		if opts.OpenAIBaseURL != "" {
			clientOpts = append(clientOpts, openai.WithBaseURL(opts.OpenAIBaseURL))
		}
		if opts.OpenAIToken != "" {
			clientOpts = append(clientOpts, openai.WithToken(opts.OpenAIToken))
		}
		return openai.New(clientOpts...)
	})

	l.Register("ollama", func(ctx context.Context, name string) (llms.Model, error) {
		clientOpts := []ollama.Option{ollama.WithModel(name)}
		if opts.OllamaServerURL != "" {
			clientOpts = append(clientOpts, ollama.WithServerURL(opts.OllamaServerURL))
		}
		return ollama.New(clientOpts...)
	})

	return l
}

// Register adds or replaces the factory for provider.
func (l *ProviderLoader) Register(provider string, factory Factory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.factories[strings.ToLower(provider)] = factory
}

// SetLogger sets the logger used to report new clients.
func (l *ProviderLoader) SetLogger(logger log.Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = logger
}

// Load implements Loader.
func (l *ProviderLoader) Load(ctx context.Context, id string) (ChatModel, error) {
	llm, err := l.client(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewLangChainModel(id, llm), nil
}

// LoadEmbedder returns an embedder backed by the client for id.
func (l *ProviderLoader) LoadEmbedder(ctx context.Context, id string) (embeddings.Embedder, error) {
	llm, err := l.client(ctx, id)
	if err != nil {
		return nil, err
	}
	client, ok := llm.(embeddings.EmbedderClient)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoEmbeddings, id)
	}
	return embeddings.NewEmbedder(client)
}

func (l *ProviderLoader) client(ctx context.Context, id string) (llms.Model, error) {
	provider, name, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := provider + "/" + name
	if llm, ok := l.clients[key]; ok {
		return llm, nil
	}

	factory, ok := l.factories[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	llm, err := factory(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create %s model %s: %w", provider, name, err)
	}
	l.logger.Debug("created %s client for model %s", provider, name)

	l.clients[key] = llm
	return llm, nil
}
