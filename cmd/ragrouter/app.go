package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/smallnest/ragrouter/config"
	"github.com/smallnest/ragrouter/graph"
	"github.com/smallnest/ragrouter/ingest"
	"github.com/smallnest/ragrouter/log"
	"github.com/smallnest/ragrouter/metrics"
	"github.com/smallnest/ragrouter/model"
	"github.com/smallnest/ragrouter/prompt"
	"github.com/smallnest/ragrouter/rag"
	"github.com/smallnest/ragrouter/rag/store"
	"github.com/smallnest/ragrouter/retrieval"
)

// mockEmbeddingModel selects hashed embeddings, which need no provider.
const mockEmbeddingModel = "mock"

// app is everything one command needs to answer queries.
type app struct {
	settings config.Settings
	logger   log.Logger

	loader    *model.ProviderLoader
	index     rag.Indexer
	retriever rag.Retriever
	cache     *store.CachedRetriever
	workflow  *retrieval.Workflow
	tracer    *graph.Tracer
	registry  *prometheus.Registry

	closers []func()
}

func newApp(ctx context.Context, c *cli) (*app, error) {
	a := &app{
		settings: c.settings,
		logger:   log.GetDefaultLogger(),
		registry: prometheus.NewRegistry(),
	}

	a.loader = model.NewProviderLoader(model.ProviderOptions{
		OpenAIBaseURL:   c.settings.OpenAIBaseURL,
		OpenAIToken:     c.settings.OpenAIToken,
		OllamaServerURL: c.settings.OllamaServerURL,
	})
	a.loader.SetLogger(a.logger)

	if err := a.openBackend(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openCache(ctx); err != nil {
		a.Close()
		return nil, err
	}

	renderer, err := loadTemplates(c.settings)
	if err != nil {
		a.Close()
		return nil, err
	}

	collector, err := metrics.NewCollector(a.registry)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []retrieval.Option{
		retrieval.WithRenderer(renderer),
		retrieval.WithDefaults(c.settings.Agent()),
		retrieval.WithLogger(a.logger),
		retrieval.WithListener(metrics.NewNodeListener[retrieval.State](collector)),
		retrieval.WithListener(graph.NewLoggingListener[retrieval.State](a.logger)),
	}
	if c.trace {
		a.tracer = graph.NewTracer()
		opts = append(opts, retrieval.WithTracer(a.tracer))
	}

	a.workflow, err = retrieval.New(a.loader, a.retriever, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	if c.metricsAddr != "" {
		a.serveMetrics(c.metricsAddr)
	}
	return a, nil
}

// openBackend creates the retriever and the index it reads from.
func (a *app) openBackend(ctx context.Context) error {
	switch a.settings.Retriever {
	case config.BackendPGVector:
		embedder, err := a.loader.LoadEmbedder(ctx, a.settings.EmbeddingModel)
		if err != nil {
			return err
		}
		pg, err := store.NewPGVectorStore(ctx, store.PGVectorConfig{
			URL:        a.settings.PostgresURL,
			Collection: a.settings.Collection,
			TopK:       a.settings.TopK,
		}, embedder)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pg.Close)
		a.index, a.retriever = pg, pg
		return nil

	case config.BackendMemory:
		embedder, err := a.memoryEmbedder(ctx)
		if err != nil {
			return err
		}
		vs := store.NewInMemoryVectorStore(embedder)
		a.index = vs
		a.retriever = store.NewVectorRetriever(vs, embedder, store.WithTopK(a.settings.TopK))
		return nil

	default:
		return fmt.Errorf("unknown retriever backend %q", a.settings.Retriever)
	}
}

// openCache puts the Redis result cache in front of the retriever.
func (a *app) openCache(ctx context.Context) error {
	if a.settings.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(a.settings.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid redis_url: %w", err)
	}
	client := redis.NewClient(opts)
	a.closers = append(a.closers, func() { client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	a.cache = store.NewCachedRetriever(client, a.retriever, store.CacheOptions{
		Prefix: a.settings.Collection + ":",
		TTL:    a.settings.CacheTTL,
	})
	a.retriever = a.cache
	return nil
}

func (a *app) memoryEmbedder(ctx context.Context) (rag.Embedder, error) {
	if a.settings.EmbeddingModel == mockEmbeddingModel {
		return store.NewMockEmbedder(256), nil
	}
	embedder, err := a.loader.LoadEmbedder(ctx, a.settings.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	return rag.NewLangChainEmbedder(embedder), nil
}

// Ingest indexes files into the app's backend.
func (a *app) Ingest(ctx context.Context, paths ...string) (ingest.State, error) {
	pipeline, err := ingest.New(a.index, ingest.Config{
		ChunkSize:    a.settings.ChunkSize,
		ChunkOverlap: a.settings.ChunkOverlap,
	}, a.logger)
	if err != nil {
		return ingest.State{}, err
	}
	state, err := pipeline.Ingest(ctx, paths...)
	if err != nil {
		return state, err
	}
	if a.cache != nil {
		removed, err := a.cache.Invalidate(ctx)
		if err != nil {
			return state, err
		}
		a.logger.Debug("dropped %d cached retrieval result(s)", removed)
	}
	return state, nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server: %v", err)
		}
	}()
	a.logger.Info("serving metrics on %s/metrics", addr)

	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})
}

// Close releases connections and stops the metrics server.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// loadTemplates returns the default prompt library with the templates from
// the settings files registered over the defaults.
func loadTemplates(settings config.Settings) (*prompt.Library, error) {
	library := prompt.NewLibrary()

	overrides := []struct {
		id   prompt.TemplateID
		file string
		vars []string
	}{
		{prompt.TemplateRouter, settings.RouterTemplateFile, []string{"query"}},
		{prompt.TemplateResponse, settings.ResponseTemplateFile, []string{"question", "context"}},
	}
	for _, o := range overrides {
		if o.file == "" {
			continue
		}
		content, err := os.ReadFile(o.file)
		if err != nil {
			return nil, fmt.Errorf("read %s template: %w", o.id, err)
		}
		if err := library.Register(o.id, string(content), o.vars...); err != nil {
			return nil, fmt.Errorf("%s template %s: %w", o.id, o.file, err)
		}
	}
	return library, nil
}
