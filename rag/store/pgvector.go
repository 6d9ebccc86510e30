package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/vectorstores/pgvector"

	"github.com/smallnest/ragrouter/rag"
)

// PGVectorConfig configures the Postgres backed store.
type PGVectorConfig struct {
	// URL is the Postgres connection string.
	URL string

	// Collection groups the documents of one corpus.
	Collection string

	// TopK is the number of documents returned per query.
	TopK int
}

// PGVectorStore indexes and retrieves documents through pgvector.
type PGVectorStore struct {
	*rag.LangChainRetriever
	pool *pgxpool.Pool
}

// NewPGVectorStore connects to Postgres and returns a store whose
// documents are embedded with embedder. Close releases the pool.
func NewPGVectorStore(ctx context.Context, cfg PGVectorConfig, embedder embeddings.Embedder) (*PGVectorStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("pgvector: empty connection url")
	}

	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("pgvector: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector: ping: %w", err)
	}

	opts := []pgvector.Option{
		pgvector.WithConn(pool),
		pgvector.WithEmbedder(embedder),
	}
	if cfg.Collection != "" {
		opts = append(opts, pgvector.WithCollectionName(cfg.Collection))
	}

	vs, err := pgvector.New(ctx, opts...)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector: init store: %w", err)
	}

	return &PGVectorStore{
		LangChainRetriever: rag.NewLangChainRetriever(vs, cfg.TopK),
		pool:               pool,
	}, nil
}

// Close releases the connection pool.
func (s *PGVectorStore) Close() {
	s.pool.Close()
}
