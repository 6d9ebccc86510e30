package store

import (
	"context"
	"fmt"

	"github.com/smallnest/ragrouter/rag"
)

// VectorRetriever implements document retrieval using vector similarity
type VectorRetriever struct {
	vectorStore    rag.VectorStore
	embedder       rag.Embedder
	k              int
	scoreThreshold float64
}

// VectorRetrieverOption configures a VectorRetriever
type VectorRetrieverOption func(*VectorRetriever)

// WithTopK sets the number of documents returned per query.
func WithTopK(k int) VectorRetrieverOption {
	return func(r *VectorRetriever) {
		if k > 0 {
			r.k = k
		}
	}
}

// WithScoreThreshold drops results scoring below threshold.
func WithScoreThreshold(threshold float64) VectorRetrieverOption {
	return func(r *VectorRetriever) {
		r.scoreThreshold = threshold
	}
}

// NewVectorRetriever creates a new vector retriever
func NewVectorRetriever(vectorStore rag.VectorStore, embedder rag.Embedder, opts ...VectorRetrieverOption) *VectorRetriever {
	r := &VectorRetriever{
		vectorStore: vectorStore,
		embedder:    embedder,
		k:           4,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve embeds the query and returns the closest documents, best first.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string) ([]rag.Document, error) {
	queryEmbedding, err := r.embedder.EmbedDocument(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.vectorStore.Search(ctx, queryEmbedding, r.k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	docs := make([]rag.Document, 0, len(results))
	for _, result := range results {
		if r.scoreThreshold > 0 && result.Score < r.scoreThreshold {
			continue
		}
		docs = append(docs, result.Document)
	}
	return docs, nil
}

// Add indexes documents in the underlying store.
func (r *VectorRetriever) Add(ctx context.Context, docs []rag.Document) error {
	return r.vectorStore.Add(ctx, docs)
}
