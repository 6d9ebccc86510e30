package rag

import (
	"context"
)

// Document is a retrieved text chunk with its provenance metadata.
type Document struct {
	ID        string
	Content   string
	Metadata  map[string]any
	Embedding []float32
}

// DocumentSearchResult pairs a document with its similarity score.
type DocumentSearchResult struct {
	Document Document
	Score    float64
	Metadata map[string]any
}

// Retriever returns the documents relevant to a query, most relevant first.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Document, error)
}

// RetrieverFunc is a function adapter for Retriever
type RetrieverFunc func(ctx context.Context, query string) ([]Document, error)

// Retrieve implements the Retriever interface
func (f RetrieverFunc) Retrieve(ctx context.Context, query string) ([]Document, error) {
	return f(ctx, query)
}

// Embedder turns text into vectors.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	GetDimension() int
}

// VectorStore indexes documents and searches them by embedding.
type VectorStore interface {
	Add(ctx context.Context, docs []Document) error
	Search(ctx context.Context, query []float32, k int) ([]DocumentSearchResult, error)
}

// DocumentLoader loads documents from a source such as a file.
type DocumentLoader interface {
	Load(ctx context.Context) ([]Document, error)
}

// Indexer accepts documents for later retrieval.
type Indexer interface {
	Add(ctx context.Context, docs []Document) error
}
