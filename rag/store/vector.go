package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/smallnest/ragrouter/rag"
)

// ErrNoEmbedder is returned when a document without an embedding is added
// to a store that has no embedder.
var ErrNoEmbedder = errors.New("no embedder configured and document has no embedding")

// InMemoryVectorStore is a simple in-memory vector store implementation.
// It is safe for concurrent use.
type InMemoryVectorStore struct {
	mu         sync.RWMutex
	documents  []rag.Document
	embeddings [][]float32
	embedder   rag.Embedder
}

// NewInMemoryVectorStore creates a new InMemoryVectorStore
func NewInMemoryVectorStore(embedder rag.Embedder) *InMemoryVectorStore {
	return &InMemoryVectorStore{
		documents:  make([]rag.Document, 0),
		embeddings: make([][]float32, 0),
		embedder:   embedder,
	}
}

// Add adds multiple documents to the in-memory vector store, embedding
// those that carry no embedding yet.
func (s *InMemoryVectorStore) Add(ctx context.Context, documents []rag.Document) error {
	embeddings := make([][]float32, len(documents))
	var missing []int
	for i, doc := range documents {
		if len(doc.Embedding) > 0 {
			embeddings[i] = doc.Embedding
			continue
		}
		missing = append(missing, i)
	}

	if len(missing) > 0 {
		if s.embedder == nil {
			return ErrNoEmbedder
		}
		texts := make([]string, len(missing))
		for j, i := range missing {
			texts[j] = documents[i].Content
		}
		vectors, err := s.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed documents: %w", err)
		}
		if len(vectors) != len(missing) {
			return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(missing))
		}
		for j, i := range missing {
			embeddings[i] = vectors[j]
		}
	}

	return s.AddBatch(ctx, documents, embeddings)
}

// AddBatch adds multiple documents with explicit embeddings
func (s *InMemoryVectorStore) AddBatch(ctx context.Context, documents []rag.Document, embeddings [][]float32) error {
	if len(documents) != len(embeddings) {
		return fmt.Errorf("documents and embeddings must have same length")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = append(s.documents, documents...)
	s.embeddings = append(s.embeddings, embeddings...)
	return nil
}

// Search performs similarity search
func (s *InMemoryVectorStore) Search(ctx context.Context, queryEmbedding []float32, k int) ([]rag.DocumentSearchResult, error) {
	return s.SearchWithFilter(ctx, queryEmbedding, k, nil)
}

// SearchWithFilter performs similarity search over documents whose metadata
// matches every key of filter.
func (s *InMemoryVectorStore) SearchWithFilter(ctx context.Context, queryEmbedding []float32, k int, filter map[string]any) ([]rag.DocumentSearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	s.mu.RLock()
	results := make([]rag.DocumentSearchResult, 0, len(s.documents))
	for i, doc := range s.documents {
		if !matchesFilter(doc, filter) {
			continue
		}
		results = append(results, rag.DocumentSearchResult{
			Document: doc,
			Score:    cosineSimilarity32(queryEmbedding, s.embeddings[i]),
		})
	}
	s.mu.RUnlock()

	// Sort by similarity score (descending), insertion order breaks ties
	slices.SortStableFunc(results, func(a, b rag.DocumentSearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Delete removes documents by ID
func (s *InMemoryVectorStore) Delete(ctx context.Context, ids []string) error {
	idMap := make(map[string]bool, len(ids))
	for _, id := range ids {
		idMap[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var newDocs []rag.Document
	var newEmbeddings [][]float32
	for i, doc := range s.documents {
		if !idMap[doc.ID] {
			newDocs = append(newDocs, doc)
			newEmbeddings = append(newEmbeddings, s.embeddings[i])
		}
	}

	s.documents = newDocs
	s.embeddings = newEmbeddings
	return nil
}

// Len returns the number of stored documents.
func (s *InMemoryVectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// matchesFilter checks if a document matches the given filter
func matchesFilter(doc rag.Document, filter map[string]any) bool {
	for key, value := range filter {
		docValue, exists := doc.Metadata[key]
		if !exists || docValue != value {
			return false
		}
	}
	return true
}

// cosineSimilarity32 calculates cosine similarity between two float32 vectors
func cosineSimilarity32(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct float64
	var normA float64
	var normB float64

	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
