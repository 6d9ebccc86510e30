package rag

import (
	"context"
	"fmt"
	"maps"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/tmc/langchaingo/vectorstores"
)

// LangChainDocumentLoader adapts langchaingo's documentloaders.Loader to our DocumentLoader interface
type LangChainDocumentLoader struct {
	loader   documentloaders.Loader
	metadata map[string]any
}

// NewLangChainDocumentLoader creates a new adapter for langchaingo document loaders.
// The optional metadata is merged into every loaded document.
func NewLangChainDocumentLoader(loader documentloaders.Loader, metadata map[string]any) *LangChainDocumentLoader {
	return &LangChainDocumentLoader{
		loader:   loader,
		metadata: metadata,
	}
}

// Load loads documents using the underlying langchaingo loader
func (l *LangChainDocumentLoader) Load(ctx context.Context) ([]Document, error) {
	schemaDocs, err := l.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return l.withMetadata(FromSchemaDocuments(schemaDocs)), nil
}

// LoadAndSplit loads documents and splits them into chunks with splitter.
// Chunks inherit the metadata of the document they came from.
func (l *LangChainDocumentLoader) LoadAndSplit(ctx context.Context, splitter textsplitter.TextSplitter) ([]Document, error) {
	schemaDocs, err := l.loader.LoadAndSplit(ctx, splitter)
	if err != nil {
		return nil, err
	}
	return l.withMetadata(FromSchemaDocuments(schemaDocs)), nil
}

func (l *LangChainDocumentLoader) withMetadata(docs []Document) []Document {
	if len(l.metadata) == 0 {
		return docs
	}
	for i := range docs {
		if docs[i].Metadata == nil {
			docs[i].Metadata = make(map[string]any, len(l.metadata))
		}
		maps.Copy(docs[i].Metadata, l.metadata)
	}
	return docs
}

// SplitDocuments splits documents with a langchaingo text splitter, keeping
// each chunk's metadata.
func SplitDocuments(splitter textsplitter.TextSplitter, docs []Document) ([]Document, error) {
	chunks, err := textsplitter.SplitDocuments(splitter, ToSchemaDocuments(docs))
	if err != nil {
		return nil, fmt.Errorf("split documents: %w", err)
	}
	return FromSchemaDocuments(chunks), nil
}

// FromSchemaDocuments converts langchaingo schema.Document to our Document type
func FromSchemaDocuments(schemaDocs []schema.Document) []Document {
	docs := make([]Document, len(schemaDocs))
	for i, schemaDoc := range schemaDocs {
		docs[i] = Document{
			Content:  schemaDoc.PageContent,
			Metadata: maps.Clone(schemaDoc.Metadata),
		}

		if id, ok := schemaDoc.Metadata["id"]; ok {
			docs[i].ID = fmt.Sprint(id)
		} else {
			docs[i].ID = fmt.Sprintf("%s#%d", IdentityOf(docs[i]), i)
		}
	}
	return docs
}

// ToSchemaDocuments converts documents into langchaingo schema.Document values.
func ToSchemaDocuments(docs []Document) []schema.Document {
	schemaDocs := make([]schema.Document, len(docs))
	for i, doc := range docs {
		metadata := maps.Clone(doc.Metadata)
		if doc.ID != "" {
			if metadata == nil {
				metadata = make(map[string]any, 1)
			}
			metadata["id"] = doc.ID
		}
		schemaDocs[i] = schema.Document{
			PageContent: doc.Content,
			Metadata:    metadata,
		}
	}
	return schemaDocs
}

// LangChainEmbedder adapts langchaingo's embeddings.Embedder to our Embedder interface
type LangChainEmbedder struct {
	embedder embeddings.Embedder
}

// NewLangChainEmbedder creates a new adapter for langchaingo embedders
func NewLangChainEmbedder(embedder embeddings.Embedder) *LangChainEmbedder {
	return &LangChainEmbedder{
		embedder: embedder,
	}
}

// EmbedDocument embeds a single document using the underlying langchaingo embedder
func (l *LangChainEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return l.embedder.EmbedQuery(ctx, text)
}

// EmbedDocuments embeds multiple documents using the underlying langchaingo embedder
func (l *LangChainEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return l.embedder.EmbedDocuments(ctx, texts)
}

// GetDimension returns the embedding dimension, probing the embedder once.
func (l *LangChainEmbedder) GetDimension() int {
	testEmbedding, err := l.embedder.EmbedQuery(context.Background(), "test")
	if err != nil {
		return 0
	}
	return len(testEmbedding)
}

// LangChainRetriever adapts langchaingo's vectorstores.VectorStore to our Retriever interface
type LangChainRetriever struct {
	store vectorstores.VectorStore
	topK  int
	opts  []vectorstores.Option
}

// NewLangChainRetriever creates a new adapter for langchaingo vector stores as a retriever
func NewLangChainRetriever(store vectorstores.VectorStore, topK int, opts ...vectorstores.Option) *LangChainRetriever {
	if topK <= 0 {
		topK = 4
	}
	return &LangChainRetriever{
		store: store,
		topK:  topK,
		opts:  opts,
	}
}

// Retrieve retrieves documents based on a query
func (r *LangChainRetriever) Retrieve(ctx context.Context, query string) ([]Document, error) {
	docs, err := r.store.SimilaritySearch(ctx, query, r.topK, r.opts...)
	if err != nil {
		return nil, err
	}
	return FromSchemaDocuments(docs), nil
}

// Add indexes documents in the underlying vector store.
func (r *LangChainRetriever) Add(ctx context.Context, docs []Document) error {
	_, err := r.store.AddDocuments(ctx, ToSchemaDocuments(docs), r.opts...)
	return err
}

// SchemaRetriever adapts a langchaingo schema.Retriever, such as
// vectorstores.ToRetriever, to our Retriever interface.
type SchemaRetriever struct {
	retriever schema.Retriever
}

// NewSchemaRetriever wraps a langchaingo retriever.
func NewSchemaRetriever(retriever schema.Retriever) *SchemaRetriever {
	return &SchemaRetriever{retriever: retriever}
}

// Retrieve implements the Retriever interface
func (r *SchemaRetriever) Retrieve(ctx context.Context, query string) ([]Document, error) {
	docs, err := r.retriever.GetRelevantDocuments(ctx, query)
	if err != nil {
		return nil, err
	}
	return FromSchemaDocuments(docs), nil
}
