// Package rag holds the document model shared by retrieval, ingestion and
// generation.
//
// A Document is identified by its (source, page) pair, read from metadata
// with IdentityOf. Deduplicate keeps the first document per identity and
// FormatDocuments renders documents into the context block handed to the
// response prompt.
//
// Retrieval backends implement Retriever. The langchaingo adapters in this
// package wrap vectorstores.VectorStore, schema.Retriever, embeddings and
// document loaders; rag/store provides an in-memory cosine store and a
// pgvector store, and rag/loader reads text, HTML and PDF files.
//
//	vs := store.NewInMemoryVectorStore(embedder)
//	retriever := store.NewVectorRetriever(vs, embedder, store.WithTopK(4))
//	docs, err := retriever.Retrieve(ctx, "What does section 3 say?")
//	docs = rag.Deduplicate(docs)
package rag
