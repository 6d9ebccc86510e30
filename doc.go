// Package ragrouter answers questions about a document collection, calling
// the retriever only for queries that need it.
//
// A query runs through a small state graph. A router model classifies it
// as "direct" or "retrieve"; direct queries are answered by the response
// model alone, while retrieval queries fetch documents, drop duplicates of
// the same source page, and answer from the formatted context.
//
// # Quick Start
//
//	loader := model.NewProviderLoader(model.ProviderOptions{})
//	embedder, _ := loader.LoadEmbedder(ctx, "openai/text-embedding-3-small")
//	vs := store.NewInMemoryVectorStore(rag.NewLangChainEmbedder(embedder))
//
//	pipeline, _ := ingest.New(vs, ingest.DefaultConfig(), nil)
//	pipeline.Ingest(ctx, "report.pdf", "notes.md")
//
//	workflow, _ := retrieval.New(loader,
//		store.NewVectorRetriever(vs, rag.NewLangChainEmbedder(embedder)),
//		retrieval.WithDefaults(config.AgentConfiguration{QueryModel: "openai/gpt-4o-mini"}),
//	)
//	state, err := workflow.Invoke(ctx, "How did revenue change in Q3?", nil, nil)
//
// # Packages
//
//   - graph: generic state graph engine with listeners, tracing and export
//   - retrieval: the routed question answering workflow
//   - message: conversation turns and their normalization
//   - rag, rag/loader, rag/store: documents, loaders, vector stores, retrievers
//     and the Redis retrieval cache
//   - ingest: load, split and index pipeline
//   - model: chat models, structured output and the provider loader
//   - prompt: instruction templates
//   - config: per-invocation agent configuration and process settings
//   - metrics: Prometheus node metrics
//   - log: leveled logging backed by golog
//
// The ragrouter command in cmd/ragrouter wraps these packages in a CLI.
package ragrouter
