// Package ingest loads files, splits them into chunks and indexes the
// chunks for retrieval. The pipeline is a small graph:
//
//	START -> loadDocuments -> splitDocuments -> indexDocuments -> END
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/smallnest/ragrouter/graph"
	"github.com/smallnest/ragrouter/log"
	"github.com/smallnest/ragrouter/rag"
	"github.com/smallnest/ragrouter/rag/loader"
)

// Node names of the ingestion graph.
const (
	NodeLoadDocuments  = "loadDocuments"
	NodeSplitDocuments = "splitDocuments"
	NodeIndexDocuments = "indexDocuments"
)

// ErrNoDocuments is returned when none of the files produced a document.
var ErrNoDocuments = errors.New("no documents were loaded")

// State is the ingestion graph state.
type State struct {
	Paths []string

	Documents []rag.Document
	Chunks    []rag.Document

	// Failed maps a path to the reason it could not be loaded.
	Failed map[string]error
}

// Config controls chunking.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

// DefaultConfig returns 1000 character chunks with 200 characters of
// overlap.
func DefaultConfig() Config {
	return Config{ChunkSize: 1000, ChunkOverlap: 200}
}

// Pipeline indexes files into an Indexer.
type Pipeline struct {
	indexer  rag.Indexer
	splitter textsplitter.TextSplitter
	logger   log.Logger
	options  []loader.Option

	runnable *graph.StateRunnable[State]
}

// New builds the ingestion pipeline. Loader options are applied to every
// file.
func New(indexer rag.Indexer, cfg Config, logger log.Logger, opts ...loader.Option) (*Pipeline, error) {
	if indexer == nil {
		return nil, errors.New("ingest: nil indexer")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("ingest: chunk overlap %d must be in [0, %d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}
	if logger == nil {
		logger = log.GetDefaultLogger()
	}

	p := &Pipeline{
		indexer: indexer,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
		),
		logger:  logger,
		options: opts,
	}

	g := graph.NewStateGraph[State]()
	g.AddNode(NodeLoadDocuments, "Load documents from files", p.loadDocuments)
	g.AddNode(NodeSplitDocuments, "Split documents into chunks", p.splitDocuments)
	g.AddNode(NodeIndexDocuments, "Index document chunks", p.indexDocuments)
	g.SetEntryPoint(NodeLoadDocuments)
	g.AddEdge(NodeLoadDocuments, NodeSplitDocuments)
	g.AddEdge(NodeSplitDocuments, NodeIndexDocuments)
	g.AddEdge(NodeIndexDocuments, graph.END)

	runnable, err := g.Compile()
	if err != nil {
		return nil, err
	}
	p.runnable = runnable
	return p, nil
}

// Ingest loads, splits and indexes the given files. Files that fail to load
// are skipped and reported in State.Failed. When no file loads, the returned
// error wraps ErrNoDocuments together with each per-file failure, since the
// state is not returned on error.
func (p *Pipeline) Ingest(ctx context.Context, paths ...string) (State, error) {
	return p.runnable.Invoke(ctx, State{Paths: paths})
}

func (p *Pipeline) loadDocuments(ctx context.Context, state State) (State, error) {
	p.logger.Info("Node: %s - %d file(s)", NodeLoadDocuments, len(state.Paths))

	state.Failed = make(map[string]error)
	for _, path := range state.Paths {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		docs, err := p.load(ctx, path)
		if err != nil {
			p.logger.Warn("failed to load %s: %v", path, err)
			state.Failed[path] = err
			continue
		}
		p.logger.Info("Loaded %d document(s) from %s", len(docs), path)
		state.Documents = append(state.Documents, docs...)
	}

	if len(state.Documents) == 0 {
		failures := make([]error, 0, len(state.Paths))
		for _, path := range state.Paths {
			if err, ok := state.Failed[path]; ok {
				failures = append(failures, fmt.Errorf("%s: %w", path, err))
			}
		}
		if len(failures) == 0 {
			return state, ErrNoDocuments
		}
		return state, fmt.Errorf("%w: %w", ErrNoDocuments, errors.Join(failures...))
	}
	return state, nil
}

func (p *Pipeline) load(ctx context.Context, path string) ([]rag.Document, error) {
	l, err := loader.ForFile(path, p.options...)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx)
}

func (p *Pipeline) splitDocuments(_ context.Context, state State) (State, error) {
	chunks, err := rag.SplitDocuments(p.splitter, state.Documents)
	if err != nil {
		return state, err
	}
	for i := range chunks {
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]any, 1)
		}
		chunks[i].ID = fmt.Sprintf("%s#%d", rag.IdentityOf(chunks[i]), i)
		chunks[i].Metadata["chunk"] = i
	}
	state.Chunks = chunks
	p.logger.Info("Split %d document(s) into %d chunks", len(state.Documents), len(chunks))
	return state, nil
}

func (p *Pipeline) indexDocuments(ctx context.Context, state State) (State, error) {
	if err := p.indexer.Add(ctx, state.Chunks); err != nil {
		return state, fmt.Errorf("failed to add documents to vector store: %w", err)
	}
	p.logger.Info("Successfully indexed %d document chunks", len(state.Chunks))
	return state, nil
}
