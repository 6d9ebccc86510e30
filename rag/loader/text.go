package loader

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/smallnest/ragrouter/rag"
)

// TextLoader loads a plain text or Markdown file as one document.
type TextLoader struct {
	filePath string
	metadata map[string]any
}

// Option configures a loader
type Option func(metadata map[string]any)

// WithMetadata sets additional metadata for loaded documents
func WithMetadata(metadata map[string]any) Option {
	return func(m map[string]any) {
		maps.Copy(m, metadata)
	}
}

// WithSource overrides the source recorded on loaded documents.
func WithSource(source string) Option {
	return func(m map[string]any) {
		m["source"] = source
	}
}

func baseMetadata(filePath, kind string, opts []Option) map[string]any {
	metadata := map[string]any{
		"source":   filePath,
		"filename": filepath.Base(filePath),
		"type":     kind,
	}
	for _, opt := range opts {
		opt(metadata)
	}
	return metadata
}

// NewTextLoader creates a new TextLoader
func NewTextLoader(filePath string, opts ...Option) *TextLoader {
	kind := "text"
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".md", ".markdown":
		kind = "markdown"
	}
	return &TextLoader{
		filePath: filePath,
		metadata: baseMetadata(filePath, kind, opts),
	}
}

// Load loads documents from the text file
func (l *TextLoader) Load(ctx context.Context) ([]rag.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", l.filePath, err)
	}

	return []rag.Document{{
		ID:       fmt.Sprintf("text_%s", l.filePath),
		Content:  string(content),
		Metadata: maps.Clone(l.metadata),
	}}, nil
}
