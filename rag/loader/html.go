package loader

import (
	"context"
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/smallnest/ragrouter/rag"
)

// HTMLLoader loads the visible text of an HTML page as one document.
type HTMLLoader struct {
	filePath string
	metadata map[string]any
}

// NewHTMLLoader creates a new HTMLLoader
func NewHTMLLoader(filePath string, opts ...Option) *HTMLLoader {
	return &HTMLLoader{
		filePath: filePath,
		metadata: baseMetadata(filePath, "html", opts),
	}
}

// Load parses the file and extracts its text. Scripts, styles and
// navigation chrome are dropped; the page title is kept as metadata.
func (l *HTMLLoader) Load(ctx context.Context) ([]rag.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", l.filePath, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html %s: %w", l.filePath, err)
	}

	metadata := maps.Clone(l.metadata)
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		metadata["title"] = title
	}

	doc.Find("script, style, noscript, nav, header, footer").Remove()

	return []rag.Document{{
		ID:       fmt.Sprintf("html_%s", l.filePath),
		Content:  collapseWhitespace(doc.Find("body").Text()),
		Metadata: metadata,
	}}, nil
}

// collapseWhitespace trims every line and drops empty ones.
func collapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
