package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/ragrouter/rag"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTextLoader(t *testing.T) {
	ctx := context.Background()
	content := "Line 1\nLine 2\nLine 3"
	tmpFile := writeFile(t, "test.txt", content)

	t.Run("Basic Load", func(t *testing.T) {
		docs, err := NewTextLoader(tmpFile).Load(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, content, docs[0].Content)
		assert.Equal(t, tmpFile, docs[0].Metadata["source"])
		assert.Equal(t, "test.txt", docs[0].Metadata["filename"])
		assert.Equal(t, "text", docs[0].Metadata["type"])
	})

	t.Run("Load with Metadata", func(t *testing.T) {
		docs, err := NewTextLoader(tmpFile, WithMetadata(map[string]any{"author": "test"}), WithSource("notes")).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "test", docs[0].Metadata["author"])
		assert.Equal(t, rag.Identity{Source: "notes", Page: rag.UnknownPage}, rag.IdentityOf(docs[0]))
	})

	t.Run("Markdown", func(t *testing.T) {
		docs, err := NewTextLoader(writeFile(t, "README.md", "# Title")).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "markdown", docs[0].Metadata["type"])
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := NewTextLoader(filepath.Join(t.TempDir(), "nope.txt")).Load(ctx)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestHTMLLoader(t *testing.T) {
	path := writeFile(t, "page.html", `<html><head><title> Capitals </title><style>p{}</style></head>
<body><nav>menu</nav><h1>Europe</h1>
<p>Paris is the   capital of France.</p><script>alert(1)</script></body></html>`)

	docs, err := NewHTMLLoader(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "Capitals", docs[0].Metadata["title"])
	assert.Contains(t, docs[0].Content, "Europe")
	assert.Contains(t, docs[0].Content, "Paris is the capital of France.")
	assert.NotContains(t, docs[0].Content, "alert")
	assert.NotContains(t, docs[0].Content, "menu")
}

func TestForFile(t *testing.T) {
	tests := []struct {
		path     string
		expected any
	}{
		{"a.txt", &TextLoader{}},
		{"a.MD", &TextLoader{}},
		{"a.html", &HTMLLoader{}},
		{"a.pdf", &PDFLoader{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			l, err := ForFile(tt.path)
			require.NoError(t, err)
			assert.IsType(t, tt.expected, l)
		})
	}

	_, err := ForFile("a.docx")
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestPDFLoader_MissingFile(t *testing.T) {
	_, err := NewPDFLoader(filepath.Join(t.TempDir(), "missing.pdf")).Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
