package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func doc(content string, metadata map[string]any) Document {
	return Document{Content: content, Metadata: metadata}
}

func TestIdentityOf(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		expected Identity
	}{
		{"source and page", map[string]any{"source": "a.pdf", "page": 3}, Identity{"a.pdf", "3"}},
		{"filename fallback", map[string]any{"filename": "b.txt", "pageNumber": "7"}, Identity{"b.txt", "7"}},
		{"source wins over filename", map[string]any{"source": "a", "filename": "b"}, Identity{"a", UnknownPage}},
		{"nested loc", map[string]any{"source": "c.pdf", "loc": map[string]any{"pageNumber": 2}}, Identity{"c.pdf", "2"}},
		{"typed nested loc", map[string]any{"source": "c.pdf", "loc": map[string]int{"pageNumber": 5}}, Identity{"c.pdf", "5"}},
		{"json float page", map[string]any{"source": "d.pdf", "page": float64(4)}, Identity{"d.pdf", "4"}},
		{"empty source ignored", map[string]any{"source": " ", "filename": "e.md"}, Identity{"e.md", UnknownPage}},
		{"nothing", nil, Identity{UnknownSource, UnknownPage}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IdentityOf(doc("x", tt.metadata)))
		})
	}
}

func TestDeduplicate_FirstOccurrenceWins(t *testing.T) {
	docs := []Document{
		doc("first", map[string]any{"source": "reportA.pdf", "page": 3}),
		doc("other", map[string]any{"source": "reportB.pdf", "page": 1}),
		doc("second", map[string]any{"source": "reportA.pdf", "page": 3}),
		doc("third", map[string]any{"source": "reportA.pdf", "page": 4}),
	}

	got := Deduplicate(docs)

	assert.Equal(t, []string{"first", "other", "third"}, contents(got))
	assert.Len(t, docs, 4)
}

func TestDeduplicate_UnknownIdentitiesCollapse(t *testing.T) {
	got := Deduplicate([]Document{doc("a", nil), doc("b", map[string]any{}), doc("c", map[string]any{"page": 1})})
	assert.Equal(t, []string{"a", "c"}, contents(got))
}

func TestDeduplicate_IsSubsequenceWithUniqueIdentities(t *testing.T) {
	var docs []Document
	for i := 0; i < 30; i++ {
		docs = append(docs, doc(strings.Repeat("x", i), map[string]any{"source": string(rune('a' + i%4)), "page": i % 3}))
	}

	got := Deduplicate(docs)

	seen := map[Identity]bool{}
	j := 0
	for _, d := range got {
		id := IdentityOf(d)
		assert.False(t, seen[id], "duplicate identity %s", id)
		seen[id] = true

		for j < len(docs) && docs[j].Content != d.Content {
			assert.True(t, seen[IdentityOf(docs[j])], "skipped a first occurrence")
			j++
		}
		assert.Less(t, j, len(docs))
		j++
	}
	assert.Len(t, got, 12)
	assert.Empty(t, Deduplicate(nil))
}

func TestFormatDocuments(t *testing.T) {
	out := FormatDocuments([]Document{
		doc("Paris is the capital.", map[string]any{"source": "geo.pdf", "page": 1}),
		doc("No metadata.", nil),
	})

	assert.Equal(t, `<documents>
<document source="geo.pdf" page="1">
Paris is the capital.
</document>
<document source="unknown-source" page="unknown-page">
No metadata.
</document>
</documents>`, out)
	assert.Equal(t, "<documents>\n</documents>", FormatDocuments(nil))
}

func contents(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Content
	}
	return out
}
