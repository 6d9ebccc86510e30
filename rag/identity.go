package rag

import (
	"fmt"
	"strings"
)

const (
	// UnknownSource is used when a document carries no source metadata.
	UnknownSource = "unknown-source"

	// UnknownPage is used when a document carries no page metadata.
	UnknownPage = "unknown-page"
)

// Identity names the origin of a document: the file it came from and the
// page within that file. Two documents with equal identities are treated
// as the same document.
type Identity struct {
	Source string
	Page   string
}

// String renders the identity as source#page.
func (id Identity) String() string {
	return id.Source + "#" + id.Page
}

// IdentityOf derives the identity of a document from its metadata. The
// source is read from "source" then "filename"; the page from "page",
// "pageNumber" or the nested "loc.pageNumber". Missing values fall back
// to UnknownSource and UnknownPage.
func IdentityOf(doc Document) Identity {
	id := Identity{Source: UnknownSource, Page: UnknownPage}

	for _, key := range []string{"source", "filename"} {
		if s, ok := metadataString(doc.Metadata[key]); ok {
			id.Source = s
			break
		}
	}

	if p, ok := pageOf(doc.Metadata); ok {
		id.Page = p
	}
	return id
}

func pageOf(metadata map[string]any) (string, bool) {
	for _, key := range []string{"page", "pageNumber"} {
		if p, ok := metadataString(metadata[key]); ok {
			return p, true
		}
	}

	switch loc := metadata["loc"].(type) {
	case map[string]any:
		return metadataString(loc["pageNumber"])
	case map[string]int:
		if p, ok := loc["pageNumber"]; ok {
			return fmt.Sprint(p), true
		}
	}
	return "", false
}

func metadataString(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		if strings.TrimSpace(val) == "" {
			return "", false
		}
		return val, true
	case float64:
		// JSON decoded page numbers arrive as float64.
		if val == float64(int64(val)) {
			return fmt.Sprint(int64(val)), true
		}
		return fmt.Sprint(val), true
	default:
		return fmt.Sprint(val), true
	}
}

// Deduplicate drops documents whose identity was already seen, keeping the
// first occurrence and the original order. The input is not modified.
func Deduplicate(docs []Document) []Document {
	seen := make(map[Identity]struct{}, len(docs))
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		id := IdentityOf(doc)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, doc)
	}
	return out
}

// FormatDocuments renders documents as one context block for a prompt:
//
//	<documents>
//	<document source="a.pdf" page="3">
//	...
//	</document>
//	</documents>
//
// Documents appear in input order. An empty input yields an empty
// <documents> element.
func FormatDocuments(docs []Document) string {
	var sb strings.Builder
	sb.WriteString("<documents>\n")
	for _, doc := range docs {
		sb.WriteString(FormatDocument(doc))
		sb.WriteString("\n")
	}
	sb.WriteString("</documents>")
	return sb.String()
}

// FormatDocument renders a single document element.
func FormatDocument(doc Document) string {
	id := IdentityOf(doc)
	return fmt.Sprintf("<document source=%q page=%q>\n%s\n</document>", id.Source, id.Page, doc.Content)
}
