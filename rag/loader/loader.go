// Package loader turns files into rag documents. Text, Markdown, HTML and
// PDF files are supported.
package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/smallnest/ragrouter/rag"
)

// ErrUnsupportedFile is returned by ForFile for unknown extensions.
var ErrUnsupportedFile = errors.New("unsupported file type")

// ForFile picks a loader from the file extension.
func ForFile(filePath string, opts ...Option) (rag.DocumentLoader, error) {
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".txt", ".text", ".md", ".markdown", "":
		return NewTextLoader(filePath, opts...), nil
	case ".html", ".htm":
		return NewHTMLLoader(filePath, opts...), nil
	case ".pdf":
		return NewPDFLoader(filePath, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, ext)
	}
}
