package loader

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/documentloaders"

	"github.com/smallnest/ragrouter/rag"
)

// PDFLoader loads a PDF file as one document per page. Every page carries
// a "page" metadata entry, so pages are distinct document identities.
type PDFLoader struct {
	filePath string
	metadata map[string]any
	password string
}

// NewPDFLoader creates a new PDFLoader
func NewPDFLoader(filePath string, opts ...Option) *PDFLoader {
	return &PDFLoader{
		filePath: filePath,
		metadata: baseMetadata(filePath, "pdf", opts),
	}
}

// WithPassword sets the password used to open encrypted PDFs.
func (l *PDFLoader) WithPassword(password string) *PDFLoader {
	l.password = password
	return l
}

// Load reads every page of the PDF.
func (l *PDFLoader) Load(ctx context.Context) ([]rag.Document, error) {
	f, err := os.Open(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", l.filePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file %s: %w", l.filePath, err)
	}

	var pdfOpts []documentloaders.PDFOptions
	if l.password != "" {
		pdfOpts = append(pdfOpts, documentloaders.WithPassword(l.password))
	}

	pdf := documentloaders.NewPDF(f, info.Size(), pdfOpts...)
	docs, err := rag.NewLangChainDocumentLoader(pdf, l.metadata).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pdf %s: %w", l.filePath, err)
	}
	return docs, nil
}
