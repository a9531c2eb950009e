// Package document extracts page-addressed text from source documents.
package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cloo-solutions/sanad/internal/domain"
	"github.com/ledongthuc/pdf"
)

// Page is the text of one page. Number is 1-based; zero means the source
// has no pagination.
type Page struct {
	Number int
	Text   string
}

// Location returns the marker stored on passages cut from this page.
func (p Page) Location() string {
	if p.Number <= 0 {
		return domain.UnknownLocation
	}
	return strconv.Itoa(p.Number)
}

// Document is a loaded source with its non-empty pages in order.
type Document struct {
	Name  string
	Pages []Page
}

// Format is a supported source format.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// DetectFormat picks a format from the file extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF, nil
	case ".txt", ".text":
		return FormatText, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	default:
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrUnsupportedDoc.Message,
			fmt.Errorf("unsupported extension %q", filepath.Ext(name)))
	}
}

// Load reads a document from the local filesystem.
func Load(path string) (*Document, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	if format == FormatPDF {
		f, r, err := pdf.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open pdf: %w", err)
		}
		defer f.Close()
		return fromPDF(filepath.Base(path), r)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return ParseText(filepath.Base(path), data)
}

// Parse loads a document from memory, picking the parser from name.
func Parse(name string, data []byte) (*Document, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}
	if format == FormatPDF {
		return ParsePDF(name, bytes.NewReader(data), int64(len(data)))
	}
	return ParseText(name, data)
}

// ParsePDF extracts the plain text of every page.
func ParsePDF(name string, ra io.ReaderAt, size int64) (*Document, error) {
	r, err := pdf.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return fromPDF(name, r)
}

func fromPDF(name string, r *pdf.Reader) (*Document, error) {
	doc := &Document{Name: name}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract pdf text (page %d): %w", i, err)
		}
		text = Sanitize(text)
		if text == "" {
			continue
		}
		doc.Pages = append(doc.Pages, Page{Number: i, Text: text})
	}

	if len(doc.Pages) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	return doc, nil
}

// ParseText treats the whole input as a single unpaginated page.
func ParseText(name string, data []byte) (*Document, error) {
	text := Sanitize(string(data))
	if text == "" {
		return nil, domain.ErrEmptyDocument
	}
	return &Document{Name: name, Pages: []Page{{Number: 0, Text: text}}}, nil
}

// Sanitize drops NUL and other control characters except common whitespace.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	// NUL bytes are not valid in PostgreSQL text.
	s = strings.ReplaceAll(s, "\x00", "")

	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		if ch == '\n' || ch == '\r' || ch == '\t' {
			b.WriteRune(ch)
			continue
		}
		if ch < 0x20 {
			continue
		}
		b.WriteRune(ch)
	}
	return strings.TrimSpace(b.String())
}

// TotalChars is the sum of page text lengths, used for ingest logging.
func (d *Document) TotalChars() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Text)
	}
	return n
}
