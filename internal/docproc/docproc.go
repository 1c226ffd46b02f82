// Package docproc extracts text from uploaded documents and splits it into
// overlapping chunks sized for embedding.
package docproc

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedType reports a file extension the processor cannot extract.
var ErrUnsupportedType = errors.New("unsupported file type")

// supportedExtensions lists the file types accepted for upload.
var supportedExtensions = map[string]bool{
	".pdf": true,
	".txt": true,
	".md":  true,
}

// Supported reports whether files with the given name can be processed.
func Supported(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Processor extracts text from documents and manages their on-disk copies.
type Processor struct {
	uploadDir string
	logger    *slog.Logger
}

// NewProcessor creates a Processor storing uploads under dir, creating the
// directory if needed.
func NewProcessor(dir string, logger *slog.Logger) (*Processor, error) {
	if dir == "" {
		dir = "./uploads"
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Processor{uploadDir: dir, logger: logger}, nil
}

// ExtractText returns the text content of the document at path, dispatching
// on the file extension.
func (p *Processor) ExtractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read text file: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(path))
	}
}

// extractPDF concatenates the plain text of every page, pages separated by a
// blank line. Pages that fail to decode are skipped rather than failing the
// whole document.
func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, "\n\n"), nil
}

// SaveFile writes the uploaded content under the processor's upload
// directory. The filename is reduced to alphanumerics plus '.', '_' and '-',
// and name collisions get a numeric suffix.
func (p *Processor) SaveFile(filename string, content []byte) (string, error) {
	safe := sanitizeFilename(filename)
	if safe == "" {
		safe = "upload"
	}

	path := filepath.Join(p.uploadDir, safe)
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = fmt.Sprintf("%s_%d%s", base, counter, ext)
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("save file: %w", err)
	}
	return path, nil
}

// DeleteFile removes a previously saved file. Missing files are not an
// error.
func (p *Processor) DeleteFile(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '.' || c == '_' || c == '-':
			b.WriteRune(c)
		}
	}
	return b.String()
}
