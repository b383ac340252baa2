package extract

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/notewise/internal/domain"
)

// File kinds accepted for upload.
const (
	KindText     = "text"
	KindMarkdown = "markdown"
	KindPDF      = "pdf"
)

// KindFromFilename maps an upload's extension to a file kind.
func KindFromFilename(name string) (string, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		return KindText, true
	case ".md", ".markdown":
		return KindMarkdown, true
	case ".pdf":
		return KindPDF, true
	}
	return "", false
}

// File extracts text from an uploaded file by its extension.
func File(name string, data []byte) (string, error) {
	kind, ok := KindFromFilename(name)
	if !ok {
		return "", domain.ErrUnsupportedContentType
	}

	switch kind {
	case KindPDF:
		return PDF(data)
	case KindMarkdown:
		if !utf8.Valid(data) {
			return "", domain.ErrUnsupportedContentType
		}
		return Markdown(data)
	default:
		if !utf8.Valid(data) {
			return "", domain.ErrUnsupportedContentType
		}
		return strings.TrimSpace(string(data)), nil
	}
}
