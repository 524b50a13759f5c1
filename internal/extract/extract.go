package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	MimePDF  = "application/pdf"
	MimeDOC  = "application/msword"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ErrUnsupported is returned for content types the extractor cannot read.
var ErrUnsupported = errors.New("unsupported content type")

// Extractor converts PDF, DOC and DOCX payloads to plain UTF-8 text.
type Extractor struct {
	// Tika handles legacy .doc files when set; otherwise a text-run scan is used.
	Tika *TikaClient
}

// New builds an Extractor. tikaURL may be empty.
func New(tikaURL string) *Extractor {
	e := &Extractor{}
	if strings.TrimSpace(tikaURL) != "" {
		e.Tika = NewTikaClient(tikaURL)
	}
	return e
}

// Supported reports whether contentType (already normalized) can be extracted.
func Supported(contentType string) bool {
	switch contentType {
	case MimePDF, MimeDOC, MimeDOCX:
		return true
	}
	return false
}

// NormalizeContentType strips parameters and lowercases the header value.
// Empty, generic and zip headers fall back to the file extension.
func NormalizeContentType(contentType, fileName string) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch clean {
	case "", "application/octet-stream", "application/zip", "application/x-zip-compressed":
		switch strings.ToLower(filepath.Ext(fileName)) {
		case ".pdf":
			return MimePDF
		case ".doc":
			return MimeDOC
		case ".docx":
			return MimeDOCX
		}
	}
	return clean
}

// Extract returns the trimmed text of data. Parser panics on malformed input
// are converted to errors.
func (e *Extractor) Extract(ctx context.Context, data []byte, contentType, fileName string) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("file is empty")
	}
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("document could not be parsed: %v", r)
		}
	}()

	normalized := NormalizeContentType(contentType, fileName)
	switch normalized {
	case MimePDF:
		text, err = extractPDF(data)
	case MimeDOCX:
		text, err = extractDOCX(data)
	case MimeDOC:
		if e != nil && e.Tika != nil {
			text, err = e.Tika.Extract(ctx, data, MimeDOC)
		} else {
			text, err = extractDOC(data)
		}
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, normalized)
	}
	if err != nil {
		return "", err
	}
	text = strings.ToValidUTF8(text, string(utf8.RuneError))
	// Two-byte PDF fonts leave NULs behind; Postgres TEXT rejects them.
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.TrimSpace(text), nil
}
