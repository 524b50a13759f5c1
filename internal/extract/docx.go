package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

const docxBodyPart = "word/document.xml"

func extractDOCX(data []byte) (string, error) {
	body, err := readDocxBody(data)
	if err != nil {
		return "", err
	}
	text, err := stripDocxXML(body)
	if err != nil {
		return "", fmt.Errorf("parse docx body: %w", err)
	}
	return text, nil
}

// readDocxBody returns the raw document.xml. The docx reader insists on the
// relationships part, so packages written without it go through archive/zip.
func readDocxBody(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err == nil {
		defer r.Close()
		if content := r.Editable().GetContent(); content != "" {
			return content, nil
		}
	}

	zr, zerr := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if zerr != nil {
		return "", fmt.Errorf("read docx: %w", zerr)
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") != docxBodyPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open docx body: %w", err)
		}
		defer rc.Close()
		raw, err := io.ReadAll(rc)
		if err != nil {
			return "", fmt.Errorf("read docx body: %w", err)
		}
		return string(raw), nil
	}
	return "", errors.New("word document body not found")
}

// stripDocxXML keeps character data and turns paragraphs, breaks and tabs
// into whitespace.
func stripDocxXML(raw string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteByte('\t')
			}
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				buf.WriteByte('\n')
			}
		}
	}
	return buf.String(), nil
}
