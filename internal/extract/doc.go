package extract

import (
	"bytes"
	"errors"
	"strings"
)

var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

const minRunLength = 4

// extractDOC recovers readable text from a Word 97-2003 binary without a full
// OLE2 parser. Word stores body text either as UTF-16LE or as 8-bit runs; the
// encoding yielding more text wins. Formatting and field codes are lost.
func extractDOC(data []byte) (string, error) {
	if !bytes.HasPrefix(data, oleMagic) {
		return "", errors.New("not a Word 97-2003 document")
	}
	body := data[len(oleMagic):]
	wide := scanUTF16Runs(body)
	narrow := scanASCIIRuns(body)
	text := wide
	if len(narrow) > len(wide)*2 {
		text = narrow
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no readable text found in Word document")
	}
	return text, nil
}

func scanUTF16Runs(data []byte) string {
	var out, run strings.Builder
	flush := func() {
		if run.Len() >= minRunLength {
			out.WriteString(run.String())
			out.WriteByte('\n')
		}
		run.Reset()
	}
	for i := 0; i+1 < len(data); i += 2 {
		lo, hi := data[i], data[i+1]
		if hi == 0 && isTextByte(lo) {
			run.WriteRune(rune(lo))
			continue
		}
		if hi == 0 && lo == '\r' {
			flush()
			continue
		}
		flush()
	}
	flush()
	return out.String()
}

func scanASCIIRuns(data []byte) string {
	var out, run strings.Builder
	flush := func() {
		if run.Len() >= minRunLength*2 {
			out.WriteString(run.String())
			out.WriteByte('\n')
		}
		run.Reset()
	}
	for _, b := range data {
		if isTextByte(b) && b < 0x80 {
			run.WriteByte(b)
			continue
		}
		flush()
	}
	flush()
	return out.String()
}

func isTextByte(b byte) bool {
	return b == '\t' || (b >= 0x20 && b < 0x7F) || (b >= 0xA0)
}
