package segment

import (
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"xtts-desktop/internal/domain"
)

// Mode selects the chunk boundary.
type Mode string

const (
	BySentence Mode = "sentence"
	ByLine     Mode = "line"
)

// Chunk is one 1-indexed piece of input text.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// ParseMode maps a settings or flag value to a Mode.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "sentence", "sentences":
		return BySentence, nil
	case "line", "lines":
		return ByLine, nil
	default:
		return "", fmt.Errorf("unknown split mode: %s", raw)
	}
}

// File reads a whole text file and splits it.
func File(path string, mode Mode) ([]Chunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewError(domain.KindIO, fmt.Sprintf("cannot read %s", path), err)
	}

	text, err := decodeText(raw)
	if err != nil {
		return nil, domain.NewError(domain.KindIO, fmt.Sprintf("cannot decode %s", path), err)
	}
	return Split(text, mode), nil
}

// Split cuts text into non-empty chunks in original order. Sentences are
// trimmed; lines are kept verbatim apart from their line break.
func Split(text string, mode Mode) []Chunk {
	var pieces []string
	switch mode {
	case ByLine:
		pieces = splitLines(text)
	default:
		pieces = splitSentences(text)
	}

	chunks := make([]Chunk, 0, len(pieces))
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		if mode != ByLine {
			piece = strings.TrimSpace(piece)
		}
		chunks = append(chunks, Chunk{Index: len(chunks) + 1, Text: piece})
	}
	return chunks
}

// splitSentences breaks at whitespace runs that directly follow '.', '!' or '?'.
// Abbreviations, decimals and quoted punctuation are not special-cased.
func splitSentences(text string) []string {
	var (
		out   []string
		start int
		prev  rune
	)
	for i, r := range text {
		if unicode.IsSpace(r) && isTerminator(prev) {
			out = append(out, text[start:i])
			start = i
		}
		prev = r
	}
	return append(out, text[start:])
}

// isTerminator reports sentence-ending punctuation.
func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// splitLines splits on \n, \r\n and \r.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// decodeText honors a UTF-8 or UTF-16 BOM and otherwise requires valid UTF-8.
func decodeText(raw []byte) (string, error) {
	decoded, _, err := transform.Bytes(xunicode.BOMOverride(transform.Nop), raw)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(decoded) {
		return "", fmt.Errorf("file is not valid UTF-8 text")
	}
	return string(decoded), nil
}
