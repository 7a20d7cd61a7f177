package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"qarag/internal/domain"
)

// paragraphSep matches a blank line, including lines holding only spaces.
var paragraphSep = regexp.MustCompile(`\n[ \t]*\n`)

const joinSep = "\n\n"

// ParagraphChunker groups whole paragraphs into chunks of bounded size.
// Sizes are counted in characters (runes).
type ParagraphChunker struct {
	maxChunkSize int
}

func NewParagraphChunker(maxChunkSize int) *ParagraphChunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 500
	}
	return &ParagraphChunker{maxChunkSize: maxChunkSize}
}

func (c *ParagraphChunker) MaxChunkSize() int {
	return c.maxChunkSize
}

// Chunk accumulates paragraphs greedily. When adding the next paragraph
// would bring the buffer to maxChunkSize or beyond, the buffer is sealed
// and the paragraph starts a new one. A paragraph is never split, so a
// paragraph longer than maxChunkSize becomes a chunk of its own.
func (c *ParagraphChunker) Chunk(rawText string) []domain.Chunk {
	paragraphs := SplitParagraphs(rawText)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	var buf strings.Builder
	bufLen := 0

	seal := func() {
		text := strings.TrimSpace(buf.String())
		if text != "" {
			chunks = append(chunks, domain.Chunk{Index: len(chunks), Text: text})
		}
		buf.Reset()
		bufLen = 0
	}

	for _, para := range paragraphs {
		paraLen := utf8.RuneCountInString(para)
		if bufLen > 0 && bufLen+len(joinSep)+paraLen >= c.maxChunkSize {
			seal()
		}
		if bufLen > 0 {
			buf.WriteString(joinSep)
			bufLen += len(joinSep)
		}
		buf.WriteString(para)
		bufLen += paraLen
	}
	seal()

	return chunks
}

// SplitParagraphs splits text on blank lines and drops empty paragraphs.
// Carriage returns are normalized first.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := paragraphSep.Split(text, -1)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
