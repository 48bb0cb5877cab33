package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"docindex/internal/port"
)

// DefaultMaxChunkSize is used when a non-positive size is requested.
const DefaultMaxChunkSize = 500

var _ port.Chunker = (*SentenceChunker)(nil)

// sentenceEnd matches terminal punctuation, ASCII or full-width, followed by whitespace.
var sentenceEnd = regexp.MustCompile(`([.!?。！？])\s+`)

// SentenceChunker packs whole sentences into chunks of at most maxChunkSize characters.
type SentenceChunker struct {
	maxChunkSize int
}

func NewSentenceChunker(maxChunkSize int) *SentenceChunker {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	return &SentenceChunker{maxChunkSize: maxChunkSize}
}

func (c *SentenceChunker) Chunk(text string) []string {
	return Split(text, c.maxChunkSize)
}

func (c *SentenceChunker) MaxChunkSize() int {
	return c.maxChunkSize
}

// Split breaks text into chunks of at most maxChunkSize characters (runes),
// preferring sentence boundaries. Text that already fits is returned as is.
// Sentences longer than the limit are cut at the character boundary.
// Whitespace-only chunks are dropped.
func Split(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= maxChunkSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
		}
		current.Reset()
		currentLen = 0
	}

	for _, sentence := range sentences(text) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		n := utf8.RuneCountInString(sentence)

		if currentLen == 0 && n <= maxChunkSize {
			current.WriteString(sentence)
			currentLen = n
			continue
		}
		if currentLen > 0 && currentLen+1+n <= maxChunkSize {
			current.WriteByte(' ')
			current.WriteString(sentence)
			currentLen += 1 + n
			continue
		}

		flush()
		if n > maxChunkSize {
			chunks = append(chunks, hardSplit(sentence, maxChunkSize)...)
			continue
		}
		current.WriteString(sentence)
		currentLen = n
	}
	flush()

	return chunks
}

// sentences cuts text after each terminal punctuation mark that is followed by
// whitespace. The punctuation stays with its sentence.
func sentences(text string) []string {
	var out []string
	start := 0
	for _, m := range sentenceEnd.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, text[start:m[3]])
		start = m[1]
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func hardSplit(s string, size int) []string {
	var out []string
	runes := []rune(s)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		piece := string(runes[i:end])
		if strings.TrimSpace(piece) == "" {
			continue
		}
		out = append(out, piece)
	}
	return out
}
