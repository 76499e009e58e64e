package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChunkChars is the maximum chunk length in characters (runes)
const DefaultMaxChunkChars = 2048

// separators are tried in order; earlier ones are preferred split points
var separators = []string{
	"\n\n", // paragraphs / blank-line separated blocks
	"\n",   // lines
	". ",   // sentences
	" ",    // words
}

// Chunker splits entity text into bounded pieces for embedding
type Chunker struct {
	maxChars int
}

// New creates a new Chunker instance. Non-positive max uses DefaultMaxChunkChars.
func New(maxChars int) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}
	return &Chunker{maxChars: maxChars}
}

// MaxChars returns the chunk size limit
func (c *Chunker) MaxChars() int {
	return c.maxChars
}

// Split returns the ordered chunks of text.
// Concatenating the result yields text; empty text yields no chunks.
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}
	return c.split(text, 0)
}

func (c *Chunker) split(text string, level int) []string {
	if utf8.RuneCountInString(text) <= c.maxChars {
		return []string{text}
	}
	if level >= len(separators) {
		return c.hardSplit(text)
	}

	pieces := splitKeep(text, separators[level])
	if len(pieces) == 1 {
		return c.split(text, level+1)
	}

	var out []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
	}
	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		if n > c.maxChars {
			flush()
			out = append(out, c.split(p, level+1)...)
			continue
		}
		if curLen+n > c.maxChars {
			flush()
		}
		cur.WriteString(p)
		curLen += n
	}
	flush()
	return out
}

// hardSplit cuts on rune boundaries
func (c *Chunker) hardSplit(text string) []string {
	var out []string
	for len(text) > 0 {
		i, n := 0, 0
		for i < len(text) && n < c.maxChars {
			_, size := utf8.DecodeRuneInString(text[i:])
			i += size
			n++
		}
		out = append(out, text[:i])
		text = text[i:]
	}
	return out
}

// splitKeep splits after each sep, keeping separators attached and dropping empty tails
func splitKeep(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
