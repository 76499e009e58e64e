// Package chunker divides entity text into bounded chunks for embedding.
//
// Chunks never exceed the configured number of characters (runes, default
// 2048). Splits prefer structural boundaries, trying each rule in turn:
//   - Blank lines (paragraphs, block separators)
//   - Line ends
//   - Sentence ends
//   - Spaces
//   - Rune boundaries, as a last resort
//
// Adjacent pieces are merged greedily while they fit, so most chunks are
// close to the limit. Separators stay attached to the preceding piece and
// joining the chunks reproduces the input exactly.
//
// # Basic Usage
//
//	c := chunker.New(chunker.DefaultMaxChunkChars)
//	for i, chunk := range c.Split(entity.Text) {
//	    fmt.Printf("chunk %d: %d chars\n", i, utf8.RuneCountInString(chunk))
//	}
//
// Split is a pure function: the same text always yields the same chunks.
package chunker
