package textproc

import "strings"

// DefaultChunkSize is the number of words per chunk when none is configured.
const DefaultChunkSize = 500

// Chunk is an ordered run of words taken contiguously from a larger text.
type Chunk []string

// Text joins the chunk's words with single spaces.
func (c Chunk) Text() string { return strings.Join(c, " ") }

// Split splits text on whitespace and groups the words into chunks of at most
// size words. The last chunk may be shorter. A non-positive size falls back to
// DefaultChunkSize. Empty input yields no chunks.
func Split(text string, size int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	out := make([]Chunk, 0, (len(words)+size-1)/size)
	for i := 0; i < len(words); i += size {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		out = append(out, Chunk(words[i:end:end]))
	}
	return out
}

// Words flattens chunks back into a single word sequence.
func Words(chunks []Chunk) []string {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]string, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
