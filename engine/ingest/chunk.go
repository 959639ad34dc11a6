package ingest

import "strings"

const (
	// DefaultChunkSize is the window length in characters.
	DefaultChunkSize = 800
	// DefaultOverlap is how many characters consecutive chunks share, so
	// no clause is lost across a boundary.
	DefaultOverlap = 100
)

// ChunkText splits text into fixed-size overlapping segments. The walk is
// deterministic: a window of size characters starting at offset 0,
// advancing by size-overlap until the text is exhausted. Windows that are
// empty after trimming are skipped; emitted indices stay contiguous.
// Invalid parameters fall back to the defaults.
func ChunkText(text string, size, overlap int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []Chunk
	step := size - overlap
	for offset := 0; offset < len(runes); offset += step {
		end := offset + size
		if end > len(runes) {
			end = len(runes)
		}
		span := strings.TrimSpace(string(runes[offset:end]))
		if span != "" {
			chunks = append(chunks, Chunk{Text: span, Index: len(chunks)})
		}
	}
	return chunks
}
