package docproc

import "strings"

// Chunking defaults, tuned for embedding-model context windows.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// sentence delimiters tried in order when no paragraph break is available.
var sentenceBreaks = []string{". ", "! ", "? ", "\n"}

// Chunk splits text into overlapping pieces of at most size characters.
// Each boundary seeks backwards for a paragraph break, then a sentence
// break, accepting it only when past the midpoint of the chunk so chunks
// never collapse below half size. Consecutive chunks share overlap
// characters of context. Whitespace-only pieces are dropped.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 5
		}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end < len(text) {
			end = seekBoundary(text, start, end, size)
		} else {
			end = len(text)
		}

		if piece := strings.TrimSpace(text[start:end]); piece != "" {
			chunks = append(chunks, piece)
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// seekBoundary moves the chunk end back to the nearest paragraph or sentence
// boundary, provided the boundary lies past the chunk midpoint.
func seekBoundary(text string, start, end, size int) int {
	window := text[start:end]
	mid := size / 2

	if para := strings.LastIndex(window, "\n\n"); para > mid {
		return start + para + 2
	}
	for _, delim := range sentenceBreaks {
		if sent := strings.LastIndex(window, delim); sent > mid {
			return start + sent + len(delim)
		}
	}
	return end
}
