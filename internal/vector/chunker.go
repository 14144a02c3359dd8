package vector

import "strings"

// Chunk is one word-window slice of a larger document
type Chunk struct {
	Text      string
	Index     int
	WordCount int
}

// SplitWords splits text into overlapping word windows. Overlap is clamped
// below size so the window always advances.
func SplitWords(text string, size, overlap int) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 {
		size = 200
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	var chunks []Chunk
	step := size - overlap
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		window := words[start:end]
		chunks = append(chunks, Chunk{
			Text:      strings.Join(window, " "),
			Index:     len(chunks),
			WordCount: len(window),
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}
