package ingest

import "strings"

// Chunking defaults, in whitespace-separated words.
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 80
)

// SplitWords splits text on whitespace into windows of size words, each starting
// size-overlap words after the previous one. Windows are emitted until a window
// starts past the last word, so the tail may repeat up to overlap words.
func SplitWords(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	step := size - overlap
	if overlap < 0 || step <= 0 {
		step = size
	}

	words := strings.Fields(text)
	var chunks []string
	for i := 0; i < len(words); i += step {
		end := min(i+size, len(words))
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}
