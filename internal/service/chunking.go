package service

import (
	"strings"
	"unicode"
)

// ChunkConfig controls how page text is cut into passages. Sizes are in
// runes so Arabic text is not split mid-character.
type ChunkConfig struct {
	Size     int
	Overlap  int
	MinChars int
}

// DefaultChunkConfig mirrors the ingestion defaults (1000 / 200).
func DefaultChunkConfig() ChunkConfig {
	return NewChunkConfig(1000, 200)
}

// NewChunkConfig derives the minimum cut position from size.
func NewChunkConfig(size, overlap int) ChunkConfig {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return ChunkConfig{Size: size, Overlap: overlap, MinChars: size / 2}
}

// chunkText splits text into overlapping windows of at most cfg.Size runes.
// Cuts prefer a paragraph break, then a line break, then sentence end, then
// any whitespace, searching backwards no further than MinChars.
func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.Size <= 0 {
		cfg = DefaultChunkConfig()
	}
	runes := []rune(clean)
	if len(runes) <= cfg.Size {
		return []string{clean}
	}

	chunks := make([]string, 0, len(runes)/cfg.Size+1)
	start := 0
	for start < len(runes) {
		end := start + cfg.Size
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			minCut := start + cfg.MinChars
			if minCut >= end {
				minCut = start
			}
			end = findCut(runes, minCut, end)
		}

		if end <= start {
			break
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		nextStart := end
		if cfg.Overlap > 0 && end-start > cfg.Overlap {
			nextStart = alignStart(runes, end-cfg.Overlap, end)
		}
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}

var cutPreferences = []func(runes []rune, i int) bool{
	func(r []rune, i int) bool { return r[i-1] == '\n' && i >= 2 && r[i-2] == '\n' },
	func(r []rune, i int) bool { return r[i-1] == '\n' },
	func(r []rune, i int) bool {
		return unicode.IsSpace(r[i-1]) && i >= 2 && strings.ContainsRune(".!?؟۔", r[i-2])
	},
	func(r []rune, i int) bool { return unicode.IsSpace(r[i-1]) },
}

// findCut returns the best cut in (minCut, end]; end when none qualifies.
func findCut(runes []rune, minCut, end int) int {
	for _, match := range cutPreferences {
		for i := end; i > minCut; i-- {
			if match(runes, i) {
				return i
			}
		}
	}
	return end
}

// alignStart moves an overlap start forward to the next word boundary so
// passages do not begin mid-word.
func alignStart(runes []rune, from, limit int) int {
	if from <= 0 || unicode.IsSpace(runes[from-1]) {
		return from
	}
	for i := from; i < limit; i++ {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return from
}
