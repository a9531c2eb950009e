package domain

import (
	"fmt"
	"time"
)

// UnknownLocation is used when a passage carries no page marker.
const UnknownLocation = "Unknown"

// Passage is an indexed unit of source text. Passages are created once by the
// indexer and are read-only afterwards.
type Passage struct {
	ID        string
	IndexName string
	Ordinal   int // insertion order within the index, used as the stable tie-break
	Location  string
	Text      string
	Vector    []float32
	CreatedAt time.Time
}

// NewPassage creates a new Passage instance
func NewPassage(id, indexName string, ordinal int, location, text string, vector []float32, createdAt time.Time) *Passage {
	if location == "" {
		location = UnknownLocation
	}
	return &Passage{
		ID:        id,
		IndexName: indexName,
		Ordinal:   ordinal,
		Location:  location,
		Text:      text,
		Vector:    vector,
		CreatedAt: createdAt,
	}
}

// ValidatePassage validates a Passage instance
func ValidatePassage(p *Passage) error {
	if p == nil {
		return fmt.Errorf("passage cannot be nil")
	}
	if p.ID == "" {
		return fmt.Errorf("passage ID is required")
	}
	if p.IndexName == "" {
		return fmt.Errorf("passage IndexName is required")
	}
	if p.Ordinal < 0 {
		return fmt.Errorf("passage Ordinal cannot be negative")
	}
	if p.Text == "" {
		return fmt.Errorf("passage Text is required")
	}
	if len(p.Vector) == 0 {
		return fmt.Errorf("passage Vector is required")
	}
	return nil
}

// ScoredPassage pairs a passage with its cosine similarity to a query.
type ScoredPassage struct {
	Passage Passage
	Score   float32
}

// RetrievalResult is ordered by descending similarity.
type RetrievalResult []ScoredPassage

// IsOrdered reports whether scores are non-increasing in sequence order.
func (r RetrievalResult) IsOrdered() bool {
	for i := 1; i < len(r); i++ {
		if r[i].Score > r[i-1].Score {
			return false
		}
	}
	return true
}

// Locations returns the location marker of every passage, in order.
func (r RetrievalResult) Locations() []string {
	out := make([]string, 0, len(r))
	for _, sp := range r {
		out = append(out, sp.Passage.Location)
	}
	return out
}
