package domain

import (
	"fmt"
	"time"
)

// IndexManifest describes a persisted passage index. It pins the embedding
// function identity used at ingestion so queries can be checked against it.
type IndexManifest struct {
	Name                string
	SourceName          string
	EmbeddingModel      string
	EmbeddingDimensions int
	ChunkSize           int
	ChunkOverlap        int
	PassageCount        int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ValidateIndexManifest validates an IndexManifest instance
func ValidateIndexManifest(m *IndexManifest) error {
	if m == nil {
		return fmt.Errorf("index manifest cannot be nil")
	}
	if m.Name == "" {
		return fmt.Errorf("index manifest Name is required")
	}
	if m.EmbeddingModel == "" {
		return fmt.Errorf("index manifest EmbeddingModel is required")
	}
	if m.EmbeddingDimensions <= 0 {
		return fmt.Errorf("index manifest EmbeddingDimensions must be positive")
	}
	if m.ChunkOverlap < 0 || (m.ChunkSize > 0 && m.ChunkOverlap >= m.ChunkSize) {
		return fmt.Errorf("index manifest ChunkOverlap must be in [0, ChunkSize)")
	}
	return nil
}

// CheckEmbedding returns ErrEmbeddingMismatch when the query-side embedding
// function differs from the one the index was built with.
func (m *IndexManifest) CheckEmbedding(model string, dimensions int) error {
	if m.EmbeddingModel != model || m.EmbeddingDimensions != dimensions {
		return NewDomainErrorWithCause(ErrCodeConflict, ErrEmbeddingMismatch.Message,
			fmt.Errorf("index %q built with %s/%d, query uses %s/%d",
				m.Name, m.EmbeddingModel, m.EmbeddingDimensions, model, dimensions))
	}
	return nil
}
