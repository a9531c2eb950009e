package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/sanad/internal/domain"
	"github.com/cloo-solutions/sanad/internal/telemetry"
)

// NoInformationFound is the formatted context for an empty retrieval.
const NoInformationFound = "No relevant information found in the Usool al-Hadith book."

// EmbeddingClient generates query embeddings and reports which embedding
// function it uses.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	EmbeddingModel() string
	EmbeddingDimensions() int
}

// PassageSearcher runs nearest-neighbour search over one index.
type PassageSearcher interface {
	SearchByVector(ctx context.Context, indexName string, embedding []float32, k int) (domain.RetrievalResult, error)
}

// ManifestReader loads the manifest that pins an index's embedding function.
type ManifestReader interface {
	GetManifest(ctx context.Context, name string) (*domain.IndexManifest, error)
}

// RetrieverConfig configures the Retriever.
type RetrieverConfig struct {
	IndexName string
	DefaultK  int
	Timeout   time.Duration
}

// Retriever embeds queries and searches the passage index.
type Retriever struct {
	embedder EmbeddingClient
	passages PassageSearcher
	indexes  ManifestReader
	cfg      RetrieverConfig
}

func NewRetriever(embedder EmbeddingClient, passages PassageSearcher, indexes ManifestReader, cfg RetrieverConfig) *Retriever {
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = 5
	}
	return &Retriever{
		embedder: embedder,
		passages: passages,
		indexes:  indexes,
		cfg:      cfg,
	}
}

// IndexName returns the index this retriever reads.
func (r *Retriever) IndexName() string {
	return r.cfg.IndexName
}

// Manifest returns the manifest of the configured index.
func (r *Retriever) Manifest(ctx context.Context) (*domain.IndexManifest, error) {
	return r.indexes.GetManifest(ctx, r.cfg.IndexName)
}

// Search returns up to k passages ordered by descending similarity, or the
// error that prevented it. k <= 0 selects the default.
func (r *Retriever) Search(ctx context.Context, query string, k int) (domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if k <= 0 {
		k = r.cfg.DefaultK
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	ctx, span := telemetry.StartSpan(ctx, "turn.retrieve", telemetry.SpanAttributes{
		SessionID: telemetry.SessionIDFromContext(ctx),
		IndexName: r.cfg.IndexName,
		Stage:     domain.StageRetrieve,
	})
	defer span.End()

	manifest, err := r.indexes.GetManifest(ctx, r.cfg.IndexName)
	if err != nil {
		return nil, fmt.Errorf("load index manifest: %w", err)
	}
	if err := manifest.CheckEmbedding(r.embedder.EmbeddingModel(), r.embedder.EmbeddingDimensions()); err != nil {
		return nil, err
	}

	embedding, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	result, err := r.passages.SearchByVector(ctx, r.cfg.IndexName, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("search passages: %w", err)
	}
	if len(result) > k {
		result = result[:k]
	}
	return result, nil
}

// Retrieve is Search with every failure degraded to an empty result.
// Retrieval problems never abort a conversation.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) domain.RetrievalResult {
	result, err := r.Search(ctx, query, k)
	if err != nil {
		log.Printf("retriever: degraded to empty result: %v", err)
		telemetry.CaptureError(ctx, err)
		return domain.RetrievalResult{}
	}
	return result
}

// FormatResult renders a result as labeled blocks separated by a blank line.
// An empty result renders as NoInformationFound, never as "".
func FormatResult(result domain.RetrievalResult) string {
	if len(result) == 0 {
		return NoInformationFound
	}

	parts := make([]string, 0, len(result))
	for i, sp := range result {
		location := sp.Passage.Location
		if location == "" {
			location = domain.UnknownLocation
		}
		parts = append(parts, fmt.Sprintf("[Source %d - Page %s]:\n%s", i+1, location, strings.TrimSpace(sp.Passage.Text)))
	}
	return strings.Join(parts, "\n\n")
}
