package service

import (
	"context"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/cloo-solutions/sanad/internal/document"
	"github.com/cloo-solutions/sanad/internal/domain"
	"github.com/cloo-solutions/sanad/internal/telemetry"
)

// IndexWriter replaces an index's manifest and passages as one unit.
type IndexWriter interface {
	ReplaceIndex(ctx context.Context, m *domain.IndexManifest, passages []domain.Passage) error
}

// SourceFetcher downloads source documents from object storage.
type SourceFetcher interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// IndexStats summarizes an ingestion run.
type IndexStats struct {
	IndexName string
	Source    string
	Pages     int
	Passages  int
	Duration  time.Duration
}

// Indexer turns a source document into an embedded passage index.
type Indexer struct {
	embedder  EmbeddingClient
	writer    IndexWriter
	sources   SourceFetcher
	indexName string
	chunkCfg  ChunkConfig
	uuidGen   UUIDGenerator
}

func NewIndexer(embedder EmbeddingClient, writer IndexWriter, indexName string, chunkCfg ChunkConfig) *Indexer {
	return &Indexer{
		embedder:  embedder,
		writer:    writer,
		indexName: indexName,
		chunkCfg:  chunkCfg,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// WithSources enables IndexObject.
func (i *Indexer) WithSources(sources SourceFetcher) *Indexer {
	i.sources = sources
	return i
}

// WithUUIDGen replaces the passage ID generator (for testing).
func (i *Indexer) WithUUIDGen(g UUIDGenerator) *Indexer {
	i.uuidGen = g
	return i
}

// IndexFile loads a local document and indexes it.
func (i *Indexer) IndexFile(ctx context.Context, filePath string) (*IndexStats, error) {
	doc, err := document.Load(filePath)
	if err != nil {
		return nil, err
	}
	return i.IndexDocument(ctx, doc)
}

// IndexObject downloads a document from object storage and indexes it.
func (i *Indexer) IndexObject(ctx context.Context, key string) (*IndexStats, error) {
	if i.sources == nil {
		return nil, domain.NewDomainError(domain.ErrCodeUnavailable, "object storage not configured")
	}
	data, err := i.sources.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to download source %q: %w", key, err)
	}
	doc, err := document.Parse(path.Base(key), data)
	if err != nil {
		return nil, err
	}
	return i.IndexDocument(ctx, doc)
}

// IndexDocument chunks every page, embeds each chunk and replaces the index.
// Nothing is written unless every chunk embeds successfully.
func (i *Indexer) IndexDocument(ctx context.Context, doc *document.Document) (*IndexStats, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "index.build", telemetry.SpanAttributes{
		IndexName: i.indexName,
		Operation: "ingest",
	})
	defer span.End()

	model := i.embedder.EmbeddingModel()
	dims := i.embedder.EmbeddingDimensions()
	createdAt := time.Now().UTC()

	var passages []domain.Passage
	for _, page := range doc.Pages {
		for _, chunk := range chunkText(page.Text, i.chunkCfg) {
			vec, err := i.embedder.GenerateEmbedding(ctx, chunk)
			if err != nil {
				span.SetError(err)
				return nil, fmt.Errorf("failed to embed passage %d (page %s): %w", len(passages), page.Location(), err)
			}
			if len(vec) != dims {
				err := fmt.Errorf("passage %d has %d dimensions, expected %d", len(passages), len(vec), dims)
				span.SetError(err)
				return nil, err
			}
			passages = append(passages, *domain.NewPassage(
				i.uuidGen.NewString(), i.indexName, len(passages), page.Location(), chunk, vec, createdAt,
			))
			if len(passages)%50 == 0 {
				log.Printf("indexer: embedded %d passages so far", len(passages))
			}
		}
	}
	if len(passages) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	manifest := &domain.IndexManifest{
		Name:                i.indexName,
		SourceName:          doc.Name,
		EmbeddingModel:      model,
		EmbeddingDimensions: dims,
		ChunkSize:           i.chunkCfg.Size,
		ChunkOverlap:        i.chunkCfg.Overlap,
		PassageCount:        len(passages),
	}
	if err := i.writer.ReplaceIndex(ctx, manifest, passages); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to replace index %q: %w", i.indexName, err)
	}

	stats := &IndexStats{
		IndexName: i.indexName,
		Source:    doc.Name,
		Pages:     len(doc.Pages),
		Passages:  len(passages),
		Duration:  time.Since(start),
	}
	log.Printf("indexer: indexed %s into %q: %d pages, %d passages in %s",
		stats.Source, stats.IndexName, stats.Pages, stats.Passages, stats.Duration.Round(time.Millisecond))
	return stats, nil
}
