package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloo-solutions/sanad/internal/document"
	"github.com/cloo-solutions/sanad/internal/domain"
	"github.com/cloo-solutions/sanad/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func twoPageDocument() *document.Document {
	return &document.Document{
		Name: "usool.pdf",
		Pages: []document.Page{
			{Number: 1, Text: "The sahih hadith has five conditions: a connected chain, upright narrators, precise narrators, no shudhudh, and no hidden defect."},
			{Number: 2, Text: "The hasan hadith meets the conditions of the sahih except that the precision of a narrator is lighter."},
		},
	}
}

func TestIndexer_IndexDocument(t *testing.T) {
	ctx := context.Background()
	embedder := new(MockEmbeddingClient)
	embedder.On("EmbeddingModel").Return(testModel)
	embedder.On("EmbeddingDimensions").Return(testDims)
	embedder.On("GenerateEmbedding", mock.Anything, mock.MatchedBy(func(s string) bool {
		return strings.Contains(s, "sahih hadith has five")
	})).Return([]float32{1, 0, 0}, nil)
	embedder.On("GenerateEmbedding", mock.Anything, mock.MatchedBy(func(s string) bool {
		return strings.Contains(s, "hasan hadith")
	})).Return([]float32{0, 1, 0}, nil)

	store := vector.NewMemoryStore()
	indexer := NewIndexer(embedder, store, testIndex, DefaultChunkConfig()).WithUUIDGen(&sequentialUUIDGen{})

	stats, err := indexer.IndexDocument(ctx, twoPageDocument())

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pages)
	assert.Equal(t, 2, stats.Passages)
	assert.Equal(t, "usool.pdf", stats.Source)

	manifest, err := store.GetManifest(ctx, testIndex)
	require.NoError(t, err)
	assert.Equal(t, testModel, manifest.EmbeddingModel)
	assert.Equal(t, testDims, manifest.EmbeddingDimensions)
	assert.Equal(t, 2, manifest.PassageCount)
	assert.Equal(t, 1000, manifest.ChunkSize)
	assert.Equal(t, 200, manifest.ChunkOverlap)

	result, err := store.SearchByVector(ctx, testIndex, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "2", result[0].Passage.Location)
	assert.Equal(t, 1, result[0].Passage.Ordinal)
}

func TestIndexer_IndexDocument_ChunksLongPages(t *testing.T) {
	embedder := new(MockEmbeddingClient)
	embedder.On("EmbeddingModel").Return(testModel)
	embedder.On("EmbeddingDimensions").Return(testDims)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1, 1, 1}, nil)

	writer := new(MockIndexWriter)
	var written []domain.Passage
	writer.On("ReplaceIndex", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { written = args.Get(2).([]domain.Passage) }).
		Return(nil)

	doc := &document.Document{Name: "long.txt", Pages: []document.Page{{Number: 0, Text: numberedWords(120)}}}
	indexer := NewIndexer(embedder, writer, testIndex, NewChunkConfig(100, 20))

	stats, err := indexer.IndexDocument(context.Background(), doc)

	require.NoError(t, err)
	assert.Greater(t, stats.Passages, 1)
	require.Len(t, written, stats.Passages)
	for i, p := range written {
		assert.Equal(t, i, p.Ordinal)
		assert.Equal(t, domain.UnknownLocation, p.Location)
		assert.LessOrEqual(t, len([]rune(p.Text)), 100)
	}
}

func TestIndexer_IndexDocument_EmbeddingErrorWritesNothing(t *testing.T) {
	embedder := new(MockEmbeddingClient)
	embedder.On("EmbeddingModel").Return(testModel)
	embedder.On("EmbeddingDimensions").Return(testDims)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	writer := new(MockIndexWriter)
	_, err := NewIndexer(embedder, writer, testIndex, DefaultChunkConfig()).IndexDocument(context.Background(), twoPageDocument())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	writer.AssertNotCalled(t, "ReplaceIndex", mock.Anything, mock.Anything, mock.Anything)
}

func TestIndexer_IndexDocument_DimensionMismatch(t *testing.T) {
	embedder := new(MockEmbeddingClient)
	embedder.On("EmbeddingModel").Return(testModel)
	embedder.On("EmbeddingDimensions").Return(testDims)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)

	writer := new(MockIndexWriter)
	_, err := NewIndexer(embedder, writer, testIndex, DefaultChunkConfig()).IndexDocument(context.Background(), twoPageDocument())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 dimensions, expected 3")
	writer.AssertNotCalled(t, "ReplaceIndex", mock.Anything, mock.Anything, mock.Anything)
}

func TestIndexer_IndexDocument_EmptyDocument(t *testing.T) {
	embedder := new(MockEmbeddingClient)
	embedder.On("EmbeddingModel").Return(testModel)
	embedder.On("EmbeddingDimensions").Return(testDims)

	_, err := NewIndexer(embedder, new(MockIndexWriter), testIndex, DefaultChunkConfig()).
		IndexDocument(context.Background(), &document.Document{Name: "blank.txt", Pages: []document.Page{{Text: "   "}}})

	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}

func TestIndexer_IndexFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Mutawatir\n\nReported by so many that collusion on a lie is impossible."), 0o644))

	embedder := new(MockEmbeddingClient)
	embedder.On("EmbeddingModel").Return(testModel)
	embedder.On("EmbeddingDimensions").Return(testDims)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0, 0, 1}, nil)

	store := vector.NewMemoryStore()
	stats, err := NewIndexer(embedder, store, testIndex, DefaultChunkConfig()).IndexFile(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Passages)
	assert.Equal(t, "notes.md", stats.Source)
}

func TestIndexer_IndexObject(t *testing.T) {
	ctx := context.Background()
	embedder := new(MockEmbeddingClient)
	embedder.On("EmbeddingModel").Return(testModel)
	embedder.On("EmbeddingDimensions").Return(testDims)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0, 0, 1}, nil)

	sources := new(MockSourceFetcher)
	sources.On("Download", ctx, "books/usool.txt").Return([]byte("The ahad is what falls short of mutawatir."), nil)

	store := vector.NewMemoryStore()
	stats, err := NewIndexer(embedder, store, testIndex, DefaultChunkConfig()).
		WithSources(sources).
		IndexObject(ctx, "books/usool.txt")

	require.NoError(t, err)
	assert.Equal(t, "usool.txt", stats.Source)
	sources.AssertExpectations(t)
}

func TestIndexer_IndexObject_NotConfigured(t *testing.T) {
	_, err := NewIndexer(new(MockEmbeddingClient), new(MockIndexWriter), testIndex, DefaultChunkConfig()).
		IndexObject(context.Background(), "books/usool.pdf")

	var domainErr *domain.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.ErrCodeUnavailable, domainErr.Code)
}
