package vector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/sanad/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func testManifest(name string) *domain.IndexManifest {
	return &domain.IndexManifest{
		Name:                name,
		SourceName:          "usool.pdf",
		EmbeddingModel:      "test-embed",
		EmbeddingDimensions: 3,
		ChunkSize:           1000,
		ChunkOverlap:        200,
	}
}

func testPassage(ordinal int, location string, vec []float32) domain.Passage {
	return *domain.NewPassage(fmt.Sprintf("p-%d", ordinal), "idx", ordinal, location, fmt.Sprintf("text %d", ordinal), vec, testTime)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0, 0}, []float32{2, 0, 0}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0, 0}, []float32{0, 1, 0}), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Equal(t, float32(0), CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Equal(t, float32(0), CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, float32(0), CosineSimilarity(nil, nil))
}

func TestNormalize(t *testing.T) {
	n := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, n[0], 1e-6)
	assert.InDelta(t, 0.8, n[1], 1e-6)

	zero := []float32{0, 0}
	assert.Equal(t, zero, Normalize(zero))
}

func TestMemoryStore_SearchOrdersByScore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.ReplaceIndex(ctx, testManifest("idx"), []domain.Passage{
		testPassage(0, "1", []float32{0, 1, 0}),
		testPassage(1, "2", []float32{1, 0, 0}),
		testPassage(2, "3", []float32{1, 1, 0}),
	}))

	res, err := s.SearchByVector(ctx, "idx", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "2", res[0].Passage.Location)
	assert.Equal(t, "3", res[1].Passage.Location)
	assert.True(t, res.IsOrdered())
}

func TestMemoryStore_SearchTieBreakIsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	// supplied out of order; ordinal decides
	require.NoError(t, s.ReplaceIndex(ctx, testManifest("idx"), []domain.Passage{
		testPassage(2, "c", []float32{1, 0, 0}),
		testPassage(0, "a", []float32{1, 0, 0}),
		testPassage(1, "b", []float32{1, 0, 0}),
	}))

	for i := 0; i < 5; i++ {
		res, err := s.SearchByVector(ctx, "idx", []float32{1, 0, 0}, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, res.Locations())
	}
}

func TestMemoryStore_SearchEmptyIndex(t *testing.T) {
	s := NewMemoryStore()

	res, err := s.SearchByVector(context.Background(), "missing", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestMemoryStore_SearchCancelled(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.SearchByVector(ctx, "idx", []float32{1}, 5)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMemoryStore_SearchNonPositiveKReturnsAll(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.ReplaceIndex(ctx, testManifest("idx"), []domain.Passage{
		testPassage(0, "1", []float32{1, 0, 0}),
		testPassage(1, "2", []float32{0, 1, 0}),
	}))

	res, err := s.SearchByVector(ctx, "idx", []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Len(t, res, 2)
}

func TestMemoryStore_ReplaceIndexSetsManifest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.ReplaceIndex(ctx, testManifest("idx"), []domain.Passage{
		testPassage(0, "1", []float32{1, 0, 0}),
	}))
	first, err := s.GetManifest(ctx, "idx")
	require.NoError(t, err)
	assert.Equal(t, 1, first.PassageCount)
	assert.False(t, first.CreatedAt.IsZero())

	require.NoError(t, s.ReplaceIndex(ctx, testManifest("idx"), []domain.Passage{
		testPassage(0, "1", []float32{1, 0, 0}),
		testPassage(1, "2", []float32{0, 1, 0}),
	}))
	second, err := s.GetManifest(ctx, "idx")
	require.NoError(t, err)
	assert.Equal(t, 2, second.PassageCount)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	n, err := s.CountPassages(ctx, "idx")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMemoryStore_ReplaceIndexRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	bad := testManifest("idx")
	bad.EmbeddingModel = ""
	err := s.ReplaceIndex(ctx, bad, nil)
	assert.Error(t, err)

	err = s.ReplaceIndex(ctx, testManifest("idx"), []domain.Passage{{ID: "x", IndexName: "idx", Text: "t"}})
	assert.Error(t, err)

	_, err = s.GetManifest(ctx, "idx")
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestMemoryStore_UpsertManifestAndReplacePassages(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.UpsertManifest(ctx, testManifest("idx")))
	require.NoError(t, s.ReplacePassages(ctx, "idx", []domain.Passage{
		testPassage(1, "2", []float32{0, 1, 0}),
		testPassage(0, "1", []float32{1, 0, 0}),
	}))

	m, err := s.GetManifest(ctx, "idx")
	require.NoError(t, err)
	assert.Equal(t, "test-embed", m.EmbeddingModel)

	res, err := s.SearchByVector(ctx, "idx", []float32{1, 1, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, res.Locations())
}

func TestMemoryStore_ConcurrentSearch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.ReplaceIndex(ctx, testManifest("idx"), []domain.Passage{
		testPassage(0, "1", []float32{1, 0, 0}),
		testPassage(1, "2", []float32{0, 1, 0}),
	}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.SearchByVector(ctx, "idx", []float32{1, 0, 0}, 1)
			assert.NoError(t, err)
			assert.Len(t, res, 1)
		}()
	}
	wg.Wait()
}
