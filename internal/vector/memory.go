package vector

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cloo-solutions/sanad/internal/domain"
)

// MemoryStore is an in-memory passage index used by the local chat command
// and by tests. It mirrors the Postgres repositories.
type MemoryStore struct {
	mu        sync.RWMutex
	passages  map[string][]domain.Passage
	manifests map[string]domain.IndexManifest
}

// NewMemoryStore creates a new in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		passages:  make(map[string][]domain.Passage),
		manifests: make(map[string]domain.IndexManifest),
	}
}

// ReplaceIndex swaps the passages and manifest of an index in one step.
func (s *MemoryStore) ReplaceIndex(ctx context.Context, m *domain.IndexManifest, passages []domain.Passage) error {
	if err := domain.ValidateIndexManifest(m); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid index manifest", err)
	}
	for i := range passages {
		if err := domain.ValidatePassage(&passages[i]); err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid passage", err)
		}
	}

	stored := make([]domain.Passage, len(passages))
	copy(stored, passages)
	sort.SliceStable(stored, func(i, j int) bool {
		return stored[i].Ordinal < stored[j].Ordinal
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	manifest := *m
	now := time.Now().UTC()
	if prev, ok := s.manifests[m.Name]; ok {
		manifest.CreatedAt = prev.CreatedAt
	} else if manifest.CreatedAt.IsZero() {
		manifest.CreatedAt = now
	}
	manifest.UpdatedAt = now
	manifest.PassageCount = len(stored)

	s.passages[m.Name] = stored
	s.manifests[m.Name] = manifest
	return nil
}

// ReplacePassages replaces the passages of an index, leaving the manifest alone.
func (s *MemoryStore) ReplacePassages(ctx context.Context, indexName string, passages []domain.Passage) error {
	stored := make([]domain.Passage, len(passages))
	copy(stored, passages)
	sort.SliceStable(stored, func(i, j int) bool {
		return stored[i].Ordinal < stored[j].Ordinal
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.passages[indexName] = stored
	return nil
}

// UpsertManifest stores the manifest of an index.
func (s *MemoryStore) UpsertManifest(ctx context.Context, m *domain.IndexManifest) error {
	if err := domain.ValidateIndexManifest(m); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid index manifest", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	manifest := *m
	if prev, ok := s.manifests[m.Name]; ok {
		manifest.CreatedAt = prev.CreatedAt
	}
	manifest.UpdatedAt = time.Now().UTC()
	s.manifests[m.Name] = manifest
	return nil
}

// GetManifest returns the manifest of an index or ErrIndexNotFound.
func (s *MemoryStore) GetManifest(ctx context.Context, name string) (*domain.IndexManifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.manifests[name]
	if !ok {
		return nil, domain.ErrIndexNotFound
	}
	return &m, nil
}

// SearchByVector finds passages similar to the given embedding using
// brute-force cosine similarity. Equal scores keep insertion order.
func (s *MemoryStore) SearchByVector(ctx context.Context, indexName string, embedding []float32, k int) (domain.RetrievalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	passages := s.passages[indexName]
	results := make(domain.RetrievalResult, 0, len(passages))
	for _, p := range passages {
		if len(p.Vector) == 0 {
			continue
		}
		results = append(results, domain.ScoredPassage{
			Passage: p,
			Score:   CosineSimilarity(embedding, p.Vector),
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// CountPassages returns the number of passages in an index.
func (s *MemoryStore) CountPassages(ctx context.Context, indexName string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.passages[indexName]), nil
}
