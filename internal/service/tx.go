package service

import (
	"context"

	"github.com/cloo-solutions/sanad/internal/domain"
)

// PassageRepositoryInterface defines the persistence of indexed passages.
type PassageRepositoryInterface interface {
	ReplacePassages(ctx context.Context, indexName string, passages []domain.Passage) error
	SearchByVector(ctx context.Context, indexName string, embedding []float32, k int) (domain.RetrievalResult, error)
	CountPassages(ctx context.Context, indexName string) (int, error)
}

// IndexRepositoryInterface defines the persistence of index manifests.
type IndexRepositoryInterface interface {
	GetManifest(ctx context.Context, name string) (*domain.IndexManifest, error)
	UpsertManifest(ctx context.Context, m *domain.IndexManifest) error
}

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Passages() PassageRepositoryInterface
	Indexes() IndexRepositoryInterface
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

// TxIndexWriter replaces an index inside a single transaction so readers
// never see a half-written corpus.
type TxIndexWriter struct {
	tx TxRunner
}

func NewTxIndexWriter(tx TxRunner) *TxIndexWriter {
	return &TxIndexWriter{tx: tx}
}

// ReplaceIndex upserts the manifest, then swaps the passages.
func (w *TxIndexWriter) ReplaceIndex(ctx context.Context, m *domain.IndexManifest, passages []domain.Passage) error {
	return w.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Indexes().UpsertManifest(ctx, m); err != nil {
			return err
		}
		return repos.Passages().ReplacePassages(ctx, m.Name, passages)
	})
}
