package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/sanad/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IndexRepository persists index manifests.
type IndexRepository struct {
	db dbtx
}

func NewIndexRepository(pool *pgxpool.Pool) *IndexRepository {
	return &IndexRepository{db: pool}
}

func NewIndexRepositoryWithTx(tx pgx.Tx) *IndexRepository {
	return &IndexRepository{db: tx}
}

func (r *IndexRepository) GetManifest(ctx context.Context, name string) (*domain.IndexManifest, error) {
	var m domain.IndexManifest
	err := r.db.QueryRow(ctx,
		`SELECT name, source_name, embedding_model, embedding_dimensions, chunk_size, chunk_overlap, passage_count, created_at, updated_at
		 FROM indexes WHERE name = $1`,
		name,
	).Scan(&m.Name, &m.SourceName, &m.EmbeddingModel, &m.EmbeddingDimensions, &m.ChunkSize, &m.ChunkOverlap, &m.PassageCount, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIndexNotFound
		}
		return nil, err
	}
	return &m, nil
}

// UpsertManifest inserts the manifest or overwrites everything except
// created_at.
func (r *IndexRepository) UpsertManifest(ctx context.Context, m *domain.IndexManifest) error {
	if err := domain.ValidateIndexManifest(m); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid index manifest", err)
	}

	now := time.Now().UTC()
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	return r.db.QueryRow(ctx,
		`INSERT INTO indexes
			(name, source_name, embedding_model, embedding_dimensions, chunk_size, chunk_overlap, passage_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (name) DO UPDATE SET
			source_name = EXCLUDED.source_name,
			embedding_model = EXCLUDED.embedding_model,
			embedding_dimensions = EXCLUDED.embedding_dimensions,
			chunk_size = EXCLUDED.chunk_size,
			chunk_overlap = EXCLUDED.chunk_overlap,
			passage_count = EXCLUDED.passage_count,
			updated_at = EXCLUDED.updated_at
		 RETURNING created_at, updated_at`,
		m.Name, m.SourceName, m.EmbeddingModel, m.EmbeddingDimensions, m.ChunkSize, m.ChunkOverlap, m.PassageCount, createdAt, now,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

// ListManifests returns every index, most recently updated first.
func (r *IndexRepository) ListManifests(ctx context.Context) ([]*domain.IndexManifest, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, source_name, embedding_model, embedding_dimensions, chunk_size, chunk_overlap, passage_count, created_at, updated_at
		 FROM indexes ORDER BY updated_at DESC, name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.IndexManifest
	for rows.Next() {
		var m domain.IndexManifest
		if err := rows.Scan(&m.Name, &m.SourceName, &m.EmbeddingModel, &m.EmbeddingDimensions, &m.ChunkSize, &m.ChunkOverlap, &m.PassageCount, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
