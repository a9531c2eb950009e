package repository

import (
	"context"
	"time"

	"github.com/cloo-solutions/sanad/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PassageRepository stores passages and their embeddings.
type PassageRepository struct {
	db dbtx
}

func NewPassageRepository(pool *pgxpool.Pool) *PassageRepository {
	return &PassageRepository{db: pool}
}

func NewPassageRepositoryWithTx(tx pgx.Tx) *PassageRepository {
	return &PassageRepository{db: tx}
}

// ReplacePassages deletes the index's passages and inserts the new set.
// Callers run it inside a transaction together with the manifest upsert.
func (r *PassageRepository) ReplacePassages(ctx context.Context, indexName string, passages []domain.Passage) error {
	_, err := r.db.Exec(ctx, `DELETE FROM passages WHERE index_name = $1`, indexName)
	if err != nil {
		return err
	}

	if len(passages) == 0 {
		return nil
	}

	for i := range passages {
		p := &passages[i]
		if err := domain.ValidatePassage(p); err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid passage", err)
		}
		createdAt := p.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO passages (id, index_name, ordinal, location, content, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID,
			indexName,
			p.Ordinal,
			p.Location,
			p.Text,
			pgvector.NewVector(p.Vector),
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// SearchByVector returns the k nearest passages by cosine distance. Exact
// scan: ordering is deterministic and ties fall back to ordinal.
func (r *PassageRepository) SearchByVector(ctx context.Context, indexName string, embedding []float32, k int) (domain.RetrievalResult, error) {
	if k <= 0 {
		return domain.RetrievalResult{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, index_name, ordinal, location, content, created_at,
		        1 - (embedding <=> $2) AS score
		 FROM passages
		 WHERE index_name = $1
		 ORDER BY embedding <=> $2, ordinal
		 LIMIT $3`,
		indexName, pgvector.NewVector(embedding), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(domain.RetrievalResult, 0, k)
	for rows.Next() {
		var sp domain.ScoredPassage
		var score float64
		if err := rows.Scan(
			&sp.Passage.ID,
			&sp.Passage.IndexName,
			&sp.Passage.Ordinal,
			&sp.Passage.Location,
			&sp.Passage.Text,
			&sp.Passage.CreatedAt,
			&score,
		); err != nil {
			return nil, err
		}
		sp.Score = float32(score)
		result = append(result, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PassageRepository) CountPassages(ctx context.Context, indexName string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM passages WHERE index_name = $1`, indexName).Scan(&n)
	return n, err
}
