package repository

import (
	"context"
	"time"

	"github.com/cloo-solutions/sanad/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TurnLogRepository stores one row per processed turn for later review of
// retrieval quality.
type TurnLogRepository struct {
	pool *pgxpool.Pool
}

func NewTurnLogRepository(pool *pgxpool.Pool) *TurnLogRepository {
	return &TurnLogRepository{pool: pool}
}

func (r *TurnLogRepository) CreateTurnLog(ctx context.Context, entry service.TurnLogEntry) error {
	locations := entry.Locations
	if locations == nil {
		locations = []string{}
	}
	degraded := entry.Degraded
	if degraded == nil {
		degraded = []string{}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO turn_logs
			(id, session_id, utterance, gate_passed, passage_count, locations, fact_kind, injected, degraded_stages, reply_degraded, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID,
		entry.SessionID,
		entry.Utterance,
		entry.GatePassed,
		entry.PassageCount,
		locations,
		entry.FactKind,
		entry.Injected,
		degraded,
		entry.ReplyDegraded,
		entry.DurationMs,
	)
	return err
}

// ListBySession returns a session's turns oldest first.
func (r *TurnLogRepository) ListBySession(ctx context.Context, sessionID string) ([]service.TurnLogEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, utterance, gate_passed, passage_count, locations, fact_kind, injected, degraded_stages, reply_degraded, duration_ms, created_at
		 FROM turn_logs WHERE session_id = $1 ORDER BY created_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []service.TurnLogEntry
	for rows.Next() {
		var e service.TurnLogEntry
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Utterance, &e.GatePassed, &e.PassageCount, &e.Locations, &e.FactKind, &e.Injected, &e.Degraded, &e.ReplyDegraded, &e.DurationMs, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = createdAt
		out = append(out, e)
	}
	return out, rows.Err()
}
