package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/sanad/internal/domain"
)

// TurnLogEntry is the persisted summary of one processed turn.
type TurnLogEntry struct {
	ID            string
	SessionID     string
	Utterance     string
	GatePassed    bool
	PassageCount  int
	Locations     []string
	FactKind      string
	Injected      bool
	Degraded      []string
	ReplyDegraded bool
	DurationMs    int64
	CreatedAt     time.Time
}

// TurnLogger persists turn summaries.
type TurnLogger interface {
	CreateTurnLog(ctx context.Context, entry TurnLogEntry) error
}

// NewTurnLogEntry flattens a pipeline outcome into a log row.
func NewTurnLogEntry(id, sessionID string, out *domain.TurnOutcome) TurnLogEntry {
	return TurnLogEntry{
		ID:            id,
		SessionID:     sessionID,
		Utterance:     out.Utterance,
		GatePassed:    out.GatePassed,
		PassageCount:  out.PassageCount,
		Locations:     out.Locations,
		FactKind:      string(out.Fact.Kind()),
		Injected:      out.Injected,
		Degraded:      out.Degraded,
		ReplyDegraded: out.ReplyDegraded,
		DurationMs:    out.Duration.Milliseconds(),
	}
}
