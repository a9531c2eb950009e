package jobs

import (
	"context"
	"log"
	"time"
)

// SessionEvicter closes sessions that have been idle too long.
type SessionEvicter interface {
	EvictIdle(ttl time.Duration) int
	Count() int
}

// SessionReaper evicts idle sessions on every poll.
type SessionReaper struct {
	sessions SessionEvicter
	ttl      time.Duration
}

func NewSessionReaper(sessions SessionEvicter, ttl time.Duration) *SessionReaper {
	return &SessionReaper{sessions: sessions, ttl: ttl}
}

// ProcessJobs implements the JobProcessor interface
func (r *SessionReaper) ProcessJobs(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.ttl <= 0 {
		return nil
	}
	if evicted := r.sessions.EvictIdle(r.ttl); evicted > 0 {
		log.Printf("session reaper: evicted %d idle sessions, %d remain", evicted, r.sessions.Count())
	}
	return nil
}
