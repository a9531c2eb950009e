package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cloo-solutions/sanad/internal/domain"
	"github.com/cloo-solutions/sanad/internal/telemetry"
)

// TurnRunner runs the retrieval pipeline for one utterance.
type TurnRunner interface {
	Run(ctx context.Context, conv *domain.Conversation, utterance string) (*domain.TurnOutcome, error)
}

// ReplyGenerator produces the tutor's reply from the conversation.
type ReplyGenerator interface {
	Respond(ctx context.Context, conv *domain.Conversation) (string, bool)
}

// TurnResult is what a processed turn hands back to the caller.
type TurnResult struct {
	Reply   string
	Outcome *domain.TurnOutcome
}

// SessionInfo is a point-in-time view of a session.
type SessionInfo struct {
	ID           string
	CreatedAt    time.Time
	LastActiveAt time.Time
	MessageCount int
	TurnCount    int
}

const (
	turnLogTimeout = 5 * time.Second
	// replyTimeout bounds a reply that no longer has a caller waiting on it.
	replyTimeout = 2 * time.Minute
)

// Session is one live conversation. Turns within a session run one at a
// time, in arrival order.
type Session struct {
	id      string
	conv    *domain.Conversation
	manager *SessionManager

	ctx    context.Context
	cancel context.CancelFunc

	turnMu sync.Mutex

	stateMu      sync.Mutex
	createdAt    time.Time
	lastActiveAt time.Time
	turnCount    int
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []domain.Message {
	return s.conv.Messages()
}

// Info returns a snapshot of the session state.
func (s *Session) Info() SessionInfo {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return SessionInfo{
		ID:           s.id,
		CreatedAt:    s.createdAt,
		LastActiveAt: s.lastActiveAt,
		MessageCount: s.conv.Len(),
		TurnCount:    s.turnCount,
	}
}

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool {
	return s.ctx.Err() != nil
}

func (s *Session) touch() {
	s.stateMu.Lock()
	s.lastActiveAt = s.manager.now()
	s.stateMu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.lastActiveAt
}

// Turn processes one user utterance: it appends the utterance, runs the
// retrieval pipeline, generates the reply and appends it. Cancelling ctx
// abandons the turn only before the reply step; closing the session abandons
// it at any point. An abandoned turn returns domain.ErrTurnAbandoned and
// appends no reply.
func (s *Session) Turn(ctx context.Context, utterance string) (*TurnResult, error) {
	if strings.TrimSpace(utterance) == "" {
		return nil, domain.ErrEmptyUtterance
	}

	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	if s.Closed() {
		return nil, domain.ErrSessionClosed
	}

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()
	turnCtx = telemetry.WithSessionID(turnCtx, s.id)

	m := s.manager
	s.touch()
	s.conv.Append(domain.RoleUser, utterance)

	out, err := m.pipeline.Run(turnCtx, s.conv, utterance)
	if err != nil {
		log.Printf("session %s: turn abandoned: %v", s.id, err)
		return nil, err
	}

	// The user message and any injected fact are already in history, so the
	// reply is generated even if the caller goes away; only closing the
	// session abandons it.
	replyCtx, replyCancel := context.WithTimeout(context.WithoutCancel(turnCtx), replyTimeout)
	defer replyCancel()
	stopReply := context.AfterFunc(s.ctx, replyCancel)
	defer stopReply()

	stageStart := time.Now()
	reply, ok := m.responder.Respond(replyCtx, s.conv)
	m.observer.ObserveStage(domain.StageReply, time.Since(stageStart))
	if s.ctx.Err() != nil {
		log.Printf("session %s: turn abandoned while generating reply", s.id)
		return nil, domain.ErrTurnAbandoned
	}
	if !ok {
		out.ReplyDegraded = true
		out.MarkDegraded(domain.StageReply)
		m.observer.ObserveDegradation(domain.StageReply)
	}
	s.conv.Append(domain.RoleAssistant, reply)

	s.stateMu.Lock()
	s.turnCount++
	s.stateMu.Unlock()
	s.touch()

	m.logTurn(ctx, s.id, out)

	return &TurnResult{Reply: reply, Outcome: out}, nil
}

// SessionManager owns the set of live sessions.
type SessionManager struct {
	pipeline  TurnRunner
	responder ReplyGenerator
	persona   PersonaConfig
	turnLog   TurnLogger
	observer  Observer
	uuidGen   UUIDGenerator
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager creates a manager with no turn log and a no-op observer.
func NewSessionManager(pipeline TurnRunner, responder ReplyGenerator, persona PersonaConfig) *SessionManager {
	return &SessionManager{
		pipeline:  pipeline,
		responder: responder,
		persona:   persona.withDefaults(),
		observer:  NopObserver,
		uuidGen:   &DefaultUUIDGenerator{},
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

// WithTurnLogger persists a summary of every completed turn.
func (m *SessionManager) WithTurnLogger(l TurnLogger) *SessionManager {
	m.turnLog = l
	return m
}

// WithObserver reports measurements to o.
func (m *SessionManager) WithObserver(o Observer) *SessionManager {
	m.observer = observerOrNop(o)
	return m
}

// WithUUIDGen replaces the ID generator (for testing).
func (m *SessionManager) WithUUIDGen(g UUIDGenerator) *SessionManager {
	m.uuidGen = g
	return m
}

// WithClock replaces the time source (for testing).
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	m.now = now
	return m
}

// Create starts a session whose conversation holds the system prompt and the
// greeting. It returns the session and the greeting.
func (m *SessionManager) Create(ctx context.Context) (*Session, string) {
	now := m.now()
	sessionCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id: m.uuidGen.NewString(),
		conv: domain.NewConversation(
			domain.Message{Role: domain.RoleSystem, Content: SystemPrompt(m.persona)},
			domain.Message{Role: domain.RoleAssistant, Content: Greeting(m.persona)},
		),
		manager:      m,
		ctx:          sessionCtx,
		cancel:       cancel,
		createdAt:    now,
		lastActiveAt: now,
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.observer.SetActiveSessions(n)
	telemetry.AddBreadcrumb(ctx, "session", "created "+s.id)
	log.Printf("session %s: created", s.id)
	return s, Greeting(m.persona)
}

// Get returns a live session.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Close ends a session and abandons any turn in flight.
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	s.cancel()
	m.observer.SetActiveSessions(n)
	log.Printf("session %s: closed", id)
	return nil
}

// CloseAll ends every session.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.cancel()
	}
	m.observer.SetActiveSessions(0)
}

// EvictIdle closes sessions idle for longer than ttl and returns how many
// were closed. A session with a turn in flight is touched at turn start, so
// it is only evicted when the turn itself outlives ttl.
func (m *SessionManager) EvictIdle(ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		s.cancel()
		log.Printf("session %s: evicted after %s idle", s.id, ttl)
	}
	if len(expired) > 0 {
		m.observer.SetActiveSessions(n)
	}
	return len(expired)
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List returns a snapshot of all live sessions, oldest first.
func (m *SessionManager) List() []SessionInfo {
	m.mu.RLock()
	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Info())
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

func (m *SessionManager) logTurn(ctx context.Context, sessionID string, out *domain.TurnOutcome) {
	log.Printf("session %s: turn %s (passages=%d degraded=%v reply_degraded=%t) in %s",
		sessionID, out.Label(), out.PassageCount, out.Degraded, out.ReplyDegraded, out.Duration)

	if m.turnLog == nil {
		return
	}
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), turnLogTimeout)
	defer cancel()

	entry := NewTurnLogEntry(m.uuidGen.NewString(), sessionID, out)
	entry.CreatedAt = m.now()
	if err := m.turnLog.CreateTurnLog(logCtx, entry); err != nil {
		log.Printf("session %s: failed to record turn log: %v", sessionID, err)
		telemetry.CaptureError(ctx, err)
	}
}
