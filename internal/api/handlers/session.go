package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloo-solutions/sanad/internal/api"
	"github.com/cloo-solutions/sanad/internal/domain"
	"github.com/cloo-solutions/sanad/internal/service"
	"github.com/go-chi/chi/v5"
)

// maxUtteranceChars bounds a single utterance.
const maxUtteranceChars = 4000

type SessionService interface {
	Create(ctx context.Context) (*service.Session, string)
	Get(id string) (*service.Session, error)
	Close(id string) error
}

type SessionHandler struct {
	sessions SessionService
}

func NewSessionHandler(sessions SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type CreateSessionResponse struct {
	ID       string `json:"id"`
	Greeting string `json:"greeting"`
}

type TurnRequest struct {
	Utterance string `json:"utterance"`
}

type RetrievalSummary struct {
	GatePassed   bool     `json:"gate_passed"`
	PassageCount int      `json:"passage_count"`
	Locations    []string `json:"locations"`
	FactKind     string   `json:"fact_kind"`
	Injected     bool     `json:"injected"`
	Degraded     []string `json:"degraded"`
	DurationMs   int64    `json:"duration_ms"`
}

type TurnResponse struct {
	Reply     string           `json:"reply"`
	Retrieval RetrievalSummary `json:"retrieval"`
}

type MessageResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type MessagesResponse struct {
	ID       string             `json:"id"`
	Messages []*MessageResponse `json:"messages"`
}

func retrievalSummary(out *domain.TurnOutcome) RetrievalSummary {
	locations := out.Locations
	if locations == nil {
		locations = []string{}
	}
	degraded := out.Degraded
	if degraded == nil {
		degraded = []string{}
	}
	return RetrievalSummary{
		GatePassed:   out.GatePassed,
		PassageCount: out.PassageCount,
		Locations:    locations,
		FactKind:     string(out.Fact.Kind()),
		Injected:     out.Injected,
		Degraded:     degraded,
		DurationMs:   out.Duration.Milliseconds(),
	}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, greeting := h.sessions.Create(r.Context())
	api.Success(w, http.StatusCreated, &CreateSessionResponse{
		ID:       session.ID(),
		Greeting: greeting,
	})
}

func (h *SessionHandler) Turn(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Utterance) == "" {
		api.Error(w, http.StatusBadRequest, "utterance is required")
		return
	}
	if utf8.RuneCountInString(req.Utterance) > maxUtteranceChars {
		api.Error(w, http.StatusBadRequest, "utterance is too long")
		return
	}

	start := time.Now()
	result, err := session.Turn(r.Context(), req.Utterance)
	if err != nil {
		if errors.Is(err, domain.ErrTurnAbandoned) && r.Context().Err() != nil {
			// client went away; nobody is reading the response
			return
		}
		api.HandleError(w, err)
		return
	}

	summary := retrievalSummary(result.Outcome)
	summary.DurationMs = time.Since(start).Milliseconds()
	api.Success(w, http.StatusOK, &TurnResponse{
		Reply:     result.Reply,
		Retrieval: summary,
	})
}

func (h *SessionHandler) Messages(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	history := session.Messages()
	messages := make([]*MessageResponse, 0, len(history))
	for _, m := range history {
		messages = append(messages, &MessageResponse{Role: string(m.Role), Content: m.Content})
	}
	api.Success(w, http.StatusOK, &MessagesResponse{ID: session.ID(), Messages: messages})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
