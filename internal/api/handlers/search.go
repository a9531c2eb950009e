package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/sanad/internal/api"
	"github.com/cloo-solutions/sanad/internal/domain"
	"github.com/cloo-solutions/sanad/internal/service"
)

const maxSearchK = 50

type SearchService interface {
	Search(ctx context.Context, query string, k int) (domain.RetrievalResult, error)
	Manifest(ctx context.Context) (*domain.IndexManifest, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

type PassageResponse struct {
	ID       string  `json:"id"`
	Ordinal  int     `json:"ordinal"`
	Location string  `json:"location"`
	Text     string  `json:"text"`
	Score    float32 `json:"score"`
}

type SearchResponse struct {
	Results []*PassageResponse `json:"results"`
	Context string             `json:"context"`
}

type IndexResponse struct {
	Name                string `json:"name"`
	SourceName          string `json:"source_name"`
	EmbeddingModel      string `json:"embedding_model"`
	EmbeddingDimensions int    `json:"embedding_dimensions"`
	ChunkSize           int    `json:"chunk_size"`
	ChunkOverlap        int    `json:"chunk_overlap"`
	PassageCount        int    `json:"passage_count"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

// Search runs retrieval directly. Unlike the turn pipeline it reports
// failures instead of degrading, so operators can see why retrieval is empty.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.K < 0 || req.K > maxSearchK {
		api.Error(w, http.StatusBadRequest, "k must be between 0 and 50")
		return
	}

	result, err := h.svc.Search(r.Context(), req.Query, req.K)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]*PassageResponse, 0, len(result))
	for _, sp := range result {
		results = append(results, &PassageResponse{
			ID:       sp.Passage.ID,
			Ordinal:  sp.Passage.Ordinal,
			Location: sp.Passage.Location,
			Text:     sp.Passage.Text,
			Score:    sp.Score,
		})
	}
	api.Success(w, http.StatusOK, &SearchResponse{
		Results: results,
		Context: service.FormatResult(result),
	})
}

func (h *SearchHandler) Index(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Manifest(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, &IndexResponse{
		Name:                m.Name,
		SourceName:          m.SourceName,
		EmbeddingModel:      m.EmbeddingModel,
		EmbeddingDimensions: m.EmbeddingDimensions,
		ChunkSize:           m.ChunkSize,
		ChunkOverlap:        m.ChunkOverlap,
		PassageCount:        m.PassageCount,
		CreatedAt:           m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           m.UpdatedAt.Format(time.RFC3339),
	})
}
