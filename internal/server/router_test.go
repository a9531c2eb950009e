package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloo-solutions/sanad/internal/api/handlers"
	"github.com/cloo-solutions/sanad/internal/domain"
	"github.com/cloo-solutions/sanad/internal/metrics"
	"github.com/cloo-solutions/sanad/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTurnRunner struct {
	mock.Mock
}

func (m *MockTurnRunner) Run(ctx context.Context, conv *domain.Conversation, utterance string) (*domain.TurnOutcome, error) {
	args := m.Called(ctx, conv, utterance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TurnOutcome), args.Error(1)
}

type MockReplyGenerator struct {
	mock.Mock
}

func (m *MockReplyGenerator) Respond(ctx context.Context, conv *domain.Conversation) (string, bool) {
	args := m.Called(ctx, conv)
	return args.String(0), args.Bool(1)
}

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, query string, k int) (domain.RetrievalResult, error) {
	args := m.Called(ctx, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.RetrievalResult), args.Error(1)
}

func (m *MockSearchService) Manifest(ctx context.Context) (*domain.IndexManifest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IndexManifest), args.Error(1)
}

type routerFixture struct {
	router    http.Handler
	runner    *MockTurnRunner
	responder *MockReplyGenerator
	searchSvc *MockSearchService
	sessions  *service.SessionManager
}

func setupRouter() *routerFixture {
	f := &routerFixture{
		runner:    new(MockTurnRunner),
		responder: new(MockReplyGenerator),
		searchSvc: new(MockSearchService),
	}
	m := metrics.New()
	f.sessions = service.NewSessionManager(f.runner, f.responder, service.PersonaConfig{}).WithObserver(m)
	f.router = NewRouter(RouterConfig{
		SessionHandler: handlers.NewSessionHandler(f.sessions),
		SearchHandler:  handlers.NewSearchHandler(f.searchSvc),
		Metrics:        m.Handler(),
	})
	return f
}

func TestRouter_HealthEndpoint(t *testing.T) {
	f := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	f := setupRouter()
	f.sessions.Create(context.Background())

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sanad_active_sessions 1")
}

func TestRouter_MetricsDisabled(t *testing.T) {
	router := NewRouter(RouterConfig{
		SessionHandler: handlers.NewSessionHandler(service.NewSessionManager(nil, nil, service.PersonaConfig{})),
		SearchHandler:  handlers.NewSearchHandler(new(MockSearchService)),
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_SessionLifecycle(t *testing.T) {
	f := setupRouter()
	f.runner.On("Run", mock.Anything, mock.Anything, "hi").
		Return(&domain.TurnOutcome{Utterance: "hi"}, nil)
	f.responder.On("Respond", mock.Anything, mock.Anything).Return("Wa alaykum as-salam.", true)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data handlers.CreateSessionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Data.ID

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/turns", strings.NewReader(`{"utterance":"hi"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/"+id+"/messages", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/sessions/"+id, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/"+id+"/messages", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.runner.AssertExpectations(t)
}

func TestRouter_SearchAndIndex(t *testing.T) {
	f := setupRouter()
	f.searchSvc.On("Search", mock.Anything, "isnad", 0).Return(domain.RetrievalResult{}, nil)
	f.searchSvc.On("Manifest", mock.Anything).Return(nil, domain.ErrIndexNotFound)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"isnad"}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/index", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.searchSvc.AssertExpectations(t)
}

func TestRouter_RejectsOversizedBody(t *testing.T) {
	f := setupRouter()

	body := `{"query":"` + strings.Repeat("a", 2*1024*1024) + `"}`
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	f.searchSvc.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_UnknownRoute(t *testing.T) {
	f := setupRouter()

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/token", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
