//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/sanad/internal/api/handlers"
	"github.com/cloo-solutions/sanad/internal/metrics"
	"github.com/cloo-solutions/sanad/internal/openai"
	"github.com/cloo-solutions/sanad/internal/repository"
	"github.com/cloo-solutions/sanad/internal/server"
	"github.com/cloo-solutions/sanad/internal/service"
	"github.com/cloo-solutions/sanad/internal/storage"
	"github.com/cloo-solutions/sanad/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	testIndex = "usool-e2e"
	testDims  = 3
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	S3Client   *storage.S3Client
	LLM        *fakeOpenAI
	LLMServer  *httptest.Server
	Client     *openai.Client
	Sessions   *service.SessionManager
	Server     *httptest.Server
	HTTPClient *http.Client
}

// SetupE2EEnv starts Postgres and S3 containers, a fake OpenAI endpoint and
// the API server.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          "sanad-e2e",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	llm := &fakeOpenAI{}
	llmServer := httptest.NewServer(llm)
	client := openai.NewClientWithConfig(openai.Config{
		APIKey:              "sk-test",
		BaseURL:             llmServer.URL + "/v1",
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: testDims,
	})

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		S3Client:   s3Client,
		LLM:        llm,
		LLMServer:  llmServer,
		Client:     client,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.startServer()
	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Sessions != nil {
		e.Sessions.CloseAll()
	}
	if e.LLMServer != nil {
		e.LLMServer.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		_ = e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		_ = e.PostgresC.Terminate(e.Ctx)
	}
}

func (e *E2ETestEnv) startServer() {
	passageRepo := repository.NewPassageRepository(e.Pool)
	indexRepo := repository.NewIndexRepository(e.Pool)

	retriever := service.NewRetriever(e.Client, passageRepo, indexRepo, service.RetrieverConfig{IndexName: testIndex, DefaultK: 3})
	compressor := service.NewCompressor(e.Client, service.CompressorConfig{})
	m := metrics.New()
	pipeline := service.NewTurnPipeline(retriever, compressor, service.NewInjector(""), 3, m)

	e.Sessions = service.NewSessionManager(pipeline, service.NewResponder(e.Client, service.ResponderConfig{}), service.PersonaConfig{}).
		WithObserver(m).
		WithTurnLogger(repository.NewTurnLogRepository(e.Pool))

	e.Server = httptest.NewServer(server.NewRouter(server.RouterConfig{
		SessionHandler: handlers.NewSessionHandler(e.Sessions),
		SearchHandler:  handlers.NewSearchHandler(retriever),
		Metrics:        m.Handler(),
	}))
}

// Indexer builds an indexer writing to Postgres and reading sources from S3.
func (e *E2ETestEnv) Indexer() *service.Indexer {
	writer := service.NewTxIndexWriter(repository.NewTxRunner(e.Pool))
	return service.NewIndexer(e.Client, writer, testIndex, service.NewChunkConfig(200, 40)).WithSources(e.S3Client)
}

// APIResponse is the standard response envelope.
type APIResponse struct {
	StatusCode int
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Code       string          `json:"code"`
}

func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil)
}

func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body)
}

func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodDelete, path, nil)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, e.Server.URL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := &APIResponse{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("failed to decode %q: %w", string(data), err)
		}
	}
	return out, nil
}

// fakeOpenAI answers the embeddings and chat completion endpoints with
// deterministic output. Embeddings are keyword indicators so nearest
// neighbour search is predictable.
type fakeOpenAI struct {
	chatCalls atomic.Int32
}

func embed(text string) []float32 {
	lower := strings.ToLower(text)
	v := []float32{0.01, 0.01, 0.01}
	if strings.Contains(lower, "mursal") {
		v[0] = 1
	}
	if strings.Contains(lower, "sahih") {
		v[1] = 1
	}
	if strings.Contains(lower, "color") || strings.Contains(lower, "colour") {
		v[2] = 1
	}
	return v
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/v1/embeddings":
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		data := make([]map[string]interface{}, 0, len(req.Input))
		for i, in := range req.Input {
			data = append(data, map[string]interface{}{"object": "embedding", "index": i, "embedding": embed(in)})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"object": "list", "data": data, "model": "text-embedding-3-small"})

	case "/v1/chat/completions":
		f.chatCalls.Add(1)
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		reply := "Let us study this together."
		if len(req.Messages) == 1 && strings.Contains(req.Messages[0].Content, "Retrieved context from the book") {
			prompt := req.Messages[0].Content
			if strings.Contains(prompt, "User question: What is a mursal") && strings.Contains(prompt, "Successor") {
				reply = "A mursal hadith is one a Successor attributes directly to the Prophet, omitting the Companion (page 2)."
			} else {
				reply = "NO_RELEVANT_INFO"
			}
		} else if last := req.Messages[len(req.Messages)-1]; strings.Contains(last.Content, "[Book Reference]") {
			reply = "According to the book, a mursal hadith omits the Companion."
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-e2e",
			"object": "chat.completion",
			"choices": []map[string]interface{}{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		})

	default:
		http.NotFound(w, r)
	}
}
