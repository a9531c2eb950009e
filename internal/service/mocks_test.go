package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloo-solutions/sanad/internal/domain"
	"github.com/cloo-solutions/sanad/internal/openai"
	"github.com/stretchr/testify/mock"
)

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbeddingClient) EmbeddingModel() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockEmbeddingClient) EmbeddingDimensions() int {
	args := m.Called()
	return args.Int(0)
}

// MockPassageSearcher is a mock implementation of PassageSearcher
type MockPassageSearcher struct {
	mock.Mock
}

func (m *MockPassageSearcher) SearchByVector(ctx context.Context, indexName string, embedding []float32, k int) (domain.RetrievalResult, error) {
	args := m.Called(ctx, indexName, embedding, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.RetrievalResult), args.Error(1)
}

// MockManifestReader is a mock implementation of ManifestReader
type MockManifestReader struct {
	mock.Mock
}

func (m *MockManifestReader) GetManifest(ctx context.Context, name string) (*domain.IndexManifest, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IndexManifest), args.Error(1)
}

// MockChatClient is a mock implementation of ChatClient
type MockChatClient struct {
	mock.Mock
}

func (m *MockChatClient) Complete(ctx context.Context, req openai.ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockIndexWriter is a mock implementation of IndexWriter
type MockIndexWriter struct {
	mock.Mock
}

func (m *MockIndexWriter) ReplaceIndex(ctx context.Context, manifest *domain.IndexManifest, passages []domain.Passage) error {
	args := m.Called(ctx, manifest, passages)
	return args.Error(0)
}

// MockSourceFetcher is a mock implementation of SourceFetcher
type MockSourceFetcher struct {
	mock.Mock
}

func (m *MockSourceFetcher) Download(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockTurnLogger is a mock implementation of TurnLogger
type MockTurnLogger struct {
	mock.Mock
}

func (m *MockTurnLogger) CreateTurnLog(ctx context.Context, entry TurnLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// sequentialUUIDGen hands out predictable IDs.
type sequentialUUIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *sequentialUUIDGen) NewString() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", g.n)
}

// recordingObserver captures measurements for assertions.
type recordingObserver struct {
	mu       sync.Mutex
	stages   []string
	degraded []string
	turns    []string
	active   int
}

func (o *recordingObserver) ObserveStage(stage string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, stage)
}

func (o *recordingObserver) ObserveDegradation(stage string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.degraded = append(o.degraded, stage)
}

func (o *recordingObserver) ObserveTurn(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.turns = append(o.turns, outcome)
}

func (o *recordingObserver) SetActiveSessions(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = n
}

func (o *recordingObserver) snapshot() (degraded, turns []string, active int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.degraded...), append([]string(nil), o.turns...), o.active
}

const (
	testModel = "text-embedding-3-small"
	testDims  = 3
	testIndex = "usool"
)

func testManifest() *domain.IndexManifest {
	return &domain.IndexManifest{
		Name:                testIndex,
		SourceName:          "usool.pdf",
		EmbeddingModel:      testModel,
		EmbeddingDimensions: testDims,
		ChunkSize:           1000,
		ChunkOverlap:        200,
		PassageCount:        3,
	}
}

func scored(ordinal int, location, text string, score float32) domain.ScoredPassage {
	return domain.ScoredPassage{
		Passage: domain.Passage{
			ID:        fmt.Sprintf("p-%d", ordinal),
			IndexName: testIndex,
			Ordinal:   ordinal,
			Location:  location,
			Text:      text,
			Vector:    []float32{1, 0, 0},
		},
		Score: score,
	}
}
