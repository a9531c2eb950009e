package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockSessionEvicter is a mock implementation of SessionEvicter
type MockSessionEvicter struct {
	mock.Mock
}

func (m *MockSessionEvicter) EvictIdle(ttl time.Duration) int {
	args := m.Called(ttl)
	return args.Int(0)
}

func (m *MockSessionEvicter) Count() int {
	args := m.Called()
	return args.Int(0)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker("test", mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker("test", mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)

	// Stop after the loop already exited must not block or panic.
	worker.Stop()
	worker.Stop()
}

func TestSessionReaper_ProcessJobs(t *testing.T) {
	sessions := new(MockSessionEvicter)
	sessions.On("EvictIdle", 30*time.Minute).Return(2)
	sessions.On("Count").Return(5)

	err := NewSessionReaper(sessions, 30*time.Minute).ProcessJobs(context.Background())

	assert.NoError(t, err)
	sessions.AssertExpectations(t)
}

func TestSessionReaper_NothingEvicted(t *testing.T) {
	sessions := new(MockSessionEvicter)
	sessions.On("EvictIdle", time.Minute).Return(0)

	err := NewSessionReaper(sessions, time.Minute).ProcessJobs(context.Background())

	assert.NoError(t, err)
	sessions.AssertNotCalled(t, "Count")
}

func TestSessionReaper_DisabledTTL(t *testing.T) {
	sessions := new(MockSessionEvicter)

	err := NewSessionReaper(sessions, 0).ProcessJobs(context.Background())

	assert.NoError(t, err)
	sessions.AssertNotCalled(t, "EvictIdle", mock.Anything)
}

func TestSessionReaper_CancelledContext(t *testing.T) {
	sessions := new(MockSessionEvicter)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSessionReaper(sessions, time.Minute).ProcessJobs(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	sessions.AssertNotCalled(t, "EvictIdle", mock.Anything)
}
