package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloo-solutions/sanad/internal/domain"
	"github.com/cloo-solutions/sanad/internal/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPassageRetriever is a mock implementation of PassageRetriever
type MockPassageRetriever struct {
	mock.Mock
}

func (m *MockPassageRetriever) Search(ctx context.Context, query string, k int) (domain.RetrievalResult, error) {
	args := m.Called(ctx, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.RetrievalResult), args.Error(1)
}

type pipelineFixture struct {
	retriever *MockPassageRetriever
	chat      *MockChatClient
	observer  *recordingObserver
	pipeline  *TurnPipeline
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		retriever: new(MockPassageRetriever),
		chat:      new(MockChatClient),
		observer:  &recordingObserver{},
	}
	f.pipeline = NewTurnPipeline(f.retriever, NewCompressor(f.chat, CompressorConfig{}), NewInjector(""), 5, f.observer)
	return f
}

func promptContains(s string) interface{} {
	return mock.MatchedBy(func(req openai.ChatRequest) bool {
		return len(req.Messages) == 1 && strings.Contains(req.Messages[0].Content, s)
	})
}

var fullTrace = []domain.TurnState{
	domain.TurnIdle, domain.TurnGateChecked, domain.TurnRetrieved,
	domain.TurnCompressed, domain.TurnInjected, domain.TurnIdle,
}

func TestTurnPipeline_GreetingSkipsRetrieval(t *testing.T) {
	f := newPipelineFixture()
	conv := seededConversation()
	before := conv.Len()

	out, err := f.pipeline.Run(context.Background(), conv, "hi")

	require.NoError(t, err)
	assert.False(t, out.GatePassed)
	assert.False(t, out.Injected)
	assert.Equal(t, before, conv.Len())
	assert.Equal(t, []domain.TurnState{domain.TurnIdle, domain.TurnGateChecked, domain.TurnInjected, domain.TurnIdle}, out.Trace)
	assert.Equal(t, "skipped", out.Label())
	f.retriever.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
	f.chat.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestTurnPipeline_RelevantFactIsInjected(t *testing.T) {
	f := newPipelineFixture()
	summary := "Mutawatir hadith is narrated by so many chains that fabrication is impossible, e.g. reports of the five daily prayers."

	f.retriever.On("Search", mock.Anything, "What is Mutawatir hadith?", 5).Return(domain.RetrievalResult{
		scored(0, "21", "The mutawatir is what a large number narrate from a large number...", 0.91),
		scored(1, "22", "Examples of mutawatir include the number of daily prayers...", 0.87),
	}, nil)
	f.chat.On("Complete", mock.Anything, promptContains("[Source 2 - Page 22]")).Return(summary, nil)

	conv := seededConversation()
	before := conv.Len()

	out, err := f.pipeline.Run(context.Background(), conv, "What is Mutawatir hadith?")

	require.NoError(t, err)
	assert.True(t, out.GatePassed)
	assert.True(t, out.Injected)
	assert.Equal(t, 2, out.PassageCount)
	assert.Equal(t, []string{"21", "22"}, out.Locations)
	assert.Equal(t, fullTrace, out.Trace)
	assert.Empty(t, out.Degraded)

	require.Equal(t, before+1, conv.Len())
	last, _ := conv.Last()
	assert.Equal(t, domain.RoleAssistant, last.Role)
	assert.Contains(t, last.Content, summary)
}

func TestTurnPipeline_SentinelMeansNoInjection(t *testing.T) {
	f := newPipelineFixture()
	f.retriever.On("Search", mock.Anything, mock.Anything, 5).Return(domain.RetrievalResult{
		scored(0, "40", "Chapter on the etiquette of the student of hadith.", 0.21),
	}, nil)
	f.chat.On("Complete", mock.Anything, mock.Anything).Return("NO_RELEVANT_INFO", nil)

	conv := seededConversation()
	before := conv.Messages()

	out, err := f.pipeline.Run(context.Background(), conv, "What's your favorite color?")

	require.NoError(t, err)
	assert.False(t, out.Injected)
	assert.Equal(t, domain.FactNotRelevant, out.Fact.Kind())
	assert.Equal(t, before, conv.Messages())
	assert.Equal(t, fullTrace, out.Trace)
	assert.Equal(t, "not_relevant", out.Label())
}

func TestTurnPipeline_RetrievalFailureStillCompresses(t *testing.T) {
	f := newPipelineFixture()
	f.retriever.On("Search", mock.Anything, mock.Anything, 5).Return(nil, errors.New("embedding timeout"))
	f.chat.On("Complete", mock.Anything, promptContains(NoInformationFound)).Return("NO_RELEVANT_INFO", nil)

	conv := seededConversation()
	before := conv.Len()

	out, err := f.pipeline.Run(context.Background(), conv, "Explain the conditions of a sahih hadith")

	require.NoError(t, err)
	assert.Equal(t, 0, out.PassageCount)
	assert.False(t, out.Injected)
	assert.True(t, out.IsDegraded(domain.StageRetrieve))
	assert.Equal(t, before, conv.Len())
	assert.Equal(t, fullTrace, out.Trace)
	f.chat.AssertExpectations(t)

	degraded, turns, _ := f.observer.snapshot()
	assert.Equal(t, []string{domain.StageRetrieve}, degraded)
	assert.Equal(t, []string{"not_relevant"}, turns)
}

func TestTurnPipeline_CompressionFailureInjectsExcerpt(t *testing.T) {
	f := newPipelineFixture()
	f.retriever.On("Search", mock.Anything, mock.Anything, 5).Return(domain.RetrievalResult{
		scored(0, "7", strings.Repeat("isnad ", 200), 0.8),
	}, nil)
	f.chat.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("model overloaded"))

	conv := seededConversation()
	before := conv.Len()

	out, err := f.pipeline.Run(context.Background(), conv, "Why does the isnad matter?")

	require.NoError(t, err)
	assert.True(t, out.Injected)
	assert.Equal(t, domain.FactExcerpt, out.Fact.Kind())
	assert.True(t, out.IsDegraded(domain.StageCompress))
	assert.Equal(t, before+1, conv.Len())

	text, _ := out.Fact.Text()
	assert.True(t, strings.HasSuffix(text, "..."))
	assert.True(t, strings.HasPrefix(text, "[Source 1 - Page 7]:"))
}

func TestTurnPipeline_CancelledBeforeRetrieval(t *testing.T) {
	f := newPipelineFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conv := seededConversation()
	before := conv.Len()

	_, err := f.pipeline.Run(ctx, conv, "What is a mawdu hadith?")

	assert.ErrorIs(t, err, domain.ErrTurnAbandoned)
	assert.Equal(t, before, conv.Len())
	f.retriever.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestTurnPipeline_CancelledDuringCompressionInjectsNothing(t *testing.T) {
	f := newPipelineFixture()
	ctx, cancel := context.WithCancel(context.Background())

	f.retriever.On("Search", mock.Anything, mock.Anything, 5).Return(domain.RetrievalResult{
		scored(0, "3", "The marfu is what is attributed to the Prophet.", 0.9),
	}, nil)
	f.chat.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { cancel() }).
		Return("The marfu hadith is attributed to the Prophet.", nil)

	conv := seededConversation()
	before := conv.Len()

	out, err := f.pipeline.Run(ctx, conv, "What is a marfu hadith?")

	assert.ErrorIs(t, err, domain.ErrTurnAbandoned)
	assert.False(t, out.Injected)
	assert.Equal(t, before, conv.Len())

	_, turns, _ := f.observer.snapshot()
	assert.Equal(t, []string{"abandoned"}, turns)
}
