package service

import (
	"context"
	"log"
	"time"

	"github.com/cloo-solutions/sanad/internal/domain"
	"github.com/cloo-solutions/sanad/internal/telemetry"
)

// PassageRetriever is the strict retrieval call; the pipeline applies the
// degradation itself so it can record it on the outcome.
type PassageRetriever interface {
	Search(ctx context.Context, query string, k int) (domain.RetrievalResult, error)
}

// FactCompressor condenses formatted context into a CompressedFact.
type FactCompressor interface {
	Compress(ctx context.Context, question, formattedContext string) domain.CompressedFact
}

// ContextInjector appends a fact to the conversation.
type ContextInjector interface {
	Inject(conv *domain.Conversation, fact domain.CompressedFact) bool
}

// TurnPipeline runs gate, retrieval, compression and injection for one
// utterance.
type TurnPipeline struct {
	retriever  PassageRetriever
	compressor FactCompressor
	injector   ContextInjector
	observer   Observer
	topK       int
}

func NewTurnPipeline(retriever PassageRetriever, compressor FactCompressor, injector ContextInjector, topK int, observer Observer) *TurnPipeline {
	return &TurnPipeline{
		retriever:  retriever,
		compressor: compressor,
		injector:   injector,
		observer:   observerOrNop(observer),
		topK:       topK,
	}
}

// Run processes one utterance against conv. Every path ends in the Injected
// state; the only error is ErrTurnAbandoned, returned when ctx is cancelled
// before injection, in which case conv is left untouched.
func (p *TurnPipeline) Run(ctx context.Context, conv *domain.Conversation, utterance string) (*domain.TurnOutcome, error) {
	start := time.Now()
	out := &domain.TurnOutcome{Utterance: utterance}
	out.Visit(domain.TurnIdle)

	_, gateSpan := telemetry.StartSpan(ctx, "turn.gate", telemetry.SpanAttributes{
		SessionID: telemetry.SessionIDFromContext(ctx),
	})
	out.GatePassed = ShouldRetrieve(utterance)
	gateSpan.End()
	out.Visit(domain.TurnGateChecked)

	if !out.GatePassed {
		log.Printf("pipeline: gate skipped retrieval (%d words)", wordCount(utterance))
		out.Visit(domain.TurnInjected)
		return p.finish(out, start), nil
	}

	if ctx.Err() != nil {
		return p.abandon(out, start)
	}

	stageStart := time.Now()
	result, err := p.retriever.Search(ctx, utterance, p.topK)
	p.observer.ObserveStage(domain.StageRetrieve, time.Since(stageStart))
	if err != nil {
		if ctx.Err() != nil {
			return p.abandon(out, start)
		}
		log.Printf("pipeline: retrieval degraded to empty result: %v", err)
		telemetry.CaptureError(ctx, err)
		p.degrade(out, domain.StageRetrieve)
		result = domain.RetrievalResult{}
	}
	out.PassageCount = len(result)
	out.Locations = result.Locations()
	out.Visit(domain.TurnRetrieved)
	log.Printf("pipeline: retrieved %d passages (pages %v)", out.PassageCount, out.Locations)

	stageStart = time.Now()
	fact := p.compressor.Compress(ctx, utterance, FormatResult(result))
	p.observer.ObserveStage(domain.StageCompress, time.Since(stageStart))
	out.Fact = fact
	out.Visit(domain.TurnCompressed)

	if ctx.Err() != nil {
		return p.abandon(out, start)
	}
	if fact.Kind() == domain.FactExcerpt {
		p.degrade(out, domain.StageCompress)
	}

	_, injectSpan := telemetry.StartSpan(ctx, "turn.inject", telemetry.SpanAttributes{
		SessionID: telemetry.SessionIDFromContext(ctx),
	})
	out.Injected = p.injector.Inject(conv, fact)
	injectSpan.End()
	out.Visit(domain.TurnInjected)

	if out.Injected {
		log.Printf("pipeline: injected %s context", fact.Kind())
	} else {
		log.Printf("pipeline: nothing injected, model answers from its own knowledge")
	}

	return p.finish(out, start), nil
}

func (p *TurnPipeline) degrade(out *domain.TurnOutcome, stage string) {
	out.MarkDegraded(stage)
	p.observer.ObserveDegradation(stage)
}

func (p *TurnPipeline) finish(out *domain.TurnOutcome, start time.Time) *domain.TurnOutcome {
	out.Visit(domain.TurnIdle)
	out.Duration = time.Since(start)
	p.observer.ObserveTurn(out.Label())
	return out
}

func (p *TurnPipeline) abandon(out *domain.TurnOutcome, start time.Time) (*domain.TurnOutcome, error) {
	out.Duration = time.Since(start)
	out.Injected = false
	p.observer.ObserveTurn("abandoned")
	log.Printf("pipeline: turn abandoned before injection")
	return out, domain.ErrTurnAbandoned
}
