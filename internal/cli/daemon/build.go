// Package daemon holds the sanadd commands: the API server, the indexer and
// a local chat REPL.
package daemon

import (
	"log"

	"github.com/cloo-solutions/sanad/internal/config"
	"github.com/cloo-solutions/sanad/internal/openai"
	"github.com/cloo-solutions/sanad/internal/service"
	"github.com/cloo-solutions/sanad/internal/telemetry"
)

// turnStack is the dialogue side of the system: retrieval, the turn pipeline
// and the session manager that drives it.
type turnStack struct {
	retriever *service.Retriever
	pipeline  *service.TurnPipeline
	sessions  *service.SessionManager
}

func newOpenAIClient(cfg *config.Config) *openai.Client {
	return openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})
}

func persona(cfg *config.Config) service.PersonaConfig {
	return service.PersonaConfig{
		AgentName:     cfg.AgentName,
		Personality:   cfg.AgentPersonality,
		DocumentTitle: cfg.DocumentTitle,
	}
}

type openAIBackend interface {
	service.EmbeddingClient
	service.ChatClient
}

func buildTurnStack(cfg *config.Config, llm openAIBackend, passages service.PassageSearcher, manifests service.ManifestReader, observer service.Observer) *turnStack {
	retriever := service.NewRetriever(llm, passages, manifests, service.RetrieverConfig{
		IndexName: cfg.IndexName,
		DefaultK:  cfg.TopK,
		Timeout:   cfg.RetrievalTimeout,
	})
	compressor := service.NewCompressor(llm, service.CompressorConfig{
		Model:         cfg.SummaryModel,
		MaxTokens:     cfg.SummaryMaxTokens,
		Temperature:   cfg.SummaryTemperature,
		Timeout:       cfg.SummaryTimeout,
		DocumentTitle: cfg.DocumentTitle,
	})
	injector := service.NewInjector(cfg.DocumentTitle)
	pipeline := service.NewTurnPipeline(retriever, compressor, injector, cfg.TopK, observer)

	responder := service.NewResponder(llm, service.ResponderConfig{
		Model:       cfg.DialogueModel,
		MaxTokens:   cfg.DialogueMaxTokens,
		Temperature: cfg.DialogueTemperature,
	})
	sessions := service.NewSessionManager(pipeline, responder, persona(cfg))
	if observer != nil {
		sessions = sessions.WithObserver(observer)
	}

	return &turnStack{retriever: retriever, pipeline: pipeline, sessions: sessions}
}

func initTelemetry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}

	// Default to 10% sampling in production, 100% in development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return func() {}
	}
	return shutdown
}
