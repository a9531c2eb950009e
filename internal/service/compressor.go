package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloo-solutions/sanad/internal/domain"
	"github.com/cloo-solutions/sanad/internal/openai"
	"github.com/cloo-solutions/sanad/internal/telemetry"
)

// noRelevantInfoSentinel is the reply the summarization model gives when the
// context does not answer the question. It never leaves the compressor.
const noRelevantInfoSentinel = "NO_RELEVANT_INFO"

// excerptLimit is the fallback excerpt length in characters.
const excerptLimit = 500

// ChatClient issues chat completions.
type ChatClient interface {
	Complete(ctx context.Context, req openai.ChatRequest) (string, error)
}

// CompressorConfig configures the Compressor.
type CompressorConfig struct {
	Model         string
	MaxTokens     int
	Temperature   float32
	Timeout       time.Duration
	DocumentTitle string
}

// Compressor condenses retrieved context into a short fact, or decides none
// of it is relevant.
type Compressor struct {
	chat ChatClient
	cfg  CompressorConfig
}

func NewCompressor(chat ChatClient, cfg CompressorConfig) *Compressor {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 200
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.DocumentTitle == "" {
		cfg.DocumentTitle = "Usool al-Hadith"
	}
	return &Compressor{chat: chat, cfg: cfg}
}

// Compress summarizes formattedContext with respect to question. A failed or
// timed-out model call falls back to a truncated excerpt of the context.
func (c *Compressor) Compress(ctx context.Context, question, formattedContext string) domain.CompressedFact {
	ctx, span := telemetry.StartSpan(ctx, "turn.compress", telemetry.SpanAttributes{
		SessionID: telemetry.SessionIDFromContext(ctx),
		Stage:     domain.StageCompress,
	})
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	temperature := c.cfg.Temperature
	raw, err := c.chat.Complete(callCtx, openai.ChatRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatMessage{
			{Role: string(domain.RoleUser), Content: c.prompt(question, formattedContext)},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		log.Printf("compressor: summarization failed, using excerpt: %v", err)
		span.SetError(err)
		return domain.Excerpt(truncate(formattedContext, excerptLimit))
	}

	fact := ParseCompression(raw)
	if fact.IsRelevant() {
		text, _ := fact.Text()
		log.Printf("compressor: summarized %d chars -> %d chars", len(formattedContext), len(text))
	} else {
		log.Printf("compressor: no relevant information for question")
	}
	return fact
}

func (c *Compressor) prompt(question, formattedContext string) string {
	return fmt.Sprintf(`You are helping a tutor answer questions about %[1]s.

Retrieved context from the book:
%[2]s

User question: %[3]s

Your task:
1. If the context contains relevant information, extract and summarize it concisely (2-3 sentences max)
2. If the context is NOT relevant or doesn't answer the question, respond with: "%[4]s"
3. Include key Arabic terms if relevant
4. Cite page numbers if mentioned in the context

The answer may be spoken aloud, so keep it brief and natural.

Response:`, c.cfg.DocumentTitle, formattedContext, question, noRelevantInfoSentinel)
}

// ParseCompression maps a raw model response to a CompressedFact. The
// sentinel anywhere in the response means NotRelevant, as does a blank
// response.
func ParseCompression(raw string) domain.CompressedFact {
	if strings.Contains(raw, noRelevantInfoSentinel) {
		return domain.NotRelevant()
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return domain.NotRelevant()
	}
	return domain.Relevant(text)
}

// truncate cuts s to limit characters, appending "..." only when it cut.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
