package service

import (
	"context"
	"log"
	"strings"

	"github.com/cloo-solutions/sanad/internal/domain"
	"github.com/cloo-solutions/sanad/internal/openai"
	"github.com/cloo-solutions/sanad/internal/telemetry"
)

// ApologyReply is sent when the dialogue model cannot be reached.
const ApologyReply = "I'm sorry, I couldn't gather my thoughts just now. Could you please ask that again?"

// ResponderConfig configures the dialogue model call.
type ResponderConfig struct {
	Model       string
	MaxTokens   int
	Temperature *float32
}

// Responder generates the tutor's reply from the full conversation.
type Responder struct {
	chat ChatClient
	cfg  ResponderConfig
}

func NewResponder(chat ChatClient, cfg ResponderConfig) *Responder {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	return &Responder{chat: chat, cfg: cfg}
}

// Respond returns the model reply, or ApologyReply and false when the call
// fails or comes back empty.
func (r *Responder) Respond(ctx context.Context, conv *domain.Conversation) (string, bool) {
	ctx, span := telemetry.StartSpan(ctx, "turn.reply", telemetry.SpanAttributes{
		SessionID: telemetry.SessionIDFromContext(ctx),
		Stage:     domain.StageReply,
	})
	defer span.End()

	history := conv.Messages()
	messages := make([]openai.ChatMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, openai.ChatMessage{Role: string(m.Role), Content: m.Content})
	}

	reply, err := r.chat.Complete(ctx, openai.ChatRequest{
		Model:       r.cfg.Model,
		Messages:    messages,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	if err != nil {
		log.Printf("responder: dialogue model failed: %v", err)
		span.SetError(err)
		return ApologyReply, false
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		log.Printf("responder: dialogue model returned an empty reply")
		return ApologyReply, false
	}
	return reply, true
}
