package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the native dimension of text-embedding-3-small
	DefaultEmbeddingDimensions = 1536
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrEmptyCompletion is returned when the model returns no choices
	ErrEmptyCompletion = errors.New("no completion choices returned")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// ChatAPI defines the interface for chat completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req ChatRequest) (string, error)
}

// ChatMessage is a role-tagged prompt message.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatRequest describes a single chat completion call.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature *float32
}

// Client wraps the OpenAI API client
type Client struct {
	api            EmbeddingAPI
	chat           ChatAPI
	embeddingModel string
	dimensions     int
}

type OpenAIAdapter struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewOpenAIAdapter binds client to one embedding model. dimensions is sent
// with every request when the model accepts a requested output size.
func NewOpenAIAdapter(client *openai.Client, model openai.EmbeddingModel, dimensions int) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}
}

// supportsDimensions reports whether model honours the dimensions parameter.
// Only the text-embedding-3 family does; ada-002 rejects it.
func supportsDimensions(model openai.EmbeddingModel) bool {
	return strings.HasPrefix(string(model), "text-embedding-3-")
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.model,
	}
	if a.dimensions > 0 && supportsDimensions(a.model) {
		req.Dimensions = a.dimensions
	}

	resp, err := a.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// CreateChatCompletion calls the chat completions endpoint and returns the
// first choice's content.
func (a *OpenAIAdapter) CreateChatCompletion(ctx context.Context, req ChatRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	creq := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		creq.Temperature = *req.Temperature
		// temperature is omitempty upstream, so an explicit 0 would be dropped
		// and the API default of 1.0 used instead.
		if creq.Temperature == 0 {
			creq.Temperature = math.SmallestNonzeroFloat32
		}
	}

	resp, err := a.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      string
	EmbeddingDimensions int
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	model := openai.EmbeddingModel(cfg.EmbeddingModel)
	if model == "" {
		model = DefaultEmbeddingModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	adapter := NewOpenAIAdapter(openai.NewClientWithConfig(clientCfg), model, dimensions)

	return &Client{
		api:            adapter,
		chat:           adapter,
		embeddingModel: string(model),
		dimensions:     dimensions,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// EmbeddingModel returns the identity of the embedding function.
func (c *Client) EmbeddingModel() string {
	return c.embeddingModel
}

// EmbeddingDimensions returns the expected vector dimension.
func (c *Client) EmbeddingDimensions() int {
	return c.dimensions
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	expected := c.dimensions
	if expected <= 0 {
		expected = DefaultEmbeddingDimensions
	}
	if len(embedding) != expected {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, expected, len(embedding))
	}

	return embedding, nil
}

// Complete runs a chat completion and returns the raw response text.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", ErrEmptyText
	}

	out, err := c.chat.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	return out, nil
}
