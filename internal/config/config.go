package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`

	// Embedding identity is pinned per index; changing either value requires re-ingestion.
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	IndexName        string        `envconfig:"INDEX_NAME" default:"usool-hadith-index"`
	TopK             int           `envconfig:"TOP_K" default:"5"`
	RetrievalTimeout time.Duration `envconfig:"RETRIEVAL_TIMEOUT" default:"5s"`

	// Used only by the indexer.
	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`

	SummaryModel       string        `envconfig:"SUMMARY_MODEL" default:"gpt-4o-mini"`
	SummaryMaxTokens   int           `envconfig:"SUMMARY_MAX_TOKENS" default:"200"`
	SummaryTemperature float32       `envconfig:"SUMMARY_TEMPERATURE" default:"0.3"`
	SummaryTimeout     time.Duration `envconfig:"SUMMARY_TIMEOUT" default:"8s"`

	DialogueModel       string   `envconfig:"DIALOGUE_MODEL" default:"gpt-4o"`
	DialogueTemperature *float32 `envconfig:"DIALOGUE_TEMPERATURE"`
	DialogueMaxTokens   int      `envconfig:"DIALOGUE_MAX_TOKENS" default:"400"`

	AgentName        string        `envconfig:"AGENT_NAME" default:"Sheikh Abdullah"`
	AgentPersonality string        `envconfig:"AGENT_PERSONALITY" default:"You are a knowledgeable Islamic scholar specializing in Hadith sciences."`
	DocumentTitle    string        `envconfig:"DOCUMENT_TITLE" default:"Usool al-Hadith"`
	SessionTTL       time.Duration `envconfig:"SESSION_TTL" default:"30m"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"sanad-sources"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("SANAD", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks value ranges that envconfig cannot express.
func (c *Config) Validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("invalid config: TOP_K must be positive, got %d", c.TopK)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("invalid config: CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("invalid config: CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("invalid config: EMBEDDING_DIMENSIONS must be positive, got %d", c.EmbeddingDimensions)
	}
	if c.SummaryTimeout <= 0 || c.RetrievalTimeout <= 0 {
		return fmt.Errorf("invalid config: SUMMARY_TIMEOUT and RETRIEVAL_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// RequireDatabase is used by commands that cannot run without Postgres.
func (c *Config) RequireDatabase() error {
	if !c.HasDatabase() {
		return fmt.Errorf("required key DATABASE_URL missing value (set SANAD_DATABASE_URL)")
	}
	return nil
}

// RequireOpenAI is used by commands that embed or generate text.
func (c *Config) RequireOpenAI() error {
	if !c.HasOpenAI() {
		return fmt.Errorf("required key OPENAI_API_KEY missing value (set SANAD_OPENAI_API_KEY)")
	}
	return nil
}
