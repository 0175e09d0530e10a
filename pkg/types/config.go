// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ModelProvider identifies the generative model backend.
type ModelProvider string

const (
	ProviderClaude ModelProvider = "claude"
	ProviderGemini ModelProvider = "gemini"
	ProviderVertex ModelProvider = "vertex"
	ProviderOpenAI ModelProvider = "openai"
)

// ModelConfig holds settings for the generative model client.
type ModelConfig struct {
	// Provider selects the backend: claude, gemini, vertex, or openai.
	Provider ModelProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier passed to the provider. Empty selects
	// the provider's default.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey authenticates against the provider. Vertex uses ADC instead.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Project and Region locate the Vertex AI endpoint.
	Project string `json:"project,omitempty" yaml:"project,omitempty" mapstructure:"project"`
	Region  string `json:"region,omitempty" yaml:"region,omitempty" mapstructure:"region"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible servers).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxTokens bounds the reply length (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout bounds one model call. An elapsed timeout is treated as a
	// failed call (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxRetries is the number of retries on HTTP 429 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// SlideBackend selects the slide-deck text parser.
type SlideBackend string

const (
	SlidesOOXML      SlideBackend = "ooxml"
	SlidesMarkitdown SlideBackend = "markitdown"
)

// ExtractionConfig holds settings for the document text extractor.
type ExtractionConfig struct {
	// MinContentChars is the shortest extracted text accepted for
	// generation (default 100).
	MinContentChars int `json:"min_content_chars" yaml:"min_content_chars" mapstructure:"min_content_chars"`

	// SlideBackend selects how slide decks are parsed (default ooxml).
	SlideBackend SlideBackend `json:"slide_backend" yaml:"slide_backend" mapstructure:"slide_backend"`
}

// SessionBackend selects the conversation store implementation.
type SessionBackend string

const (
	SessionMemory SessionBackend = "memory"
	SessionSQLite SessionBackend = "sqlite"
	SessionRedis  SessionBackend = "redis"
)

// SessionConfig holds settings for the conversation store.
type SessionConfig struct {
	Backend SessionBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// TTL is how long an idle conversation is kept (default 2h).
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`

	// SweepInterval is how often expired conversations are evicted (default 5m).
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval" mapstructure:"sweep_interval"`

	// Path is the SQLite database file for the sqlite backend.
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`

	// RedisAddr is the host:port of the redis backend.
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// MaxUploadBytes bounds the uploaded document size (default 20 MiB).
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`

	// AllowOrigins lists CORS origins; empty allows all.
	AllowOrigins []string `json:"allow_origins,omitempty" yaml:"allow_origins,omitempty" mapstructure:"allow_origins"`
}

// BatchConfig holds settings for batch prompt submission.
type BatchConfig struct {
	// Concurrency bounds in-flight model calls (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// Config groups all settings.
type Config struct {
	LogMode    string           `json:"log_mode" yaml:"log_mode" mapstructure:"log_mode"`
	Model      ModelConfig      `json:"model" yaml:"model" mapstructure:"model"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction" mapstructure:"extraction"`
	Session    SessionConfig    `json:"session" yaml:"session" mapstructure:"session"`
	Server     ServerConfig     `json:"server" yaml:"server" mapstructure:"server"`
	Batch      BatchConfig      `json:"batch" yaml:"batch" mapstructure:"batch"`
}

// Defaults returns a Config with every default filled in.
func Defaults() Config {
	return Config{
		LogMode: "development",
		Model: ModelConfig{
			Provider:   ProviderClaude,
			MaxTokens:  4096,
			Timeout:    60 * time.Second,
			MaxRetries: 3,
		},
		Extraction: ExtractionConfig{
			MinContentChars: 100,
			SlideBackend:    SlidesOOXML,
		},
		Session: SessionConfig{
			Backend:       SessionMemory,
			TTL:           2 * time.Hour,
			SweepInterval: 5 * time.Minute,
			Path:          "sessions.db",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 20 << 20,
		},
		Batch: BatchConfig{
			Concurrency: 4,
		},
	}
}
