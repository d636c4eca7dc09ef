// Package config loads the process configuration from a YAML file
// overlaid with environment variables, following the SetDefaults/Validate
// convention used throughout this module's components.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LLMConfig configures the chat/embedding provider.
type LLMConfig struct {
	Provider       string        `yaml:"provider"`
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	ChatModel      string        `yaml:"chat_model"`
	EmbeddingModel string        `yaml:"embedding_model"`
	Temperature    float64       `yaml:"temperature"`
	Timeout        time.Duration `yaml:"timeout"`
}

func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.ChatModel == "" {
		c.ChatModel = "gpt-4o-mini"
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "text-embedding-3-small"
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
}

func (c *LLMConfig) Validate() error {
	if c.Provider != "openai" {
		return fmt.Errorf("llm: unsupported provider %q", c.Provider)
	}
	return nil
}

// StoreConfig configures the structured (relational) store.
type StoreConfig struct {
	Dialect string `yaml:"dialect"` // sqlite, postgres, mysql
	DSN     string `yaml:"dsn"`
}

func (c *StoreConfig) SetDefaults() {
	if c.Dialect == "" {
		c.Dialect = "sqlite"
	}
	if c.DSN == "" && c.Dialect == "sqlite" {
		c.DSN = "./newsspark.db"
	}
}

func (c *StoreConfig) Validate() error {
	switch c.Dialect {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("store: unsupported dialect %q", c.Dialect)
	}
	if c.DSN == "" {
		return fmt.Errorf("store: dsn is required for dialect %q", c.Dialect)
	}
	return nil
}

// VectorStoreConfig configures the embedding-indexed vector store.
type VectorStoreConfig struct {
	Backend   string `yaml:"backend"`    // chromem, qdrant, pinecone
	Path      string `yaml:"path"`       // chromem persistence directory
	Addr      string `yaml:"addr"`       // qdrant gRPC address, host:port
	APIKey    string `yaml:"api_key"`    // pinecone
	Host      string `yaml:"host"`       // pinecone api host override
	IndexName string `yaml:"index_name"` // pinecone index name
}

func (c *VectorStoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "chromem"
	}
	if c.Path == "" && c.Backend == "chromem" {
		c.Path = "./newsspark-vectors"
	}
}

func (c *VectorStoreConfig) Validate() error {
	switch c.Backend {
	case "chromem", "qdrant", "pinecone":
	default:
		return fmt.Errorf("vectorstore: unsupported backend %q", c.Backend)
	}
	return nil
}

// RateLimitConfig configures the per-adapter blocking rate limiter.
type RateLimitConfig struct {
	Enabled           bool   `yaml:"enabled"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	RequestsPerSecond int    `yaml:"requests_per_second"`
	BurstSize         int    `yaml:"burst_size"`
	Store             string `yaml:"store"` // memory, redis
	RedisAddr         string `yaml:"redis_addr"`
}

func (c *RateLimitConfig) SetDefaults() {
	c.Enabled = true
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = 60
	}
	if c.Store == "" {
		c.Store = "memory"
	}
}

func (c *RateLimitConfig) Validate() error {
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("ratelimit: requests_per_minute must be positive")
	}
	switch c.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("ratelimit: unsupported store %q", c.Store)
	}
	if c.Store == "redis" && c.RedisAddr == "" {
		return fmt.Errorf("ratelimit: redis_addr is required when store=redis")
	}
	return nil
}

// MemoryConfig configures personalization defaults.
type MemoryConfig struct {
	DefaultFeedbackWeight float64 `yaml:"default_feedback_weight"`
}

func (c *MemoryConfig) SetDefaults() {
	if c.DefaultFeedbackWeight == 0 {
		c.DefaultFeedbackWeight = 0.5
	}
}

func (c *MemoryConfig) Validate() error {
	if c.DefaultFeedbackWeight < 0.1 || c.DefaultFeedbackWeight > 1.0 {
		return fmt.Errorf("memory: default_feedback_weight must be in [0.1, 1.0]")
	}
	return nil
}

// ServerConfig configures the inbound HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

func (c *ServerConfig) Validate() error { return nil }

// ObservabilityConfig configures tracing/metrics export.
type ObservabilityConfig struct {
	TraceExporter string `yaml:"trace_exporter"` // stdout, otlp-grpc
	OTLPEndpoint  string `yaml:"otlp_endpoint"`
	MetricsAddr   string `yaml:"metrics_addr"`
}

func (c *ObservabilityConfig) SetDefaults() {
	if c.TraceExporter == "" {
		c.TraceExporter = "stdout"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}
}

func (c *ObservabilityConfig) Validate() error {
	switch c.TraceExporter {
	case "stdout", "otlp-grpc":
	default:
		return fmt.Errorf("observability: unsupported trace_exporter %q", c.TraceExporter)
	}
	if c.TraceExporter == "otlp-grpc" && c.OTLPEndpoint == "" {
		return fmt.Errorf("observability: otlp_endpoint is required for otlp-grpc exporter")
	}
	return nil
}

// NewsFeedConfig names one RSS feed the News Gatherer polls.
type NewsFeedConfig struct {
	SourceName string `yaml:"source_name"`
	FeedURL    string `yaml:"feed_url"`
}

// SocialPlatformConfig names one short-text social platform the Social
// Gatherer polls (hashtag/user/permalink/search dispatch).
type SocialPlatformConfig struct {
	Platform string `yaml:"platform"`
	BaseURL  string `yaml:"base_url"`
}

// SourcesConfig lists the concrete upstreams each adapter kind polls.
type SourcesConfig struct {
	NewsFeeds                []NewsFeedConfig       `yaml:"news_feeds"`
	NewsAPIProvider          string                 `yaml:"news_api_provider"`
	NewsAPIKey               string                 `yaml:"news_api_key"`
	ForumBaseURL             string                 `yaml:"forum_base_url"`
	ForumBoards              []string               `yaml:"forum_boards"`
	ForumPagesPerBoard       int                    `yaml:"forum_pages_per_board"`
	SocialPlatforms          []SocialPlatformConfig `yaml:"social_platforms"`
	ProfessionalPlatform     string                 `yaml:"professional_platform"`
	ProfessionalAllowedHosts []string               `yaml:"professional_allowed_hosts"`
}

func (c *SourcesConfig) SetDefaults() {
	if c.ForumPagesPerBoard == 0 {
		c.ForumPagesPerBoard = 3
	}
	if c.ProfessionalPlatform == "" {
		c.ProfessionalPlatform = "linkedin"
	}
	if len(c.ProfessionalAllowedHosts) == 0 {
		c.ProfessionalAllowedHosts = []string{"www.linkedin.com", "linkedin.com"}
	}
}

func (c *SourcesConfig) Validate() error { return nil }

// Config is the full process configuration tree. Its zero value, after
// SetDefaults, runs with an embedded chromem-go vector store and SQLite
// structured store with no external services required.
type Config struct {
	LogLevel      string              `yaml:"log_level"`
	LLM           LLMConfig           `yaml:"llm"`
	Store         StoreConfig         `yaml:"store"`
	VectorStore   VectorStoreConfig   `yaml:"vector_store"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Memory        MemoryConfig        `yaml:"memory"`
	Server        ServerConfig        `yaml:"server"`
	Observability ObservabilityConfig `yaml:"observability"`
	Sources       SourcesConfig       `yaml:"sources"`
}

func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.LLM.SetDefaults()
	c.Store.SetDefaults()
	c.VectorStore.SetDefaults()
	c.RateLimit.SetDefaults()
	c.Memory.SetDefaults()
	c.Server.SetDefaults()
	c.Observability.SetDefaults()
	c.Sources.SetDefaults()
}

func (c *Config) Validate() error {
	for _, v := range []interface{ Validate() error }{
		&c.LLM, &c.Store, &c.VectorStore, &c.RateLimit, &c.Memory, &c.Server, &c.Observability, &c.Sources,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

var envPattern = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)(:-(.*?))?\}`)

func expandEnv(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		name, def := parts[1], parts[3]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return def
	})
}

// Load reads a YAML config file (if path is non-empty and exists), loads a
// .env file from the working directory if present, expands ${VAR} /
// ${VAR:-default} references in the YAML text against the environment,
// applies defaults, and validates the result. Zero-config callers may pass
// an empty path to get the all-defaults configuration.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional .env overlay; absence is not an error

	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else {
			expanded := expandEnv(string(raw))
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides lets a handful of well-known environment variables
// override the YAML-loaded config, matching the zero-config philosophy
// of "export NEWSSPARK_LLM_API_KEY and go" without writing a YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NEWSSPARK_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("NEWSSPARK_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("NEWSSPARK_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("NEWSSPARK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
