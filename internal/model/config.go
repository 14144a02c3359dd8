package model

import "time"

// Config is the root configuration tree
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	HTTP    HTTPConfig    `yaml:"http" mapstructure:"http"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Scrape  ScrapeConfig  `yaml:"scrape" mapstructure:"scrape"`
	Vector  VectorConfig  `yaml:"vector" mapstructure:"vector"`
	Verify  VerifyConfig  `yaml:"verify" mapstructure:"verify"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr              string        `yaml:"addr" mapstructure:"addr"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// HTTPConfig configures outbound HTTP (scraper, link checks)
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// StorageConfig configures the sqlite database
type StorageConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CacheConfig configures the content-identity result cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// LLMConfig configures the LLM provider
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SearchConfig configures the web-search collaborator
type SearchConfig struct {
	APIKey            string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	MaxResults        int     `yaml:"max_results" mapstructure:"max_results"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ScrapeConfig configures the scraper collaborator
type ScrapeConfig struct {
	RespectRobots     bool    `yaml:"respect_robots" mapstructure:"respect_robots"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// VectorConfig configures chunking and embeddings for the RAG store
type VectorConfig struct {
	EmbeddingModel    string `yaml:"embedding_model" mapstructure:"embedding_model"`
	ChunkSize         int    `yaml:"chunk_size" mapstructure:"chunk_size"`   // words per chunk
	ChunkOverlap      int    `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
	DefaultCollection string `yaml:"default_collection" mapstructure:"default_collection"`
}

// VerifyConfig configures the claim-verification workflow
type VerifyConfig struct {
	// InconclusiveMargin is the gap between the credibility-score sums of the
	// two evidence sides (0-10 per item) below which the verdict is
	// inconclusive.
	InconclusiveMargin float64 `yaml:"inconclusive_margin" mapstructure:"inconclusive_margin"`
	// AssessWorkers bounds concurrent per-item credibility scoring calls.
	AssessWorkers int `yaml:"assess_workers" mapstructure:"assess_workers"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			HeartbeatInterval: 15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "Claimscope/0.1 (+https://github.com/claimscope/claimscope)",
			MaxBodyBytes: 2_000_000,
		},
		Storage: StorageConfig{
			Path: "./data/claimscope.db",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "./data/cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Timeout:   60,
			MaxTokens: 2000,
		},
		Search: SearchConfig{
			MaxResults:        10,
			RequestsPerSecond: 1,
		},
		Scrape: ScrapeConfig{
			RespectRobots:     true,
			RequestsPerSecond: 1,
			Burst:             3,
		},
		Vector: VectorConfig{
			EmbeddingModel:    "text-embedding-3-small",
			ChunkSize:         200,
			ChunkOverlap:      40,
			DefaultCollection: "default",
		},
		Verify: VerifyConfig{
			InconclusiveMargin: 2.0,
			AssessWorkers:      4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
