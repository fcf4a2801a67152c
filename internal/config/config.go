package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Index drivers.
const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverQdrant   = "qdrant"
)

// Config holds the voice agent backend configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Messages  MessagesConfig  `yaml:"messages"`
	Agent     AgentConfig     `yaml:"agent"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	CORSOrigins     []string `yaml:"cors_origins"`
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	Driver           string         `yaml:"driver"` // redis, postgres, qdrant (default: redis)
	ReadinessTimeout int            `yaml:"readiness_timeout_sec"`
	Redis            RedisConfig    `yaml:"redis"`
	Postgres         PostgresConfig `yaml:"postgres"`
	Qdrant           QdrantConfig   `yaml:"qdrant"`
}

// RedisConfig holds Redis query engine settings.
type RedisConfig struct {
	Addrs           []string `yaml:"addrs"`
	Password        string   `yaml:"password"`
	IndexName       string   `yaml:"index_name"`
	KeyPrefix       string   `yaml:"key_prefix"`
	HNSWM           int      `yaml:"hnsw_m"`
	HNSWEFConstruct int      `yaml:"hnsw_ef_construction"`
}

// PostgresConfig holds pgvector settings.
type PostgresConfig struct {
	DSN           string `yaml:"dsn"`
	MatchFunction string `yaml:"match_function"`
	Table         string `yaml:"table"`
	MaxConns      int32  `yaml:"max_conns"`
}

// QdrantConfig holds Qdrant gRPC settings.
type QdrantConfig struct {
	Addr       string `yaml:"addr"`
	Collection string `yaml:"collection"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// RerankConfig holds rerank provider settings. Rerank is enabled iff APIKey is set.
type RerankConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Enabled reports whether a rerank backend is configured.
func (r RerankConfig) Enabled() bool { return r.APIKey != "" }

// RetrievalConfig holds search_knowledge tuning.
type RetrievalConfig struct {
	MatchThreshold  *float64 `yaml:"match_threshold"`
	MatchCount      int      `yaml:"match_count"`
	RerankCap       int      `yaml:"rerank_cap"`
	EmbedTimeoutMS  int      `yaml:"embed_timeout_ms"`
	SearchTimeoutMS int      `yaml:"search_timeout_ms"`
	RerankTimeoutMS int      `yaml:"rerank_timeout_ms"`
}

// Threshold returns the configured similarity floor.
func (r RetrievalConfig) Threshold() float64 {
	if r.MatchThreshold == nil {
		return defaultMatchThreshold
	}
	return *r.MatchThreshold
}

// EmbedTimeout returns the embed stage timeout.
func (r RetrievalConfig) EmbedTimeout() time.Duration { return ms(r.EmbedTimeoutMS) }

// SearchTimeout returns the search stage timeout.
func (r RetrievalConfig) SearchTimeout() time.Duration { return ms(r.SearchTimeoutMS) }

// RerankTimeout returns the rerank stage timeout.
func (r RetrievalConfig) RerankTimeout() time.Duration { return ms(r.RerankTimeoutMS) }

// MessagesConfig overrides the tool's fixed replies.
type MessagesConfig struct {
	NoResults   string `yaml:"no_results"`
	ErrorPrefix string `yaml:"error_prefix"`
}

// AgentConfig holds the voice session settings published in the agent manifest.
type AgentConfig struct {
	Name        string    `yaml:"name"`
	PersonaFile string    `yaml:"persona_file"`
	Greeting    string    `yaml:"greeting"`
	STT         STTConfig `yaml:"stt"`
	LLM         LLMConfig `yaml:"llm"`
	TTS         TTSConfig `yaml:"tts"`
	VAD         VADConfig `yaml:"vad"`
}

// STTConfig selects the speech-to-text model.
type STTConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

// LLMConfig selects the conversational model.
type LLMConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
}

// TTSConfig selects the voice.
type TTSConfig struct {
	Provider         string `yaml:"provider"`
	VoiceID          string `yaml:"voice_id"`
	Model            string `yaml:"model"`
	StreamingLatency int    `yaml:"streaming_latency"`
}

// VADConfig selects the voice activity detector.
type VADConfig struct {
	Provider string `yaml:"provider"`
}

// IngestConfig holds indexer settings.
type IngestConfig struct {
	ContentDirs       []string `yaml:"content_dirs"`
	ChunkSize         int      `yaml:"chunk_size"`
	ChunkOverlap      int      `yaml:"chunk_overlap"`
	Contextualize     *bool    `yaml:"contextualize"`
	ContextModel      string   `yaml:"context_model"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	BatchSize         int      `yaml:"batch_size"`
}

// ContextualizeEnabled defaults to true.
func (i IngestConfig) ContextualizeEnabled() bool {
	return i.Contextualize == nil || *i.Contextualize
}

const (
	defaultMatchThreshold = 0.2
	defaultMatchCount     = 20
	defaultRerankCap      = 5
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	c.applyIndexDefaults()

	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Rerank.Model == "" {
		c.Rerank.Model = "rerank-english-v3.0"
	}

	if c.Retrieval.MatchCount <= 0 {
		c.Retrieval.MatchCount = defaultMatchCount
	}
	if c.Retrieval.RerankCap <= 0 {
		c.Retrieval.RerankCap = defaultRerankCap
	}

	c.applyAgentDefaults()

	if len(c.Ingest.ContentDirs) == 0 {
		c.Ingest.ContentDirs = []string{"content"}
	}
	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = 800
	}
	if c.Ingest.ChunkOverlap <= 0 {
		c.Ingest.ChunkOverlap = 80
	}
	if c.Ingest.ContextModel == "" {
		c.Ingest.ContextModel = "gpt-4o-mini"
	}
	if c.Ingest.RequestsPerSecond <= 0 {
		c.Ingest.RequestsPerSecond = 10
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 16
	}
}

func (c *Config) applyIndexDefaults() {
	if c.Index.Driver == "" {
		c.Index.Driver = DriverRedis
	}
	if c.Index.ReadinessTimeout <= 0 {
		c.Index.ReadinessTimeout = 10
	}
	if c.Index.Redis.IndexName == "" {
		c.Index.Redis.IndexName = "knowledge"
	}
	if c.Index.Redis.KeyPrefix == "" {
		c.Index.Redis.KeyPrefix = "voiceagent:doc:"
	}
	if c.Index.Redis.HNSWM <= 0 {
		c.Index.Redis.HNSWM = 16
	}
	if c.Index.Redis.HNSWEFConstruct <= 0 {
		c.Index.Redis.HNSWEFConstruct = 200
	}
	if c.Index.Postgres.MatchFunction == "" {
		c.Index.Postgres.MatchFunction = "match_documents"
	}
	if c.Index.Postgres.Table == "" {
		c.Index.Postgres.Table = "documents"
	}
	if c.Index.Postgres.MaxConns <= 0 {
		c.Index.Postgres.MaxConns = 8
	}
	if c.Index.Qdrant.Collection == "" {
		c.Index.Qdrant.Collection = "knowledge"
	}
}

func (c *Config) applyAgentDefaults() {
	a := &c.Agent
	if a.VAD.Provider == "" {
		a.VAD.Provider = "silero"
	}
	if a.STT.Provider == "" {
		a.STT.Provider = "openai"
	}
	if a.STT.Model == "" {
		a.STT.Model = "whisper-1"
	}
	if a.STT.Language == "" {
		a.STT.Language = "ko"
	}
	if a.LLM.Provider == "" {
		a.LLM.Provider = "openai"
	}
	if a.LLM.Model == "" {
		a.LLM.Model = "gpt-4o-mini"
	}
	if a.LLM.Temperature == nil {
		t := 0.8
		a.LLM.Temperature = &t
	}
	if a.TTS.Provider == "" {
		a.TTS.Provider = "elevenlabs"
	}
	if a.TTS.Model == "" {
		a.TTS.Model = "eleven_multilingual_v2"
	}
	if a.TTS.StreamingLatency <= 0 {
		a.TTS.StreamingLatency = 3
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Index.Driver {
	case DriverRedis:
		if len(c.Index.Redis.Addrs) == 0 {
			return errors.New("index.redis.addrs is required")
		}
	case DriverPostgres:
		if c.Index.Postgres.DSN == "" {
			return errors.New("index.postgres.dsn is required")
		}
	case DriverQdrant:
		if c.Index.Qdrant.Addr == "" {
			return errors.New("index.qdrant.addr is required")
		}
	default:
		return fmt.Errorf("index.driver must be one of redis, postgres, qdrant, got %q", c.Index.Driver)
	}

	if c.Embedding.APIKey == "" {
		return errors.New("embedding.api_key is required")
	}

	if t := c.Retrieval.Threshold(); t < 0 || t > 1 {
		return fmt.Errorf("retrieval.match_threshold must be within [0, 1], got %v", t)
	}
	if c.Retrieval.RerankCap > c.Retrieval.MatchCount {
		return fmt.Errorf("retrieval.rerank_cap (%d) must not exceed retrieval.match_count (%d)",
			c.Retrieval.RerankCap, c.Retrieval.MatchCount)
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap (%d) must be smaller than ingest.chunk_size (%d)",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
