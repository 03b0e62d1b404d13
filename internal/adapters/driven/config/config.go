package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
)

// EnvPrefix prefixes environment overrides: llm.api_key is read from
// PULSEIQ_LLM_API_KEY.
const EnvPrefix = "PULSEIQ_"

// Configuration keys.
const (
	KeyServerAddr        = "server.addr"
	KeyServerCORSOrigins = "server.cors_origins"
	KeyLogFormat         = "log.format"
	KeyLogVerbose        = "log.verbose"
	KeyStorageBackend    = "storage.backend"
	KeyStorageDataDir    = "storage.data_dir"
	KeyStoragePostgres   = "storage.postgres_dsn"
	KeyVectorBackend     = "vector.backend"
	KeyEmbeddingProvider = "embedding.provider"
	KeyEmbeddingModel    = "embedding.model"
	KeyEmbeddingBaseURL  = "embedding.base_url"
	KeyEmbeddingAPIKey   = "embedding.api_key"
	KeyEmbeddingDims     = "embedding.dimensions"
	KeyLLMProvider       = "llm.provider"
	KeyLLMModel          = "llm.model"
	KeyLLMBaseURL        = "llm.base_url"
	KeyLLMAPIKey         = "llm.api_key"
	KeyLLMTimeout        = "llm.timeout"
	KeyLLMMaxTokens      = "llm.max_tokens"
	KeyLLMTemperature    = "llm.temperature"
	KeyRetrievalTopK     = "retrieval.top_k"
	KeyChunkSize         = "chunker.chunk_size"
	KeyChunkOverlap      = "chunker.overlap"
	KeyTwinMaxHistory    = "twin.max_history"
	KeyRateLimitRPS      = "ratelimit.rps"
	KeyRateLimitBurst    = "ratelimit.burst"
	KeyRateLimitRetries  = "ratelimit.max_retries"
	KeyMCPAddr           = "mcp.addr"
)

// Default configuration values.
const (
	DefaultServerAddr       = ":8000"
	DefaultMCPAddr          = ":8081"
	DefaultLogFormat        = "text"
	DefaultTopK             = 3
	DefaultChunkSize        = 1000
	DefaultChunkOverlap     = 200
	DefaultLLMTimeout       = 60 * time.Second
	DefaultTwinMaxHistory   = 50
	DefaultRateLimitRPS     = 5.0
	DefaultRateLimitBurst   = 10
	DefaultRateLimitRetries = 3
)

// DefaultCORSOrigins are the local frontend dev servers.
var DefaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
	"http://localhost:3000",
}

// Config is the typed application configuration.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Storage   StorageConfig
	Vector    domain.VectorBackend
	Embedding domain.EmbeddingSettings
	LLM       LLMConfig
	TopK      int
	Chunker   ChunkerConfig
	Twin      TwinConfig
	RateLimit RateLimitConfig
	MCPAddr   string
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

// LogConfig configures the logger.
type LogConfig struct {
	Format  string
	Verbose bool
}

// StorageConfig selects and locates the relational store.
type StorageConfig struct {
	Backend     domain.StorageBackend
	DataDir     string
	PostgresDSN string
}

// LLMConfig carries the provider settings and generation parameters.
type LLMConfig struct {
	domain.LLMSettings
	MaxTokens   int
	Temperature float64
}

// ChunkerConfig sizes chunks in characters.
type ChunkerConfig struct {
	Size    int
	Overlap int
}

// TwinConfig configures the digital twin summarizer.
type TwinConfig struct {
	MaxHistory int
}

// RateLimitConfig throttles and retries provider calls.
type RateLimitConfig struct {
	RPS        float64
	Burst      int
	MaxRetries int
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        DefaultServerAddr,
			CORSOrigins: append([]string(nil), DefaultCORSOrigins...),
		},
		Log:     LogConfig{Format: DefaultLogFormat},
		Storage: StorageConfig{Backend: domain.StorageSQLite},
		Vector:  domain.VectorMemory,
		Embedding: domain.EmbeddingSettings{
			Provider: domain.AIProviderLocal,
			Model:    domain.DefaultEmbeddingModels()[domain.AIProviderLocal],
		},
		LLM: LLMConfig{
			LLMSettings: domain.LLMSettings{
				Provider: domain.AIProviderOpenAI,
				Model:    domain.DefaultLLMModels()[domain.AIProviderOpenAI],
				Timeout:  DefaultLLMTimeout,
			},
		},
		TopK:    DefaultTopK,
		Chunker: ChunkerConfig{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap},
		Twin:    TwinConfig{MaxHistory: DefaultTwinMaxHistory},
		RateLimit: RateLimitConfig{
			RPS:        DefaultRateLimitRPS,
			Burst:      DefaultRateLimitBurst,
			MaxRetries: DefaultRateLimitRetries,
		},
		MCPAddr: DefaultMCPAddr,
	}
}

// Load builds a Config from defaults, the store and the process environment.
// store may be nil.
func Load(store driven.ConfigStore) (*Config, error) {
	return LoadWithEnv(store, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
// Precedence: environment, then store, then defaults.
func LoadWithEnv(store driven.ConfigStore, lookupEnv func(string) (string, bool)) (*Config, error) {
	v := resolve(store, lookupEnv)
	cfg := Default()

	setString(&cfg.Server.Addr, v, KeyServerAddr)
	if origins := v.StringSlice(KeyServerCORSOrigins); len(origins) > 0 {
		cfg.Server.CORSOrigins = origins
	}
	setString(&cfg.Log.Format, v, KeyLogFormat)
	cfg.Log.Verbose = v.Bool(KeyLogVerbose)

	if b := v.String(KeyStorageBackend); b != "" {
		cfg.Storage.Backend = domain.StorageBackend(strings.ToLower(b))
	}
	setString(&cfg.Storage.DataDir, v, KeyStorageDataDir)
	setString(&cfg.Storage.PostgresDSN, v, KeyStoragePostgres)
	if b := v.String(KeyVectorBackend); b != "" {
		cfg.Vector = domain.VectorBackend(strings.ToLower(b))
	}

	if p := v.String(KeyEmbeddingProvider); p != "" {
		cfg.Embedding.Provider = domain.AIProvider(strings.ToLower(p))
		cfg.Embedding.Model = domain.DefaultEmbeddingModels()[cfg.Embedding.Provider]
	}
	setString(&cfg.Embedding.Model, v, KeyEmbeddingModel)
	setString(&cfg.Embedding.BaseURL, v, KeyEmbeddingBaseURL)
	setString(&cfg.Embedding.APIKey, v, KeyEmbeddingAPIKey)
	setInt(&cfg.Embedding.Dimensions, v, KeyEmbeddingDims)

	switch p := strings.ToLower(v.String(KeyLLMProvider)); p {
	case "":
	case "none":
		cfg.LLM.Provider = ""
		cfg.LLM.Model = ""
	default:
		cfg.LLM.Provider = domain.AIProvider(p)
		cfg.LLM.Model = domain.DefaultLLMModels()[cfg.LLM.Provider]
	}
	setString(&cfg.LLM.Model, v, KeyLLMModel)
	setString(&cfg.LLM.BaseURL, v, KeyLLMBaseURL)
	setString(&cfg.LLM.APIKey, v, KeyLLMAPIKey)
	if d := v.Duration(KeyLLMTimeout); d > 0 {
		cfg.LLM.Timeout = d
	}
	setInt(&cfg.LLM.MaxTokens, v, KeyLLMMaxTokens)
	if t := v.Float(KeyLLMTemperature); t > 0 {
		cfg.LLM.Temperature = t
	}

	applyProviderKeys(cfg, lookupEnv)

	setInt(&cfg.TopK, v, KeyRetrievalTopK)
	setInt(&cfg.Chunker.Size, v, KeyChunkSize)
	if _, ok := v[KeyChunkOverlap]; ok {
		cfg.Chunker.Overlap = v.Int(KeyChunkOverlap)
	}
	setInt(&cfg.Twin.MaxHistory, v, KeyTwinMaxHistory)
	if _, ok := v[KeyRateLimitRPS]; ok {
		cfg.RateLimit.RPS = v.Float(KeyRateLimitRPS)
	}
	setInt(&cfg.RateLimit.Burst, v, KeyRateLimitBurst)
	if _, ok := v[KeyRateLimitRetries]; ok {
		cfg.RateLimit.MaxRetries = v.Int(KeyRateLimitRetries)
	}
	setString(&cfg.MCPAddr, v, KeyMCPAddr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the application cannot run with.
func (c *Config) Validate() error {
	if !c.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, c.Storage.Backend)
	}
	if !c.Vector.IsValid() {
		return fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, c.Vector)
	}
	if c.Vector == domain.VectorPGVector && c.Storage.Backend != domain.StoragePostgres {
		return fmt.Errorf("%w: vector backend pgvector requires storage backend postgres", domain.ErrInvalidInput)
	}
	if c.Storage.Backend == domain.StoragePostgres && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("%w: %s is required for the postgres backend", domain.ErrInvalidInput, KeyStoragePostgres)
	}
	if !c.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, c.Embedding.Provider)
	}
	if c.LLM.Provider == domain.AIProviderLocal || (c.LLM.Provider != "" && !c.LLM.Provider.IsValid()) {
		return fmt.Errorf("%w: unknown LLM provider %q", domain.ErrInvalidInput, c.LLM.Provider)
	}
	if c.TopK < 1 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, KeyRetrievalTopK)
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		return fmt.Errorf("%w: %s must be in [0, %s)", domain.ErrInvalidInput, KeyChunkOverlap, KeyChunkSize)
	}
	return nil
}

// EnvKey returns the environment variable that overrides key.
func EnvKey(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// envKeys lists every key that may be overridden from the environment.
var envKeys = []string{
	KeyServerAddr, KeyServerCORSOrigins, KeyLogFormat, KeyLogVerbose,
	KeyStorageBackend, KeyStorageDataDir, KeyStoragePostgres, KeyVectorBackend,
	KeyEmbeddingProvider, KeyEmbeddingModel, KeyEmbeddingBaseURL, KeyEmbeddingAPIKey, KeyEmbeddingDims,
	KeyLLMProvider, KeyLLMModel, KeyLLMBaseURL, KeyLLMAPIKey, KeyLLMTimeout, KeyLLMMaxTokens, KeyLLMTemperature,
	KeyRetrievalTopK, KeyChunkSize, KeyChunkOverlap, KeyTwinMaxHistory,
	KeyRateLimitRPS, KeyRateLimitBurst, KeyRateLimitRetries, KeyMCPAddr,
}

// resolve merges store values with environment overrides.
func resolve(store driven.ConfigStore, lookupEnv func(string) (string, bool)) Values {
	v := make(Values)
	for _, key := range envKeys {
		if store != nil {
			if val, ok := store.Get(key); ok {
				v[key] = val
			}
		}
		if val, ok := lookupEnv(EnvKey(key)); ok && val != "" {
			v[key] = val
		}
	}
	return v
}

// applyProviderKeys fills API keys from the providers' own variables when
// no PulseIQ-specific key was given.
func applyProviderKeys(cfg *Config, lookupEnv func(string) (string, bool)) {
	providerKey := func(p domain.AIProvider) string {
		var name string
		switch p {
		case domain.AIProviderOpenAI:
			name = "OPENAI_API_KEY"
		case domain.AIProviderAnthropic:
			name = "ANTHROPIC_API_KEY"
		default:
			return ""
		}
		val, _ := lookupEnv(name)
		return val
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = providerKey(cfg.Embedding.Provider)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKey(cfg.LLM.Provider)
	}
}

func setString(dst *string, v Values, key string) {
	if s := strings.TrimSpace(v.String(key)); s != "" {
		*dst = s
	}
}

func setInt(dst *int, v Values, key string) {
	if n := v.Int(key); n > 0 {
		*dst = n
	}
}
