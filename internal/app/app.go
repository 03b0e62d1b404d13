// Package app is the composition root. It turns configuration into
// concrete adapters and wires them into the core services.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pulseiq/pulseiq-rag/internal/adapters/driven/ai"
	"github.com/pulseiq/pulseiq-rag/internal/adapters/driven/config"
	"github.com/pulseiq/pulseiq-rag/internal/adapters/driven/config/file"
	"github.com/pulseiq/pulseiq-rag/internal/adapters/driven/storage/memory"
	"github.com/pulseiq/pulseiq-rag/internal/adapters/driven/storage/postgres"
	"github.com/pulseiq/pulseiq-rag/internal/adapters/driven/storage/sqlite"
	memindex "github.com/pulseiq/pulseiq-rag/internal/adapters/driven/vectorindex/memory"
	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
	"github.com/pulseiq/pulseiq-rag/internal/core/services"
	"github.com/pulseiq/pulseiq-rag/internal/logger"
	"github.com/pulseiq/pulseiq-rag/internal/normalisers"
	"github.com/pulseiq/pulseiq-rag/internal/normalisers/docx"
	"github.com/pulseiq/pulseiq-rag/internal/normalisers/markdown"
	"github.com/pulseiq/pulseiq-rag/internal/normalisers/pdf"
	"github.com/pulseiq/pulseiq-rag/internal/normalisers/plaintext"
	"github.com/pulseiq/pulseiq-rag/internal/postprocessors"
)

// ConfigDirEnv overrides the configuration directory.
const ConfigDirEnv = "PULSEIQ_CONFIG_DIR"

// Options control how the application is assembled.
type Options struct {
	// ConfigDir holds config.toml. Empty uses ConfigDirEnv, then ~/.pulseiq.
	ConfigDir string

	// Verbose forces debug logging regardless of configuration.
	Verbose bool

	// LookupEnv resolves environment overrides. Nil uses os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// App holds the wired adapters and services.
type App struct {
	Config *config.Config

	Store     driven.Store
	Vectors   driven.VectorIndex
	Embedder  driven.EmbeddingService
	LLM       driven.LLMService
	Documents driven.NormaliserRegistry

	Index     *services.IndexService
	Retrieval *services.RetrievalService
	Ingestion *services.IngestionService
	Chat      *services.ChatService
	History   *services.HistoryService
	Twin      *services.DigitalTwinService

	closers []func() error
}

// New loads configuration and assembles the application.
func New(ctx context.Context, opts Options) (*App, error) {
	lookupEnv := opts.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	cfg, err := loadConfig(opts.ConfigDir, lookupEnv)
	if err != nil {
		return nil, err
	}
	logger.SetFormat(cfg.Log.Format)
	logger.SetVerbose(opts.Verbose || cfg.Log.Verbose)

	return Assemble(ctx, cfg)
}

// Assemble wires an application from an already loaded configuration.
func Assemble(ctx context.Context, cfg *config.Config) (a *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a = &App{Config: cfg}
	defer func() {
		if err != nil {
			a.Close() //nolint:errcheck
			a = nil
		}
	}()

	logger.Section("Storage")
	if err := a.openStorage(ctx); err != nil {
		return nil, err
	}

	logger.Section("AI providers")
	if err := a.openProviders(); err != nil {
		return nil, err
	}

	logger.Section("Services")
	pipeline, err := newPipeline(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	a.Documents = newNormaliserRegistry()

	a.Index = services.NewIndexService(a.Embedder, a.Vectors, a.Store)
	a.Retrieval = services.NewRetrievalService(a.Index)
	a.Ingestion = services.NewIngestionService(a.Documents, pipeline, a.Index, a.Store)
	a.History = services.NewHistoryService(a.Store)

	a.Chat = services.NewChatService(a.Retrieval, a.LLM,
		services.WithTopK(cfg.TopK),
		services.WithGenerationTimeout(cfg.LLM.Timeout),
		services.WithGenerateOptions(driven.GenerateOptions{
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		}),
	)
	summarizer := services.NewDigitalTwinSummarizer(a.LLM,
		services.WithMaxHistory(cfg.Twin.MaxHistory),
		services.WithSummaryTimeout(cfg.LLM.Timeout),
	)
	a.Twin = services.NewDigitalTwinService(a.Store, summarizer)

	logger.Debug("Wired storage=%s vector=%s embedding=%s llm=%s",
		cfg.Storage.Backend, cfg.Vector, cfg.Embedding.Provider, providerName(cfg.LLM.Provider))
	return a, nil
}

// Warm reloads the vector index from the store when the index does not
// survive restarts. Durable indexes are left untouched.
func (a *App) Warm(ctx context.Context) error {
	if a.Config.Vector.IsDurable() {
		return nil
	}
	if a.Embedder == nil {
		logger.Warn("Skipping index rebuild: %v", domain.ErrEmbeddingUnavailable)
		return nil
	}
	n, err := a.Index.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuilding vector index: %w", err)
	}
	logger.Info("Vector index loaded with %d chunks", n)
	return nil
}

// Close releases every adapter in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// ==================== Storage ====================

func (a *App) openStorage(ctx context.Context) error {
	cfg := a.Config

	switch cfg.Storage.Backend {
	case domain.StorageMemory:
		a.Store = memory.NewStore()
		a.onClose(a.Store.Close)

	case domain.StorageSQLite:
		store, err := sqlite.NewStore(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Debug("SQLite store at %s", store.Path())
		a.Store = store
		a.onClose(store.Close)

	case domain.StoragePostgres:
		db, err := postgres.Open(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		store := postgres.NewStore(db)
		a.Store = store
		a.onClose(store.Close)
		if err := postgres.Migrate(db); err != nil {
			return err
		}
		if cfg.Vector == domain.VectorPGVector {
			a.Vectors = postgres.NewVectorIndex(db)
		}
	}

	if a.Vectors == nil {
		a.Vectors = memindex.New()
	}
	a.onClose(a.Vectors.Close)
	return nil
}

// ==================== AI providers ====================

func (a *App) openProviders() error {
	cfg := a.Config
	policy := ai.NewRetryPolicy(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	policy.MaxRetries = cfg.RateLimit.MaxRetries

	embedder, err := ai.CreateEmbeddingService(&cfg.Embedding)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if embedder != nil {
		a.onClose(embedder.Close)
		a.Embedder = ai.NewResilientEmbedding(embedder, policy)
		logger.Debug("Embedding model %s (%d dims)", embedder.ModelName(), embedder.Dimensions())
	} else {
		logger.Warn("No embedding provider configured; ingestion and retrieval are disabled")
	}

	llm, err := ai.CreateLLMService(&cfg.LLM.LLMSettings)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if llm != nil {
		a.onClose(llm.Close)
		a.LLM = ai.NewResilientLLM(llm, policy)
		logger.Debug("Generation model %s", llm.ModelName())
	} else {
		logger.Warn("No LLM provider configured; chat is disabled and the digital twin reports defaults")
	}
	return nil
}

// ==================== Document pipeline ====================

func newNormaliserRegistry() *normalisers.Registry {
	return normalisers.NewRegistry(
		pdf.New(),
		docx.New(),
		markdown.New(),
		plaintext.New(),
	)
}

func newPipeline(cfg config.ChunkerConfig) (*postprocessors.Pipeline, error) {
	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	return registry.Pipeline(postprocessors.Stage{
		Name: "chunker",
		Config: map[string]any{
			postprocessors.ChunkSizeKey: cfg.Size,
			postprocessors.OverlapKey:   cfg.Overlap,
		},
	})
}

// ==================== Configuration ====================

func loadConfig(dir string, lookupEnv func(string) (string, bool)) (*config.Config, error) {
	if dir == "" {
		dir, _ = lookupEnv(ConfigDirEnv)
	}
	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	logger.Debug("Config file %s", store.Path())

	cfg, err := config.LoadWithEnv(store, lookupEnv)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func providerName(p domain.AIProvider) string {
	if p == "" {
		return "none"
	}
	return p.String()
}
