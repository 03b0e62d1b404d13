package main

import (
	"context"

	"github.com/pulseiq/pulseiq-rag/internal/adapters/driven/ai"
	"github.com/pulseiq/pulseiq-rag/internal/adapters/driving/cli"
	"github.com/pulseiq/pulseiq-rag/internal/adapters/driving/httpapi"
	"github.com/pulseiq/pulseiq-rag/internal/app"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
	"github.com/pulseiq/pulseiq-rag/internal/normalisers/pdf"
)

// bootstrap assembles the application and exposes it to the CLI.
func bootstrap(ctx context.Context, opts cli.BootstrapOptions) (*cli.Services, func() error, error) {
	a, err := app.New(ctx, app.Options{
		ConfigDir: opts.ConfigDir,
		Verbose:   opts.Verbose,
	})
	if err != nil {
		return nil, nil, err
	}
	cfg := a.Config

	svc := &cli.Services{
		Chat:      a.Chat,
		Ingestion: a.Ingestion,
		History:   a.History,
		Twin:      a.Twin,
		Retrieval: a.Retrieval,
		Index:     a.Index,
		HTTP: httpapi.Config{
			Addr:        cfg.Server.Addr,
			CORSOrigins: cfg.Server.CORSOrigins,
		},
		MCPAddr: cfg.MCPAddr,
		Warm:    a.Warm,
		Checks: []cli.Check{
			{Name: "storage (" + string(cfg.Storage.Backend) + ")", Run: func(ctx context.Context) error {
				return pingStore(ctx, a.Store)
			}},
			{Name: "embedding (" + string(cfg.Embedding.Provider) + ")", Run: func(context.Context) error {
				return ai.ValidateEmbeddingConfig(&cfg.Embedding)
			}},
			{Name: "llm (" + string(cfg.LLM.Provider) + ")", Run: func(context.Context) error {
				return ai.ValidateLLMConfig(&cfg.LLM.LLMSettings)
			}},
			{Name: "pdftotext", Run: func(context.Context) error {
				return pdf.CheckAvailable()
			}},
		},
	}
	return svc, a.Close, nil
}

func pingStore(ctx context.Context, store driven.Store) error {
	return store.WithSession(ctx, func(s driven.Session) error {
		_, err := s.Chats().CountChats(ctx, "")
		return err
	})
}
