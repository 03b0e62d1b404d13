// Command pulseiq runs the PulseIQ medical RAG backend.
package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/pulseiq/pulseiq-rag/internal/adapters/driving/cli"
	"github.com/pulseiq/pulseiq-rag/internal/logger"
)

// version is set by the linker at release time.
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Loading .env: %v", err)
	}

	cli.SetVersion(version)
	cli.SetBootstrapper(bootstrap)

	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
