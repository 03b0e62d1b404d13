// Package cli provides the pulseiq command line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/pulseiq/pulseiq-rag/internal/adapters/driving/httpapi"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
	"github.com/pulseiq/pulseiq-rag/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Global flags.
var (
	configDir string
	verbose   bool
)

// Services are the driving ports and settings the commands run against.
type Services struct {
	Chat      driving.ChatService
	Ingestion driving.IngestionService
	History   driving.HistoryService
	Twin      driving.DigitalTwinService
	Retrieval driving.RetrievalService
	Index     driving.IndexService

	// HTTP configures the API started by serve.
	HTTP httpapi.Config

	// MCPAddr is the default listen address for mcp serve --http.
	MCPAddr string

	// Warm prepares the vector index before serving. Optional.
	Warm func(ctx context.Context) error

	// Checks are run by the doctor command.
	Checks []Check
}

// Check is a named health probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// BootstrapOptions carries the global flags to a Bootstrapper.
type BootstrapOptions struct {
	ConfigDir string
	Verbose   bool
}

// Bootstrapper builds the services on first use. The returned function
// releases them.
type Bootstrapper func(ctx context.Context, opts BootstrapOptions) (*Services, func() error, error)

var (
	bootstrap Bootstrapper
	services  *Services
	release   func() error
)

var rootCmd = &cobra.Command{
	Use:   "pulseiq",
	Short: "PulseIQ medical RAG backend",
	Long: `PulseIQ answers medical questions from a user's own records and a shared
library of reference documents, and tracks a per-user digital twin risk
signal derived from chat history.

Run "pulseiq serve" to start the HTTP API.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.pulseiq)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetBootstrapper installs the function that builds services for commands
// that need them.
func SetBootstrapper(b Bootstrapper) {
	bootstrap = b
}

// Execute runs the root command and releases any services it built.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if closeErr := releaseServices(); closeErr != nil {
		logger.Warn("Releasing services: %v", closeErr)
	}
	return err
}

// requireServices returns the services, building them on first use.
func requireServices(cmd *cobra.Command) (*Services, error) {
	if services != nil {
		return services, nil
	}
	if bootstrap == nil {
		return nil, errors.New("services not configured")
	}

	svc, closeFn, err := bootstrap(cmd.Context(), BootstrapOptions{
		ConfigDir: configDir,
		Verbose:   verbose,
	})
	if err != nil {
		return nil, err
	}
	services = svc
	release = closeFn
	return services, nil
}

func releaseServices() error {
	closeFn := release
	services = nil
	release = nil
	if closeFn == nil {
		return nil
	}
	return closeFn()
}
