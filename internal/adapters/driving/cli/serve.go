package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pulseiq/pulseiq-rag/internal/adapters/driving/httpapi"
	"github.com/pulseiq/pulseiq-rag/internal/adapters/driving/mcp"
)

var (
	serveAddr    string
	serveWithMCP bool
	serveMCPAddr string
	serveNoWarm  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the PulseIQ HTTP API.

Endpoints:
  POST /chat                        answer a question
  POST /upload-medical-record       ingest a user's medical record
  POST /upload-global-medical-doc   ingest a reference document
  POST /save-chat                   append an exchange to the chat log
  GET  /digital-twin/{user_id}      risk assessment from chat history
  GET  /chat-history/{user_id}      most recent exchanges, newest first
  GET  /health                      liveness

The in-memory vector index is rebuilt from the store before listening.
Use --mcp to serve the MCP streamable HTTP transport alongside.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8000)")
	serveCmd.Flags().BoolVar(&serveWithMCP, "mcp", false, "also serve MCP over HTTP")
	serveCmd.Flags().StringVar(&serveMCPAddr, "mcp-addr", "", "MCP listen address (default from config, :8081)")
	serveCmd.Flags().BoolVar(&serveNoWarm, "no-warm", false, "skip the vector index rebuild at start")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if svc.Warm != nil && !serveNoWarm {
		if err := svc.Warm(ctx); err != nil {
			return err
		}
	}

	cfg := svc.HTTP
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	api, err := httpapi.NewServer(&httpapi.Services{
		Chat:      svc.Chat,
		Ingestion: svc.Ingestion,
		History:   svc.History,
		Twin:      svc.Twin,
	}, cfg)
	if err != nil {
		return err
	}

	var mcpServer *mcp.Server
	if serveWithMCP {
		if mcpServer, err = newMCPServer(svc); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return api.Run(ctx) })
	if mcpServer != nil {
		addr := svc.MCPAddr
		if serveMCPAddr != "" {
			addr = serveMCPAddr
		}
		g.Go(func() error { return mcpServer.RunHTTP(ctx, addr) })
	}

	fmt.Fprintf(cmd.OutOrStdout(), "PulseIQ API listening on %s\n", api.Addr())
	return g.Wait()
}

func newMCPServer(svc *Services) (*mcp.Server, error) {
	return mcp.NewServer(&mcp.Ports{
		Chat:      svc.Chat,
		Retrieval: svc.Retrieval,
		Twin:      svc.Twin,
		History:   svc.History,
	})
}
