package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

Tools:
  chat          answer a medical question for a user
  retrieve      nearest chunks from one partition
  digital_twin  risk assessment from a user's chat history

Resources:
  pulseiq://users/{userId}/chats

By default the server communicates over stdio using JSON-RPC. Use --port
to serve the streamable HTTP transport instead.

Examples:
  # Stdio mode (default, for desktop assistants)
  pulseiq mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  pulseiq mcp serve --port 8081`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}
	if svc.Warm != nil {
		if err := svc.Warm(cmd.Context()); err != nil {
			return err
		}
	}

	server, err := newMCPServer(svc)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
