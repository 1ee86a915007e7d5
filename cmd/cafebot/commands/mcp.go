package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/cafebot-go/internal/logging"
	"github.com/54b3r/cafebot-go/internal/mcpserver"
)

// NewMCPCmd constructs the `cafebot mcp` command, which exposes the chatbot
// to Model Context Protocol clients.
func NewMCPCmd() *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the chatbot as MCP tools (ask, retrieve)",
		Long: `Run a Model Context Protocol server with two tools:
  ask       {query}                       the rendered reply
  retrieve  {collection?, query, limit?}  raw matched answers

stdio is the default transport; logs go to stderr. Use --http to serve the
streamable HTTP transport instead.

Examples:
  cafebot mcp
  cafebot mcp --http 127.0.0.1:3001`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			rt, err := newRuntime(ctx, log, runtimeOptions{})
			if err != nil {
				return fmt.Errorf("mcp: %w", err)
			}
			defer rt.Close()

			srv, err := mcpserver.New(rt.chat)
			if err != nil {
				return fmt.Errorf("mcp: %w", err)
			}

			if httpAddr != "" {
				log.Info("mcp: serving streamable http", slog.String("addr", httpAddr))
				return srv.RunHTTP(ctx, httpAddr)
			}
			log.Info("mcp: serving stdio")
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve streamable HTTP on this address instead of stdio")

	return cmd
}
