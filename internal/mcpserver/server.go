// Package mcpserver exposes the chatbot to MCP clients as two tools: ask
// (the full rendered reply) and retrieve (raw matched answers).
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/54b3r/cafebot-go/internal/chatbot"
	"github.com/54b3r/cafebot-go/internal/qa"
	"github.com/54b3r/cafebot-go/internal/version"
)

// Chat is the subset of chatbot.Service the tools need.
type Chat interface {
	Ask(ctx context.Context, query string) chatbot.Reply
	Retrieve(ctx context.Context, collection, query string, limit int) ([]qa.Answer, error)
}

// Server is the MCP server for cafebot.
type Server struct {
	chat   Chat
	server *mcp.Server
}

// New creates a server with the ask and retrieve tools registered.
func New(chat Chat) (*Server, error) {
	if chat == nil {
		return nil, fmt.Errorf("mcpserver: chat must not be nil")
	}
	s := &Server{
		chat: chat,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "cafebot",
			Version: version.Version,
		}, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
