// Package tracing registers a Langfuse callback handler with eino so every
// query chain run (match and render nodes) is exported as a trace.
package tracing

import (
	"log/slog"
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// Config holds Langfuse connection settings.
type Config struct {
	Host      string
	PublicKey string
	SecretKey string
}

// ConfigFromEnv reads LANGFUSE_HOST, LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY.
func ConfigFromEnv() Config {
	return Config{
		Host:      os.Getenv("LANGFUSE_HOST"),
		PublicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
		SecretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
	}
}

// Enabled reports whether both keys are present.
func (c Config) Enabled() bool {
	return c.PublicKey != "" && c.SecretKey != ""
}

// Setup registers the Langfuse handler globally when cfg is enabled. The
// returned flush function must be called before process exit so buffered
// traces are sent; it is a no-op when tracing is disabled.
func Setup(cfg Config, log *slog.Logger) (flush func(), enabled bool) {
	if !cfg.Enabled() {
		return func() {}, false
	}
	if cfg.Host == "" {
		cfg.Host = "http://localhost:3000"
	}

	handler, flusher := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      cfg.Host,
		PublicKey: cfg.PublicKey,
		SecretKey: cfg.SecretKey,
		Name:      "cafebot",
	})
	callbacks.AppendGlobalHandlers(handler)

	log.Info("tracing: langfuse enabled", slog.String("host", cfg.Host))
	return flusher, true
}
