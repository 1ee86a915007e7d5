// Package audit writes structured audit entries for CLI command starts and
// knowledge-base changes. Secrets are logged as presence/absence only.
package audit

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// auditEntry defines an env var to include in the command-start entry.
type auditEntry struct {
	key    string
	secret bool
}

// auditKeys is the ordered list of env vars included in every command-start entry.
var auditKeys = []auditEntry{
	{"CAFEBOT_COLLECTION", false},
	{"CAFE_DATA_FILE", false},
	{"CAFE_TIMEZONE", false},
	{"EMBEDDING_PROVIDER", false},
	{"EMBEDDING_MODEL", false},
	{"EMBEDDING_API_KEY", true},
	{"EMBEDDING_CACHE", false},
	{"OPENAI_API_KEY", true},
	{"AZURE_OPENAI_API_KEY", true},
	{"AZURE_OPENAI_ENDPOINT", false},
	{"VECTOR_BACKEND", false},
	{"VECTOR_SQLITE_PATH", false},
	{"QDRANT_HOST", false},
	{"QDRANT_PORT", false},
	{"QDRANT_API_KEY", true},
	{"CAFEBOT_DB_PATH", false},
	{"MODEL_PROVIDER", false},
	{"ARK_API_KEY", true},
	{"GOOGLE_API_KEY", true},
	{"CAFEBOT_API_KEY", true},
	{"LOG_LEVEL", false},
	{"LOG_FORMAT", false},
	{"LANGFUSE_PUBLIC_KEY", true},
	{"LANGFUSE_SECRET_KEY", true},
}

// secretEnvKeys is derived from auditKeys.
var secretEnvKeys = func() map[string]bool {
	m := make(map[string]bool)
	for _, e := range auditKeys {
		if e.secret {
			m[e.key] = true
		}
	}
	return m
}()

// LogCommandStart records the command name, config file and sanitised env.
func LogCommandStart(log *slog.Logger, command string, configPath string) {
	attrs := []slog.Attr{
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
	}
	for _, entry := range auditKeys {
		attrs = append(attrs, slog.String(entry.key, SanitiseKey(entry.key, os.Getenv(entry.key))))
	}
	log.LogAttrs(context.Background(), slog.LevelInfo, "audit: command start", attrs...)
}

// LogIngest records a QA fact written to the knowledge base. source names
// the entry point ("http", "cli", "seed").
func LogIngest(ctx context.Context, log *slog.Logger, source, collection string, questions int, err error) {
	attrs := []slog.Attr{
		slog.String("source", source),
		slog.String("collection", collection),
		slog.Int("questions", questions),
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	log.LogAttrs(ctx, level, "audit: ingest", attrs...)
}

// SanitiseKey returns "set" or "unset" for secret keys, or the value
// (or "unset") for everything else.
func SanitiseKey(key, value string) string {
	if secretEnvKeys[key] {
		return presence(value)
	}
	return valOrUnset(value)
}

func presence(v string) string {
	if v != "" {
		return "set"
	}
	return "unset"
}

func valOrUnset(v string) string {
	if v != "" {
		return v
	}
	return "unset"
}

// sanitiseConfigPath returns the config path with the home directory
// shortened to "~", or "none" if empty.
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	home, err := os.UserHomeDir()
	if err == nil && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
