package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestSanitiseKey_Secret(t *testing.T) {
	t.Parallel()
	if got := SanitiseKey("CAFEBOT_API_KEY", "s3cret"); got != "set" {
		t.Errorf("expected 'set', got %q", got)
	}
	if got := SanitiseKey("QDRANT_API_KEY", ""); got != "unset" {
		t.Errorf("expected 'unset', got %q", got)
	}
}

func TestSanitiseKey_NonSecret(t *testing.T) {
	t.Parallel()
	if got := SanitiseKey("VECTOR_BACKEND", "qdrant"); got != "qdrant" {
		t.Errorf("expected 'qdrant', got %q", got)
	}
	if got := SanitiseKey("VECTOR_BACKEND", ""); got != "unset" {
		t.Errorf("expected 'unset', got %q", got)
	}
}

func TestSanitiseConfigPath(t *testing.T) {
	t.Parallel()
	if got := sanitiseConfigPath(""); got != "none" {
		t.Errorf("expected 'none', got %q", got)
	}
	if got := sanitiseConfigPath("/tmp/cafebot.yaml"); got != "/tmp/cafebot.yaml" {
		t.Errorf("expected '/tmp/cafebot.yaml', got %q", got)
	}
	home, err := os.UserHomeDir()
	if err == nil {
		p := home + "/.cafebot/config.yaml"
		if got := sanitiseConfigPath(p); got != "~/.cafebot/config.yaml" {
			t.Errorf("expected '~/.cafebot/config.yaml', got %q", got)
		}
	}
}

func TestLogCommandStart_RedactsSecrets(t *testing.T) {
	t.Setenv("CAFEBOT_API_KEY", "do-not-log-me")
	t.Setenv("VECTOR_BACKEND", "sqlite")

	var buf bytes.Buffer
	LogCommandStart(slog.New(slog.NewJSONHandler(&buf, nil)), "serve", "")

	out := buf.String()
	if strings.Contains(out, "do-not-log-me") {
		t.Fatalf("secret value leaked into audit log: %s", out)
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("audit log is not JSON: %v", err)
	}
	if entry["CAFEBOT_API_KEY"] != "set" {
		t.Errorf("CAFEBOT_API_KEY = %v, want set", entry["CAFEBOT_API_KEY"])
	}
	if entry["VECTOR_BACKEND"] != "sqlite" {
		t.Errorf("VECTOR_BACKEND = %v, want sqlite", entry["VECTOR_BACKEND"])
	}
	if entry["command"] != "serve" {
		t.Errorf("command = %v, want serve", entry["command"])
	}
}

func TestLogIngest_LevelFollowsError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	LogIngest(context.Background(), log, "http", "chatbot_data", 3, nil)
	LogIngest(context.Background(), log, "seed", "chatbot_data", 1, errors.New("embed failed"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"level":"INFO"`) || !strings.Contains(lines[0], `"questions":3`) {
		t.Errorf("unexpected success entry: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"level":"WARN"`) || !strings.Contains(lines[1], "embed failed") {
		t.Errorf("unexpected failure entry: %s", lines[1])
	}
}
