package tracing

import (
	"testing"

	"github.com/54b3r/cafebot-go/internal/logging"
)

func TestConfigEnabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"empty", Config{}, false},
		{"public only", Config{PublicKey: "pk"}, false},
		{"secret only", Config{SecretKey: "sk"}, false},
		{"both", Config{PublicKey: "pk", SecretKey: "sk"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.cfg.Enabled(); got != tc.want {
				t.Errorf("Enabled() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSetup_DisabledIsNoop(t *testing.T) {
	t.Parallel()
	flush, enabled := Setup(Config{}, logging.Discard())
	if enabled {
		t.Fatal("Setup() enabled tracing without keys")
	}
	flush()
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LANGFUSE_HOST", "https://cloud.langfuse.com")
	t.Setenv("LANGFUSE_PUBLIC_KEY", "pk-lf")
	t.Setenv("LANGFUSE_SECRET_KEY", "")

	cfg := ConfigFromEnv()
	if cfg.Host != "https://cloud.langfuse.com" || cfg.PublicKey != "pk-lf" {
		t.Errorf("ConfigFromEnv() = %+v", cfg)
	}
	if cfg.Enabled() {
		t.Error("Enabled() = true without secret key")
	}
}
