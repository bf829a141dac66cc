package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/amal/go-router/internal/faults"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "router.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Classifier.OODThreshold != 0.09 {
		t.Errorf("ood threshold = %v, want 0.09", cfg.Classifier.OODThreshold)
	}
	if cfg.CrisisLine != "3033" {
		t.Errorf("crisis line = %q", cfg.CrisisLine)
	}
	if cfg.RAG.TopK != 5 || cfg.RAG.MaxAttempts != 3 || cfg.RAG.BaseDelay != time.Second {
		t.Errorf("rag defaults = %+v", cfg.RAG)
	}
	if cfg.Invoker().Limiter != nil {
		t.Error("limiter should be off by default")
	}
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := writeConfig(t, `
crisis_line: "0800"
classifier:
  ood_threshold: 0.2
rag:
  backend: chromem
  base_delay: 250ms
  rate_limit: 2
  burst: 3
`)
	t.Setenv("AMAL_TOP_K", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CrisisLine != "0800" || cfg.Classifier.OODThreshold != 0.2 {
		t.Errorf("overlay not applied: %+v", cfg)
	}
	if cfg.RAG.Backend != BackendChromem || cfg.RAG.BaseDelay != 250*time.Millisecond {
		t.Errorf("rag overlay not applied: %+v", cfg.RAG)
	}
	if cfg.RAG.TopK != 5 || cfg.CodecAddr != "localhost:50051" {
		t.Errorf("unset fields should keep defaults: %+v", cfg)
	}
	inv := cfg.Invoker()
	if inv.Limiter == nil || inv.Limiter.Burst() != 3 {
		t.Errorf("limiter = %v", inv.Limiter)
	}
	if inv.Policy.BaseDelay != 250*time.Millisecond {
		t.Errorf("policy = %+v", inv.Policy)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }},
		{"bad yaml", func(t *testing.T) string { return writeConfig(t, "rag: [unterminated") }},
		{"invalid value", func(t *testing.T) string { return writeConfig(t, "classifier:\n  ood_threshold: 1.5\n") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path(t))
			if !errors.Is(err, faults.ErrConfiguration) {
				t.Errorf("err = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"AMAL_CODEC_ADDR":    "inference:6000",
		"AMAL_CRISIS_LINE":   "1234",
		"AMAL_RAG_ENABLED":   "false",
		"AMAL_OOD_THRESHOLD": "0.15",
		"AMAL_TOP_K":         "8",
		"AMAL_MAX_RETRIES":   "5",
		"AMAL_BACKOFF_BASE":  "2s",
		"AMAL_CODEC_TIMEOUT": "5s",
		"AMAL_METRICS_ADDR":  ":9090",
	}
	cfg := Default()
	if err := cfg.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.CodecAddr != "inference:6000" || cfg.CrisisLine != "1234" || cfg.Metrics.Addr != ":9090" {
		t.Errorf("strings not applied: %+v", cfg)
	}
	if cfg.RAG.Enabled || cfg.Classifier.OODThreshold != 0.15 {
		t.Errorf("bool/float not applied: %+v", cfg)
	}
	if cfg.RAG.TopK != 8 || cfg.RAG.MaxAttempts != 5 {
		t.Errorf("ints not applied: %+v", cfg.RAG)
	}
	if cfg.RAG.BaseDelay != 2*time.Second || cfg.CodecTimeout != 5*time.Second {
		t.Errorf("durations not applied: %+v", cfg)
	}
}

func TestApplyEnv_Malformed(t *testing.T) {
	for _, key := range []string{"AMAL_RAG_ENABLED", "AMAL_OOD_THRESHOLD", "AMAL_TOP_K", "AMAL_BACKOFF_BASE"} {
		t.Run(key, func(t *testing.T) {
			cfg := Default()
			err := cfg.applyEnv(func(k string) string {
				if k == key {
					return "not-a-value"
				}
				return ""
			})
			if !errors.Is(err, faults.ErrConfiguration) {
				t.Errorf("err = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"zero threshold", func(c *Config) { c.Classifier.OODThreshold = 0 }, false},
		{"empty crisis line", func(c *Config) { c.CrisisLine = "" }, false},
		{"unknown backend", func(c *Config) { c.RAG.Backend = "pinecone" }, false},
		{"unknown backend with rag disabled", func(c *Config) { c.RAG.Backend = "pinecone"; c.RAG.Enabled = false }, true},
		{"zero top k", func(c *Config) { c.RAG.TopK = 0 }, false},
		{"zero attempts", func(c *Config) { c.RAG.MaxAttempts = 0 }, false},
		{"zero base delay", func(c *Config) { c.RAG.BaseDelay = 0 }, false},
		{"rate without burst", func(c *Config) { c.RAG.RateLimit = 1; c.RAG.Burst = 0 }, false},
		{"chromem without collection", func(c *Config) { c.RAG.Backend = BackendChromem; c.RAG.Collection = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, faults.ErrConfiguration) {
				t.Errorf("err = %v, want ErrConfiguration", err)
			}
		})
	}
}
