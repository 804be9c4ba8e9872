package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pyarena/internal/limits"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"arena.toml", `
[limits]
max-memory = 1048576
max-allocations = 500

[logging]
verbosity = 2
file = "arena.log"
`},
		{"arena.yaml", `
limits:
  max-memory: 1048576
  max-allocations: 500
logging:
  verbosity: 2
  file: arena.log
`},
	}
	for i, tt := range tests {
		c, err := Load(writeConfig(t, tt.name, tt.body))
		if err != nil {
			t.Fatalf("tests[%d] unexpected error: %v", i, err)
		}
		if c.Limits.MaxMemory != 1<<20 || c.Limits.MaxAllocations != 500 {
			t.Fatalf("tests[%d] wrong limits: %+v", i, c.Limits)
		}
		if c.Limits.MaxFrames != DefaultMaxFrames {
			t.Fatalf("tests[%d] expected default max frames, got %d", i, c.Limits.MaxFrames)
		}
		if c.Logging.Verbosity != 2 || c.Logging.File != "arena.log" {
			t.Fatalf("tests[%d] wrong logging: %+v", i, c.Logging)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{"arena.ini", "max-memory=1", "unsupported config format"},
		{"arena.toml", "[limits\n", "parse error"},
		{"arena.yml", "limits:\n  max-frames: -1\n", "max-frames must not be negative"},
	}
	for i, tt := range tests {
		_, err := Load(writeConfig(t, tt.name, tt.body))
		if err == nil || !strings.Contains(err.Error(), tt.contains) {
			t.Fatalf("tests[%d] expected error containing %q, got %v", i, tt.contains, err)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestPolicy(t *testing.T) {
	if p := Default().Policy(); p != limits.Unlimited {
		t.Fatalf("expected unlimited policy, got %T", p)
	}

	c := Default()
	c.Limits.MaxMemory = 64
	if _, ok := c.Policy().(*limits.Budget); !ok {
		t.Fatalf("expected a single budget, got %T", c.Policy())
	}

	c.Limits.MaxAllocations = 2
	p := c.Policy()
	if _, ok := p.(limits.Chain); !ok {
		t.Fatalf("expected a chain, got %T", p)
	}
	for i := 0; i < 2; i++ {
		if err := p.Charge(1); err != nil {
			t.Fatalf("charge %d refused: %v", i, err)
		}
	}
	if err := p.Charge(1); err == nil {
		t.Fatalf("expected allocation count limit to refuse")
	}
}
