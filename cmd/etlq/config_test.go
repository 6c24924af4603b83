package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/tinytelemetry/etlq/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadConfig("", nil)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Prompt != model.DefaultPrompt {
		t.Errorf("Prompt = %q, want %q", cfg.Prompt, model.DefaultPrompt)
	}
	if cfg.SkipBadTimestamps {
		t.Error("SkipBadTimestamps should default to false")
	}
	if !cfg.SQLMirror {
		t.Error("SQLMirror should default to true")
	}
	if cfg.QueryTimeout != model.DefaultQueryTimeout {
		t.Errorf("QueryTimeout = %v, want %v", cfg.QueryTimeout, model.DefaultQueryTimeout)
	}
	if cfg.APIAddr != model.DefaultAPIAddr {
		t.Errorf("APIAddr = %q, want %q", cfg.APIAddr, model.DefaultAPIAddr)
	}
	if cfg.MaxLineSize != model.DefaultMaxLineSize {
		t.Errorf("MaxLineSize = %d, want %d", cfg.MaxLineSize, model.DefaultMaxLineSize)
	}
	if cfg.ConfigPath != "" {
		t.Errorf("ConfigPath = %q, want empty when no file exists", cfg.ConfigPath)
	}
}

func TestLoadConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeConfig(t, strings.Join([]string{
		"data-dir: ~/data",
		"skip-bad-timestamps: true",
		"query-timeout: 5s",
		"sql-mirror: false",
		"otlp-endpoint: collector:4317",
	}, "\n"))

	cfg, err := loadConfig(path, nil)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if want := filepath.Join(home, "data"); cfg.DataDir != want {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, want)
	}
	if !cfg.SkipBadTimestamps {
		t.Error("SkipBadTimestamps = false, want true")
	}
	if cfg.QueryTimeout != 5*time.Second {
		t.Errorf("QueryTimeout = %v, want 5s", cfg.QueryTimeout)
	}
	if cfg.SQLMirror {
		t.Error("SQLMirror = true, want false")
	}
	if cfg.OTLPEndpoint != "collector:4317" {
		t.Errorf("OTLPEndpoint = %q", cfg.OTLPEndpoint)
	}
	if cfg.ConfigPath != path {
		t.Errorf("ConfigPath = %q, want %q", cfg.ConfigPath, path)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ETLQ_SERVICE_NAME", "from-env")
	t.Setenv("ETLQ_DATA_DIR", "/env/data")
	path := writeConfig(t, "service-name: from-file\ndata-dir: /file/data\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("data-dir", "", "")
	if err := fs.Parse([]string{"--data-dir", "/flag/data"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := loadConfig(path, fs)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.ServiceName != "from-env" {
		t.Errorf("ServiceName = %q, want env to beat the file", cfg.ServiceName)
	}
	if cfg.DataDir != "/flag/data" {
		t.Errorf("DataDir = %q, want the flag to beat env", cfg.DataDir)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		name string
		body string
	}{
		{"bad log level", "log-level: loud\n"},
		{"bad api addr", "api-addr: nowhere\n"},
		{"tiny line size", "max-line-size: 10\n"},
		{"empty prompt", "prompt: \"\"\n"},
		{"zero timeout", "query-timeout: 0s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadConfig(writeConfig(t, tt.body), nil); err == nil {
				t.Errorf("loadConfig accepted %q", tt.body)
			}
		})
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if _, err := loadConfig(writeConfig(t, "data-dir: [unclosed\n"), nil); err == nil {
		t.Error("loadConfig accepted malformed YAML")
	}
}
