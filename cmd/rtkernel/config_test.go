package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultRuntimeConfigHasSaneDefaults(t *testing.T) {
	t.Parallel()

	cfg := defaultRuntimeConfig()

	if cfg.Kernel.MaxTasks != defaultMaxTasks {
		t.Fatalf("expected default max tasks %d, got %d", defaultMaxTasks, cfg.Kernel.MaxTasks)
	}

	if cfg.Kernel.TickInterval != defaultTickInterval {
		t.Fatalf("expected default tick interval %v, got %v", defaultTickInterval, cfg.Kernel.TickInterval)
	}

	if cfg.HTTP.Bind != defaultHTTPBind {
		t.Fatalf("expected default bind %q, got %q", defaultHTTPBind, cfg.HTTP.Bind)
	}

	if cfg.Kernel.RTPriority != defaultRTPriority {
		t.Fatalf("expected default rt priority %d, got %d", defaultRTPriority, cfg.Kernel.RTPriority)
	}
}

func TestLoadConfigMergesFileValues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	contents := "kernel:\n  maxTasks: 16\n  tickInterval: 2ms\n  rtPriority: 80\nhttp:\n  bind: \":9200\"\nalert:\n  url: \"https://example.invalid/hook\"\n  attempts: 5\n"

	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}

	if cfg.Kernel.MaxTasks != 16 {
		t.Fatalf("expected maxTasks 16, got %d", cfg.Kernel.MaxTasks)
	}

	if cfg.Kernel.TickInterval != 2*time.Millisecond {
		t.Fatalf("expected tickInterval 2ms, got %v", cfg.Kernel.TickInterval)
	}

	if cfg.HTTP.Bind != ":9200" {
		t.Fatalf("expected bind :9200, got %q", cfg.HTTP.Bind)
	}

	if cfg.Alert.URL != "https://example.invalid/hook" {
		t.Fatalf("expected alert url to merge, got %q", cfg.Alert.URL)
	}

	if cfg.Alert.Attempts != 5 {
		t.Fatalf("expected alert attempts 5, got %d", cfg.Alert.Attempts)
	}

	if cfg.Kernel.RTPriority != 80 {
		t.Fatalf("expected rtPriority 80, got %d", cfg.Kernel.RTPriority)
	}
}

func TestLoadConfigMissingFileFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("loadConfig returned error for missing file: %v", err)
	}

	if cfg.Kernel.MaxTasks != defaultMaxTasks {
		t.Fatalf("expected defaults preserved, got %+v", cfg)
	}
}

func TestApplyEnvOverridesWinsOverDefaults(t *testing.T) {
	original := lookupEnv
	t.Cleanup(func() { lookupEnv = original })

	env := map[string]string{
		envMaxTasks:     "8",
		envTickInterval: "5ms",
		envHTTPBind:     ":9300",
		envRTPriority:   "90",
	}

	lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]

		return v, ok
	}

	cfg := defaultRuntimeConfig()
	applyEnvOverrides(&cfg)

	if cfg.Kernel.MaxTasks != 8 {
		t.Fatalf("expected env override maxTasks 8, got %d", cfg.Kernel.MaxTasks)
	}

	if cfg.Kernel.TickInterval != 5*time.Millisecond {
		t.Fatalf("expected env override tickInterval 5ms, got %v", cfg.Kernel.TickInterval)
	}

	if cfg.HTTP.Bind != ":9300" {
		t.Fatalf("expected env override bind :9300, got %q", cfg.HTTP.Bind)
	}

	if cfg.Kernel.RTPriority != 90 {
		t.Fatalf("expected env override rtPriority 90, got %d", cfg.Kernel.RTPriority)
	}
}

func TestApplyEnvOverridesIgnoresInvalidValues(t *testing.T) {
	original := lookupEnv
	t.Cleanup(func() { lookupEnv = original })

	env := map[string]string{
		envMaxTasks:     "not-a-number",
		envTickInterval: "not-a-duration",
	}

	lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]

		return v, ok
	}

	cfg := defaultRuntimeConfig()
	applyEnvOverrides(&cfg)

	if cfg.Kernel.MaxTasks != defaultMaxTasks {
		t.Fatalf("expected invalid override ignored, got %d", cfg.Kernel.MaxTasks)
	}

	if cfg.Kernel.TickInterval != defaultTickInterval {
		t.Fatalf("expected invalid duration ignored, got %v", cfg.Kernel.TickInterval)
	}
}
