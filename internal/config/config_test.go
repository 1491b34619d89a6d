package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "DASHSCOPE_API_KEY", "DASHSCOPE_API_URL", "QWENMT_MODEL", "QWENMT_STREAM", "QWENMT_CONFIG", "ENV", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

// chdir changes the working directory for the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected server defaults: %#v", cfg.Server)
	}
	if cfg.Provider.Model != "qwen-mt-turbo" || !cfg.Provider.StreamEnabled() {
		t.Fatalf("unexpected provider defaults: %#v", cfg.Provider)
	}
	if cfg.Provider.APIKey != "" {
		t.Fatalf("API key must not have a default")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
server:
  port: "9090"
  shutdown_timeout: 3s
provider:
  api_key: sk-from-file
  api_url: https://dashscope-intl.aliyuncs.com/compatible-mode/v1
  model: qwen-mt-plus
  stream: disable
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Server.ShutdownTimeout != 3*time.Second {
		t.Fatalf("unexpected server config: %#v", cfg.Server)
	}
	if cfg.Provider.APIKey != "sk-from-file" || cfg.Provider.Model != "qwen-mt-plus" {
		t.Fatalf("unexpected provider config: %#v", cfg.Provider)
	}
	if cfg.Provider.StreamEnabled() {
		t.Fatalf("stream should be disabled")
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %#v", cfg.Logging)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "provider:\n  api_key: sk-from-file\n")
	t.Setenv("DASHSCOPE_API_KEY", "sk-from-env")
	t.Setenv("QWENMT_STREAM", "disable")
	t.Setenv("PORT", "7000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.APIKey != "sk-from-env" {
		t.Fatalf("env should win over file, got %q", cfg.Provider.APIKey)
	}
	if cfg.Provider.StreamEnabled() || cfg.Server.Port != "7000" {
		t.Fatalf("env overrides not applied: %#v", cfg)
	}
}

func TestConfigFileFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("QWENMT_CONFIG", writeConfig(t, "provider:\n  model: qwen-mt-plus\n"))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.Model != "qwen-mt-plus" {
		t.Fatalf("config from QWENMT_CONFIG not loaded: %#v", cfg.Provider)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	_, err := Load(writeConfig(t, "server:\n  port: http\n"))
	if err == nil || !strings.Contains(err.Error(), "not a number") {
		t.Fatalf("expected port validation error, got %v", err)
	}

	if _, err := Load(writeConfig(t, "server: [unterminated\n")); err == nil {
		t.Fatalf("expected YAML parse error")
	}
}
