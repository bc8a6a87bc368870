package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, workDir, body string) {
	t.Helper()
	dir := filepath.Join(workDir, AppDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(strings.TrimSpace(body)), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	workDir := t.TempDir()
	cfg, err := Load(workDir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Settings.Server.BaseURL != DefaultBaseURL {
		t.Fatalf("expected default base url, got %q", cfg.Settings.Server.BaseURL)
	}
	if cfg.Settings.Server.RequestTimeout != DefaultRequestTimeout || cfg.Settings.Server.DrawTimeout != DefaultDrawTimeout {
		t.Fatalf("unexpected timeouts: %+v", cfg.Settings.Server)
	}
	if got, want := cfg.ExportDir(), filepath.Join(workDir, AppDir, "exports"); got != want {
		t.Fatalf("export dir = %s, want %s", got, want)
	}
}

func TestInitDirWritesLoadableConfig(t *testing.T) {
	workDir := t.TempDir()
	if err := InitDir(workDir); err != nil {
		t.Fatalf("InitDir: %v", err)
	}
	for _, sub := range []string{"logs", "exports"} {
		if info, err := os.Stat(filepath.Join(workDir, AppDir, sub)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s directory: %v", sub, err)
		}
	}
	cfg, err := Load(workDir)
	if err != nil {
		t.Fatalf("Load after InitDir: %v", err)
	}
	if cfg.Settings.Export.Dir != ".secretsanta/exports" {
		t.Fatalf("generated export dir = %q", cfg.Settings.Export.Dir)
	}
	cfg.Settings.Export.Dir = ""
	if cfg.Settings != DefaultSettings() {
		t.Fatalf("generated config differs from defaults: %+v", cfg.Settings)
	}
	if got, want := cfg.ExportDir(), filepath.Join(workDir, AppDir, "exports"); got != want {
		t.Fatalf("export dir = %s, want %s", got, want)
	}

	// a second init keeps an edited file
	writeConfig(t, workDir, "version: 1\nserver:\n  base_url: https://santa.example.com\n")
	if err := InitDir(workDir); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(workDir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Settings.Server.BaseURL != "https://santa.example.com" {
		t.Fatalf("InitDir overwrote config: %q", cfg.Settings.Server.BaseURL)
	}
}

func TestLoadParsesYaml(t *testing.T) {
	workDir := t.TempDir()
	writeConfig(t, workDir, `
version: 1
server:
  base_url: https://santa.example.com/
  request_timeout: 5s
  draw_timeout: 2m
draw:
  archive_email: " audit@example.com "
export:
  dir: out
logging:
  level: DEBUG
`)
	cfg, err := Load(workDir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	s := cfg.Settings
	if s.Server.BaseURL != "https://santa.example.com" {
		t.Fatalf("base url not normalized: %q", s.Server.BaseURL)
	}
	if s.Server.RequestTimeout != 5*time.Second || s.Server.DrawTimeout != 2*time.Minute {
		t.Fatalf("timeouts not parsed: %+v", s.Server)
	}
	if s.Draw.ArchiveEmail != "audit@example.com" {
		t.Fatalf("archive email = %q", s.Draw.ArchiveEmail)
	}
	if s.Logging.Level != "debug" {
		t.Fatalf("log level = %q", s.Logging.Level)
	}
	if got := cfg.ExportDir(); got != filepath.Join(workDir, "out") {
		t.Fatalf("export dir = %s", got)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	workDir := t.TempDir()
	writeConfig(t, workDir, "version: 1\nserver:\n  base_url: https://santa.example.com\n")
	exportDir := t.TempDir()
	t.Setenv("SECRETSANTA_BASE_URL", "http://127.0.0.1:9000")
	t.Setenv("SECRETSANTA_DRAW_TIMEOUT", "90s")
	t.Setenv("SECRETSANTA_ARCHIVE_EMAIL", "elf@example.com")
	t.Setenv("SECRETSANTA_EXPORT_DIR", exportDir)
	t.Setenv("SECRETSANTA_LOG_LEVEL", "warn")

	cfg, err := Load(workDir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	s := cfg.Settings
	if s.Server.BaseURL != "http://127.0.0.1:9000" {
		t.Fatalf("base url = %q", s.Server.BaseURL)
	}
	if s.Server.DrawTimeout != 90*time.Second {
		t.Fatalf("draw timeout = %s", s.Server.DrawTimeout)
	}
	if s.Server.RequestTimeout != DefaultRequestTimeout {
		t.Fatalf("request timeout should keep its default, got %s", s.Server.RequestTimeout)
	}
	if s.Draw.ArchiveEmail != "elf@example.com" || s.Logging.Level != "warn" {
		t.Fatalf("overrides not applied: %+v", s)
	}
	if cfg.ExportDir() != exportDir {
		t.Fatalf("export dir = %s, want %s", cfg.ExportDir(), exportDir)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"bad url":      "server:\n  base_url: not a url\n",
		"ftp url":      "server:\n  base_url: ftp://santa.example.com\n",
		"zero timeout": "server:\n  request_timeout: 0s\n",
		"bad email":    "draw:\n  archive_email: nobody\n",
		"bad level":    "logging:\n  level: chatty\n",
		"bad duration": "server:\n  draw_timeout: soon\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			workDir := t.TempDir()
			writeConfig(t, workDir, body)
			if _, err := Load(workDir); err == nil {
				t.Fatalf("expected error for %q", body)
			}
		})
	}
}

func TestInvalidEnvDurationFails(t *testing.T) {
	t.Setenv("SECRETSANTA_REQUEST_TIMEOUT", "later")
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected env parse error")
	}
}
