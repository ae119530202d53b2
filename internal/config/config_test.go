package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
data_dir: /var/lib/showrunner

database:
  driver: mysql
  host: 10.0.0.5
  port: 3307
  user: writer
  name: showrunner_alice

autosave:
  interval: 500ms

generation:
  provider: gemini
  base_url: http://localhost:9999/v1beta
  text_model: gemini-3-pro-preview
  image_model: gemini-3-pro-image-preview
  timeout: 30s
  api_key_env: SR_KEY

integrity:
  sweep_schedule: "0 * * * *"
  collect_orphans: true

server:
  port: 9090

publish:
  endpoint: minio.local:9000
  bucket: bundles
  access_key: ak
  secret_key: sk
  use_ssl: true
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DataDir != "/var/lib/showrunner" {
		t.Errorf("DataDir = %q, want /var/lib/showrunner", cfg.DataDir)
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("Database.Driver = %q, want mysql", cfg.Database.Driver)
	}
	if cfg.Database.Host != "10.0.0.5" || cfg.Database.Port != 3307 {
		t.Errorf("Database host/port = %s:%d, want 10.0.0.5:3307", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Database.User != "writer" {
		t.Errorf("Database.User = %q, want writer", cfg.Database.User)
	}
	if cfg.Autosave.Interval != 500*time.Millisecond {
		t.Errorf("Autosave.Interval = %s, want 500ms", cfg.Autosave.Interval)
	}
	if cfg.Generation.TextModel != "gemini-3-pro-preview" {
		t.Errorf("Generation.TextModel = %q", cfg.Generation.TextModel)
	}
	if cfg.Generation.Timeout != 30*time.Second {
		t.Errorf("Generation.Timeout = %s, want 30s", cfg.Generation.Timeout)
	}
	if cfg.Generation.APIKeyEnv != "SR_KEY" {
		t.Errorf("Generation.APIKeyEnv = %q, want SR_KEY", cfg.Generation.APIKeyEnv)
	}
	if cfg.Integrity.SweepSchedule != "0 * * * *" || !cfg.Integrity.CollectOrphans {
		t.Errorf("Integrity = %+v", cfg.Integrity)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if !cfg.Publish.UseSSL || cfg.Publish.Bucket != "bundles" {
		t.Errorf("Publish = %+v", cfg.Publish)
	}
}

func TestParse_EmptyConfig_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DataDir != ".showrunner" {
		t.Errorf("DataDir = %q, want .showrunner", cfg.DataDir)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.Path != "showrunner.db" {
		t.Errorf("Database.Path = %q, want showrunner.db", cfg.Database.Path)
	}
	if cfg.Autosave.Interval != 2*time.Second {
		t.Errorf("Autosave.Interval = %s, want 2s", cfg.Autosave.Interval)
	}
	if cfg.Generation.APIKeyEnv != "GEMINI_API_KEY" {
		t.Errorf("Generation.APIKeyEnv = %q, want GEMINI_API_KEY", cfg.Generation.APIKeyEnv)
	}
	if cfg.Integrity.SweepSchedule != "*/30 * * * *" {
		t.Errorf("Integrity.SweepSchedule = %q", cfg.Integrity.SweepSchedule)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
}

func TestParse_MySQLDefaults(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  driver: mysql\n  name: sr\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Host != "127.0.0.1" || cfg.Database.Port != 3306 || cfg.Database.User != "root" {
		t.Errorf("mysql defaults = %+v", cfg.Database)
	}
	if cfg.Database.Path != "" {
		t.Errorf("Database.Path = %q, want empty for mysql", cfg.Database.Path)
	}
}

func TestParse_MySQLMissingName(t *testing.T) {
	_, err := Parse([]byte("database:\n  driver: mysql\n"))
	if err == nil {
		t.Fatal("expected error for mysql without name")
	}
	if !strings.Contains(err.Error(), "database.name is required") {
		t.Errorf("error = %q", err)
	}
}

func TestParse_UnknownDriver(t *testing.T) {
	_, err := Parse([]byte("database:\n  driver: postgres\n"))
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), `"postgres" is not supported`) {
		t.Errorf("error = %q", err)
	}
}

func TestParse_MultipleValidationErrors(t *testing.T) {
	yaml := `
generation:
  provider: openai
server:
  port: 70000
publish:
  endpoint: minio.local:9000
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"generation.provider", "server.port", "publish.bucket"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("database: [unterminated"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error = %q", err)
	}
}

func TestSQLitePath(t *testing.T) {
	tests := []struct {
		dataDir string
		path    string
		want    string
	}{
		{".showrunner", "showrunner.db", filepath.Join(".showrunner", "showrunner.db")},
		{".showrunner", "/tmp/x.db", "/tmp/x.db"},
		{".showrunner", ":memory:", ":memory:"},
	}
	for _, tt := range tests {
		cfg := &Config{DataDir: tt.dataDir, Database: DatabaseConfig{Path: tt.path}}
		if got := cfg.SQLitePath(); got != tt.want {
			t.Errorf("SQLitePath(%q, %q) = %q, want %q", tt.dataDir, tt.path, got, tt.want)
		}
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "showrunner.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8181\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8181 {
		t.Errorf("Server.Port = %d, want 8181", cfg.Server.Port)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/showrunner.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q", err)
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
}

func TestLoadOrDefault_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrDefault(path); err == nil {
		t.Fatal("expected validation error to surface")
	}
}

func TestAPIKey(t *testing.T) {
	t.Setenv("SR_TEST_KEY", "secret")
	cfg := Default()
	cfg.Generation.APIKeyEnv = "SR_TEST_KEY"
	if got := cfg.APIKey(); got != "secret" {
		t.Errorf("APIKey() = %q, want secret", got)
	}
}
