package server

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Addr != ":8080" {
			t.Errorf("Addr = %q", cfg.Addr)
		}
		if cfg.Model.Provider != "mock" {
			t.Errorf("Provider = %q", cfg.Model.Provider)
		}
	})

	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
addr: ":9090"
log_json: true
template_file: templates.yaml
model:
  provider: openai
  name: gpt-4o
store:
  driver: sqlite
  dsn: /var/lib/dob/snapshots.db
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Addr != ":9090" || !cfg.LogJSON {
			t.Errorf("cfg = %+v", cfg)
		}
		if cfg.Model.Provider != "openai" || cfg.Model.Name != "gpt-4o" {
			t.Errorf("model = %+v", cfg.Model)
		}
		if cfg.Store.Driver != "sqlite" || cfg.Store.DSN != "/var/lib/dob/snapshots.db" {
			t.Errorf("store = %+v", cfg.Store)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("DOB_ADDR", ":7070")
		t.Setenv("DOB_MODEL_PROVIDER", "anthropic")
		t.Setenv("ANTHROPIC_API_KEY", "sk-test")

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Addr != ":7070" {
			t.Errorf("Addr = %q", cfg.Addr)
		}
		if cfg.Model.Provider != "anthropic" {
			t.Errorf("Provider = %q", cfg.Model.Provider)
		}
		if cfg.Model.APIKey != "sk-test" {
			t.Errorf("APIKey not taken from provider env: %q", cfg.Model.APIKey)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig("/no/such/config.yaml"); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
