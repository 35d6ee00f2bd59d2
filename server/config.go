// Package server exposes the workflow engine over HTTP.
package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration, loaded from YAML with
// environment overrides.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`

	// LogJSON switches structured logging to JSON output.
	LogJSON bool `yaml:"log_json"`

	// TemplateFile optionally names a YAML file of workflow templates to
	// register at startup.
	TemplateFile string `yaml:"template_file"`

	Model ModelConfig `yaml:"model"`
	Store StoreConfig `yaml:"store"`
}

// ModelConfig selects the LLM provider backing the agents.
type ModelConfig struct {
	// Provider is one of "anthropic", "openai", "google" or "mock".
	Provider string `yaml:"provider"`

	// Name is the provider-specific model name.
	Name string `yaml:"name"`

	// APIKey authenticates against the provider. Falls back to the
	// provider's conventional environment variable when empty.
	APIKey string `yaml:"api_key"`
}

// StoreConfig selects the snapshot persistence backend.
type StoreConfig struct {
	// Driver is "sqlite", "mysql" or empty for in-memory.
	Driver string `yaml:"driver"`

	// DSN is the driver-specific connection string: a file path for
	// sqlite, a go-sql-driver DSN for mysql.
	DSN string `yaml:"dsn"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Addr:  ":8080",
		Model: ModelConfig{Provider: "mock"},
	}
}

// LoadConfig reads the YAML config file, then applies environment
// overrides. A missing path yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setIfEnv(&c.Addr, "DOB_ADDR")
	setIfEnv(&c.TemplateFile, "DOB_TEMPLATE_FILE")
	setIfEnv(&c.Model.Provider, "DOB_MODEL_PROVIDER")
	setIfEnv(&c.Model.Name, "DOB_MODEL_NAME")
	setIfEnv(&c.Model.APIKey, "DOB_MODEL_API_KEY")
	setIfEnv(&c.Store.Driver, "DOB_STORE_DRIVER")
	setIfEnv(&c.Store.DSN, "DOB_STORE_DSN")
	if v := os.Getenv("DOB_LOG_JSON"); v == "1" || v == "true" {
		c.LogJSON = true
	}

	// Provider-conventional key variables.
	if c.Model.APIKey == "" {
		switch c.Model.Provider {
		case "anthropic":
			c.Model.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			c.Model.APIKey = os.Getenv("OPENAI_API_KEY")
		case "google":
			c.Model.APIKey = os.Getenv("GOOGLE_API_KEY")
		}
	}
}

func setIfEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
