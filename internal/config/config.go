package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (LEXINTAKE_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: LEXINTAKE_MODEL -> model,
	// LEXINTAKE_LLM.TIMEOUT_SEC -> llm.timeout_sec, etc.
	if err := k.Load(env.Provider("LEXINTAKE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "LEXINTAKE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validMethods is the set of recognized extraction method values.
var validMethods = map[ExtractionMethod]bool{
	ExtractionPattern:    true,
	ExtractionTranscript: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("embedding_model is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.KnowledgeDir == "" {
		return fmt.Errorf("knowledge_dir is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if !validMethods[c.Extraction.Method] {
		return fmt.Errorf("invalid extraction method %q: must be pattern or transcript", c.Extraction.Method)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.LLM.TimeoutSec <= 0 {
		return fmt.Errorf("timeout_sec must be positive")
	}
	if c.Session.MaxStageDepth <= 0 {
		return fmt.Errorf("max_stage_depth must be positive")
	}
	if c.Session.MaxFieldAsks <= 0 {
		return fmt.Errorf("max_field_asks must be positive")
	}
	return nil
}

// ResolveAPIKey returns the OpenAI API key from the configured
// environment variable.
func (c *Config) ResolveAPIKey() (string, error) {
	envVar := c.APIKeyEnv
	if envVar == "" {
		envVar = "OPENAI_API_KEY"
	}
	key := os.Getenv(envVar)
	if key == "" {
		return "", fmt.Errorf("API key not set: export %s", envVar)
	}
	return key, nil
}
