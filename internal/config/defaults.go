package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Model:          "gpt-4o",
		EmbeddingModel: "text-embedding-3-small",
		APIKeyEnv:      "OPENAI_API_KEY",
		DataDir:        "data",
		KnowledgeDir:   "knowledge",
		Port:           8080,
		Extraction: ExtractionConfig{
			Method: ExtractionTranscript,
			ABTest: false,
		},
		LLM: LLMConfig{
			MaxRetries:     3,
			CacheTTLMin:    60,
			RequestsPerMin: 60,
			TimeoutSec:     30,
			Temperature:    0.1,
		},
		Session: SessionConfig{
			MaxStageDepth: 50,
			MaxFieldAsks:  5,
			ExpiryHours:   24,
		},
	}
}
