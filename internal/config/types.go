package config

// ExtractionMethod selects how facts are pulled out of user answers.
type ExtractionMethod string

const (
	// ExtractionPattern matches Korean date/amount/evidence patterns
	// directly against the answer text.
	ExtractionPattern ExtractionMethod = "pattern"
	// ExtractionTranscript sends the full Q/A transcript to the LLM in a
	// single JSON-mode call.
	ExtractionTranscript ExtractionMethod = "transcript"
)

// Config is the top-level lexintake configuration, corresponding to lexintake.yml.
type Config struct {
	Model          string `yaml:"model" koanf:"model"`
	EmbeddingModel string `yaml:"embedding_model" koanf:"embedding_model"`
	APIKeyEnv      string `yaml:"api_key_env" koanf:"api_key_env"`
	BaseURL        string `yaml:"base_url" koanf:"base_url"`

	DataDir      string `yaml:"data_dir" koanf:"data_dir"`
	KnowledgeDir string `yaml:"knowledge_dir" koanf:"knowledge_dir"`

	Port   int    `yaml:"port" koanf:"port"`
	APIKey string `yaml:"api_key" koanf:"api_key"`

	Extraction ExtractionConfig `yaml:"extraction" koanf:"extraction"`
	LLM        LLMConfig        `yaml:"llm" koanf:"llm"`
	Session    SessionConfig    `yaml:"session" koanf:"session"`
}

// ExtractionConfig controls fact-extraction strategy assignment.
type ExtractionConfig struct {
	// Method is the default strategy for new sessions.
	Method ExtractionMethod `yaml:"method" koanf:"method"`
	// ABTest randomly splits new sessions 50/50 between strategies,
	// overriding Method.
	ABTest bool `yaml:"ab_test" koanf:"ab_test"`
}

// LLMConfig holds tuning for the LLM gateway middleware.
type LLMConfig struct {
	MaxRetries     int     `yaml:"max_retries" koanf:"max_retries"`
	CacheTTLMin    int     `yaml:"cache_ttl_min" koanf:"cache_ttl_min"`
	RequestsPerMin int     `yaml:"requests_per_min" koanf:"requests_per_min"`
	TimeoutSec     int     `yaml:"timeout_sec" koanf:"timeout_sec"`
	Temperature    float32 `yaml:"temperature" koanf:"temperature"`
}

// SessionConfig holds conversation lifecycle settings.
type SessionConfig struct {
	// MaxStageDepth bounds how many stage executions a single turn may
	// trigger before the conversation is force-completed.
	MaxStageDepth int `yaml:"max_stage_depth" koanf:"max_stage_depth"`
	// MaxFieldAsks bounds how many times the same field is re-asked
	// before it is skipped.
	MaxFieldAsks int `yaml:"max_field_asks" koanf:"max_field_asks"`
	// ExpiryHours marks sessions idle longer than this as aborted.
	ExpiryHours int `yaml:"expiry_hours" koanf:"expiry_hours"`
}
