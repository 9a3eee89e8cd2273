package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to the given path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to lexintake! Let's configure your intake service.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Chat model.
	modelPrompt := promptui.Select{
		Label: "Select chat model",
		Items: []string{"gpt-4o", "gpt-4o-mini", "gpt-4.1"},
	}
	_, model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model selection: %w", err)
	}
	cfg.Model = model

	// 2. Extraction strategy.
	methodPrompt := promptui.Select{
		Label: "Select fact-extraction strategy",
		Items: []string{
			"transcript — one LLM call over the full conversation (recommended)",
			"pattern    — Korean regex patterns with focused LLM fallbacks",
		},
	}
	methodIdx, _, err := methodPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("strategy selection: %w", err)
	}
	methods := []ExtractionMethod{ExtractionTranscript, ExtractionPattern}
	cfg.Extraction.Method = methods[methodIdx]

	// 3. A/B split.
	abPrompt := promptui.Select{
		Label: "Split new sessions 50/50 between both strategies (A/B test)?",
		Items: []string{"no", "yes"},
	}
	abIdx, _, err := abPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("a/b selection: %w", err)
	}
	cfg.Extraction.ABTest = abIdx == 1

	// 4. Knowledge base directory.
	knowledgePrompt := promptui.Prompt{
		Label:   "Knowledge base directory (YAML documents)",
		Default: cfg.KnowledgeDir,
	}
	if cfg.KnowledgeDir, err = knowledgePrompt.Run(); err != nil {
		return nil, fmt.Errorf("knowledge dir: %w", err)
	}

	// 5. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory (SQLite database and vector index)",
		Default: cfg.DataDir,
	}
	if cfg.DataDir, err = dataPrompt.Run(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	// 6. Port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	// 7. API key for callers.
	apiKeyPrompt := promptui.Prompt{
		Label:   "Static API key clients must send as X-API-Key (blank to disable)",
		Default: "",
	}
	if cfg.APIKey, err = apiKeyPrompt.Run(); err != nil {
		return nil, fmt.Errorf("api key: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, err
	}

	fmt.Println()
	fmt.Printf("Configuration written to %s\n", path)
	fmt.Printf("Next: put your knowledge YAML files under %s and run `lexintake index`.\n", cfg.KnowledgeDir)
	return cfg, nil
}
