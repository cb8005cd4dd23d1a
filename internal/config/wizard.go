package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to FlowMinds! Let's configure your diagram service.")
	fmt.Println()

	cfg := DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"anthropic", "openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: DefaultModel(cfg.Provider),
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	enginePrompt := promptui.Select{
		Label: "Select rendering engine",
		Items: []string{
			"graphviz - built in, flowcharts only",
			"mmdc     - mermaid-cli, every diagram type (needs Node.js)",
		},
	}
	engineIdx, _, err := enginePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("engine selection: %w", err)
	}
	cfg.Render.Engine = []string{"graphviz", "mmdc"}[engineIdx]

	backendPrompt := promptui.Select{
		Label: "Where should daily quotas be stored?",
		Items: []string{string(QuotaSQLite), string(QuotaRedis), string(QuotaMemory)},
	}
	_, backendStr, err := backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("quota backend: %w", err)
	}
	cfg.Quota.Backend = QuotaBackend(backendStr)

	if cfg.Quota.Backend == QuotaRedis {
		addrPrompt := promptui.Prompt{
			Label:   "Redis address",
			Default: cfg.Quota.Redis.Addr,
		}
		if cfg.Quota.Redis.Addr, err = addrPrompt.Run(); err != nil {
			return nil, fmt.Errorf("redis address: %w", err)
		}
	}

	limitPrompt := promptui.Prompt{
		Label:    "Daily generations per client",
		Default:  strconv.Itoa(cfg.Quota.DailyLimit),
		Validate: validatePositiveInt,
	}
	limitStr, err := limitPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("daily limit: %w", err)
	}
	cfg.Quota.DailyLimit, _ = strconv.Atoi(strings.TrimSpace(limitStr))

	typesPrompt := promptui.Prompt{
		Label:   "Diagram keywords (comma-separated, leave blank for defaults)",
		Default: "",
	}
	typesStr, err := typesPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("diagram keywords: %w", err)
	}
	if types := splitAndTrim(typesStr); len(types) > 0 {
		cfg.Render.DiagramTypes = types
	}

	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before running flowminds server.\n", envVar)
	}
	if cfg.Render.Engine == "mmdc" {
		fmt.Println("Note: install mermaid-cli with `npm install -g @mermaid-js/mermaid-cli`.")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}

// splitAndTrim splits a comma-separated string and drops empty entries.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
