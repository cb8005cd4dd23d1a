package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = ".flowminds.yml"

// envPrefix marks environment overrides. A double underscore descends into
// a section: FLOWMINDS_QUOTA__DAILY_LIMIT sets quota.daily_limit.
const envPrefix = "FLOWMINDS_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (FLOWMINDS_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Lists replace the defaults outright; env values are comma-separated.
	if k.Exists("render.diagram_types") {
		cfg.Render.DiagramTypes = stringList(k.Get("render.diagram_types"))
	}

	return cfg, nil
}

func stringList(v any) []string {
	switch v := v.(type) {
	case string:
		return splitAndTrim(v)
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, splitAndTrim(fmt.Sprint(item))...)
		}
		return out
	case []string:
		var out []string
		for _, item := range v {
			out = append(out, splitAndTrim(item)...)
		}
		return out
	}
	return nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
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

var validProviders = map[ProviderType]bool{
	ProviderAnthropic: true,
	ProviderOpenAI:    true,
	ProviderOllama:    true,
}

var validBackends = map[QuotaBackend]bool{
	QuotaSQLite: true,
	QuotaRedis:  true,
	QuotaMemory: true,
}

var validEngines = map[string]bool{
	"graphviz": true,
	"mmdc":     true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of anthropic, openai, ollama", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must be non-negative")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}

	if !validBackends[c.Quota.Backend] {
		return fmt.Errorf("invalid quota.backend %q: must be one of sqlite, redis, memory", c.Quota.Backend)
	}
	if c.Quota.DailyLimit <= 0 {
		return fmt.Errorf("quota.daily_limit must be positive")
	}
	if c.Quota.Backend == QuotaRedis && c.Quota.Redis.Addr == "" {
		return fmt.Errorf("quota.redis.addr is required for the redis backend")
	}
	if c.Quota.Backend == QuotaSQLite && c.DataDir == "" {
		return fmt.Errorf("data_dir is required for the sqlite backend")
	}

	if !validEngines[c.Render.Engine] {
		return fmt.Errorf("invalid render.engine %q: must be graphviz or mmdc", c.Render.Engine)
	}
	if len(c.Render.DiagramTypes) == 0 {
		return fmt.Errorf("render.diagram_types must not be empty")
	}
	if c.Render.Concurrency < 0 {
		return fmt.Errorf("render.concurrency must be non-negative")
	}
	if _, err := c.RenderTimeout(); err != nil {
		return err
	}

	if c.Viewport.MinZoom <= 0 {
		return fmt.Errorf("viewport.min_zoom must be positive")
	}
	if c.Viewport.MaxZoom < c.Viewport.MinZoom {
		return fmt.Errorf("viewport.max_zoom must not be below min_zoom")
	}
	if c.Viewport.ZoomStep <= 0 {
		return fmt.Errorf("viewport.zoom_step must be positive")
	}

	return nil
}

// RenderTimeout parses render.timeout. An empty value means no timeout.
func (c *Config) RenderTimeout() (time.Duration, error) {
	if c.Render.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Render.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid render.timeout %q: %w", c.Render.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("render.timeout must be non-negative")
	}
	return d, nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}
