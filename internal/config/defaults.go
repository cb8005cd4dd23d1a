package config

import (
	"github.com/ziadkadry99/flowminds/internal/quota"
	"github.com/ziadkadry99/flowminds/internal/render"
	"github.com/ziadkadry99/flowminds/internal/sanitize"
	"github.com/ziadkadry99/flowminds/internal/viewport"
)

// defaultModels maps each provider to the model used when none is set.
var defaultModels = map[ProviderType]string{
	ProviderAnthropic: "claude-sonnet-4-5-20250929",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderOllama:    "llama3",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	vp := viewport.DefaultOptions()
	return &Config{
		Provider:          ProviderAnthropic,
		Model:             defaultModels[ProviderAnthropic],
		RequestsPerMinute: 30,
		APIURL:            "http://localhost:8080",
		DataDir:           ".flowminds",
		LogLevel:          "info",
		Server: ServerConfig{
			Port:            8080,
			AllowAllOrigins: true,
		},
		Quota: QuotaConfig{
			Backend:    QuotaSQLite,
			DailyLimit: quota.DefaultDailyLimit,
			Redis:      RedisConfig{Addr: "localhost:6379"},
		},
		Render: RenderConfig{
			Engine:       "graphviz",
			Theme:        "dark",
			FontFamily:   render.DefaultFontFamily,
			DiagramTypes: append([]string(nil), sanitize.DefaultTypes...),
			Concurrency:  4,
			Timeout:      "30s",
		},
		Viewport: ViewportConfig{
			MinZoom:  vp.MinZoom,
			MaxZoom:  vp.MaxZoom,
			ZoomStep: vp.ZoomScaleSensitivity,
		},
	}
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider ProviderType) string {
	if m, ok := defaultModels[provider]; ok {
		return m
	}
	return defaultModels[ProviderAnthropic]
}

// ViewportOptions converts the configured bounds into viewport options.
func (c *Config) ViewportOptions() viewport.Options {
	opts := viewport.DefaultOptions()
	opts.MinZoom = c.Viewport.MinZoom
	opts.MaxZoom = c.Viewport.MaxZoom
	opts.ZoomScaleSensitivity = c.Viewport.ZoomStep
	return opts
}
