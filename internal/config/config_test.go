package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ziadkadry99/flowminds/internal/sanitize"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderAnthropic {
		t.Errorf("expected default provider %q, got %q", ProviderAnthropic, cfg.Provider)
	}
	if cfg.Quota.Backend != QuotaSQLite {
		t.Errorf("expected default quota backend %q, got %q", QuotaSQLite, cfg.Quota.Backend)
	}
	if cfg.Quota.DailyLimit != 10 {
		t.Errorf("expected default daily_limit 10, got %d", cfg.Quota.DailyLimit)
	}
	if cfg.Render.Engine != "graphviz" {
		t.Errorf("expected default engine graphviz, got %q", cfg.Render.Engine)
	}
	if len(cfg.Render.DiagramTypes) != len(sanitize.DefaultTypes) {
		t.Errorf("expected %d diagram types, got %d", len(sanitize.DefaultTypes), len(cfg.Render.DiagramTypes))
	}

	// The defaults must not alias the package-level keyword list.
	cfg.Render.DiagramTypes[0] = "changed"
	if sanitize.DefaultTypes[0] == "changed" {
		t.Error("DefaultConfig aliases sanitize.DefaultTypes")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.flowminds.yml")

	original := DefaultConfig()
	original.Provider = ProviderOpenAI
	original.Model = "gpt-4o"
	original.Server.Port = 9090
	original.Quota.Backend = QuotaRedis
	original.Quota.Redis.Addr = "redis:6379"
	original.Render.DiagramTypes = []string{"graph", "flowchart"}
	original.Viewport.MaxZoom = 4

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.Model != original.Model {
		t.Errorf("model: got %q, want %q", loaded.Model, original.Model)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("server.port: got %d, want 9090", loaded.Server.Port)
	}
	if loaded.Quota.Backend != QuotaRedis || loaded.Quota.Redis.Addr != "redis:6379" {
		t.Errorf("quota: got %+v", loaded.Quota)
	}
	if loaded.Viewport.MaxZoom != 4 {
		t.Errorf("viewport.max_zoom: got %v, want 4", loaded.Viewport.MaxZoom)
	}
	if len(loaded.Render.DiagramTypes) != 2 {
		t.Fatalf("diagram_types: got %v", loaded.Render.DiagramTypes)
	}
	for i, v := range loaded.Render.DiagramTypes {
		if v != original.Render.DiagramTypes[i] {
			t.Errorf("diagram_types[%d]: got %q, want %q", i, v, original.Render.DiagramTypes[i])
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Provider != ProviderAnthropic {
		t.Errorf("expected default provider, got %q", cfg.Provider)
	}
}

func TestLoadPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.yml")
	if err := os.WriteFile(path, []byte("quota:\n  daily_limit: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Quota.DailyLimit != 3 {
		t.Errorf("daily_limit: got %d, want 3", cfg.Quota.DailyLimit)
	}
	if cfg.Quota.Backend != QuotaSQLite {
		t.Errorf("unset backend should keep default, got %q", cfg.Quota.Backend)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("unset port should keep default, got %d", cfg.Server.Port)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("FLOWMINDS_PROVIDER", "openai")
	t.Setenv("FLOWMINDS_QUOTA__DAILY_LIMIT", "25")
	t.Setenv("FLOWMINDS_SERVER__ALLOW_ALL_ORIGINS", "false")
	t.Setenv("FLOWMINDS_RENDER__DIAGRAM_TYPES", "graph, pie")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != ProviderOpenAI {
		t.Errorf("env override failed: got %q, want %q", loaded.Provider, ProviderOpenAI)
	}
	if loaded.Quota.DailyLimit != 25 {
		t.Errorf("nested env override failed: got %d", loaded.Quota.DailyLimit)
	}
	if loaded.Server.AllowAllOrigins {
		t.Error("allow_all_origins should be overridden to false")
	}
	if len(loaded.Render.DiagramTypes) != 2 || loaded.Render.DiagramTypes[1] != "pie" {
		t.Errorf("diagram_types: got %v", loaded.Render.DiagramTypes)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"FLOWMINDS_PROVIDER":           "provider",
		"FLOWMINDS_API_KEY":            "api_key",
		"FLOWMINDS_QUOTA__REDIS__ADDR": "quota.redis.addr",
		"FLOWMINDS_VIEWPORT__MIN_ZOOM": "viewport.min_zoom",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty provider", func(c *Config) { c.Provider = "" }},
		{"unknown provider", func(c *Config) { c.Provider = "google" }},
		{"empty model", func(c *Config) { c.Model = "" }},
		{"negative rpm", func(c *Config) { c.RequestsPerMinute = -1 }},
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"unknown backend", func(c *Config) { c.Quota.Backend = "etcd" }},
		{"zero daily limit", func(c *Config) { c.Quota.DailyLimit = 0 }},
		{"redis without addr", func(c *Config) { c.Quota.Backend = QuotaRedis; c.Quota.Redis.Addr = "" }},
		{"sqlite without data dir", func(c *Config) { c.DataDir = "" }},
		{"unknown engine", func(c *Config) { c.Render.Engine = "kroki" }},
		{"no diagram types", func(c *Config) { c.Render.DiagramTypes = nil }},
		{"negative concurrency", func(c *Config) { c.Render.Concurrency = -2 }},
		{"bad timeout", func(c *Config) { c.Render.Timeout = "soon" }},
		{"negative timeout", func(c *Config) { c.Render.Timeout = "-1s" }},
		{"zero min zoom", func(c *Config) { c.Viewport.MinZoom = 0 }},
		{"max below min", func(c *Config) { c.Viewport.MinZoom = 2; c.Viewport.MaxZoom = 1 }},
		{"zero zoom step", func(c *Config) { c.Viewport.ZoomStep = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateMemoryBackendWithoutDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Quota.Backend = QuotaMemory
	cfg.DataDir = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("memory backend needs no data dir, got: %v", err)
	}
}

func TestRenderTimeout(t *testing.T) {
	cfg := DefaultConfig()
	d, err := cfg.RenderTimeout()
	if err != nil || d != 30*time.Second {
		t.Errorf("RenderTimeout = %v, %v", d, err)
	}
	cfg.Render.Timeout = ""
	if d, _ := cfg.RenderTimeout(); d != 0 {
		t.Errorf("empty timeout = %v, want 0", d)
	}
}

func TestViewportOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Viewport = ViewportConfig{MinZoom: 0.5, MaxZoom: 3, ZoomStep: 0.1}
	opts := cfg.ViewportOptions()
	if opts.MinZoom != 0.5 || opts.MaxZoom != 3 || opts.ZoomScaleSensitivity != 0.1 {
		t.Errorf("options = %+v", opts)
	}
	if !opts.Fit || !opts.Center || opts.DblClickZoomEnabled {
		t.Errorf("non-configurable options changed: %+v", opts)
	}
}

func TestDefaultModel(t *testing.T) {
	if got := DefaultModel(ProviderOllama); got != "llama3" {
		t.Errorf("DefaultModel(ollama) = %q", got)
	}
	if got := DefaultModel("unknown"); got != DefaultModel(ProviderAnthropic) {
		t.Errorf("unknown provider should fall back, got %q", got)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderOllama, ""},
	}
	for _, tt := range tests {
		got := APIKeyEnvVar(tt.provider)
		if got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"graph", []string{"graph"}},
		{"", nil},
		{"  ,  , ", nil},
	}
	for _, tt := range tests {
		got := splitAndTrim(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitAndTrim(%q) len = %d, want %d", tt.input, len(got), len(tt.want))
			continue
		}
		for i, v := range got {
			if v != tt.want[i] {
				t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
			}
		}
	}
}
