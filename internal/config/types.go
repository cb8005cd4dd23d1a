package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
)

// QuotaBackend selects where daily usage counters live.
type QuotaBackend string

const (
	QuotaSQLite QuotaBackend = "sqlite"
	QuotaRedis  QuotaBackend = "redis"
	QuotaMemory QuotaBackend = "memory"
)

// Config is the top-level flowminds configuration, corresponding to .flowminds.yml.
type Config struct {
	Provider          ProviderType   `yaml:"provider" koanf:"provider"`
	Model             string         `yaml:"model" koanf:"model"`
	APIKey            string         `yaml:"api_key,omitempty" koanf:"api_key"`
	BaseURL           string         `yaml:"base_url,omitempty" koanf:"base_url"`
	RequestsPerMinute int            `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	APIURL            string         `yaml:"api_url" koanf:"api_url"`
	DataDir           string         `yaml:"data_dir" koanf:"data_dir"`
	LogLevel          string         `yaml:"log_level" koanf:"log_level"`
	Server            ServerConfig   `yaml:"server" koanf:"server"`
	Quota             QuotaConfig    `yaml:"quota" koanf:"quota"`
	Render            RenderConfig   `yaml:"render" koanf:"render"`
	Viewport          ViewportConfig `yaml:"viewport" koanf:"viewport"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// QuotaConfig holds per-client daily limit settings.
type QuotaConfig struct {
	Backend    QuotaBackend `yaml:"backend" koanf:"backend"`
	DailyLimit int          `yaml:"daily_limit" koanf:"daily_limit"`
	Redis      RedisConfig  `yaml:"redis" koanf:"redis"`
}

// RedisConfig locates the redis quota backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" koanf:"addr"`
	Password string `yaml:"password,omitempty" koanf:"password"`
	DB       int    `yaml:"db" koanf:"db"`
}

// RenderConfig selects and tunes the diagram engine.
type RenderConfig struct {
	Engine       string   `yaml:"engine" koanf:"engine"`
	MMDCPath     string   `yaml:"mmdc_path,omitempty" koanf:"mmdc_path"`
	Theme        string   `yaml:"theme" koanf:"theme"`
	FontFamily   string   `yaml:"font_family" koanf:"font_family"`
	DiagramTypes []string `yaml:"diagram_types" koanf:"diagram_types"`
	Concurrency  int      `yaml:"concurrency" koanf:"concurrency"`
	// Timeout bounds one stateless render, e.g. "30s".
	Timeout string `yaml:"timeout" koanf:"timeout"`
}

// ViewportConfig holds the interactive zoom bounds.
type ViewportConfig struct {
	MinZoom  float64 `yaml:"min_zoom" koanf:"min_zoom"`
	MaxZoom  float64 `yaml:"max_zoom" koanf:"max_zoom"`
	ZoomStep float64 `yaml:"zoom_step" koanf:"zoom_step"`
}
