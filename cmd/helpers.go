package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/ziadkadry99/flowminds/internal/config"
	"github.com/ziadkadry99/flowminds/internal/db"
	"github.com/ziadkadry99/flowminds/internal/llm"
	"github.com/ziadkadry99/flowminds/internal/logging"
	"github.com/ziadkadry99/flowminds/internal/quota"
	"github.com/ziadkadry99/flowminds/internal/render"
	"github.com/ziadkadry99/flowminds/internal/sanitize"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `flowminds init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger writes to stderr so stdout stays free for command output and
// the MCP protocol. --verbose wins over the configured level.
func newLogger(cfg *config.Config) *log.Logger {
	level := logging.ParseLevel(cfg.LogLevel)
	if verbose {
		level = log.DebugLevel
	}
	return logging.New(os.Stderr, level)
}

func newSanitizer(cfg *config.Config) *sanitize.Sanitizer {
	return sanitize.New(cfg.Render.DiagramTypes)
}

func newEngine(cfg *config.Config) (render.Engine, error) {
	engine, err := render.NewEngine(render.EngineConfig{
		Name:       cfg.Render.Engine,
		MMDCPath:   cfg.Render.MMDCPath,
		Theme:      cfg.Render.Theme,
		FontFamily: cfg.Render.FontFamily,
	})
	if err != nil {
		return nil, fmt.Errorf("creating render engine: %w", err)
	}
	return engine, nil
}

// closeEngine releases engines that hold resources, such as the mmdc
// scratch directory.
func closeEngine(engine render.Engine) {
	if c, ok := engine.(io.Closer); ok {
		c.Close()
	}
}

func newProvider(cfg *config.Config) (llm.Provider, error) {
	p, err := llm.New(llm.Config{
		Provider:          string(cfg.Provider),
		Model:             cfg.Model,
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		RequestsPerMinute: cfg.RequestsPerMinute,
	})
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	return p, nil
}

// openQuotaStore opens the configured usage store. The sqlite store lives
// at <data_dir>/flowminds.db.
func openQuotaStore(ctx context.Context, cfg *config.Config) (quota.Store, error) {
	switch cfg.Quota.Backend {
	case config.QuotaMemory:
		return quota.NewMemoryStore(), nil
	case config.QuotaRedis:
		store, err := quota.NewRedisStore(ctx, quota.RedisConfig{
			Addr:     cfg.Quota.Redis.Addr,
			Password: cfg.Quota.Redis.Password,
			DB:       cfg.Quota.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		database, err := db.Open(filepath.Join(cfg.DataDir, "flowminds.db"))
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return quota.NewSQLiteStore(database), nil
	}
}
