package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowminds/internal/generate"
	"github.com/ziadkadry99/flowminds/internal/quota"
	"github.com/ziadkadry99/flowminds/internal/server"
	"github.com/ziadkadry99/flowminds/internal/viewer"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the FlowMinds HTTP API and live viewer",
	Long: `Starts the FlowMinds server: diagram generation with a per-client daily
quota, stateless rendering, and a websocket viewer with pan and zoom.`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serverPort > 0 {
		cfg.Server.Port = serverPort
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	store, err := openQuotaStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if pruner, ok := store.(*quota.SQLiteStore); ok {
		go pruneQuota(ctx, pruner, logger)
	}

	renderTimeout, _ := cfg.RenderTimeout()
	sanitizer := newSanitizer(cfg)

	srv := server.New(server.Config{
		Port:     cfg.Server.Port,
		AllowAll: cfg.Server.AllowAllOrigins,
	}, logger)

	generate.RegisterRoutes(srv.API(), &generate.Handler{
		Generator: generate.NewService(provider,
			generate.WithModel(cfg.Model),
			generate.WithSanitizer(sanitizer),
			generate.WithLogger(logger.WithPrefix("generate")),
		),
		Limiter:       quota.NewLimiter(store, cfg.Quota.DailyLimit),
		Engine:        engine,
		Sanitizer:     sanitizer,
		Log:           logger,
		RenderTimeout: renderTimeout,
	})
	viewer.RegisterRoutes(srv.Router(), viewer.NewHandler(viewer.SessionConfig{
		Engine:    engine,
		Sanitizer: sanitizer,
		Viewport:  cfg.ViewportOptions(),
		Logger:    logger.WithPrefix("viewer"),
	}))

	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info(fmt.Sprintf("flowminds server %s starting", Version),
		"port", cfg.Server.Port,
		"provider", provider.Name(),
		"model", cfg.Model,
		"engine", cfg.Render.Engine,
		"quota", cfg.Quota.Backend,
		"daily_limit", cfg.Quota.DailyLimit,
	)

	return srv.Start()
}

// pruneQuota drops expired usage rows once an hour.
func pruneQuota(ctx context.Context, store *quota.SQLiteStore, logger *log.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.Prune(ctx, now)
			if err != nil {
				logger.Warn("pruning quota usage", "err", err)
				continue
			}
			if n > 0 {
				logger.Debug("pruned quota usage", "rows", n)
			}
		}
	}
}
