package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jjtg/htmx-demo/geo"
	"github.com/jjtg/htmx-demo/logger"
	"github.com/jjtg/htmx-demo/middleware"
	"github.com/jjtg/htmx-demo/notifier"
	"github.com/jjtg/htmx-demo/server"
	"github.com/jjtg/htmx-demo/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:          "htmx-demo",
		Short:        "Serve the htmx demo page, data fragment and utility stylesheet",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}
			if debug {
				cfg.LogLevel = "debug"
			}
			if err := logger.Setup(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.json", "path to a JSON or YAML config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func run(ctx context.Context, cfg *Config) error {
	logger.Info("Starting htmx-demo", "addr", cfg.ListenAddr, "metrics", cfg.MetricsAddr, "admin", cfg.AdminAddr)

	var st store.Storer
	if cfg.RedisAddr != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rs, err := store.NewRedisStore(dialCtx, cfg.RedisAddr, cfg.RedisPassword)
		cancel()
		if err != nil {
			return err
		}
		st = rs
		logger.Info("Distributed state initialized (Redis)", "addr", cfg.RedisAddr)
	} else {
		st = store.NewLocalStore()
		logger.Info("In-memory state initialized (Local fallback)")
	}
	defer st.Close()

	var locator middleware.CountryLocator
	if cfg.GeoIPDBPath != "" {
		loc, err := geo.Open(cfg.GeoIPDBPath)
		if err != nil {
			logger.Warn("GeoIP database unavailable, access logs will not carry countries", "path", cfg.GeoIPDBPath, "err", err)
		} else {
			defer loc.Close()
			locator = loc
		}
	}

	alerts := notifier.NewWebhook(cfg.WebhookURL)
	defer alerts.Wait()

	srv, err := server.New(server.Options{
		Addr:         cfg.ListenAddr,
		MetricsAddr:  cfg.MetricsAddr,
		AdminAddr:    cfg.AdminAddr,
		RateLimit:    cfg.RateLimit,
		RateBurst:    cfg.RateBurst,
		MaxConnPerIP: cfg.MaxConnPerIP,
		Blocklist:    cfg.Blocklist,
		Store:        st,
		Locator:      locator,
		Alerter:      alerts,
	})
	if err != nil {
		return err
	}
	if err := srv.Run(ctx); err != nil {
		logger.Error("Server stopped with error", "err", err)
		return err
	}
	logger.Info("htmx-demo stopped")
	return nil
}
