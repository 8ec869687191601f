package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	gwhttp "github.com/mcp-fleet/gateway/internal/adapter/inbound/http"
	"github.com/mcp-fleet/gateway/internal/catalog"
	"github.com/mcp-fleet/gateway/internal/config"
	"github.com/mcp-fleet/gateway/internal/metricsstore"
	"github.com/mcp-fleet/gateway/internal/native"
	"github.com/mcp-fleet/gateway/internal/router"
	"github.com/mcp-fleet/gateway/internal/session"
	"github.com/mcp-fleet/gateway/internal/tracing"
	"github.com/mcp-fleet/gateway/internal/transportclient"
)

var devMode bool
var dumpConfig bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the gateway server",
	Long: `Start the MCP gateway's HTTP front-end: builds the initial catalog
from the configured upstreams, then serves JSON-RPC, push, and admin
endpoints until interrupted.

Examples:
  mcp-gateway start
  mcp-gateway --config /path/to/mcp-gateway.yaml start
  mcp-gateway start --dev
  mcp-gateway start --dump-config`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (verbose logging, pretty-printed trace export)")
	startCmd.Flags().BoolVar(&dumpConfig, "dump-config", false, "Print the effective config as YAML (after defaults and env overrides) and exit without starting the server")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if dumpConfig {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal effective config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	logLevel := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, logger)
}

// run wires every component and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.GatewayConfig, logger *slog.Logger) error {
	shutdownTracing, err := tracing.Init(ctx, Version, cfg.DevMode)
	if err != nil {
		logger.Warn("failed to initialize tracing, continuing without spans", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	client := transportclient.New()

	cat := catalog.New(cfg.Upstreams, client, cfg.Catalog.RefreshTTL, logger)

	metrics := gwhttp.NewMetrics(prometheus.DefaultRegisterer)
	refreshRecorders := catalog.MultiRefreshRecorder{gwhttp.RefreshRecorder{Metrics: metrics}}

	var store *metricsstore.Store
	if cfg.Metrics.Enabled {
		store, err = metricsstore.Open(cfg.Metrics.Path, logger)
		if err != nil {
			logger.Warn("failed to open metrics store, continuing without history", "error", err, "path", cfg.Metrics.Path)
		} else {
			defer func() { _ = store.Close() }()
			refreshRecorders = append(refreshRecorders, metricsstore.CatalogSink{Store: store})
		}
	}
	cat.SetHistoryRecorder(refreshRecorders)

	logger.Info("building initial catalog", "upstreams", len(cfg.Upstreams))
	if err := cat.Refresh(ctx); err != nil {
		logger.Warn("initial catalog refresh failed, starting with an empty catalog", "error", err)
	}

	nativeTools := native.NewRegistry(cat, client, cfg.Catalog.MemoryTool, logger)
	if store != nil {
		nativeTools.SetHistory(metricsstore.NativeHistorySource{Store: store})
	}

	dispatcher := router.New(cat, client, nativeTools, logger)
	if store != nil {
		dispatcher.SetHistoryRecorder(metricsstore.DispatcherSink{Store: store})
	}

	sessions := session.NewRegistry(cfg.Push.SessionIdleTimeout)
	sessions.StartIdleSweep(0)

	serverOpts := []gwhttp.Option{
		gwhttp.WithLogger(logger),
		gwhttp.WithPushQueueSize(cfg.Push.QueueSize),
		gwhttp.WithPushKeepalive(cfg.Push.IdleKeepalive),
	}
	if store != nil {
		serverOpts = append(serverOpts, gwhttp.WithRefreshHistory(metricsstore.NativeHistorySource{Store: store}))
	}

	server := gwhttp.NewServer(cfg.Server.HTTPAddr, cat, nativeTools, dispatcher, sessions, metrics, Version, serverOpts...)

	logger.Info("mcp-gateway starting",
		"version", Version,
		"addr", cfg.Server.HTTPAddr,
		"upstreams", len(cfg.Upstreams),
		"dev_mode", cfg.DevMode,
	)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("http server exited with error: %w", err)
	}
	logger.Info("mcp-gateway stopped")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
