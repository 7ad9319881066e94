// Command mirkvd runs the mirkv key/value server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mirkv/mirkv/internal/metrics"
	"github.com/mirkv/mirkv/internal/server"
	"github.com/mirkv/mirkv/pkg/config"
	"github.com/mirkv/mirkv/pkg/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the "mirkvd" command tree. "serve" is the only
// subcommand today; it is kept separate from the root so future
// subcommands (e.g. a one-shot config check) have somewhere to live.
func newRootCmd() *cobra.Command {
	cfg := config.NewServerConfig()

	root := &cobra.Command{
		Use:   "mirkvd",
		Short: "mirkvd serves the mirkv key/value protocol over TCP",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mirkvd server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, cfg)
		},
	}

	flags := serveCmd.Flags()
	flags.StringVar(&cfg.Host, "host", cfg.Host, "Host address to bind to")
	flags.IntVar(&cfg.Port, "port", cfg.Port, "TCP port to listen on")
	flags.IntVar(&cfg.MetricsPort, "metrics-port", cfg.MetricsPort, "Prometheus metrics port")
	flags.IntVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "Read timeout in seconds (validated only; connections use a fixed 30s read deadline)")
	flags.IntVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "Write timeout in seconds (validated only; connections use a fixed 10s write deadline)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)
	return root
}

func runServe(cmd *cobra.Command, cfg *config.ServerConfig) error {
	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	// Environment variables must not override flags passed explicitly, so
	// remember those flag values and re-apply them after ApplyEnv.
	explicit := make(map[string]string)
	for _, name := range []string{"host", "port", "metrics-port", "read-timeout", "write-timeout", "log-level"} {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			explicit[name] = f.Value.String()
		}
	}
	cfg.ApplyEnv()
	for name, value := range explicit {
		if err := cmd.Flags().Set(name, value); err != nil {
			return fmt.Errorf("apply --%s: %w", name, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	metricsSrv := metrics.NewServer(cfg.MetricsAddress(), reg)

	st := store.New()
	srv := server.New(cfg.Address(), st, m, log)

	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil {
			log.Error("metrics server error", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var shutdownErr error
	if err := srv.Shutdown(ctx); err != nil {
		shutdownErr = err
	}

	metricsCtx, metricsCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer metricsCancel()
	if err := metricsSrv.Shutdown(metricsCtx); err != nil && shutdownErr == nil {
		shutdownErr = err
	}

	return shutdownErr
}

func newLogger(level string) (*zap.Logger, error) {
	var zapLevel zap.AtomicLevel
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zapLevel
	return cfg.Build()
}
