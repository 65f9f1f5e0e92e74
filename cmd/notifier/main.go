package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SteelMorgan/chatlog-notifier/internal/config"
	"github.com/SteelMorgan/chatlog-notifier/internal/mapping"
	"github.com/SteelMorgan/chatlog-notifier/internal/metrics"
	"github.com/SteelMorgan/chatlog-notifier/internal/observability"
	"github.com/SteelMorgan/chatlog-notifier/internal/service"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	sessionID := observability.InitLogger(observability.LoggerConfig{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  10,
		MaxBackups: 3,
	})

	log.Info().
		Str("version", version).
		Str("chat_log", cfg.ChatLogPath).
		Msg("Starting chat log notifier")

	if err := run(cfg, sessionID); err != nil {
		log.Error().Err(err).Msg("Notifier stopped with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, sessionID string) error {
	// Initialize tracer (no-op when disabled)
	shutdownTracer, err := observability.InitTracer(observability.TracerConfig{
		Enabled:   cfg.TracingEnabled,
		Endpoint:  cfg.TracingEndpoint,
		Protocol:  cfg.TracingProtocol,
		Version:   version,
		SessionID: sessionID,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	} else {
		defer shutdownWithTimeout(shutdownTracer)
	}

	// Metrics
	collector := metrics.NewCollector()
	pipelineMetrics := metrics.NewPipeline(collector)
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, collector.Registry())
		if err := srv.Start(context.Background()); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer shutdownWithTimeout(srv.Stop)
	}

	rules, err := mapping.LoadRules(cfg.RulesPath)
	if err != nil {
		return err
	}

	resolver, err := service.BuildResolver(cfg, pipelineMetrics)
	if err != nil {
		return err
	}
	defer resolver.Close()

	sinks, closers, err := service.BuildSinks(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer closeAll(closers)

	svc, err := service.New(cfg, service.Deps{
		Rules:    rules,
		Resolver: resolver,
		Sinks:    sinks,
		Metrics:  pipelineMetrics,
	})
	if err != nil {
		return err
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				svc.Clear()
			}
		}
	}()

	log.Info().Msg("Notifier started, waiting for new chat lines")

	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info().Msg("Shutting down gracefully...")
	return nil
}

func shutdownWithTimeout(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Warn().Err(err).Msg("Shutdown error")
	}
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Close error")
		}
	}
}
