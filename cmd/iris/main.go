// Package main is the entry point for the Communicate Iris bridge: it
// consumes chat protocol events, normalizes them against the clinical
// identity caches and drives the twin behaviour pipelines.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/config"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/natsclient"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/service"
)

const (
	version = "0.1.0"
	appName = "iris"
)

func main() {
	if err := run(); err != nil {
		slog.Error("service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath      = flag.String("config", "", "path to JSON configuration file")
		logLevel        = flag.String("log-level", "info", "log level: debug, info, warn, error")
		logFormat       = flag.String("log-format", "json", "log format: json or text")
		validateOnly    = flag.Bool("validate", false, "validate configuration and exit")
		showVersion     = flag.Bool("version", false, "print version and exit")
		shutdownTimeout = flag.Duration("shutdown-timeout", 30*time.Second, "graceful shutdown timeout")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", appName, version)
		return nil
	}

	logger := setupLogger(*logLevel, *logFormat)
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *validateOnly {
		logger.Info("configuration is valid", "path", *configPath)
		return nil
	}

	logger.Info("starting", "version", version, "environment", cfg.Service.Environment)

	client, err := natsclient.New(cfg.NATS.URLs,
		natsclient.WithLogger(logger),
		natsclient.WithName(cfg.Service.Name),
		natsclient.WithReconnect(cfg.NATS.MaxReconnects, cfg.NATS.ReconnectWait),
		natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password),
		natsclient.WithToken(cfg.NATS.Token),
	)
	if err != nil {
		return err
	}

	dir := natsclient.NewRoomDirectoryClient(client, "")
	broker := natsclient.NewResourceBrokerClient(client, "")

	svc, err := service.New(cfg, dir, broker,
		service.WithLogger(logger),
		service.WithNATSClient(client),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")
	return svc.Stop(*shutdownTimeout)
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: level == "debug",
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		"service", appName,
		"version", version,
		"pid", os.Getpid(),
	)
}
