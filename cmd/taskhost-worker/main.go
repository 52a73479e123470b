package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ngnhng/taskhost/config"
	"github.com/ngnhng/taskhost/examples/order"
	"github.com/ngnhng/taskhost/internal/natz"
	"github.com/ngnhng/taskhost/logger"
	"github.com/ngnhng/taskhost/worker"
)

func main() {
	var (
		natsURL = flag.String("nats-url", "", "NATS server URL (overrides NATS_URL)")
		logMode = flag.String("log-mode", "", "log mode: debug or release (overrides LOG_MODE)")
	)
	flag.Parse()

	if err := run(*natsURL, *logMode); err != nil {
		slog.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
}

func run(natsURL, logMode string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if natsURL != "" {
		cfg.NATS.URL = natsURL
	}
	if logMode != "" {
		cfg.Logger.Mode = logMode
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(ctx, &logger.Options{
		Mode:        logger.Mode(cfg.Logger.Mode),
		Exporter:    cfg.Logger.OTELExporter,
		ServiceName: cfg.Service,
	})
	if err != nil {
		return err
	}
	if log.LoggerProvider != nil {
		defer func() { _ = log.Shutdown(context.Background()) }()
	}

	conn, err := natz.Connect(cfg, log.Slogger)
	if err != nil {
		return err
	}
	defer conn.Close()

	w, err := worker.New(conn, &worker.Options{
		Logger:      log.Slogger,
		Propagation: cfg.Propagation,
	})
	if err != nil {
		return err
	}
	if err := order.Register(w); err != nil {
		return err
	}

	return w.Run(ctx)
}
