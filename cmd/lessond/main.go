package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lessonchain/config"
	"lessonchain/core"
	"lessonchain/core/events"
	"lessonchain/observability"
	"lessonchain/observability/logging"
	"lessonchain/rpc"
	"lessonchain/services/indexer"
	"lessonchain/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	listenFlag := flag.String("listen", "", "Override the JSON-RPC listen address")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if *listenFlag != "" {
		cfg.ListenAddress = *listenFlag
	}

	logger := logging.SetupWithOptions("lessond", cfg.Environment, logging.Options{File: cfg.LogFile})

	if err := run(cfg, logger); err != nil {
		logger.Error("lessond stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	programID, err := cfg.ProgramIDBytes()
	if err != nil {
		return err
	}
	metadataProgramID, err := cfg.MetadataProgramIDBytes()
	if err != nil {
		return err
	}
	authority, _, err := cfg.MintAuthorityBytes()
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.StorageBackend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.StorageBackend, err)
	}

	metrics := observability.Progress()
	node, err := core.NewNode(db, core.Options{
		ProgramID:         programID,
		MetadataProgramID: metadataProgramID,
		MintAuthority:     authority,
		Observer:          metrics,
		Logger:            logger,
	})
	if err != nil {
		db.Close()
		return err
	}
	defer node.Close()
	node.Subscribe(metrics)
	node.Subscribe(eventLogger{logger: logger})

	serverCfg := rpc.ServerConfig{
		RateLimit: rpc.RateLimit{
			RequestsPerMinute: float64(cfg.RateLimit.RequestsPerMinute),
			Burst:             cfg.RateLimit.Burst,
			TrustedProxies:    append([]string{}, cfg.RateLimit.TrustedProxies...),
		},
		Logger: logger,
	}
	if cfg.Indexer.Enabled() {
		ix, err := indexer.Open(cfg.Indexer.Driver, cfg.Indexer.DSN, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := ix.Close(); err != nil {
				logger.Warn("close indexer", slog.Any("error", err))
			}
		}()
		node.Subscribe(ix)
		serverCfg.History = ix
		logger.Info("event indexer enabled", slog.String("driver", cfg.Indexer.Driver))
	}

	server := rpc.NewServer(node, serverCfg)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(cfg.ListenAddress) }()

	logger.Info("lessond started",
		slog.String("network", cfg.NetworkName),
		slog.String("listen", cfg.ListenAddress),
		slog.String("storage", cfg.StorageBackend))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// eventLogger writes every committed event to the service log.
type eventLogger struct {
	logger *slog.Logger
}

func (l eventLogger) Emit(evt events.Event) {
	attrs := []any{slog.String("type", evt.EventType())}
	if payload, ok := events.Payload(evt); ok {
		for key, value := range payload.Attributes {
			attrs = append(attrs, slog.String(key, value))
		}
	}
	l.logger.Info("progress event", attrs...)
}
