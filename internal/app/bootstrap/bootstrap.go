package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"agora/internal/platform/config"
	"agora/internal/platform/httpserver"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	runtime *Runtime
	server  *httpserver.Server
	logger  *slog.Logger
}

type WorkerApp struct {
	runtime      *Runtime
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	rt, err := BuildRuntime(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	server := httpserver.New(rt.Governance, rt.Shares, httpserver.Options{
		EnableShareTransfers: cfg.EnableShareTransfers,
		EnableSwagger:        cfg.EnableSwagger,
		Gatherer:             rt.Registry,
	}, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		runtime: rt,
		server:  server,
		logger:  logger,
	}, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	// In-memory outboxes live inside the API process, so a separate worker
	// only makes sense against a shared database.
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	rt, err := BuildRuntime(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		runtime:      rt,
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}, nil
}

// Run serves HTTP until ctx is cancelled. Without a database the API also
// relays its own outboxes.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	group, ctx := errgroup.WithContext(ctx)
	group.Go(a.server.Start)
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	if a.runtime.Postgres == nil {
		group.Go(func() error {
			return relayLoop(ctx, a.runtime, a.runtime.Config.OutboxPollInterval, a.logger)
		})
	}
	return group.Wait()
}

func (a *APIApp) Close() error {
	return a.runtime.Close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)
	return relayLoop(ctx, w.runtime, w.pollInterval, w.logger)
}

func (w *WorkerApp) Close() error {
	return w.runtime.Close()
}

// relayLoop keeps draining outboxes on every tick. A failed batch is logged
// and retried on the next tick because the rows stay pending.
func relayLoop(ctx context.Context, rt *Runtime, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := rt.RelayOnce(ctx); err != nil && ctx.Err() == nil {
			logger.Error("outbox relay batch failed",
				"event", "bootstrap_outbox_relay_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
