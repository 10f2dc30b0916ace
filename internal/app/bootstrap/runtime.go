package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	proposalengine "agora/contexts/governance/proposal-engine"
	enginememory "agora/contexts/governance/proposal-engine/adapters/memory"
	enginemetrics "agora/contexts/governance/proposal-engine/adapters/metrics"
	engineports "agora/contexts/governance/proposal-engine/ports"
	shareledger "agora/contexts/governance/share-ledger"
	ledgerports "agora/contexts/governance/share-ledger/ports"
	"agora/internal/platform/chain"
	"agora/internal/platform/config"
	"agora/internal/platform/db"
	"agora/internal/platform/messaging"
	"agora/internal/shared/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Runtime holds both governance contexts wired onto one set of
// infrastructure. The API, the worker and govctl all start from it.
type Runtime struct {
	Config     config.Config
	Governance proposalengine.Module
	Shares     shareledger.Module
	Postgres   *db.Postgres
	Bus        *messaging.Bus
	Registry   *prometheus.Registry
	Logger     *slog.Logger

	nats *messaging.NATS
}

// BuildRuntime connects postgres when a DSN is configured and falls back to
// in-process stores otherwise.
func BuildRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{
		Config:   cfg,
		Registry: prometheus.NewRegistry(),
		Logger:   logger,
	}
	rt.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := enginemetrics.NewRecorder(rt.Registry)
	if err != nil {
		return nil, err
	}

	publisher, err := rt.buildPublisher()
	if err != nil {
		return nil, err
	}
	positions, err := chain.NewPositionSource(cfg.SequenceGenesis, cfg.SequenceInterval)
	if err != nil {
		return nil, err
	}
	governancePublisher := governanceEnvelopes{next: publisher}
	ledgerPublisher := ledgerEnvelopes{next: publisher}

	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		logger.Warn("POSTGRES_DSN not set, using in-memory stores",
			"event", "bootstrap_in_memory_stores",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		rt.Shares = shareledger.NewInMemoryModule(ledgerPublisher, logger)
		store := enginememory.NewStore()
		rt.Governance = proposalengine.NewModule(proposalengine.Dependencies{
			UnitOfWork:     store,
			Organizations:  store,
			Proposals:      store,
			Treasury:       store,
			Outbox:         store,
			Ledger:         rt.Shares,
			Ledgers:        rt.Shares,
			Payouts:        enginememory.NewPayoutGateway(),
			Positions:      positions,
			Publisher:      governancePublisher,
			Metrics:        recorder,
			Clock:          store,
			IDGen:          store,
			IdempotencyTTL: cfg.IdempotencyTTL,
			OutboxBatch:    cfg.OutboxBatch,
			Logger:         logger,
		})
		rt.Governance.Store = store
		return rt, nil
	}

	pg, err := db.Connect(ctx, cfg.PostgresDSN, cfg.DBConnectTimeout, logger)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Postgres = pg
	if cfg.AutoMigrate {
		if err := rt.Migrate(ctx); err != nil {
			_ = rt.Close()
			return nil, err
		}
	}
	rt.Shares = shareledger.NewPostgresModule(pg.DB, ledgerPublisher, logger)
	rt.Governance = proposalengine.NewPostgresModule(
		pg.DB,
		rt.Shares,
		rt.Shares,
		positions,
		governancePublisher,
		recorder,
		cfg.IdempotencyTTL,
		logger,
	)
	return rt, nil
}

// Migrate creates the tables of both contexts.
func (rt *Runtime) Migrate(ctx context.Context) error {
	if rt.Postgres == nil {
		return errors.New("migrate requires POSTGRES_DSN")
	}
	models := append(proposalengine.Models(), shareledger.Models()...)
	return rt.Postgres.Migrate(ctx, models...)
}

// RelayOnce drains one batch from each context's outbox.
func (rt *Runtime) RelayOnce(ctx context.Context) error {
	if err := rt.Shares.OutboxRelay.RunOnce(ctx); err != nil {
		return fmt.Errorf("share ledger relay: %w", err)
	}
	if err := rt.Governance.OutboxRelay.RunOnce(ctx); err != nil {
		return fmt.Errorf("governance relay: %w", err)
	}
	return nil
}

func (rt *Runtime) Close() error {
	var errs []error
	if rt.nats != nil {
		errs = append(errs, rt.nats.Close())
	}
	if rt.Postgres != nil {
		errs = append(errs, rt.Postgres.Close())
	}
	return errors.Join(errs...)
}

func (rt *Runtime) buildPublisher() (messaging.Publisher, error) {
	var next messaging.Publisher
	switch rt.Config.EventBus {
	case config.EventBusNATS:
		conn, err := messaging.NewNATS(rt.Config.NATSURL, rt.Config.NATSSubjectPrefix, rt.Logger)
		if err != nil {
			return nil, err
		}
		rt.nats = conn
		next = conn
	default:
		rt.Bus = messaging.NewBus(rt.Logger)
		next = rt.Bus
	}
	return messaging.Retrying{
		Next:       next,
		MaxRetries: rt.Config.PublishRetries,
	}, nil
}

// Each context declares its own envelope; the platform publisher speaks the
// shared one.

type governanceEnvelopes struct {
	next messaging.Publisher
}

func (p governanceEnvelopes) Publish(ctx context.Context, topic string, event engineports.EventEnvelope) error {
	return p.next.Publish(ctx, topic, events.Envelope(event))
}

type ledgerEnvelopes struct {
	next messaging.Publisher
}

func (p ledgerEnvelopes) Publish(ctx context.Context, topic string, event ledgerports.EventEnvelope) error {
	return p.next.Publish(ctx, topic, events.Envelope(event))
}
