package proposalengine

import (
	"log/slog"
	"time"

	httpadapter "agora/contexts/governance/proposal-engine/adapters/http"
	"agora/contexts/governance/proposal-engine/adapters/memory"
	postgresadapter "agora/contexts/governance/proposal-engine/adapters/postgres"
	"agora/contexts/governance/proposal-engine/application/commands"
	"agora/contexts/governance/proposal-engine/application/queries"
	"agora/contexts/governance/proposal-engine/application/workers"
	"agora/contexts/governance/proposal-engine/ports"

	"gorm.io/gorm"
)

type Module struct {
	Handler     httpadapter.Handler
	OutboxRelay workers.OutboxRelay
	Store       *memory.Store
	Payouts     *memory.PayoutGateway
}

type Dependencies struct {
	UnitOfWork     ports.UnitOfWork
	Organizations  ports.OrganizationRepository
	Proposals      ports.ProposalRepository
	Treasury       ports.TreasuryRepository
	Outbox         ports.OutboxRepository
	Ledger         ports.ShareLedger
	Ledgers        ports.LedgerProvisioner
	Payouts        ports.PayoutGateway
	Positions      ports.PositionSource
	Publisher      ports.EventPublisher
	Metrics        ports.MetricsRecorder
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	OutboxBatch    int
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	proposalUseCase := commands.ProposalUseCase{
		UnitOfWork:     deps.UnitOfWork,
		Ledger:         deps.Ledger,
		Payouts:        deps.Payouts,
		Positions:      deps.Positions,
		Metrics:        deps.Metrics,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	treasuryUseCase := commands.TreasuryUseCase{
		UnitOfWork: deps.UnitOfWork,
		Metrics:    deps.Metrics,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Logger:     deps.Logger,
	}
	registryUseCase := commands.RegistryUseCase{
		UnitOfWork: deps.UnitOfWork,
		Ledgers:    deps.Ledgers,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Logger:     deps.Logger,
	}
	governanceQueries := queries.GovernanceQueries{
		Organizations: deps.Organizations,
		Proposals:     deps.Proposals,
		Treasury:      deps.Treasury,
		Ledger:        deps.Ledger,
		Positions:     deps.Positions,
	}
	return Module{
		Handler: httpadapter.Handler{
			Proposals: proposalUseCase,
			Treasury:  treasuryUseCase,
			Registry:  registryUseCase,
			Queries:   governanceQueries,
			Logger:    deps.Logger,
		},
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			BatchSize: deps.OutboxBatch,
			Logger:    deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module on process-local adapters. The share
// ledger lives in another context and is supplied by the caller.
func NewInMemoryModule(
	ledger ports.ShareLedger,
	ledgers ports.LedgerProvisioner,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) Module {
	store := memory.NewStore()
	payouts := memory.NewPayoutGateway()
	module := NewModule(Dependencies{
		UnitOfWork:     store,
		Organizations:  store,
		Proposals:      store,
		Treasury:       store,
		Outbox:         store,
		Ledger:         ledger,
		Ledgers:        ledgers,
		Payouts:        payouts,
		Positions:      store,
		Publisher:      publisher,
		Clock:          store,
		IDGen:          store,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	module.Payouts = payouts
	return module
}

// NewPostgresModule wires the module on a shared gorm pool. Positions come
// from the host and metrics may be nil.
func NewPostgresModule(
	db *gorm.DB,
	ledger ports.ShareLedger,
	ledgers ports.LedgerProvisioner,
	positions ports.PositionSource,
	publisher ports.EventPublisher,
	metrics ports.MetricsRecorder,
	idempotencyTTL time.Duration,
	logger *slog.Logger,
) Module {
	repository := postgresadapter.NewRepository(db, logger)
	return NewModule(Dependencies{
		UnitOfWork:     repository,
		Organizations:  repository,
		Proposals:      repository,
		Treasury:       repository,
		Outbox:         repository,
		Ledger:         ledger,
		Ledgers:        ledgers,
		Payouts:        postgresadapter.NewPayoutGateway(db, logger),
		Positions:      positions,
		Publisher:      publisher,
		Metrics:        metrics,
		Clock:          postgresadapter.SystemClock{},
		IDGen:          postgresadapter.UUIDGenerator{},
		IdempotencyTTL: idempotencyTTL,
		Logger:         logger,
	})
}

// Models exposes the tables owned by the postgres adapter for migrations.
func Models() []any {
	return postgresadapter.Models()
}
