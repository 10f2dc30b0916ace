package shareledger

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	httpadapter "agora/contexts/governance/share-ledger/adapters/http"
	"agora/contexts/governance/share-ledger/adapters/memory"
	postgresadapter "agora/contexts/governance/share-ledger/adapters/postgres"
	"agora/contexts/governance/share-ledger/application/commands"
	"agora/contexts/governance/share-ledger/application/queries"
	"agora/contexts/governance/share-ledger/application/workers"
	"agora/contexts/governance/share-ledger/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Module struct {
	Handler     httpadapter.Handler
	OutboxRelay workers.OutboxRelay
	Store       *memory.Store
}

type Dependencies struct {
	Repository  ports.Repository
	Outbox      ports.OutboxRepository
	Publisher   ports.EventPublisher
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	OutboxBatch int
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			Ledger: commands.LedgerUseCase{
				Repository: deps.Repository,
				Clock:      deps.Clock,
				IDGen:      deps.IDGen,
				Logger:     deps.Logger,
			},
			Queries: queries.LedgerQueries{Repository: deps.Repository},
			Logger:  deps.Logger,
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

func NewInMemoryModule(publisher ports.EventPublisher, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository: store,
		Outbox:     store,
		Publisher:  publisher,
		Clock:      store,
		IDGen:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}

func NewPostgresModule(db *gorm.DB, publisher ports.EventPublisher, logger *slog.Logger) Module {
	repository := postgresadapter.NewRepository(db, logger)
	return NewModule(Dependencies{
		Repository: repository,
		Outbox:     repository,
		Publisher:  publisher,
		Clock:      systemClock{},
		IDGen:      uuidGenerator{},
		Logger:     logger,
	})
}

func Models() []any {
	return postgresadapter.Models()
}

// CreateLedger, LedgerExists, Mint, Transfer, BalanceOf and TotalSupply are
// the surface other contexts consume through the composition root.

func (m Module) CreateLedger(ctx context.Context, name string, symbol string) (string, error) {
	ledger, err := m.Handler.Ledger.CreateLedger(ctx, commands.CreateLedgerCommand{Name: name, Symbol: symbol})
	if err != nil {
		return "", err
	}
	return ledger.LedgerID, nil
}

func (m Module) LedgerExists(ctx context.Context, ledgerID string) (bool, error) {
	return m.Handler.Queries.LedgerExists(ctx, ledgerID)
}

func (m Module) Mint(ctx context.Context, ledgerID string, to string, amount *big.Int) error {
	return m.Handler.Ledger.Mint(ctx, commands.MintCommand{LedgerID: ledgerID, To: to, Amount: amount})
}

func (m Module) Transfer(ctx context.Context, ledgerID string, from string, to string, amount *big.Int) error {
	return m.Handler.Ledger.Transfer(ctx, commands.TransferCommand{LedgerID: ledgerID, From: from, To: to, Amount: amount})
}

func (m Module) BalanceOf(ctx context.Context, ledgerID string, holder string) (*big.Int, error) {
	return m.Handler.Queries.BalanceOf(ctx, ledgerID, holder)
}

func (m Module) TotalSupply(ctx context.Context, ledgerID string) (*big.Int, error) {
	return m.Handler.Queries.TotalSupply(ctx, ledgerID)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type uuidGenerator struct{}

func (uuidGenerator) NewID(context.Context) (string, error) { return uuid.NewString(), nil }
