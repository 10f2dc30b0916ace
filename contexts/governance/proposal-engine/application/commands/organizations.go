package commands

import (
	"context"
	"log/slog"
	"math/big"
	"strings"
	"time"

	application "agora/contexts/governance/proposal-engine/application"
	"agora/contexts/governance/proposal-engine/domain/entities"
	domainerrors "agora/contexts/governance/proposal-engine/domain/errors"
	"agora/contexts/governance/proposal-engine/ports"
)

// CreateOrganizationCommand mirrors the registry inputs. ExistingLedgerID binds
// the organization to a ledger that is already populated; otherwise a fresh
// ledger is minted and split across Members.
type CreateOrganizationCommand struct {
	Deployer                string
	Name                    string
	Symbol                  string
	Members                 []string
	Quorum                  uint64
	InitialSupply           *big.Int
	ExistingLedgerID        string
	Authority               string
	AcceptExternalProposals bool
}

type CreateOrganizationResult struct {
	Organization   entities.Organization
	Entry          entities.OrganizationEntry
	SharePerMember *big.Int
	Remainder      *big.Int
}

// RegistryUseCase instantiates organizations and keeps the append-only list
// of everything it created.
type RegistryUseCase struct {
	UnitOfWork ports.UnitOfWork
	Ledgers    ports.LedgerProvisioner
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func (uc RegistryUseCase) CreateOrganization(ctx context.Context, cmd CreateOrganizationCommand) (CreateOrganizationResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	name := strings.TrimSpace(cmd.Name)
	symbol := strings.TrimSpace(cmd.Symbol)
	deployer := entities.NormalizeIdentity(cmd.Deployer)
	existingLedgerID := strings.TrimSpace(cmd.ExistingLedgerID)
	logger.Info("organization create processing started",
		"event", "governance_organization_create_started",
		"module", moduleName,
		"layer", "application",
		"name", name,
		"deployer", deployer,
		"existing_ledger_id", existingLedgerID,
	)
	if name == "" {
		return CreateOrganizationResult{}, domainerrors.ErrInvalidOrganization
	}
	if cmd.Quorum > uint64(entities.MaxQuorum) {
		return CreateOrganizationResult{}, domainerrors.ErrInvalidQuorum
	}
	if cmd.InitialSupply != nil && cmd.InitialSupply.Sign() < 0 {
		return CreateOrganizationResult{}, domainerrors.ErrInvalidAmount
	}

	share := new(big.Int)
	remainder := new(big.Int)
	ledgerID := existingLedgerID
	if ledgerID != "" {
		exists, err := uc.Ledgers.LedgerExists(ctx, ledgerID)
		if err != nil {
			return CreateOrganizationResult{}, err
		}
		if !exists {
			return CreateOrganizationResult{}, domainerrors.ErrLedgerNotFound
		}
	} else {
		members := make([]string, 0, len(cmd.Members))
		for _, member := range cmd.Members {
			if entities.IsZeroIdentity(member) {
				return CreateOrganizationResult{}, domainerrors.ErrInvalidOrganization
			}
			members = append(members, entities.NormalizeIdentity(member))
		}
		if len(members) == 0 || entities.IsZeroIdentity(deployer) {
			return CreateOrganizationResult{}, domainerrors.ErrInvalidOrganization
		}
		supply := entities.ZeroIfNil(cmd.InitialSupply)

		createdLedgerID, err := uc.Ledgers.CreateLedger(ctx, name, symbol)
		if err != nil {
			return CreateOrganizationResult{}, err
		}
		ledgerID = createdLedgerID
		if supply.Sign() > 0 {
			if err := uc.Ledgers.Mint(ctx, ledgerID, deployer, supply); err != nil {
				return CreateOrganizationResult{}, err
			}
		}
		// Integer division; the remainder stays with the deployer.
		share.QuoRem(supply, big.NewInt(int64(len(members))), remainder)
		if share.Sign() > 0 {
			for _, member := range members {
				if err := uc.Ledgers.Transfer(ctx, ledgerID, deployer, member, share); err != nil {
					return CreateOrganizationResult{}, err
				}
			}
		}
	}

	organizationID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CreateOrganizationResult{}, err
	}
	now := uc.now()
	organization := entities.Organization{
		OrganizationID:          organizationID,
		Name:                    name,
		Symbol:                  symbol,
		Owner:                   entities.NormalizeIdentity(cmd.Authority),
		LedgerID:                ledgerID,
		Quorum:                  uint8(cmd.Quorum),
		AcceptExternalProposals: cmd.AcceptExternalProposals,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	var entry entities.OrganizationEntry
	err = uc.UnitOfWork.WithinRegistry(ctx, func(ctx context.Context, store ports.GovernanceStore) error {
		created, err := store.CreateOrganization(ctx, organization)
		if err != nil {
			return err
		}
		entry = created
		return appendEvent(ctx, store, uc.IDGen, eventOrganizationCreated, organizationID, now, map[string]any{
			"ledger_id":                 ledgerID,
			"name":                      name,
			"owner":                     organization.Owner,
			"quorum":                    organization.Quorum,
			"accept_external_proposals": organization.AcceptExternalProposals,
		})
	})
	if err != nil {
		logger.Error("organization create failed",
			"event", "governance_organization_create_failed",
			"module", moduleName,
			"layer", "application",
			"organization_id", organizationID,
			"ledger_id", ledgerID,
			"error", err.Error(),
		)
		return CreateOrganizationResult{}, err
	}

	logger.Info("organization created",
		"event", "governance_organization_created",
		"module", moduleName,
		"layer", "application",
		"organization_id", organizationID,
		"ledger_id", ledgerID,
		"sequence", entry.Sequence,
		"share_per_member", share.String(),
		"remainder", remainder.String(),
	)
	return CreateOrganizationResult{
		Organization:   organization,
		Entry:          entry,
		SharePerMember: share,
		Remainder:      remainder,
	}, nil
}

func (uc RegistryUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
