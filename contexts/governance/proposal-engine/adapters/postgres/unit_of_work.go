package postgresadapter

import (
	"context"
	"errors"
	"strings"

	domainerrors "agora/contexts/governance/proposal-engine/domain/errors"
	"agora/contexts/governance/proposal-engine/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// registryLockKey is the pg_advisory_xact_lock key guarding registry appends.
const registryLockKey int64 = 0x61676f7261

type txKey struct{}

// conn returns the transaction bound to ctx, or the pool when none is open.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db)
}

// WithinOrganization runs fn in a transaction holding the organization row
// FOR UPDATE. Called from inside another unit, gorm opens a savepoint on the
// outer transaction instead, and relocking the same row is a no-op.
func (r *Repository) WithinOrganization(
	ctx context.Context,
	organizationID string,
	fn func(context.Context, ports.GovernanceStore) error,
) error {
	organizationID = strings.TrimSpace(organizationID)
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var row organizationModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("organization_id").
			Where("organization_id = ?", organizationID).
			First(&row).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrOrganizationNotFound
			}
			return r.logError("governance_repo_lock_organization_failed", err,
				"organization_id", organizationID,
			)
		}
		return fn(context.WithValue(ctx, txKey{}, tx), r)
	})
}

func (r *Repository) WithinRegistry(ctx context.Context, fn func(context.Context, ports.GovernanceStore) error) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", registryLockKey).Error; err != nil {
			return r.logError("governance_repo_lock_registry_failed", err)
		}
		return fn(context.WithValue(ctx, txKey{}, tx), r)
	})
}
