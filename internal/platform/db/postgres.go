package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Postgres wraps DB connectivity shared by every context's gorm adapter.
type Postgres struct {
	DB *gorm.DB
}

// Connect opens the pool and pings it, retrying with exponential backoff
// until maxWait elapses so the API can start before the database is ready.
func Connect(ctx context.Context, dsn string, maxWait time.Duration, logger *slog.Logger) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var db *gorm.DB
	attempt := 0
	open := func() error {
		attempt++
		opened, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return fmt.Errorf("open gorm postgres: %w", err)
		}
		sqlDB, err := opened.DB()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("resolve postgres sql db handle: %w", err))
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(pingCtx); err != nil {
			_ = sqlDB.Close()
			logger.Warn("postgres not reachable yet",
				"event", "postgres_connect_retry",
				"module", "internal/platform/db",
				"layer", "platform",
				"attempt", attempt,
				"error", err.Error(),
			)
			return fmt.Errorf("ping postgres: %w", err)
		}
		db = opened
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxWait
	if err := backoff.Retry(open, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}
	return &Postgres{DB: db}, nil
}

// Migrate creates or updates the tables for models.
func (p *Postgres) Migrate(ctx context.Context, models ...any) error {
	if err := p.DB.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	if p == nil || p.DB == nil {
		return nil
	}
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
