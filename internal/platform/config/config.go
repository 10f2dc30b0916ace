package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	EventBusMemory = "memory"
	EventBusNATS   = "nats"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"agora"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	// DBConnectTimeout bounds how long startup waits for postgres.
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"30s"`
	EventBus         string        `env:"EVENT_BUS" envDefault:"memory"`
	NATSURL          string        `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	// Published subjects are "<prefix>.<topic>".
	NATSSubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"agora"`

	// The position axis advances one step per SequenceInterval since
	// SequenceGenesis.
	SequenceGenesis  time.Time     `env:"SEQUENCE_GENESIS" envDefault:"2026-01-01T00:00:00Z"`
	SequenceInterval time.Duration `env:"SEQUENCE_INTERVAL" envDefault:"12s"`

	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	OutboxBatch        int           `env:"OUTBOX_BATCH" envDefault:"100"`
	PublishRetries     uint64        `env:"PUBLISH_RETRIES" envDefault:"3"`
	IdempotencyTTL     time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	EnableShareTransfers bool `env:"ENABLE_SHARE_TRANSFERS" envDefault:"true"`
	EnableSwagger        bool `env:"ENABLE_SWAGGER" envDefault:"true"`
	AutoMigrate          bool `env:"AUTO_MIGRATE" envDefault:"false"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.EventBus = strings.ToLower(strings.TrimSpace(cfg.EventBus))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.EventBus {
	case EventBusMemory, EventBusNATS:
	default:
		return fmt.Errorf("unsupported EVENT_BUS %q", c.EventBus)
	}
	if c.SequenceInterval <= 0 {
		return errors.New("SEQUENCE_INTERVAL must be positive")
	}
	if c.OutboxPollInterval <= 0 {
		return errors.New("OUTBOX_POLL_INTERVAL must be positive")
	}
	return nil
}
