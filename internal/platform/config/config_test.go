package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "agora", cfg.ServiceName)
	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, EventBusMemory, cfg.EventBus)
	require.Equal(t, "agora", cfg.NATSSubjectPrefix)
	require.Equal(t, 30*time.Second, cfg.DBConnectTimeout)
	require.Equal(t, 12*time.Second, cfg.SequenceInterval)
	require.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), cfg.SequenceGenesis.UTC())
	require.True(t, cfg.EnableShareTransfers)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SERVICE_NAME", "agora-test")
	t.Setenv("EVENT_BUS", " NATS ")
	t.Setenv("NATS_SUBJECT_PREFIX", "agora.test")
	t.Setenv("SEQUENCE_INTERVAL", "2s")
	t.Setenv("ENABLE_SHARE_TRANSFERS", "false")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "agora-test", cfg.ServiceName)
	require.Equal(t, EventBusNATS, cfg.EventBus)
	require.Equal(t, "agora.test", cfg.NATSSubjectPrefix)
	require.Equal(t, 2*time.Second, cfg.SequenceInterval)
	require.False(t, cfg.EnableShareTransfers)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("EVENT_BUS", "carrier-pigeon")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("EVENT_BUS", "memory")
	t.Setenv("SEQUENCE_INTERVAL", "0s")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("SEQUENCE_INTERVAL", "not-a-duration")
	_, err = Load()
	require.Error(t, err)
}
