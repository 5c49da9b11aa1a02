package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ATOMIC_BULK_INSERT", "")
	t.Setenv("METRICS_LIST_LIMIT", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 200, cfg.MetricsListLimit)
	assert.False(t, cfg.AtomicBulkInsert)
	assert.False(t, cfg.RejectEmptyVitalSync)
	assert.Equal(t, time.Duration(0), cfg.LatestVitalsTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ATOMIC_BULK_INSERT", "true")
	t.Setenv("REJECT_EMPTY_VITAL_SYNC", "1")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("LATEST_VITALS_TTL", "90s")

	cfg := Load()
	assert.True(t, cfg.AtomicBulkInsert)
	assert.True(t, cfg.RejectEmptyVitalSync)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 90*time.Second, cfg.LatestVitalsTTL)
}

func TestValidateRequiresSecrets(t *testing.T) {
	cfg := &Config{MetricsListLimit: 200, BulkInsertBatchSize: 100}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), "DATABASE_URL")

	cfg.JWTSecret = "short"
	assert.ErrorContains(t, cfg.Validate(), "at least 16")

	cfg.JWTSecret = "0123456789abcdef"
	cfg.DatabaseURL = "postgres://u:p@db/caresync"
	assert.NoError(t, cfg.Validate())
}

func TestPostgresDSNPrefersURL(t *testing.T) {
	cfg := &Config{PostgresHost: "db", PostgresUser: "u", PostgresPassword: "p", PostgresDB: "x", PostgresPort: "5432", PostgresSSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=x port=5432 sslmode=disable", cfg.PostgresDSN())

	cfg.DatabaseURL = "postgres://other"
	assert.Equal(t, "postgres://other", cfg.PostgresDSN())
}
