package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := fromLookup(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 120*time.Second, cfg.VIES.Timeout)
	assert.Equal(t, 6, cfg.VIES.MaxAttempts)
	assert.Equal(t, time.Second, cfg.VIES.BaseBackoff)
	assert.Equal(t, "checkVat", cfg.VIES.Operation)
	assert.Equal(t, "0.05", cfg.Credit.CostPerCheck.String())
	assert.Equal(t, "10", cfg.Credit.InitialCredit.String())
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.True(t, cfg.UsesDevSigningKey())
}

func TestOverrides(t *testing.T) {
	cfg, err := fromLookup(lookupFrom(map[string]string{
		"VATGATE_ADDR":           ":9000",
		"VATGATE_WORKERS":        "4",
		"VIES_TIMEOUT":           "10s",
		"VIES_OPERATION":         "checkVatApprox",
		"VIES_REEMIT_DUPLICATES": "true",
		"CREDIT_COST_PER_CHECK":  "0.10",
		"KAFKA_BROKERS":          "k1:9092, k2:9092,,",
		"JWT_SIGNING_KEY":        "prod-key",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Server.Workers)
	assert.Equal(t, 10*time.Second, cfg.VIES.Timeout)
	assert.Equal(t, "checkVatApprox", cfg.VIES.Operation)
	assert.True(t, cfg.VIES.ReemitDuplicates)
	assert.Equal(t, "0.1", cfg.Credit.CostPerCheck.String())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.UsesDevSigningKey())
}

func TestInvalidValuesAreReportedTogether(t *testing.T) {
	_, err := fromLookup(lookupFrom(map[string]string{
		"VIES_TIMEOUT":          "soon",
		"VIES_MAX_ATTEMPTS":     "many",
		"CREDIT_COST_PER_CHECK": "five cents",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VIES_TIMEOUT")
	assert.Contains(t, err.Error(), "VIES_MAX_ATTEMPTS")
	assert.Contains(t, err.Error(), "CREDIT_COST_PER_CHECK")
}

func TestValidation(t *testing.T) {
	_, err := fromLookup(lookupFrom(map[string]string{"CREDIT_COST_PER_CHECK": "0"}))
	assert.ErrorContains(t, err, "must be positive")

	_, err = fromLookup(lookupFrom(map[string]string{"VIES_MAX_ATTEMPTS": "0"}))
	assert.ErrorContains(t, err, "between 1 and 16")

	_, err = fromLookup(lookupFrom(map[string]string{"VIES_MAX_ATTEMPTS": "40"}))
	assert.ErrorContains(t, err, "between 1 and 16")
}
