package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, "999000000", cfg.Engine.MaxAmount)
	assert.Equal(t, "0.01", cfg.Engine.AmountTolerance)
	assert.Equal(t, 70.0, cfg.Engine.MinConfidence)
	assert.Equal(t, "USD", cfg.Engine.DefaultCurrency)
	assert.Equal(t, []string{"USD", "EUR", "GBP", "JPY", "CAD", "AUD", "CHF"}, cfg.Engine.Currencies)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/invoices")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("SUPPORTED_CURRENCIES", "NOK, SEK,")
	t.Setenv("MIN_CONFIDENCE", "85.5")

	cfg := LoadConfig()
	assert.Equal(t, "postgres://localhost/invoices", cfg.Database.DSN)
	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"NOK", "SEK"}, cfg.Engine.Currencies)
	assert.Equal(t, 85.5, cfg.Engine.MinConfidence)
}

func TestLoadConfig_BadValuesFallBack(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "not-a-number")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")
	t.Setenv("MIN_CONFIDENCE", "high")

	cfg := LoadConfig()
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 70.0, cfg.Engine.MinConfidence)
}

func TestConfigValidate(t *testing.T) {
	cfg := LoadConfig()
	cfg.Database.DSN = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	cfg.Database.DSN = "postgres://localhost/invoices"
	require.NoError(t, cfg.Validate())
}
