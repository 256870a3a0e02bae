package config_test

import (
	"testing"
	"time"

	"foodorder/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 120*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, "INR", cfg.PaymentCurrency)
	assert.Equal(t, "PS3", cfg.OrderRefPrefix)
	assert.Equal(t, "Asia/Kolkata", cfg.Location.String())
	assert.False(t, cfg.OnlinePaymentsEnabled())
	assert.Contains(t, cfg.DSN(), "dbname=foodorder")
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	assert.EqualError(t, err, "JWT_SECRET is required")
}

func TestLoad_SessionTimeoutOverride(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SESSION_TIMEOUT_MINUTES", "30")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout)
}

func TestLoad_InvalidNumber(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("POSTGRES_PORT", "abc")

	_, err := config.Load()
	assert.ErrorContains(t, err, "POSTGRES_PORT must be number")
}

func TestLoad_RazorpayKeysMustBePaired(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_x")
	t.Setenv("RAZORPAY_KEY_SECRET", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_DatabaseURLWins(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DSN())
}
