package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := newViper()

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "InvenTrack", cfg.AppName)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 10, cfg.LowStockThreshold)
	assert.Equal(t, 60*time.Second, cfg.DashboardCacheTTL)
	assert.Equal(t, 24, cfg.JWT.ExpirationHours)
	assert.Equal(t, time.Hour, cfg.DB.ConnMaxLifetime)
	assert.False(t, cfg.IsProduction())
}

func TestFromViperReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("LOW_STOCK_THRESHOLD", "5")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, 5, cfg.LowStockThreshold)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestDSNPrefersDatabaseURL(t *testing.T) {
	c := DBConfig{URL: "postgres://u:p@db:5432/x", Host: "ignored"}
	assert.Equal(t, "postgres://u:p@db:5432/x", c.DSN())

	c = DBConfig{Host: "db", User: "u", Password: "p", Name: "x", Port: "5432", SSLMode: "disable", TimeZone: "UTC"}
	assert.Equal(t, "host=db user=u password=p dbname=x port=5432 sslmode=disable TimeZone=UTC", c.DSN())
}

func TestProductionRequiresLongSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")

	_, err := FromViper(newViper())
	assert.Error(t, err)
}

func TestNegativeThresholdRejected(t *testing.T) {
	t.Setenv("LOW_STOCK_THRESHOLD", "-1")

	_, err := FromViper(newViper())
	assert.Error(t, err)
}
