package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "creditcore", cfg.Database.DBName)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, int64(2), cfg.Generation.CostPerImage)
	assert.Equal(t, 60, cfg.Poller.MaxAttempts)
	assert.Equal(t, 10*time.Minute, cfg.Sweeper.Interval)
	assert.Equal(t, 2*time.Hour, cfg.Sweeper.ReservationMaxAge)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GENERATION_COST_PER_IMAGE", "5")
	t.Setenv("POLLER_MAX_ATTEMPTS", "30")
	t.Setenv("SWEEPER_INTERVAL", "1m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, int64(5), cfg.Generation.CostPerImage)
	assert.Equal(t, 30, cfg.Poller.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.Sweeper.Interval)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("POLLER_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("SWEEPER_INTERVAL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Poller.MaxAttempts)
	assert.Equal(t, 10*time.Minute, cfg.Sweeper.Interval)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"empty db host", func(c *Config) { c.Database.Host = "" }},
		{"empty db name", func(c *Config) { c.Database.DBName = "" }},
		{"empty generation base url", func(c *Config) { c.Generation.BaseURL = "" }},
		{"zero cost per image", func(c *Config) { c.Generation.CostPerImage = 0 }},
		{"negative cost per image", func(c *Config) { c.Generation.CostPerImage = -1 }},
		{"zero poller attempts", func(c *Config) { c.Poller.MaxAttempts = 0 }},
		{"zero sweeper interval", func(c *Config) { c.Sweeper.Interval = 0 }},
		{"zero reservation max age", func(c *Config) { c.Sweeper.ReservationMaxAge = 0 }},
		{"bad log level", func(c *Config) { c.Logger.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     "5433",
		User:     "svc",
		Password: "secret",
		DBName:   "creditcore",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=svc password=secret dbname=creditcore sslmode=require",
		cfg.DSN())
}
