package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricealert/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 90*time.Second, cfg.Snapshot.TTL)
	assert.Equal(t, time.Hour, cfg.Rates.TTL)
	assert.Equal(t, "kafka", cfg.Notify.Transport)
	assert.Equal(t, 3*time.Second, cfg.Notify.Timeout)

	policies := cfg.Tiers.Policies()
	assert.Equal(t, models.DefaultTierPolicies(), policies)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TIERS_FREE_INTERVAL", "15m")
	t.Setenv("TIERS_FREE_MAX_ALERTS", "3")
	t.Setenv("FETCH_MAX_CONCURRENCY", "2")
	t.Setenv("NOTIFY_TRANSPORT", "redis")
	t.Setenv("REDIS_ADDR", "cache:6380")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Tiers.Free.Interval)
	assert.Equal(t, 3, cfg.Tiers.Free.MaxAlerts)
	assert.Equal(t, 2, cfg.Fetch.MaxConcurrency)
	assert.Equal(t, "redis", cfg.Notify.Transport)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
}

func TestValidateRejectsUnknownTransport(t *testing.T) {
	t.Setenv("NOTIFY_TRANSPORT", "carrier-pigeon")
	_, err := load(viper.New())
	assert.Error(t, err)
}

func TestCheckIntervalInSeconds(t *testing.T) {
	t.Setenv("CHECK_INTERVAL", "30")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.Interval)
}

func TestCheckIntervalAcceptsDuration(t *testing.T) {
	t.Setenv("CHECK_INTERVAL", "2m")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.Interval)
}

func TestSchedulerIntervalWinsOverCheckInterval(t *testing.T) {
	t.Setenv("CHECK_INTERVAL", "30")
	t.Setenv("SCHEDULER_INTERVAL", "5m")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.Interval)
}

func TestCheckIntervalRejectsGarbage(t *testing.T) {
	t.Setenv("CHECK_INTERVAL", "soon")
	_, err := load(viper.New())
	assert.Error(t, err)

	t.Setenv("CHECK_INTERVAL", "0")
	_, err = load(viper.New())
	assert.Error(t, err)
}

func TestNotifyTimeoutFromEnv(t *testing.T) {
	t.Setenv("NOTIFY_TIMEOUT", "750ms")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.Notify.Timeout)
}
