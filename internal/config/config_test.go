package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, int64(-5), cfg.Growth.Min)
	assert.Equal(t, int64(10), cfg.Growth.Max)
	assert.Equal(t, 7, cfg.Growth.GraceDays)
	assert.Equal(t, "RANDOM", cfg.Champion.Mode)
	assert.Equal(t, 6.0, cfg.Champion.WeightScale)
	assert.Equal(t, 7*24*time.Hour, cfg.Champion.ActiveWindow())
	assert.Equal(t, 10, cfg.Leaderboard.PageSize)
	assert.Zero(t, cfg.Loan.PayoutRatio)
	assert.Equal(t, 5*time.Second, cfg.Store.Timeout)
	assert.True(t, cfg.Features.CallbackLocks)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
growth:
  min: 1
  max: 3
loan:
  payout_ratio: 0.25
champion:
  mode: weights
whitelist:
  chats: [-1001, -1002]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DATABASE_HOST=db.internal\n"), 0o600))
	t.Setenv("GROWTH_MAX", "8")
	t.Setenv("BOT_TOKEN", "secret")
	t.Cleanup(func() { os.Unsetenv("DATABASE_HOST") })

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, int64(1), cfg.Growth.Min)
	assert.Equal(t, int64(8), cfg.Growth.Max)
	assert.Equal(t, 0.25, cfg.Loan.PayoutRatio)
	assert.Equal(t, "weights", cfg.Champion.Mode)
	assert.Equal(t, "secret", cfg.Bot.Token)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.True(t, cfg.IsChatAllowed(-1001))
	assert.False(t, cfg.IsChatAllowed(-1003))
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("growth:\n  min: 5\n  max: 1\n"), 0o600))

	_, err := Load(dir)
	assert.ErrorContains(t, err, "growth.min")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Growth:      GrowthConfig{Min: -5, Max: 10},
			Champion:    ChampionConfig{Mode: "RANDOM", BonusMin: 1, BonusMax: 5, BonusAttempts: 1},
			Leaderboard: LeaderboardConfig{PageSize: 10},
			Game:        GameConfig{Timezone: "Europe/Moscow"},
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"growth range", func(c *Config) { c.Growth.Min = 11 }},
		{"bonus range", func(c *Config) { c.Champion.BonusMin = 6 }},
		{"negative attempts", func(c *Config) { c.Champion.BonusAttempts = -1 }},
		{"page size", func(c *Config) { c.Leaderboard.PageSize = 0 }},
		{"champion mode", func(c *Config) { c.Champion.Mode = "LOTTERY" }},
		{"timezone", func(c *Config) { c.Game.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLocation(t *testing.T) {
	loc, err := (&GameConfig{}).Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = (&GameConfig{Timezone: "Europe/Moscow"}).Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", loc.String())
}

func TestIsAdmin(t *testing.T) {
	cfg := &Config{Admin: AdminConfig{IDs: []int64{42}}}
	assert.True(t, cfg.IsAdmin(42))
	assert.False(t, cfg.IsAdmin(7))
	assert.True(t, cfg.IsChatAllowed(123))
}
