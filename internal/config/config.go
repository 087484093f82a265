// Package config provides configuration management using viper.
// It supports loading from YAML files, a .env file and environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"telegram-grower-bot/internal/game/champion"
)

// Config holds all application configuration.
type Config struct {
	Bot         BotConfig         `mapstructure:"bot"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Log         LogConfig         `mapstructure:"log"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Whitelist   WhitelistConfig   `mapstructure:"whitelist"`
	Game        GameConfig        `mapstructure:"game"`
	Growth      GrowthConfig      `mapstructure:"growth"`
	Perks       PerksConfig       `mapstructure:"perks"`
	Loan        LoanConfig        `mapstructure:"loan"`
	Champion    ChampionConfig    `mapstructure:"champion"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Store       StoreConfig       `mapstructure:"store"`
	Features    FeaturesConfig    `mapstructure:"features"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
	// RateLimit is the number of commands per second a user may issue.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// GameConfig holds settings shared by every game operation.
type GameConfig struct {
	// Timezone is the IANA zone that defines calendar days.
	Timezone string `mapstructure:"timezone"`
}

// GrowthConfig holds the daily growth range.
type GrowthConfig struct {
	Min       int64 `mapstructure:"min"`
	Max       int64 `mapstructure:"max"`
	GraceDays int   `mapstructure:"grace_days"`
}

// PerksConfig holds perk settings.
type PerksConfig struct {
	HelpPussiesCoef float64 `mapstructure:"help_pussies_coef"`
}

// LoanConfig holds loan settings. A payout ratio outside (0, 1) disables loans.
type LoanConfig struct {
	PayoutRatio float64 `mapstructure:"payout_ratio"`
	Multiple    bool    `mapstructure:"multiple"`
}

// ChampionConfig holds the daily champion settings.
type ChampionConfig struct {
	Mode               string  `mapstructure:"mode"`
	RichExclusionRatio float64 `mapstructure:"rich_exclusion_ratio"`
	WeightScale        float64 `mapstructure:"weight_scale"`
	BonusMin           int64   `mapstructure:"bonus_min"`
	BonusMax           int64   `mapstructure:"bonus_max"`
	BonusAttempts      int     `mapstructure:"bonus_attempts"`
	ActiveDays         int     `mapstructure:"active_days"`
}

// LeaderboardConfig holds the chat top settings.
type LeaderboardConfig struct {
	PageSize     int  `mapstructure:"page_size"`
	ShowPosition bool `mapstructure:"show_position"`
	Paging       bool `mapstructure:"paging"`
}

// StoreConfig holds ledger access settings.
type StoreConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// FeaturesConfig holds feature toggles.
type FeaturesConfig struct {
	CallbackLocks bool `mapstructure:"callback_locks"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// ActiveWindow is how far back a player's last growth may be for the
// champion draw.
func (c *ChampionConfig) ActiveWindow() time.Duration {
	return time.Duration(c.ActiveDays) * 24 * time.Hour
}

// Location returns the configured game timezone.
func (g *GameConfig) Location() (*time.Location, error) {
	if g.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", g.Timezone, err)
	}
	return loc, nil
}

// Load reads configuration from file and environment variables.
// A .env file next to config.yaml or in the working directory is loaded
// into the environment first; variables already set win.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(configPath); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_HOST, LOAN_PAYOUT_RATIO
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(configPath string) error {
	for _, path := range []string{filepath.Join(configPath, ".env"), ".env"} {
		err := godotenv.Load(path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.rate_limit", 2)
	v.SetDefault("bot.rate_burst", 5)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "grower")
	v.SetDefault("database.name", "grower")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("log.level", "info")
	v.SetDefault("game.timezone", "UTC")

	v.SetDefault("growth.min", -5)
	v.SetDefault("growth.max", 10)
	v.SetDefault("growth.grace_days", 7)

	v.SetDefault("perks.help_pussies_coef", 0)

	v.SetDefault("loan.payout_ratio", 0)
	v.SetDefault("loan.multiple", false)

	v.SetDefault("champion.mode", string(champion.ModeRandom))
	v.SetDefault("champion.rich_exclusion_ratio", 0)
	v.SetDefault("champion.weight_scale", champion.DefaultWeightScale)
	v.SetDefault("champion.bonus_min", 1)
	v.SetDefault("champion.bonus_max", 5)
	v.SetDefault("champion.bonus_attempts", 1)
	v.SetDefault("champion.active_days", 7)

	v.SetDefault("leaderboard.page_size", 10)
	v.SetDefault("leaderboard.show_position", false)
	v.SetDefault("leaderboard.paging", false)

	v.SetDefault("store.timeout", "5s")
	v.SetDefault("features.callback_locks", true)
}

// Validate rejects settings no game operation can run with.
func (c *Config) Validate() error {
	if c.Growth.Min > c.Growth.Max {
		return fmt.Errorf("growth.min %d exceeds growth.max %d", c.Growth.Min, c.Growth.Max)
	}
	if c.Champion.BonusMin > c.Champion.BonusMax {
		return fmt.Errorf("champion.bonus_min %d exceeds champion.bonus_max %d", c.Champion.BonusMin, c.Champion.BonusMax)
	}
	if c.Champion.BonusAttempts < 0 {
		return errors.New("champion.bonus_attempts must not be negative")
	}
	if c.Leaderboard.PageSize <= 0 {
		return fmt.Errorf("leaderboard.page_size must be positive, got %d", c.Leaderboard.PageSize)
	}
	if _, err := champion.New(champion.Config{Mode: c.Champion.Mode}, nil); err != nil {
		return err
	}
	if _, err := c.Game.Location(); err != nil {
		return err
	}
	return nil
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.Admin.IDs, userID)
}

// IsChatAllowed checks if a chat ID is in the whitelist.
// An empty whitelist allows every chat.
func (c *Config) IsChatAllowed(chatID int64) bool {
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	return slices.Contains(c.Whitelist.Chats, chatID)
}
