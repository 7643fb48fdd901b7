package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Environment string            `mapstructure:"environment"`
	LogLevel    string            `mapstructure:"log_level"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Providers   ProvidersConfig   `mapstructure:"providers"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Movement    MovementConfig    `mapstructure:"movement"`
	Arbitrage   ArbitrageConfig   `mapstructure:"arbitrage"`
	Middle      MiddleConfig      `mapstructure:"middle"`
	Ensemble    EnsembleConfig    `mapstructure:"ensemble"`
	Calibration CalibrationConfig `mapstructure:"calibration"`
	Bankroll    BankrollConfig    `mapstructure:"bankroll"`
	Cleanup     CleanupConfig     `mapstructure:"cleanup"`
	Security    SecurityConfig    `mapstructure:"security"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	DatabaseURL     string `mapstructure:"database_url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime string `mapstructure:"conn_max_idle_time"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

type TelegramConfig struct {
	BotToken     string `mapstructure:"bot_token" json:"-" yaml:"-"`
	ChatID       string `mapstructure:"chat_id"`
	PollInterval string `mapstructure:"poll_interval"`
}

// ProvidersConfig points the collector at the odds feed. Sports is the
// list of sport keys polled each cycle; Bookmakers narrows quotes to
// books we track (empty means accept all).
type ProvidersConfig struct {
	OddsAPIBaseURL string   `mapstructure:"odds_api_base_url"`
	OddsAPIKey     string   `mapstructure:"odds_api_key" json:"-" yaml:"-"`
	Timeout        string   `mapstructure:"timeout"`
	Regions        []string `mapstructure:"regions"`
	Sports         []string `mapstructure:"sports"`
	Bookmakers     []string `mapstructure:"bookmakers"`
}

type PipelineConfig struct {
	CollectionInterval string `mapstructure:"collection_interval"`
	MaxConcurrentGames int    `mapstructure:"max_concurrent_games"`
	MaxRetries         int    `mapstructure:"max_retries"`
	SnapshotBatchSize  int    `mapstructure:"snapshot_batch_size"`
}

type MovementConfig struct {
	SignificantPoints   float64 `mapstructure:"significant_points"`
	HighSeverityPoints  float64 `mapstructure:"high_severity_points"`
	SteamPoints         float64 `mapstructure:"steam_points"`
	SteamWindow         string  `mapstructure:"steam_window"`
	SharpPoints         float64 `mapstructure:"sharp_points"`
	PublicMajorityLimit float64 `mapstructure:"public_majority_limit"`
	AlertTTLHours       int     `mapstructure:"alert_ttl_hours"`
}

type ArbitrageConfig struct {
	MinROIPercent  float64 `mapstructure:"min_roi_percent"`
	DefaultStake   float64 `mapstructure:"default_stake"`
	ScanInterval   string  `mapstructure:"scan_interval"`
	MaxQuoteAge    string  `mapstructure:"max_quote_age"`
}

type MiddleConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	MinGapPoints   float64 `mapstructure:"min_gap_points"`
	MinProbability float64 `mapstructure:"min_probability"`
}

type EnsembleConfig struct {
	Weights            map[string]float64 `mapstructure:"weights"`
	HomeFieldPoints    float64            `mapstructure:"home_field_points"`
	EloPointsPerRating float64            `mapstructure:"elo_points_per_rating"`
	EloKFactor         float64            `mapstructure:"elo_k_factor"`
}

type CalibrationConfig struct {
	LookbackDays         int     `mapstructure:"lookback_days"`
	MinSampleSize        int     `mapstructure:"min_sample_size"`
	WeatherMinSampleSize int     `mapstructure:"weather_min_sample_size"`
	ConfidenceFloor      float64 `mapstructure:"confidence_floor"`
	ConfidenceCeiling    float64 `mapstructure:"confidence_ceiling"`
}

type BankrollConfig struct {
	DefaultBankroll float64 `mapstructure:"default_bankroll"`
	KellyFraction   float64 `mapstructure:"kelly_fraction"`
}

type CleanupConfig struct {
	SnapshotRetentionHours    int `mapstructure:"snapshot_retention_hours"`
	AlertRetentionHours       int `mapstructure:"alert_retention_hours"`
	OpportunityRetentionHours int `mapstructure:"opportunity_retention_hours"`
	CleanupIntervalMinutes    int `mapstructure:"cleanup_interval_minutes"`
}

type SecurityConfig struct {
	JWTSecret       string `mapstructure:"jwt_secret" json:"-" yaml:"-"`
	JWTExpiry       string `mapstructure:"jwt_expiry"`
	BcryptCost      int    `mapstructure:"bcrypt_cost"`
	AdminAPIKeyHash string `mapstructure:"admin_api_key_hash" json:"-" yaml:"-"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvPrefix("SHARPLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bind secrets that arrive without the prefix
	if err := viper.BindEnv("security.jwt_secret", "JWT_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind JWT_SECRET environment variable: %w", err)
	}
	if err := viper.BindEnv("providers.odds_api_key", "ODDS_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind ODDS_API_KEY environment variable: %w", err)
	}
	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	environment := strings.ToLower(config.Environment)

	// Validate JWT secret in non-development environments
	if environment != "development" && config.Security.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required in non-development environments")
	}

	// Validate JWT expiry duration
	if config.Security.JWTExpiry != "" {
		if _, err := time.ParseDuration(config.Security.JWTExpiry); err != nil {
			return nil, fmt.Errorf("invalid JWT expiry duration: %w", err)
		}
	}

	// Validate bcrypt cost parameter
	if config.Security.BcryptCost < bcrypt.MinCost || config.Security.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, config.Security.BcryptCost)
	}

	if err := validateIntervals(&config); err != nil {
		return nil, err
	}

	if err := validateEnsembleWeights(config.Ensemble.Weights); err != nil {
		return nil, err
	}

	// Update config with normalized environment
	config.Environment = environment

	return &config, nil
}

// validateIntervals parses every duration-valued key once at startup so
// services can use MustParseDuration-style accessors afterwards.
func validateIntervals(config *Config) error {
	durations := map[string]string{
		"providers.timeout":            config.Providers.Timeout,
		"pipeline.collection_interval": config.Pipeline.CollectionInterval,
		"movement.steam_window":        config.Movement.SteamWindow,
		"arbitrage.scan_interval":      config.Arbitrage.ScanInterval,
		"arbitrage.max_quote_age":      config.Arbitrage.MaxQuoteAge,
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
	}
	return nil
}

// validateEnsembleWeights rejects weight maps that do not sum to 1
// within a small tolerance. A missing map falls back to defaults later.
func validateEnsembleWeights(weights map[string]float64) error {
	if len(weights) == 0 {
		return nil
	}
	var sum float64
	for _, w := range weights {
		if w < 0 {
			return errors.New("ensemble weights must be non-negative")
		}
		sum += w
	}
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("ensemble weights must sum to 1.0, got %.4f", sum)
	}
	return nil
}

// ParseDuration returns the parsed duration for a config value that
// validateIntervals has already accepted, falling back when empty.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Set database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "sharpline")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "300s")
	viper.SetDefault("database.conn_max_idle_time", "60s")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.service_name", "sharpline")
	viper.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	viper.SetDefault("telemetry.sample_rate", 1.0)

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", "")
	viper.SetDefault("telegram.poll_interval", "1m")

	// Providers
	viper.SetDefault("providers.odds_api_base_url", "https://api.the-odds-api.com/v4")
	viper.SetDefault("providers.odds_api_key", "")
	viper.SetDefault("providers.timeout", "15s")
	viper.SetDefault("providers.regions", []string{"us"})
	viper.SetDefault("providers.sports", []string{"americanfootball_nfl"})
	viper.SetDefault("providers.bookmakers", []string{})

	// Pipeline
	viper.SetDefault("pipeline.collection_interval", "5m")
	viper.SetDefault("pipeline.max_concurrent_games", 8)
	viper.SetDefault("pipeline.max_retries", 3)
	viper.SetDefault("pipeline.snapshot_batch_size", 100)

	// Movement
	viper.SetDefault("movement.significant_points", 2.0)
	viper.SetDefault("movement.high_severity_points", 3.0)
	viper.SetDefault("movement.steam_points", 1.0)
	viper.SetDefault("movement.steam_window", "15m")
	viper.SetDefault("movement.sharp_points", 1.5)
	viper.SetDefault("movement.public_majority_limit", 60.0)
	viper.SetDefault("movement.alert_ttl_hours", 48)

	// Arbitrage
	viper.SetDefault("arbitrage.min_roi_percent", 0.5)
	viper.SetDefault("arbitrage.default_stake", 1000.0)
	viper.SetDefault("arbitrage.scan_interval", "2m")
	viper.SetDefault("arbitrage.max_quote_age", "10m")

	// Middles
	viper.SetDefault("middle.enabled", true)
	viper.SetDefault("middle.min_gap_points", 1.0)
	viper.SetDefault("middle.min_probability", 0.05)

	// Ensemble
	viper.SetDefault("ensemble.weights", map[string]float64{
		"market":      0.40,
		"elo":         0.25,
		"regression":  0.15,
		"momentum":    0.10,
		"situational": 0.10,
	})
	viper.SetDefault("ensemble.home_field_points", 2.0)
	viper.SetDefault("ensemble.elo_points_per_rating", 25.0)
	viper.SetDefault("ensemble.elo_k_factor", 20.0)

	// Calibration
	viper.SetDefault("calibration.lookback_days", 120)
	viper.SetDefault("calibration.min_sample_size", 20)
	viper.SetDefault("calibration.weather_min_sample_size", 10)
	viper.SetDefault("calibration.confidence_floor", 50.0)
	viper.SetDefault("calibration.confidence_ceiling", 95.0)

	// Bankroll
	viper.SetDefault("bankroll.default_bankroll", 1000.0)
	viper.SetDefault("bankroll.kelly_fraction", 0.25)

	// Cleanup
	viper.SetDefault("cleanup.snapshot_retention_hours", 720)
	viper.SetDefault("cleanup.alert_retention_hours", 168)
	viper.SetDefault("cleanup.opportunity_retention_hours", 72)
	viper.SetDefault("cleanup.cleanup_interval_minutes", 60)

	// Security
	viper.SetDefault("security.jwt_secret", "")
	viper.SetDefault("security.jwt_expiry", "24h")
	viper.SetDefault("security.bcrypt_cost", 12)
	viper.SetDefault("security.admin_api_key_hash", "")
}
