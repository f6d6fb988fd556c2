package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Wallet backends
const (
	WalletPostgres = "postgres"
	WalletSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL   string
	DatabaseName  string
	WalletBackend string
	SQLitePath    string

	// Arena configuration
	ArenaDBPath   string
	SchematicsDir string
	ArenaWorld    string

	// Game server transport
	NATSURL            string
	GameRequestTimeout time.Duration

	// HTTP API
	HTTPPort int
	APIToken string

	// Discord configuration
	DiscordToken     string
	DiscordChannelID string

	// Wager rules
	TaxPercent       float64
	MinWager         decimal.Decimal
	MaxWager         decimal.Decimal
	CountdownSeconds int
	SettlementDelay  time.Duration
	StartingBalance  decimal.Decimal
	PresetAmounts    []decimal.Decimal

	// OpenTelemetry
	OTelEnabled          bool
	OTelExporterType     string
	OTelOTLPEndpoint     string
	OTelServiceName      string
	OTelExportIntervalMs int

	// Environment
	Environment string // "development", "production" or "test"
	LogLevel    string
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = Load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DatabaseName:  os.Getenv("DATABASE_NAME"),
		WalletBackend: envString("WALLET_BACKEND", WalletPostgres),
		SQLitePath:    envString("SQLITE_PATH", "./data/economy.db"),

		ArenaDBPath:   envString("ARENA_DB_PATH", "./data/arenas.db"),
		SchematicsDir: envString("SCHEMATICS_DIR", "./data/schematics"),
		ArenaWorld:    envString("ARENA_WORLD", "wager_arenas"),

		NATSURL: envString("NATS_URL", "nats://localhost:4222"),

		APIToken: os.Getenv("API_TOKEN"),

		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),

		OTelEnabled:      os.Getenv("OTEL_ENABLED") == "true",
		OTelExporterType: envString("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint: envString("OTEL_OTLP_ENDPOINT", "localhost:4317"),
		OTelServiceName:  envString("OTEL_SERVICE_NAME", "arenawager"),

		Environment: envString("ENVIRONMENT", "development"),
		LogLevel:    envString("LOG_LEVEL", "info"),
	}

	var err error
	if config.HTTPPort, err = envInt("HTTP_PORT", 8080); err != nil {
		return nil, err
	}
	if config.CountdownSeconds, err = envInt("COUNTDOWN_SECONDS", 5); err != nil {
		return nil, err
	}
	if config.OTelExportIntervalMs, err = envInt("OTEL_EXPORT_INTERVAL_MS", 30000); err != nil {
		return nil, err
	}

	timeoutMs, err := envInt("GAME_REQUEST_TIMEOUT_MS", 5000)
	if err != nil {
		return nil, err
	}
	config.GameRequestTimeout = time.Duration(timeoutMs) * time.Millisecond

	delay, err := envInt("SETTLEMENT_DELAY_SECONDS", 3)
	if err != nil {
		return nil, err
	}
	config.SettlementDelay = time.Duration(delay) * time.Second

	config.TaxPercent = 3.0
	if v := os.Getenv("TAX_PERCENT"); v != "" {
		if config.TaxPercent, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("invalid TAX_PERCENT %q: %w", v, err)
		}
	}

	if config.MinWager, err = envDecimal("MIN_WAGER", 100); err != nil {
		return nil, err
	}
	if config.MaxWager, err = envDecimal("MAX_WAGER", 1_000_000); err != nil {
		return nil, err
	}
	if config.StartingBalance, err = envDecimal("STARTING_BALANCE", 10000); err != nil {
		return nil, err
	}
	if config.PresetAmounts, err = parseAmounts(envString("PRESET_AMOUNTS", "1000,5000,10000,50000,100000")); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the loaded values for consistency
func (c *Config) Validate() error {
	if c.MinWager.GreaterThan(c.MaxWager) {
		return fmt.Errorf("MIN_WAGER (%s) must not exceed MAX_WAGER (%s)", c.MinWager, c.MaxWager)
	}
	if c.TaxPercent < 0 || c.TaxPercent >= 100 {
		return fmt.Errorf("TAX_PERCENT must be in [0, 100), got %v", c.TaxPercent)
	}
	if c.CountdownSeconds < 0 {
		return fmt.Errorf("COUNTDOWN_SECONDS must not be negative")
	}
	if c.SettlementDelay < 0 {
		return fmt.Errorf("SETTLEMENT_DELAY_SECONDS must not be negative")
	}

	switch c.WalletBackend {
	case WalletPostgres:
		if c.Environment != "test" && c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres wallet")
		}
	case WalletSQLite:
	default:
		return fmt.Errorf("unknown WALLET_BACKEND %q", c.WalletBackend)
	}
	return nil
}

// ExportInterval is the OpenTelemetry export period
func (c *Config) ExportInterval() time.Duration {
	return time.Duration(c.OTelExportIntervalMs) * time.Millisecond
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envDecimal(key string, fallback int64) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return decimal.NewFromInt(fallback), nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func parseAmounts(s string) ([]decimal.Decimal, error) {
	var amounts []decimal.Decimal
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := decimal.NewFromString(part)
		if err != nil {
			return nil, fmt.Errorf("invalid preset amount %q: %w", part, err)
		}
		amounts = append(amounts, d)
	}
	return amounts, nil
}
