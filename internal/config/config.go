// Package config loads the runtime configuration from the environment,
// with an optional .env file supplying defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/arcanabot/arcana/internal/ledger"
)

// Config is the unified runtime configuration.
type Config struct {
	// Telegram credentials
	BotToken      string
	ProviderToken string

	// Ledger settings
	StatePath    string
	FreeReadings int

	// Content settings
	PacksFile string
	CardsDir  string
	Currency  string

	// Observability settings
	ListenAddr string
	LogLevel   string
	LogFormat  string
	LogFile    string
}

// Defaults returns the baseline configuration before environment overrides.
func Defaults() *Config {
	return &Config{
		StatePath:    "users_state.json",
		FreeReadings: ledger.DefaultFreeQuota,
		CardsDir:     "cards",
		Currency:     "USD",
		ListenAddr:   ":9091",
		LogLevel:     "info",
		LogFormat:    "auto",
	}
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; variables already set in the real environment
// win over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment overrides from .env")
	}

	cfg := Defaults()

	cfg.BotToken = os.Getenv("BOT_TOKEN")
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is not set")
	}
	cfg.ProviderToken = os.Getenv("PROVIDER_TOKEN")
	if cfg.ProviderToken == "" {
		return nil, fmt.Errorf("PROVIDER_TOKEN is not set (connect a payment provider via @BotFather)")
	}

	if statePath := os.Getenv("STATE_PATH"); statePath != "" {
		cfg.StatePath = statePath
	}
	if freeReadings := os.Getenv("FREE_READINGS"); freeReadings != "" {
		n, err := strconv.Atoi(freeReadings)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid FREE_READINGS %q: expected a non-negative integer", freeReadings)
		}
		cfg.FreeReadings = n
	}

	if packsFile := os.Getenv("PACKS_FILE"); packsFile != "" {
		cfg.PacksFile = packsFile
	}
	if cardsDir := os.Getenv("CARDS_DIR"); cardsDir != "" {
		cfg.CardsDir = cardsDir
	}
	if currency := os.Getenv("CURRENCY"); currency != "" {
		cfg.Currency = currency
	}

	if listenAddr := os.Getenv("LISTEN_ADDR"); listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		cfg.LogFile = logFile
	}

	return cfg, nil
}
