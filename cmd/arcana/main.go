package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/arcanabot/arcana/internal/bot"
	"github.com/arcanabot/arcana/internal/catalog"
	"github.com/arcanabot/arcana/internal/config"
	"github.com/arcanabot/arcana/internal/ledger"
	"github.com/arcanabot/arcana/internal/logging"
	"github.com/arcanabot/arcana/internal/store"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "arcana",
	Short:   "Arcana - tarot reading bot with a metered paywall",
	Long:    `Arcana is a Telegram tarot bot that grants every user a few free readings and sells further readings as credit packs through in-chat payments`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		runBot()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Arcana %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runBot() {
	// Baseline logger for early startup messages
	logging.Init(logging.Config{
		Format:    "auto",
		Level:     "info",
		Component: "arcana",
	})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Re-initialize logging with configuration-driven settings
	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "arcana",
		FilePath:  cfg.LogFile,
	})
	defer logging.Shutdown()

	log.Info().Msg("Starting Arcana")

	fileStore := store.NewFileStore(cfg.StatePath)
	accountLedger, err := ledger.New(fileStore, cfg.FreeReadings)
	if err != nil {
		// A corrupt state artifact stops startup: wiping it would erase
		// paid balances.
		log.Fatal().Err(err).Str("statePath", cfg.StatePath).Msg("Failed to load account ledger")
	}

	packs, err := catalog.Load(cfg.PacksFile)
	if err != nil {
		log.Fatal().Err(err).Str("packsFile", cfg.PacksFile).Msg("Failed to load pack catalog")
	}
	if cfg.PacksFile != "" {
		watcher, err := catalog.NewWatcher(packs)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create catalog watcher, pack changes will require restart")
		} else if err := watcher.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start catalog watcher, pack changes will require restart")
		} else {
			defer watcher.Stop()
		}
	}

	tarotBot, err := bot.New(bot.Config{
		Token:         cfg.BotToken,
		ProviderToken: cfg.ProviderToken,
		Currency:      cfg.Currency,
		CardsDir:      cfg.CardsDir,
	}, accountLedger, packs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Telegram")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startStatusServer(ctx, cfg.ListenAddr)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return tarotBot.Run(ctx)
	})

	if err := group.Wait(); err != nil {
		log.Error().Err(err).Msg("Bot stopped with error")
	}

	log.Info().Msg("Shutting down, saving account state")
	if err := accountLedger.Close(); err != nil {
		log.Error().Err(err).Msg("Final account state save failed")
	}
	log.Info().Msg("Arcana stopped")
}
