// Package bot is the Telegram presentation layer. It renders menus, runs
// readings and drives the payment flow, but every gating and crediting
// decision is delegated to the ledger through the Gate interface.
package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/arcanabot/arcana/internal/catalog"
	"github.com/arcanabot/arcana/internal/ledger"
	"github.com/arcanabot/arcana/internal/tarot"
)

// Gate is the slice of the ledger the bot needs. Keeping it narrow lets
// handler logic run against a fake in tests.
type Gate interface {
	GetAccount(userID int64) ledger.Account
	ConsumeReading(userID int64) ledger.Decision
	ApplyCredit(userID int64, delta int, unlockNatal bool, paymentID string) (ledger.Account, error)
	FreeQuota() int
}

// Config holds the transport settings.
type Config struct {
	Token         string
	ProviderToken string
	Currency      string
	CardsDir      string
}

// Bot runs the Telegram long-polling loop.
type Bot struct {
	api   *tgbotapi.BotAPI
	gate  Gate
	packs *catalog.Catalog
	deck  *tarot.Deck

	providerToken string
	currency      string
	cardsDir      string
}

// New connects to the Telegram API and prepares the bot.
func New(cfg Config, gate Gate, packs *catalog.Catalog) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	log.Info().Str("username", api.Self.UserName).Msg("Authorized with Telegram")

	return &Bot{
		api:           api,
		gate:          gate,
		packs:         packs,
		deck:          tarot.NewDeck(),
		providerToken: cfg.ProviderToken,
		currency:      cfg.Currency,
		cardsDir:      cfg.CardsDir,
	}, nil
}

// Run polls for updates until the context is canceled. Updates are handled
// concurrently; the ledger serializes the state they touch.
func (b *Bot) Run(ctx context.Context) error {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := b.api.GetUpdatesChan(updateCfg)

	log.Info().Msg("Listening for Telegram updates")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	switch {
	case update.PreCheckoutQuery != nil:
		b.handlePreCheckout(update.PreCheckoutQuery)
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(update.Message)
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		log.Error().Err(err).Msg("Failed to send Telegram message")
	}
}
