package bot

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

// ritualPause is the dramatic beat between the focus prompt and the cards.
var ritualPause = 2 * time.Second

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if msg.SuccessfulPayment != nil {
		b.handleSuccessfulPayment(msg)
		return
	}
	if msg.IsCommand() {
		if msg.Command() == "start" {
			b.handleStart(msg)
		}
		return
	}

	switch msg.Text {
	case menuOneCard:
		b.handleOneCard(msg)
	case menuThreeCards:
		b.handleThreeCards(msg)
	case menuCelticCross:
		b.handleCelticCross(msg)
	case menuYesNo:
		b.handleYesNo(msg)
	case menuNatalChart:
		b.handleNatalChart(msg)
	case menuBuyReadings:
		b.sendPaywall(msg.Chat.ID, buyMenuText)
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	acct := b.gate.GetAccount(msg.From.ID)
	reply := tgbotapi.NewMessage(msg.Chat.ID, startText(acct, b.gate.FreeQuota()))
	reply.ParseMode = tgbotapi.ModeMarkdown
	reply.ReplyMarkup = mainMenuKeyboard()
	b.send(reply)
}

// consumeOrPaywall runs the gating transaction for one reading. On Blocked
// it shows the purchase prompt and reports false.
func (b *Bot) consumeOrPaywall(msg *tgbotapi.Message) bool {
	decision := b.gate.ConsumeReading(msg.From.ID)
	if decision.Allowed {
		return true
	}
	b.sendPaywall(msg.Chat.ID, paywallText)
	return false
}

func (b *Bot) sendPaywall(chatID int64, text string) {
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeMarkdown
	reply.ReplyMarkup = paywallKeyboard(b.packs.Packs(), b.currency)
	b.send(reply)
}

func (b *Bot) ritualDelay(chatID int64) {
	b.send(tgbotapi.NewMessage(chatID, ritualText))
	time.Sleep(ritualPause)
}

func (b *Bot) handleOneCard(msg *tgbotapi.Message) {
	if !b.consumeOrPaywall(msg) {
		return
	}
	b.ritualDelay(msg.Chat.ID)

	drawn := b.deck.Draw()
	caption := oneCardCaption(drawn)
	path := filepath.Join(b.cardsDir, drawn.ImageFile())
	if _, err := os.Stat(path); err == nil {
		photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FilePath(path))
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeMarkdown
		b.send(photo)
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, caption)
	reply.ParseMode = tgbotapi.ModeMarkdown
	b.send(reply)
}

func (b *Bot) handleThreeCards(msg *tgbotapi.Message) {
	if !b.consumeOrPaywall(msg) {
		return
	}
	b.ritualDelay(msg.Chat.ID)

	spread := b.deck.DrawSpread(3)

	var media []interface{}
	for _, drawn := range spread {
		path := filepath.Join(b.cardsDir, drawn.ImageFile())
		if _, err := os.Stat(path); err == nil {
			media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FilePath(path)))
		}
	}
	if len(media) > 0 {
		if _, err := b.api.SendMediaGroup(tgbotapi.NewMediaGroup(msg.Chat.ID, media)); err != nil {
			log.Error().Err(err).Msg("Failed to send card images")
		}
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, threeCardText(spread))
	reply.ParseMode = tgbotapi.ModeMarkdown
	b.send(reply)
}

func (b *Bot) handleCelticCross(msg *tgbotapi.Message) {
	if !b.consumeOrPaywall(msg) {
		return
	}
	b.ritualDelay(msg.Chat.ID)

	reply := tgbotapi.NewMessage(msg.Chat.ID, celticCrossText)
	reply.ParseMode = tgbotapi.ModeMarkdown
	b.send(reply)
}

func (b *Bot) handleYesNo(msg *tgbotapi.Message) {
	if !b.consumeOrPaywall(msg) {
		return
	}
	b.ritualDelay(msg.Chat.ID)
	b.send(tgbotapi.NewMessage(msg.Chat.ID, b.deck.YesNo()))
}

func (b *Bot) handleNatalChart(msg *tgbotapi.Message) {
	acct := b.gate.GetAccount(msg.From.ID)
	if !acct.NatalUnlocked {
		b.sendPaywall(msg.Chat.ID, natalLockedText)
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, natalActiveText)
	reply.ParseMode = tgbotapi.ModeMarkdown
	b.send(reply)
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Warn().Err(err).Msg("Failed to answer callback query")
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	if packID, ok := strings.CutPrefix(cb.Data, buyCallbackPrefix); ok {
		b.sendInvoice(chatID, packID)
		return
	}
	if cb.Data == backMenuCallback {
		reply := tgbotapi.NewMessage(chatID, backMenuText)
		reply.ReplyMarkup = mainMenuKeyboard()
		b.send(reply)
	}
}

func (b *Bot) sendInvoice(chatID int64, packID string) {
	pack, ok := b.packs.Get(packID)
	if !ok {
		log.Warn().Str("packID", packID).Msg("Buy request for unknown pack")
		b.send(tgbotapi.NewMessage(chatID, unknownPackText))
		return
	}

	invoice := tgbotapi.NewInvoice(
		chatID,
		pack.Title,
		pack.Description,
		pack.ID, // returned in successful_payment.invoice_payload
		b.providerToken,
		"arcana-"+pack.ID,
		b.currency,
		[]tgbotapi.LabeledPrice{{Label: pack.Label, Amount: pack.AmountCents}},
	)
	b.send(invoice)
}

func (b *Bot) handlePreCheckout(query *tgbotapi.PreCheckoutQuery) {
	answer := tgbotapi.PreCheckoutConfig{PreCheckoutQueryID: query.ID, OK: true}
	if _, err := b.api.Request(answer); err != nil {
		log.Error().Err(err).Msg("Failed to answer pre-checkout query")
	}
}

func (b *Bot) handleSuccessfulPayment(msg *tgbotapi.Message) {
	payment := msg.SuccessfulPayment
	text, credited := b.applyPayment(msg.From.ID, payment.InvoicePayload, paymentChargeID(payment))

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	if credited {
		reply.ParseMode = tgbotapi.ModeMarkdown
		reply.ReplyMarkup = mainMenuKeyboard()
	}
	b.send(reply)
}

// applyPayment credits a confirmed payment through the gate and builds the
// confirmation message. It reports false when the payload did not match a
// pack or crediting failed, in which case the generic fallback text is used.
func (b *Bot) applyPayment(userID int64, payload, chargeID string) (string, bool) {
	pack, ok := b.packs.Get(payload)
	if !ok {
		log.Warn().
			Int64("userID", userID).
			Str("payload", payload).
			Msg("Payment confirmed for unknown pack")
		return paymentFallbackText, false
	}

	acct, err := b.gate.ApplyCredit(userID, pack.Credits, pack.UnlocksNatal, chargeID)
	if err != nil {
		log.Error().
			Err(err).
			Int64("userID", userID).
			Str("packID", pack.ID).
			Msg("Failed to apply confirmed payment")
		return paymentFallbackText, false
	}
	return paymentConfirmedText(pack, acct), true
}

// paymentChargeID picks the idempotency key for a payment event. The
// provider charge ID is preferred; a payment with no usable charge ID still
// must be credited, so a fresh unique key is generated as a last resort.
func paymentChargeID(payment *tgbotapi.SuccessfulPayment) string {
	if payment.ProviderPaymentChargeID != "" {
		return payment.ProviderPaymentChargeID
	}
	if payment.TelegramPaymentChargeID != "" {
		return payment.TelegramPaymentChargeID
	}
	return ulid.Make().String()
}
