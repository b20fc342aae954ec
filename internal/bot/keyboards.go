package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/arcanabot/arcana/internal/catalog"
)

// Main menu button labels. The message handler matches on these exact
// strings, so they double as the routing table for reply-keyboard taps.
const (
	menuOneCard     = "🔮 One card - fate's advice"
	menuThreeCards  = "🃏 Three cards - path of the soul"
	menuCelticCross = "✨ Celtic cross - full reading"
	menuYesNo       = "❓ Yes / No - quick answer"
	menuNatalChart  = "🪐 Natal chart"
	menuBuyReadings = "💳 Buy readings"
)

const (
	buyCallbackPrefix = "buy:"
	backMenuCallback  = "back_menu"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuOneCard)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuThreeCards)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuCelticCross)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuYesNo)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuNatalChart)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuBuyReadings)),
	)
}

func paywallKeyboard(packs []catalog.Pack, currency string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(packs)+1)
	for _, pack := range packs {
		label := fmt.Sprintf("%s (%s)", pack.Title, formatPrice(pack.AmountCents, currency))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, buyCallbackPrefix+pack.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 Back to menu", backMenuCallback),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func formatPrice(cents int, currency string) string {
	if currency == "USD" {
		return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
	}
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}
