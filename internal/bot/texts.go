package bot

import (
	"fmt"
	"strings"

	"github.com/arcanabot/arcana/internal/catalog"
	"github.com/arcanabot/arcana/internal/ledger"
	"github.com/arcanabot/arcana/internal/tarot"
)

const (
	ritualText = "Focus on your question…\n" +
		"Breathe deeply.\n" +
		"The deck whispers in the dark… ✨"

	paywallText = "🧙‍♂️✨ *Hold, seeker of secrets!* ✨\n\n" +
		"Your free readings are spent, and the arcana demand fresh energy for new revelations.\n\n" +
		"🔮 Want to continue *without waiting* and receive more hints of fate?\n" +
		"Pick a pack below and I will open the next layer of magic:"

	buyMenuText = "🧙‍♂️💫 *Choose your artifact of access:*"

	backMenuText = "🔙 Returning to the menu…"

	unknownPackText = "That pack has vanished from the catalog. Send /start and try again."

	celticCrossText = "*Celtic cross*\n\n" +
		"The full ten-card reading will appear here soon. For now, feel the energy of the spread ✨"

	natalLockedText = "🪐🔒 The *Natal chart* is sealed by the stars.\n\n" +
		"I open it only for those who strengthen their path with the pack:\n" +
		"🔮 *10 readings + Natal chart*, and I will decode your celestial code ✨"

	natalActiveText = "🪐✨ *Natal chart is active!*\n\n" +
		"This chamber is still being furnished. Next step: your date, time and place of birth, and I will read the interpretation."

	paymentFallbackText = "✅ Payment received. If nothing was activated, send /start."
)

func startText(acct ledger.Account, freeQuota int) string {
	freeLeft := freeQuota - acct.FreeUsed
	if freeLeft < 0 {
		freeLeft = 0
	}
	return fmt.Sprintf(
		"✨ I am the mage of the tarot. Ask your question and I will read the signs of fate… 🧙‍♂️🔮\n\n"+
			"🎁 Free readings left: *%d* of %d\n"+
			"📿 Purchased readings on balance: *%d*\n\n"+
			"Choose a ritual:",
		freeLeft, freeQuota, acct.Credits,
	)
}

func orientationMark(drawn tarot.DrawnCard) (emoji, label string) {
	if drawn.Orientation == tarot.Reversed {
		return "🌙", "(reversed)"
	}
	return "✨", "(upright)"
}

func oneCardCaption(drawn tarot.DrawnCard) string {
	emoji, label := orientationMark(drawn)
	return fmt.Sprintf(
		"%s *%s* %s\n\n%s\n\nBreathe. The answer is already flowing toward you.",
		emoji, drawn.Card.Name, label, drawn.Meaning(),
	)
}

func threeCardText(spread []tarot.DrawnCard) string {
	var sb strings.Builder
	sb.WriteString("*Three cards - path of the soul*\n\n")
	for i, drawn := range spread {
		if i < len(tarot.ThreeCardPositions) {
			sb.WriteString(tarot.ThreeCardPositions[i])
			sb.WriteString("\n")
		}
		emoji, label := orientationMark(drawn)
		fmt.Fprintf(&sb, "%s *%s* %s\n%s\n\n", emoji, drawn.Card.Name, label, drawn.Meaning())
	}
	sb.WriteString("Three threads are woven. Fate is already moving…")
	return sb.String()
}

func paymentConfirmedText(pack catalog.Pack, acct ledger.Account) string {
	var sb strings.Builder
	sb.WriteString("✅✨ *The magic has accepted your payment!* ✨\n\n")
	fmt.Fprintf(&sb, "🎴 Credited: *%d readings*\n", pack.Credits)
	if pack.UnlocksNatal {
		sb.WriteString("🪐 The *Natal chart* is now open to you.\n")
	}
	fmt.Fprintf(&sb, "📿 Balance: *%d*\n\n", acct.Credits)
	sb.WriteString("Tell me… what do you wish to learn first? 🔮")
	return sb.String()
}
