// Package tarot provides the card content and drawing logic for readings.
// It carries no paywall logic; the gate decides whether a reading happens,
// the deck only decides what it says.
package tarot

import (
	"fmt"
	"math/rand/v2"
)

// Orientation is how a drawn card lies.
type Orientation string

const (
	Upright  Orientation = "upright"
	Reversed Orientation = "reversed"
)

// Card is one card of the deck with both of its meanings.
type Card struct {
	Code     string
	Name     string
	Upright  string
	Reversed string
}

// DrawnCard is a card together with the orientation it was drawn in.
type DrawnCard struct {
	Card        Card
	Orientation Orientation
}

// Meaning returns the interpretation matching the drawn orientation.
func (d DrawnCard) Meaning() string {
	if d.Orientation == Reversed {
		return d.Card.Reversed
	}
	return d.Card.Upright
}

// ImageFile returns the artwork file name for the drawn card, e.g.
// "00_up.jpg" or "00_rev.jpg".
func (d DrawnCard) ImageFile() string {
	suffix := "up"
	if d.Orientation == Reversed {
		suffix = "rev"
	}
	return fmt.Sprintf("%s_%s.jpg", d.Card.Code, suffix)
}

// ThreeCardPositions labels the cards of the three-card spread in order.
var ThreeCardPositions = []string{"🕰 Past", "🌟 Present", "🔮 Future"}

var yesNoAnswers = []string{
	"✅ Yes. The arcana speak plainly.",
	"❌ No. That door is closed for now, do not force it.",
	"❓ Perhaps. Change your course and the chance appears.",
}

var majorArcana = []Card{
	{
		Code:     "00",
		Name:     "0. The Fool",
		Upright:  "The Fool opens the door to a new chapter of your fate, full of possibility. Trust the current, it carries you toward where wonders happen.",
		Reversed: "You fear the unknown, or you leap without looking. Slow down, test your footing, then move with intent.",
	},
	{
		Code:     "01",
		Name:     "I. The Magician",
		Upright:  "The Magician reminds you: everything you need to create what you want is already in your hands. Focus your will and reality begins to answer.",
		Reversed: "Doubt and chaos scatter your power. Gather your energy into a single point and stop handing it to fear and other people's words.",
	},
	{
		Code:     "02",
		Name:     "II. The High Priestess",
		Upright:  "The High Priestess lifts the veil: the answer lives inside you. Trust intuition and silence, that is where the truth stays.",
		Reversed: "You ignore the signs, or you rush. A pause now is not a stop, it is the key to the right decision.",
	},
}

// Deck draws cards for readings. Draws are independent, so a spread may
// repeat a card, as a shuffled-and-recut table reading would.
type Deck struct {
	cards []Card
	randN func(int) int
}

// NewDeck returns the standard deck.
func NewDeck() *Deck {
	return &Deck{cards: majorArcana, randN: rand.IntN}
}

// Cards returns the cards of the deck.
func (d *Deck) Cards() []Card {
	return append([]Card(nil), d.cards...)
}

// Draw picks a random card in a random orientation.
func (d *Deck) Draw() DrawnCard {
	card := d.cards[d.randN(len(d.cards))]
	orientation := Upright
	if d.randN(2) == 1 {
		orientation = Reversed
	}
	return DrawnCard{Card: card, Orientation: orientation}
}

// DrawSpread draws n cards for a spread.
func (d *Deck) DrawSpread(n int) []DrawnCard {
	drawn := make([]DrawnCard, n)
	for i := range drawn {
		drawn[i] = d.Draw()
	}
	return drawn
}

// YesNo returns a random quick answer.
func (d *Deck) YesNo() string {
	return yesNoAnswers[d.randN(len(yesNoAnswers))]
}
