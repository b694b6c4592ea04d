package deck

import (
	"fmt"
	"strconv"
	"strings"
)

// Card is a rank in [1,13]. Suits only add multiplicity, so they are not
// modeled.
type Card int

// NoCard marks an empty hand.
const NoCard Card = 0

const (
	Ace   Card = 1
	Jack  Card = 11
	Queen Card = 12
	King  Card = 13
)

const (
	// Ranks is the number of distinct card values.
	Ranks = 13
	// Suits is how many copies of each rank a fresh deck holds.
	Suits = 4
	// Size is the number of cards in a fresh deck.
	Size = Ranks * Suits
)

// Valid reports whether c is a real rank.
func (c Card) Valid() bool {
	return c >= Ace && c <= King
}

// String returns the short name of the rank (e.g. "A", "7", "Q").
func (c Card) String() string {
	switch c {
	case NoCard:
		return "-"
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	}
	if c.Valid() {
		return strconv.Itoa(int(c))
	}
	return "?"
}

// ParseCard parses a single rank as printed by String.
func ParseCard(s string) (Card, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return Ace, nil
	case "J":
		return Jack, nil
	case "Q":
		return Queen, nil
	case "K":
		return King, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || !Card(n).Valid() {
		return NoCard, fmt.Errorf("invalid card %q", s)
	}
	return Card(n), nil
}

// ParseCards parses a space separated list of ranks.
func ParseCards(s string) ([]Card, error) {
	fields := strings.Fields(s)
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// Join renders cards space separated, the way the game log prints them.
func Join(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
