// Package deck implements the array-backed deck the dealer shuffles and the
// players draw from.
//
// The deck keeps two cursors over a fixed ring of Capacity slots: draw points
// at the next card to hand out and returnPoint at the next free slot for a
// discard. Discards re-enter the ring behind the last live card, so the live
// region can grow past its initial size without reallocating.
//
// Deck has no lock of its own. Callers serialize access.
package deck

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
)

// Capacity is the number of slots in the ring. It must exceed Size to leave
// room for returned discards.
const Capacity = 2 * Size

var (
	// ErrEmpty is returned when drawing from a deck with no live cards.
	ErrEmpty = errors.New("deck: no cards left to draw")
	// ErrExhausted is returned when a returned card would overrun the draw
	// cursor.
	ErrExhausted = errors.New("deck: return point caught up with draw cursor")
)

// Deck represents the ring of card slots shared by a table.
type Deck struct {
	cards       [Capacity]Card
	draw        int
	returnPoint int
	live        int
}

// New returns an initialized, unshuffled deck.
func New() *Deck {
	d := &Deck{}
	d.Initialize()
	return d
}

// Initialize restores the canonical ordered multiset (every rank Suits times)
// and resets both cursors. Anything returned earlier is dropped.
func (d *Deck) Initialize() {
	d.cards = [Capacity]Card{}
	i := 0
	for rank := Ace; rank <= King; rank++ {
		for range Suits {
			d.cards[i] = rank
			i++
		}
	}
	d.draw = 0
	d.returnPoint = Size
	d.live = Size
}

// Shuffle runs Fisher-Yates over the initial region [0, Size). It must be
// called straight after Initialize, before any card is drawn.
func (d *Deck) Shuffle(rng *rand.Rand) {
	for i := Size - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the card at the draw cursor.
func (d *Deck) Draw() (Card, error) {
	if d.live == 0 {
		return NoCard, ErrEmpty
	}
	card := d.cards[d.draw]
	d.cards[d.draw] = NoCard
	d.draw = (d.draw + 1) % Capacity
	d.live--
	return card, nil
}

// Return puts card back at the return point.
func (d *Deck) Return(card Card) error {
	if !card.Valid() {
		return fmt.Errorf("deck: cannot return %v", card)
	}
	if d.live+1 >= Capacity {
		return ErrExhausted
	}
	d.cards[d.returnPoint] = card
	d.returnPoint = (d.returnPoint + 1) % Capacity
	d.live++
	return nil
}

// DealInitial draws the target card and then one card for every participant
// except dealer, in turn order starting at dealer+1. The returned hands are
// indexed by participant id; the dealer's slot holds NoCard. The draw cursor
// advances by players.
func (d *Deck) DealInitial(players, dealer int) ([]Card, Card, error) {
	if players < 2 || dealer < 0 || dealer >= players {
		return nil, NoCard, fmt.Errorf("deck: cannot deal %d players with dealer %d", players, dealer)
	}
	target, err := d.Draw()
	if err != nil {
		return nil, NoCard, fmt.Errorf("drawing target: %w", err)
	}
	hands := make([]Card, players)
	for offset := 1; offset < players; offset++ {
		id := (dealer + offset) % players
		card, err := d.Draw()
		if err != nil {
			return nil, NoCard, fmt.Errorf("dealing participant %d: %w", id, err)
		}
		hands[id] = card
	}
	return hands, target, nil
}

// Remaining returns the number of live cards.
func (d *Deck) Remaining() int {
	return d.live
}

// Cards returns a copy of the live cards in draw order.
func (d *Deck) Cards() []Card {
	out := make([]Card, 0, d.live)
	for i := 0; i < d.live; i++ {
		out = append(out, d.cards[(d.draw+i)%Capacity])
	}
	return out
}

// Cursors exposes the draw and return cursors for logging.
func (d *Deck) Cursors() (draw, returnPoint int) {
	return d.draw, d.returnPoint
}
