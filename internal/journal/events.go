package journal

import (
	"fmt"

	"github.com/lox/greasycards/internal/deck"
)

// EventType represents a journal event type
type EventType string

// EventType constants for everything the game records
const (
	EventRoundStart   EventType = "round_start"
	EventShuffle      EventType = "shuffle"
	EventTarget       EventType = "target"
	EventDeal         EventType = "deal"
	EventDraw         EventType = "draw"
	EventDiscard      EventType = "discard"
	EventWin          EventType = "win"
	EventOutcome      EventType = "outcome"
	EventBagRefill    EventType = "bag_refill"
	EventBagConsume   EventType = "bag_consume"
	EventRoundEnd     EventType = "round_end"
	EventGameAborted  EventType = "game_aborted"
	EventGameFinished EventType = "game_finished"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is one line of the game journal. Fields that do not apply to a type
// are left at their zero value.
type Event struct {
	Type   EventType
	Round  int
	Player int
	Card   deck.Card
	Hand   deck.Card
	Cards  []deck.Card
	Amount int
	Level  int
	Won    bool
	Dealer bool
	Err    error
}

// Message renders the event as a journal line.
func (e Event) Message() string {
	p := e.Player + 1
	switch e.Type {
	case EventRoundStart:
		return fmt.Sprintf("ROUND %d: player %d is dealing", e.Round+1, p)
	case EventShuffle:
		return fmt.Sprintf("DEALER: deck after shuffle: %s", deck.Join(e.Cards))
	case EventTarget:
		return fmt.Sprintf("DEALER: greasy card is %s", e.Card)
	case EventDeal:
		return fmt.Sprintf("PLAYER %d: dealt %s", p, e.Card)
	case EventDraw:
		return fmt.Sprintf("PLAYER %d: hand %s, draws %s", p, e.Hand, e.Card)
	case EventDiscard:
		return fmt.Sprintf("PLAYER %d: discards %s, keeps %s", p, e.Card, e.Hand)
	case EventWin:
		return fmt.Sprintf("PLAYER %d: hand %s matches greasy card %s", p, e.Hand, e.Card)
	case EventOutcome:
		switch {
		case e.Dealer:
			return fmt.Sprintf("PLAYER %d: dealt this round", p)
		case e.Won:
			return fmt.Sprintf("PLAYER %d: won", p)
		default:
			return fmt.Sprintf("PLAYER %d: lost", p)
		}
	case EventBagRefill:
		return fmt.Sprintf("BAG: opened a new bag, %d chips left", e.Level)
	case EventBagConsume:
		return fmt.Sprintf("PLAYER %d: eats %d chips, %d chips left in bag", p, e.Amount, e.Level)
	case EventRoundEnd:
		return fmt.Sprintf("ROUND %d: over, winner is player %d", e.Round+1, p)
	case EventGameAborted:
		return fmt.Sprintf("GAME: aborted in round %d: %v", e.Round+1, e.Err)
	case EventGameFinished:
		return fmt.Sprintf("GAME: finished after %d rounds", e.Round)
	default:
		return string(e.Type)
	}
}
