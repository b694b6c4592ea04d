// Package bag implements the shared chip bag players eat from after their
// turn.
package bag

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lox/greasycards/internal/journal"
)

// ErrOverdraw is returned for a request larger than a full bag.
var ErrOverdraw = errors.New("bag: request exceeds bag capacity")

// Consumption describes one debit.
type Consumption struct {
	Before   int
	After    int
	Refilled bool
}

// Bag is a counter refilled to its nominal capacity whenever a request would
// take it below zero.
//
// A refill throws away whatever was left in the old bag and the request is
// then served entirely from the new one, so right after a refill the level is
// Capacity-amount. The shortfall is never served from the old remainder.
type Bag struct {
	mu       sync.Mutex
	capacity int
	level    int
	sink     journal.Sink
}

// New returns an empty bag holding up to capacity chips. The first dealer
// opens it with Refill.
func New(capacity int, sink journal.Sink) (*Bag, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("bag: capacity must be positive, got %d", capacity)
	}
	if sink == nil {
		sink = journal.Discard
	}
	return &Bag{capacity: capacity, sink: sink}, nil
}

// Capacity returns the nominal size of a fresh bag.
func (b *Bag) Capacity() int {
	return b.capacity
}

// Level returns the current chip count.
func (b *Bag) Level() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.level
}

// Refill opens a new bag.
func (b *Bag) Refill() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
}

// Consume debits amount chips on behalf of player.
func (b *Bag) Consume(player, amount int) (Consumption, error) {
	if amount <= 0 {
		return Consumption{}, fmt.Errorf("bag: amount must be positive, got %d", amount)
	}
	if amount > b.capacity {
		return Consumption{}, fmt.Errorf("%w: %d > %d", ErrOverdraw, amount, b.capacity)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	c := Consumption{Before: b.level}
	if b.level < amount {
		b.refillLocked()
		c.Refilled = true
	}
	b.level -= amount
	c.After = b.level

	b.sink.Record(journal.Event{
		Type:   journal.EventBagConsume,
		Player: player,
		Amount: amount,
		Level:  b.level,
	})
	return c, nil
}

func (b *Bag) refillLocked() {
	b.level = b.capacity
	b.sink.Record(journal.Event{Type: journal.EventBagRefill, Level: b.level})
}
