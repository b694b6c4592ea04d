// Package player implements the participant actor: the loop one participant
// runs for the whole game, dealing when its round comes up and playing turns
// otherwise.
package player

import (
	"context"
	"fmt"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/greasycards/internal/bag"
	"github.com/lox/greasycards/internal/randutil"
	"github.com/lox/greasycards/internal/table"
)

// Chip limits for what a player eats from the bag after a round.
const (
	DefaultMinChips = 1
	DefaultMaxChips = 5
)

// Participant is one player. Its rng is private: only the goroutine running
// Run touches it.
type Participant struct {
	id       int
	rng      *rand.Rand
	bag      *bag.Bag
	logger   *log.Logger
	minChips int
	maxChips int

	outcomes []table.Outcome
}

// Option configures a Participant.
type Option func(*Participant)

// WithChips sets the range a participant eats from the bag each round.
func WithChips(lo, hi int) Option {
	return func(p *Participant) {
		p.minChips = lo
		p.maxChips = hi
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Participant) {
		p.logger = logger
	}
}

// New creates participant id with its own rng stream.
func New(id int, rng *rand.Rand, b *bag.Bag, opts ...Option) *Participant {
	p := &Participant{
		id:       id,
		rng:      rng,
		bag:      b,
		logger:   log.Default(),
		minChips: DefaultMinChips,
		maxChips: DefaultMaxChips,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithPrefix("player").With("id", id)
	return p
}

// ID returns the participant's identity.
func (p *Participant) ID() int {
	return p.id
}

// Outcomes returns what the participant observed, one entry per round. Only
// safe to call after Run returns.
func (p *Participant) Outcomes() []table.Outcome {
	return p.outcomes
}

// Run plays every round of the game at t. Any error aborts the table so the
// other participants are released instead of waiting forever.
func (p *Participant) Run(ctx context.Context, t *table.Table) error {
	for round := range t.Rounds() {
		if err := ctx.Err(); err != nil {
			t.Abort(err)
			return err
		}
		if err := p.playRound(t, round); err != nil {
			t.Abort(err)
			return fmt.Errorf("player %d, round %d: %w", p.id, round, err)
		}
	}
	return nil
}

func (p *Participant) playRound(t *table.Table, round int) error {
	dealer := t.Dealer(round) == p.id

	if dealer {
		if err := t.SetupRound(p.id); err != nil {
			return err
		}
	} else {
		if err := t.AwaitDealerReady(round); err != nil {
			return err
		}
		if err := p.playTurns(t); err != nil {
			return err
		}
		if err := p.eat(); err != nil {
			return err
		}
	}

	if err := t.AwaitActed(); err != nil {
		return err
	}
	outcome := t.Report(p.id)
	p.outcomes = append(p.outcomes, outcome)
	if err := t.AwaitReported(); err != nil {
		return err
	}

	if dealer {
		return t.TeardownRound(p.id)
	}
	return nil
}

// playTurns takes turns until the round has a winner.
func (p *Participant) playTurns(t *table.Table) error {
	for {
		res, err := t.TakeTurn(p.id, p.rng)
		if err != nil {
			return err
		}
		if res.Won {
			p.logger.Debug("Won round", "card", res.Hand)
		}
		if res.Won || !res.Acted {
			break
		}
	}
	return t.FinishTurns(p.id)
}

func (p *Participant) eat() error {
	amount := randutil.Between(p.rng, p.minChips, p.maxChips)
	c, err := p.bag.Consume(p.id, amount)
	if err != nil {
		return err
	}
	if c.Refilled {
		p.logger.Debug("Opened a new bag", "before", c.Before, "after", c.After)
	}
	return nil
}
