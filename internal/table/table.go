// Package table coordinates the participants of a greasy card game.
//
// A Table is the shared turn and role state every participant synchronizes
// on. There is no scheduler: each participant drives its own loop and blocks
// on the table until its predicate holds. A round moves through these steps:
//
//   - the dealer for round r (participant r) waits for round r to begin,
//     then shuffles, deals and publishes the first turn (SetupRound)
//   - every other participant waits until the deal is published
//     (AwaitDealerReady)
//   - non-dealers take turns in fixed rotation, skipping the dealer, until
//     one of them matches the greasy card (TakeTurn, FinishTurns)
//   - all participants meet at the acted barrier, report their outcome, and
//     meet again at the reported barrier
//   - the dealer resets the shared state and advances the round
//     (TeardownRound)
//
// Every wait re-checks its predicate after waking. A fatal error in any
// participant aborts the table, which wakes every waiter with that error.
package table

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/greasycards/internal/bag"
	"github.com/lox/greasycards/internal/deck"
	"github.com/lox/greasycards/internal/journal"
)

// NoWinner marks a round nobody has won yet.
const NoWinner = -1

// ErrInvariant wraps internal logic errors. They are never retried.
var ErrInvariant = errors.New("invariant violated")

// ErrAborted is used when the table is aborted without a cause.
var ErrAborted = errors.New("table aborted")

// Config holds the collaborators and limits of a table.
type Config struct {
	Players int
	Bag     *bag.Bag
	// DeckRNG is the shuffling stream. Only the acting dealer touches it,
	// under the turn lock.
	DeckRNG *rand.Rand
	Sink    journal.Sink
	Logger  *log.Logger
	Clock   quartz.Clock
	// StallTimeout bounds each barrier wait. Zero waits forever.
	StallTimeout time.Duration
	// MaxTurnsPerRound aborts a round that keeps re-cycling. Zero disables.
	MaxTurnsPerRound int
}

// TurnResult describes what happened in one TakeTurn call.
type TurnResult struct {
	Acted     bool
	Won       bool
	Drawn     deck.Card
	Discarded deck.Card
	Hand      deck.Card
	Winner    int
}

// Outcome is a participant's view of a finished round.
type Outcome struct {
	Round  int
	Winner int
	Won    bool
	Dealer bool
}

// RoundRecord summarizes a completed round.
type RoundRecord struct {
	Round    int         `json:"round"`
	Dealer   int         `json:"dealer"`
	Target   deck.Card   `json:"target"`
	Winner   int         `json:"winner"`
	Turns    []int       `json:"turns"`
	Hands    []deck.Card `json:"hands"`
	BagLevel int         `json:"bag_level"`
}

// State is a point-in-time copy of the shared round state.
type State struct {
	Round    int
	Dealer   int
	Turn     int
	Target   deck.Card
	Winner   int
	Ready    bool
	Finished int
	Hands    []deck.Card
	Deck     int
}

// Table is the turn/role coordinator.
type Table struct {
	players  int
	maxTurns int
	bag      *bag.Bag
	deckRNG  *rand.Rand
	sink     journal.Sink
	logger   *log.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	round    int
	dealer   int
	turn     int
	target   deck.Card
	winner   int
	ready    bool
	deck     *deck.Deck
	hands    []deck.Card
	finished []bool
	nFinish  int
	order    []int
	history  []RoundRecord
	err      error

	acted    *Barrier
	reported *Barrier
}

// New creates a table for cfg.Players participants. Round 0 is dealt by
// participant 0.
func New(cfg Config) (*Table, error) {
	if cfg.Players < 2 {
		return nil, fmt.Errorf("table: need at least 2 players, got %d", cfg.Players)
	}
	if cfg.Bag == nil {
		return nil, errors.New("table: bag is required")
	}
	if cfg.DeckRNG == nil {
		return nil, errors.New("table: deck rng is required")
	}
	if cfg.Sink == nil {
		cfg.Sink = journal.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}

	t := &Table{
		players:  cfg.Players,
		maxTurns: cfg.MaxTurnsPerRound,
		bag:      cfg.Bag,
		deckRNG:  cfg.DeckRNG,
		sink:     cfg.Sink,
		logger:   cfg.Logger.WithPrefix("table"),
		turn:     1 % cfg.Players,
		winner:   NoWinner,
		deck:     deck.New(),
		hands:    make([]deck.Card, cfg.Players),
		finished: make([]bool, cfg.Players),
		acted:    NewBarrier("acted", cfg.Players, cfg.Clock, cfg.StallTimeout),
		reported: NewBarrier("reported", cfg.Players, cfg.Clock, cfg.StallTimeout),
	}
	t.cond = sync.NewCond(&t.mu)
	return t, nil
}

// Players returns the number of participants.
func (t *Table) Players() int {
	return t.players
}

// Rounds returns how many rounds a game lasts: everyone deals once.
func (t *Table) Rounds() int {
	return t.players
}

// Dealer returns the participant that deals round.
func (t *Table) Dealer(round int) int {
	return round % t.players
}

// Watch aborts the table when ctx is cancelled. Call the returned func to
// stop watching.
func (t *Table) Watch(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		t.Abort(context.Cause(ctx))
	})
}

// Abort fails the table with err and wakes every waiter. The first error
// wins; later calls are no-ops.
func (t *Table) Abort(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.abortLocked(err)
}

// Err returns the error the table was aborted with.
func (t *Table) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// SetupRound runs the dealer's duties for round == dealer: shuffle a fresh
// deck, draw the greasy card, deal hands and publish the first turn.
//
// Hands are dealt in round 0 only. Later rounds carry hands over; the new
// dealer's card is set aside and the previous dealer, who sat out, is dealt a
// fresh one.
func (t *Table) SetupRound(dealer int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for t.round != dealer && t.err == nil {
		t.cond.Wait()
	}
	if t.err != nil {
		return t.err
	}
	if t.ready {
		return t.abortLocked(invariantf("round %d set up twice", t.round))
	}

	t.sink.Record(journal.Event{Type: journal.EventRoundStart, Round: t.round, Player: dealer})

	t.deck.Initialize()
	t.deck.Shuffle(t.deckRNG)
	t.sink.Record(journal.Event{Type: journal.EventShuffle, Round: t.round, Player: dealer, Cards: t.deck.Cards()})

	if t.round == 0 {
		hands, target, err := t.deck.DealInitial(t.players, dealer)
		if err != nil {
			return t.abortLocked(fmt.Errorf("%w: %w", ErrInvariant, err))
		}
		t.hands = hands
		t.target = target
		t.sink.Record(journal.Event{Type: journal.EventTarget, Round: t.round, Player: dealer, Card: target})
		for offset := 1; offset < t.players; offset++ {
			id := (dealer + offset) % t.players
			t.sink.Record(journal.Event{Type: journal.EventDeal, Round: t.round, Player: id, Card: hands[id]})
		}
		t.bag.Refill()
	} else {
		target, err := t.deck.Draw()
		if err != nil {
			return t.abortLocked(fmt.Errorf("%w: drawing greasy card: %w", ErrInvariant, err))
		}
		t.target = target
		t.sink.Record(journal.Event{Type: journal.EventTarget, Round: t.round, Player: dealer, Card: target})

		t.hands[dealer] = deck.NoCard
		for offset := 1; offset < t.players; offset++ {
			id := (dealer + offset) % t.players
			if t.hands[id] != deck.NoCard {
				continue
			}
			card, err := t.deck.Draw()
			if err != nil {
				return t.abortLocked(fmt.Errorf("%w: dealing participant %d: %w", ErrInvariant, id, err))
			}
			t.hands[id] = card
			t.sink.Record(journal.Event{Type: journal.EventDeal, Round: t.round, Player: id, Card: card})
		}
	}

	t.dealer = dealer
	t.winner = NoWinner
	t.order = t.order[:0]
	t.turn = t.nextLocked(dealer)
	t.ready = true

	t.logger.Debug("Round set up",
		"round", t.round,
		"dealer", dealer,
		"target", t.target,
		"firstTurn", t.turn)

	t.cond.Broadcast()
	return nil
}

// AwaitDealerReady blocks until the dealer of round has published the deal.
func (t *Table) AwaitDealerReady(round int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for !(t.round == round && t.ready) && t.err == nil {
		t.cond.Wait()
	}
	return t.err
}

// TakeTurn blocks until it is id's turn or the round has a winner. On its
// turn the participant draws, compares the drawn and held card against the
// greasy card and either wins or discards one of the two at random. The turn
// then passes to the next non-dealer.
//
// If a winner already exists TakeTurn returns without acting.
func (t *Table) TakeTurn(id int, rng *rand.Rand) (TurnResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for t.err == nil && t.winner == NoWinner && t.turn != id {
		t.cond.Wait()
	}
	if t.err != nil {
		return TurnResult{}, t.err
	}
	if !t.ready || id == t.dealer {
		return TurnResult{}, t.abortLocked(invariantf("participant %d acting outside a turn (round %d, dealer %d)", id, t.round, t.dealer))
	}
	if t.winner != NoWinner {
		return TurnResult{Winner: t.winner}, nil
	}

	t.order = append(t.order, id)
	if t.maxTurns > 0 && len(t.order) > t.maxTurns {
		return TurnResult{}, t.abortLocked(invariantf("round %d had no winner after %d turns", t.round, t.maxTurns))
	}

	hand := t.hands[id]
	drawn, err := t.deck.Draw()
	if err != nil {
		return TurnResult{}, t.abortLocked(fmt.Errorf("%w: participant %d drawing: %w", ErrInvariant, id, err))
	}
	t.sink.Record(journal.Event{Type: journal.EventDraw, Round: t.round, Player: id, Hand: hand, Card: drawn})

	res := TurnResult{Acted: true, Drawn: drawn}
	var keep, discard deck.Card
	switch {
	case hand == t.target || drawn == t.target:
		keep, discard = hand, drawn
		if hand != t.target {
			keep, discard = drawn, hand
		}
		t.winner = id
		res.Won = true
		t.sink.Record(journal.Event{Type: journal.EventWin, Round: t.round, Player: id, Hand: keep, Card: t.target})
	case rng.IntN(2) == 0:
		keep, discard = hand, drawn
	default:
		keep, discard = drawn, hand
	}
	if !res.Won {
		t.sink.Record(journal.Event{Type: journal.EventDiscard, Round: t.round, Player: id, Card: discard, Hand: keep})
	}

	if err := t.deck.Return(discard); err != nil {
		return TurnResult{}, t.abortLocked(fmt.Errorf("%w: participant %d discarding: %w", ErrInvariant, id, err))
	}
	t.hands[id] = keep

	res.Hand = keep
	res.Discarded = discard
	res.Winner = t.winner

	t.turn = t.nextLocked(id)
	t.cond.Broadcast()
	return res, nil
}

// FinishTurns records that id has left its turn loop for the round.
func (t *Table) FinishTurns(id int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.err != nil {
		return t.err
	}
	if id == t.dealer || t.finished[id] {
		return t.abortLocked(invariantf("participant %d finished round %d twice", id, t.round))
	}
	if t.winner == NoWinner {
		return t.abortLocked(invariantf("participant %d left round %d before it had a winner", id, t.round))
	}
	t.finished[id] = true
	t.nFinish++
	return nil
}

// AwaitActed is the first round barrier: nobody passes until every
// participant, dealer included, is done acting and eating chips.
func (t *Table) AwaitActed() error {
	return t.acted.Await()
}

// Report records id's outcome for the current round.
func (t *Table) Report(id int) Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	o := Outcome{
		Round:  t.round,
		Winner: t.winner,
		Won:    t.winner == id,
		Dealer: t.dealer == id,
	}
	t.sink.Record(journal.Event{Type: journal.EventOutcome, Round: t.round, Player: id, Won: o.Won, Dealer: o.Dealer})
	return o
}

// AwaitReported is the second round barrier: nobody passes until every
// outcome has been written.
func (t *Table) AwaitReported() error {
	return t.reported.Await()
}

// TeardownRound is the dealer's last duty: it checks the round ended
// properly, records it, resets the winner and finished flags and hands the
// dealer role to the next participant.
func (t *Table) TeardownRound(dealer int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.err != nil {
		return t.err
	}
	if t.round != dealer || !t.ready {
		return t.abortLocked(invariantf("participant %d tearing down round %d", dealer, t.round))
	}
	if t.winner == NoWinner {
		return t.abortLocked(invariantf("round %d ended without a winner", t.round))
	}
	if t.nFinish != t.players-1 {
		return t.abortLocked(invariantf("round %d ended with %d of %d players finished", t.round, t.nFinish, t.players-1))
	}

	t.history = append(t.history, RoundRecord{
		Round:    t.round,
		Dealer:   dealer,
		Target:   t.target,
		Winner:   t.winner,
		Turns:    slices.Clone(t.order),
		Hands:    slices.Clone(t.hands),
		BagLevel: t.bag.Level(),
	})
	t.sink.Record(journal.Event{Type: journal.EventRoundEnd, Round: t.round, Player: t.winner})

	t.winner = NoWinner
	t.ready = false
	clear(t.finished)
	t.nFinish = 0
	t.round++
	t.turn = (t.round + 1) % t.players

	if t.round == t.Rounds() {
		t.sink.Record(journal.Event{Type: journal.EventGameFinished, Round: t.round})
		t.logger.Debug("Game finished", "rounds", t.round)
	}

	t.cond.Broadcast()
	return nil
}

// History returns the completed rounds.
func (t *Table) History() []RoundRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]RoundRecord, len(t.history))
	for i, r := range t.history {
		r.Turns = slices.Clone(r.Turns)
		r.Hands = slices.Clone(r.Hands)
		out[i] = r
	}
	return out
}

// Snapshot returns a copy of the shared round state.
func (t *Table) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{
		Round:    t.round,
		Dealer:   t.dealer,
		Turn:     t.turn,
		Target:   t.target,
		Winner:   t.winner,
		Ready:    t.ready,
		Finished: t.nFinish,
		Hands:    slices.Clone(t.hands),
		Deck:     t.deck.Remaining(),
	}
}

// nextLocked returns the participant after id in rotation, skipping the
// dealer.
func (t *Table) nextLocked(id int) int {
	next := (id + 1) % t.players
	if next == t.dealer {
		next = (next + 1) % t.players
	}
	return next
}

func (t *Table) abortLocked(err error) error {
	if err == nil {
		err = ErrAborted
	}
	if t.err != nil {
		return t.err
	}
	t.err = err
	t.logger.Error("Table aborted", "round", t.round, "error", err)
	t.sink.Record(journal.Event{Type: journal.EventGameAborted, Round: t.round, Err: err})
	t.cond.Broadcast()
	t.acted.Abort(err)
	t.reported.Abort(err)
	return err
}

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
