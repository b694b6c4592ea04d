package table

import (
	"context"
	"errors"
	"io"
	rand "math/rand/v2"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/greasycards/internal/bag"
	"github.com/lox/greasycards/internal/deck"
	"github.com/lox/greasycards/internal/journal"
	"github.com/lox/greasycards/internal/randutil"
)

func newTestTable(t *testing.T, players int, seed int64, sink journal.Sink) *Table {
	t.Helper()
	b, err := bag.New(10, sink)
	require.NoError(t, err)
	tbl, err := New(Config{
		Players:          players,
		Bag:              b,
		DeckRNG:          randutil.DeckStream(seed),
		Sink:             sink,
		Logger:           log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel}),
		MaxTurnsPerRound: 1000,
	})
	require.NoError(t, err)
	return tbl
}

func shuffledOrder(seed int64) []deck.Card {
	d := deck.New()
	d.Shuffle(randutil.DeckStream(seed))
	return d.Cards()
}

func participantRNGs(seed int64, players int) []*rand.Rand {
	rngs := make([]*rand.Rand, players)
	for id := range rngs {
		rngs[id] = randutil.ParticipantStream(seed, id)
	}
	return rngs
}

func TestNewValidates(t *testing.T) {
	b, err := bag.New(10, nil)
	require.NoError(t, err)

	_, err = New(Config{Players: 1, Bag: b, DeckRNG: randutil.New(1)})
	assert.Error(t, err)
	_, err = New(Config{Players: 2, DeckRNG: randutil.New(1)})
	assert.Error(t, err)
	_, err = New(Config{Players: 2, Bag: b})
	assert.Error(t, err)
}

// seed=1, two players: participant 0 deals, the greasy card is the first card
// after the shuffle and participant 1 holds the second and draws the third.
func TestTwoPlayerFirstRound(t *testing.T) {
	rec := journal.NewRecorder()
	tbl := newTestTable(t, 2, 1, rec)
	order := shuffledOrder(1)

	require.NoError(t, tbl.SetupRound(0))

	s := tbl.Snapshot()
	assert.Equal(t, 0, s.Dealer)
	assert.Equal(t, order[0], s.Target)
	assert.Equal(t, deck.NoCard, s.Hands[0])
	assert.Equal(t, order[1], s.Hands[1])
	assert.Equal(t, 1, s.Turn)
	assert.True(t, s.Ready)
	assert.Equal(t, NoWinner, s.Winner)

	shuffles := rec.OfType(journal.EventShuffle)
	require.Len(t, shuffles, 1)
	assert.Equal(t, order, shuffles[0].Cards)

	res, err := tbl.TakeTurn(1, randutil.ParticipantStream(1, 1))
	require.NoError(t, err)
	assert.True(t, res.Acted)
	assert.Equal(t, order[2], res.Drawn)

	if order[1] == order[0] || order[2] == order[0] {
		assert.True(t, res.Won)
		assert.Equal(t, 1, res.Winner)
		return
	}

	keep := order[1]
	if randutil.ParticipantStream(1, 1).IntN(2) != 0 {
		keep = order[2]
	}
	assert.False(t, res.Won)
	assert.Equal(t, keep, res.Hand)
	assert.Equal(t, NoWinner, res.Winner)
	// The only non-dealer gets the turn straight back.
	assert.Equal(t, 1, tbl.Snapshot().Turn)
}

func TestTurnRotationSkipsDealer(t *testing.T) {
	const players = 4
	rec := journal.NewRecorder()
	tbl := newTestTable(t, players, 7, rec)
	rngs := participantRNGs(7, players)

	// Deal round 0, then pretend rounds moved on so participant 2 deals.
	require.NoError(t, tbl.SetupRound(0))
	tbl.mu.Lock()
	tbl.round = 2
	tbl.ready = false
	tbl.mu.Unlock()
	require.NoError(t, tbl.SetupRound(2))

	want := []int{3, 0, 1}
	var winner int
	for i := 0; ; i++ {
		require.Less(t, i, 1000, "round never ended")
		id := want[i%len(want)]
		require.Equal(t, id, tbl.Snapshot().Turn)

		res, err := tbl.TakeTurn(id, rngs[id])
		require.NoError(t, err)
		require.True(t, res.Acted)
		if res.Won {
			winner = id
			break
		}
	}

	// Nobody acts once a winner exists.
	draws := len(rec.OfType(journal.EventDraw))
	for _, id := range want {
		res, err := tbl.TakeTurn(id, rngs[id])
		require.NoError(t, err)
		assert.False(t, res.Acted)
		assert.Equal(t, winner, res.Winner)
	}
	assert.Len(t, rec.OfType(journal.EventDraw), draws)
	assert.Len(t, rec.OfType(journal.EventWin), 1)
}

func TestDrawnAndHeldBothMatchCountsOnce(t *testing.T) {
	rec := journal.NewRecorder()
	tbl := newTestTable(t, 3, 3, rec)
	require.NoError(t, tbl.SetupRound(0))

	tbl.mu.Lock()
	next := tbl.deck.Cards()[0]
	tbl.target = next
	tbl.hands[1] = next
	tbl.mu.Unlock()

	res, err := tbl.TakeTurn(1, randutil.New(1))
	require.NoError(t, err)
	assert.True(t, res.Won)
	assert.Equal(t, next, res.Hand)
	assert.Equal(t, next, res.Discarded)
	assert.Len(t, rec.OfType(journal.EventWin), 1)
	assert.Empty(t, rec.OfType(journal.EventDiscard))
}

func TestWinnerWakesBlockedParticipant(t *testing.T) {
	tbl := newTestTable(t, 4, 5, journal.Discard)
	require.NoError(t, tbl.SetupRound(0))

	tbl.mu.Lock()
	tbl.hands[1] = tbl.target
	tbl.mu.Unlock()

	done := make(chan TurnResult, 1)
	go func() {
		res, err := tbl.TakeTurn(3, randutil.New(3))
		assert.NoError(t, err)
		done <- res
	}()

	require.Never(t, func() bool { return len(done) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	res, err := tbl.TakeTurn(1, randutil.New(1))
	require.NoError(t, err)
	require.True(t, res.Won)

	select {
	case res := <-done:
		assert.False(t, res.Acted)
		assert.Equal(t, 1, res.Winner)
	case <-time.After(time.Second):
		t.Fatal("participant 3 was not woken by the winner")
	}
}

func TestFinishTurns(t *testing.T) {
	tbl := newTestTable(t, 3, 1, journal.Discard)
	require.NoError(t, tbl.SetupRound(0))

	err := tbl.FinishTurns(1)
	require.ErrorIs(t, err, ErrInvariant, "leaving before a winner exists")
	assert.ErrorIs(t, tbl.Err(), ErrInvariant)
}

func TestFinishTurnsTwice(t *testing.T) {
	tbl := newTestTable(t, 3, 1, journal.Discard)
	require.NoError(t, tbl.SetupRound(0))
	tbl.mu.Lock()
	tbl.winner = 1
	tbl.mu.Unlock()

	require.NoError(t, tbl.FinishTurns(1))
	assert.ErrorIs(t, tbl.FinishTurns(1), ErrInvariant)
}

func TestTeardownRequiresWinner(t *testing.T) {
	tbl := newTestTable(t, 2, 1, journal.Discard)
	require.NoError(t, tbl.SetupRound(0))
	assert.ErrorIs(t, tbl.TeardownRound(0), ErrInvariant)
}

func TestTeardownAdvancesRound(t *testing.T) {
	rec := journal.NewRecorder()
	tbl := newTestTable(t, 3, 11, rec)
	require.NoError(t, tbl.SetupRound(0))
	tbl.mu.Lock()
	tbl.winner = 2
	tbl.finished[1], tbl.finished[2] = true, true
	tbl.nFinish = 2
	tbl.mu.Unlock()

	require.NoError(t, tbl.TeardownRound(0))

	s := tbl.Snapshot()
	assert.Equal(t, 1, s.Round)
	assert.Equal(t, NoWinner, s.Winner)
	assert.False(t, s.Ready)
	assert.Equal(t, 0, s.Finished)
	assert.Equal(t, 2, s.Turn)

	history := tbl.History()
	require.Len(t, history, 1)
	assert.Equal(t, 2, history[0].Winner)

	// Round 1: participant 1 sets its card aside, participant 0 is dealt in.
	held := s.Hands[1]
	require.NotEqual(t, deck.NoCard, held)
	require.NoError(t, tbl.SetupRound(1))
	s = tbl.Snapshot()
	assert.Equal(t, deck.NoCard, s.Hands[1])
	assert.NotEqual(t, deck.NoCard, s.Hands[0])
	assert.Equal(t, 2, s.Turn)

	deals := rec.OfType(journal.EventDeal)
	assert.Equal(t, 0, deals[len(deals)-1].Player)
}

func TestAbortReleasesEveryWaiter(t *testing.T) {
	rec := journal.NewRecorder()
	tbl := newTestTable(t, 3, 1, rec)
	boom := errors.New("boom")

	errCh := make(chan error, 3)
	go func() { errCh <- tbl.AwaitDealerReady(0) }()
	go func() {
		_, err := tbl.TakeTurn(2, randutil.New(2))
		errCh <- err
	}()
	go func() { errCh <- tbl.AwaitActed() }()

	require.Eventually(t, func() bool { return tbl.acted.Waiting() == 1 }, time.Second, time.Millisecond)
	tbl.Abort(boom)

	for range 3 {
		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, boom)
		case <-time.After(time.Second):
			t.Fatal("waiter not released by abort")
		}
	}
	assert.ErrorIs(t, tbl.SetupRound(0), boom)
	assert.ErrorIs(t, tbl.AwaitReported(), boom)
	assert.Len(t, rec.OfType(journal.EventGameAborted), 1)
}

func TestWatchAbortsOnCancel(t *testing.T) {
	tbl := newTestTable(t, 2, 1, journal.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	stop := tbl.Watch(ctx)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- tbl.AwaitDealerReady(0) }()
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancel did not release the waiter")
	}
}

func TestMaxTurnsPerRound(t *testing.T) {
	b, err := bag.New(10, nil)
	require.NoError(t, err)
	tbl, err := New(Config{
		Players:          2,
		Bag:              b,
		DeckRNG:          randutil.DeckStream(1),
		Logger:           log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel}),
		MaxTurnsPerRound: 1,
	})
	require.NoError(t, err)
	require.NoError(t, tbl.SetupRound(0))

	// Make sure the first turn cannot win.
	tbl.mu.Lock()
	tbl.target = deck.NoCard
	tbl.mu.Unlock()

	rng := randutil.New(9)
	_, err = tbl.TakeTurn(1, rng)
	require.NoError(t, err)
	_, err = tbl.TakeTurn(1, rng)
	assert.ErrorIs(t, err, ErrInvariant)
}
