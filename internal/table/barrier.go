package table

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
)

// ErrStalled is returned when a barrier wait outlives its deadline.
var ErrStalled = errors.New("stalled round")

// Barrier is a reusable rendezvous for a fixed number of parties. Each time
// the last party arrives the generation advances and the barrier is ready for
// the next use, so one Barrier serves every round of a game.
type Barrier struct {
	name    string
	parties int
	clock   quartz.Clock
	timeout time.Duration

	mu         sync.Mutex
	cond       *sync.Cond
	arrived    int
	generation uint64
	err        error
}

// NewBarrier creates a barrier for parties participants. A zero timeout
// disables the stall deadline.
func NewBarrier(name string, parties int, clock quartz.Clock, timeout time.Duration) *Barrier {
	if clock == nil {
		clock = quartz.NewReal()
	}
	b := &Barrier{
		name:    name,
		parties: parties,
		clock:   clock,
		timeout: timeout,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Await blocks until every party has arrived for the current generation. It
// returns ErrStalled if the deadline passes first, or the abort error if the
// barrier was aborted.
func (b *Barrier) Await() error {
	var timer *quartz.Timer
	err := b.await(&timer)
	if timer != nil {
		timer.Stop()
	}
	return err
}

func (b *Barrier) await(timer **quartz.Timer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.err != nil {
		return b.err
	}

	gen := b.generation
	b.arrived++
	if b.arrived == b.parties {
		b.arrived = 0
		b.generation++
		b.cond.Broadcast()
		return nil
	}

	if b.timeout > 0 {
		*timer = b.clock.AfterFunc(b.timeout, func() { b.stall(gen) }, "barrier", b.name)
	}

	for gen == b.generation && b.err == nil {
		b.cond.Wait()
	}
	if gen != b.generation {
		return nil
	}
	return b.err
}

func (b *Barrier) stall(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generation || b.err != nil {
		return
	}
	b.err = fmt.Errorf("%w: %s barrier: %d of %d parties arrived within %s",
		ErrStalled, b.name, b.arrived, b.parties, b.timeout)
	b.cond.Broadcast()
}

// Abort fails every current and future wait with err. The first error wins.
func (b *Barrier) Abort(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
	b.cond.Broadcast()
}

// Err returns the error the barrier failed with, if any.
func (b *Barrier) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Waiting returns how many parties are blocked in the current generation.
func (b *Barrier) Waiting() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.arrived
}

// Generation returns how many times the barrier has released.
func (b *Barrier) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}
