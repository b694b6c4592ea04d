// Package simulator runs a complete greasy card game: it builds the shared
// table and bag, starts one goroutine per participant and collects the
// result once everyone has left the final round.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lox/greasycards/internal/bag"
	"github.com/lox/greasycards/internal/journal"
	"github.com/lox/greasycards/internal/player"
	"github.com/lox/greasycards/internal/randutil"
	"github.com/lox/greasycards/internal/table"
)

// ErrConfig marks configuration errors. They are reported before any game
// state exists.
var ErrConfig = errors.New("invalid configuration")

// Bounds on the number of participants. Every participant but the dealer
// holds a card and the greasy card is drawn too, so the deck must cover
// players cards with room left to draw from.
const (
	MinPlayers = 2
	MaxPlayers = 32
)

// Config holds configuration for running a game
type Config struct {
	Seed             int64
	Players          int
	BagCapacity      int
	MinChips         int
	MaxChips         int
	StallTimeout     time.Duration
	MaxTurnsPerRound int
	Clock            quartz.Clock
	Logger           *log.Logger
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Players < MinPlayers || c.Players > MaxPlayers {
		return fmt.Errorf("%w: players must be between %d and %d, got %d", ErrConfig, MinPlayers, MaxPlayers, c.Players)
	}
	if c.BagCapacity <= 0 {
		return fmt.Errorf("%w: chips per bag must be positive, got %d", ErrConfig, c.BagCapacity)
	}
	if c.MinChips <= 0 || c.MaxChips < c.MinChips {
		return fmt.Errorf("%w: chip range %d-%d is invalid", ErrConfig, c.MinChips, c.MaxChips)
	}
	if c.MaxChips > c.BagCapacity {
		return fmt.Errorf("%w: a player can eat up to %d chips but a bag only holds %d", ErrConfig, c.MaxChips, c.BagCapacity)
	}
	if c.StallTimeout < 0 {
		return fmt.Errorf("%w: stall timeout must not be negative", ErrConfig)
	}
	if c.MaxTurnsPerRound < 0 {
		return fmt.Errorf("%w: max turns per round must not be negative", ErrConfig)
	}
	return nil
}

// Simulator runs greasy card games
type Simulator struct {
	config Config
	sink   journal.Sink
}

// New creates a new simulator with the given configuration
func New(config Config, sink journal.Sink) *Simulator {
	if config.MinChips == 0 && config.MaxChips == 0 {
		config.MinChips = player.DefaultMinChips
		config.MaxChips = player.DefaultMaxChips
	}
	if config.Clock == nil {
		config.Clock = quartz.NewReal()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	if sink == nil {
		sink = journal.Discard
	}
	return &Simulator{config: config, sink: sink}
}

// Run plays one game to completion. The first participant error aborts the
// table, releases everyone else and is returned.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	cfg := s.config
	runID := uuid.New()
	logger := cfg.Logger.WithPrefix("simulator").With("run", runID.String()[:8])

	b, err := bag.New(cfg.BagCapacity, s.sink)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	t, err := table.New(table.Config{
		Players:          cfg.Players,
		Bag:              b,
		DeckRNG:          randutil.DeckStream(cfg.Seed),
		Sink:             s.sink,
		Logger:           cfg.Logger,
		Clock:            cfg.Clock,
		StallTimeout:     cfg.StallTimeout,
		MaxTurnsPerRound: cfg.MaxTurnsPerRound,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	stop := t.Watch(ctx)
	defer stop()

	participants := make([]*player.Participant, cfg.Players)
	for id := range participants {
		participants[id] = player.New(id, randutil.ParticipantStream(cfg.Seed, id), b,
			player.WithChips(cfg.MinChips, cfg.MaxChips),
			player.WithLogger(cfg.Logger))
	}

	logger.Info("Starting game",
		"seed", cfg.Seed,
		"players", cfg.Players,
		"bag", cfg.BagCapacity)

	start := cfg.Clock.Now()
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range participants {
		g.Go(func() error {
			return p.Run(gctx, t)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("Game aborted", "error", err)
		return nil, err
	}

	result := &Result{
		RunID:       runID.String(),
		Seed:        cfg.Seed,
		Players:     cfg.Players,
		BagCapacity: cfg.BagCapacity,
		Rounds:      t.History(),
		FinalBag:    b.Level(),
		Duration:    cfg.Clock.Since(start),
	}
	for _, p := range participants {
		result.Outcomes = append(result.Outcomes, p.Outcomes())
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}

	logger.Info("Game finished", "rounds", len(result.Rounds), "duration", result.Duration)
	return result, nil
}

// RunGame is a convenience wrapper around New and Run.
func RunGame(ctx context.Context, config Config, sink journal.Sink) (*Result, error) {
	return New(config, sink).Run(ctx)
}
