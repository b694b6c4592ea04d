package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/lox/greasycards/internal/journal"
	"github.com/lox/greasycards/internal/simulator"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Seed    int64 `arg:"" help:"Base RNG seed"`
	Players int   `arg:"" help:"Number of players; each one deals a round"`
	Chips   int   `arg:"" name:"chips-per-bag" help:"Chips in a fresh bag"`

	Config       string           `short:"c" env:"GREASY_CONFIG" default:"greasycards.hcl" help:"HCL configuration file (defaults apply if missing)"`
	LogFile      string           `short:"l" env:"GREASY_LOG_FILE" help:"Game log path (overrides the config file)"`
	Summary      string           `env:"GREASY_SUMMARY" help:"Write a JSON summary of the run to this path"`
	StallTimeout time.Duration    `env:"GREASY_STALL_TIMEOUT" help:"Abort when a round barrier waits longer than this (overrides the config file)"`
	Quiet        bool             `short:"q" help:"Do not print the results table"`
	Debug        bool             `short:"d" env:"GREASY_DEBUG" help:"Debug logging"`
	Version      kong.VersionFlag `short:"v" help:"Show version"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("greasycards"),
		kong.Description("Simulate a game of greasy cards: every player deals once, the others race to draw the greasy card"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
	)

	level := log.InfoLevel
	if cli.Debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: level, ReportTimestamp: true})

	runCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := cli.run(runCtx, logger)
	ctx.FatalIfErrorf(err)
}

func (c *CLI) run(ctx context.Context, logger *log.Logger) error {
	fileConfig, err := simulator.LoadFileConfig(c.Config)
	if err != nil {
		return err
	}

	config := simulator.Config{
		Seed:        c.Seed,
		Players:     c.Players,
		BagCapacity: c.Chips,
		Logger:      logger,
	}
	if err := fileConfig.Game.Apply(&config); err != nil {
		return err
	}
	if c.StallTimeout > 0 {
		config.StallTimeout = c.StallTimeout
	}
	if err := config.Validate(); err != nil {
		return err
	}

	logPath := fileConfig.Game.LogFile
	if c.LogFile != "" {
		logPath = c.LogFile
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening game log: %w", err)
	}
	sink := journal.NewTextSink(f)
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Error("Failed to close game log", "error", err)
		}
	}()

	result, err := simulator.RunGame(ctx, config, sink)
	if err != nil {
		return err
	}

	if c.Summary != "" {
		if err := result.WriteSummary(c.Summary); err != nil {
			return err
		}
		logger.Info("Wrote summary", "path", c.Summary)
	}

	if !c.Quiet {
		printResults(os.Stdout, result, logPath)
	}
	return nil
}
