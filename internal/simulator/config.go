package simulator

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/greasycards/internal/player"
)

// FileConfig represents the optional HCL configuration file
type FileConfig struct {
	Game GameSettings `hcl:"game,block"`
}

// GameSettings contains the tunables that are not passed on the command line
type GameSettings struct {
	MinChips         int    `hcl:"min_chips,optional"`
	MaxChips         int    `hcl:"max_chips,optional"`
	StallTimeout     string `hcl:"stall_timeout,optional"`
	MaxTurnsPerRound int    `hcl:"max_turns_per_round,optional"`
	LogFile          string `hcl:"log_file,optional"`
}

const (
	defaultStallTimeout     = "30s"
	defaultMaxTurnsPerRound = 10000
	defaultLogFile          = "greasycards.log"
)

// DefaultFileConfig returns the configuration used when no file exists
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		Game: GameSettings{
			MinChips:         player.DefaultMinChips,
			MaxChips:         player.DefaultMaxChips,
			StallTimeout:     defaultStallTimeout,
			MaxTurnsPerRound: defaultMaxTurnsPerRound,
			LogFile:          defaultLogFile,
		},
	}
}

// LoadFileConfig loads configuration from an HCL file. A missing file yields
// the defaults.
func LoadFileConfig(filename string) (*FileConfig, error) {
	if filename == "" {
		return DefaultFileConfig(), nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultFileConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to parse HCL file: %s", ErrConfig, diags.Error())
	}

	var config FileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to decode HCL: %s", ErrConfig, diags.Error())
	}

	if config.Game.MinChips == 0 {
		config.Game.MinChips = player.DefaultMinChips
	}
	if config.Game.MaxChips == 0 {
		config.Game.MaxChips = player.DefaultMaxChips
	}
	if config.Game.StallTimeout == "" {
		config.Game.StallTimeout = defaultStallTimeout
	}
	if config.Game.MaxTurnsPerRound == 0 {
		config.Game.MaxTurnsPerRound = defaultMaxTurnsPerRound
	}
	if config.Game.LogFile == "" {
		config.Game.LogFile = defaultLogFile
	}

	return &config, nil
}

// Timeout parses the stall timeout.
func (g GameSettings) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(g.StallTimeout)
	if err != nil {
		return 0, fmt.Errorf("%w: stall_timeout: %w", ErrConfig, err)
	}
	return d, nil
}

// Apply copies the file settings into c.
func (g GameSettings) Apply(c *Config) error {
	timeout, err := g.Timeout()
	if err != nil {
		return err
	}
	c.MinChips = g.MinChips
	c.MaxChips = g.MaxChips
	c.StallTimeout = timeout
	c.MaxTurnsPerRound = g.MaxTurnsPerRound
	return nil
}
