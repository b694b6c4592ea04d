package simulator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lox/greasycards/internal/fileutil"
	"github.com/lox/greasycards/internal/table"
)

// Result is the record of a completed game.
type Result struct {
	RunID       string              `json:"run_id"`
	Seed        int64               `json:"seed"`
	Players     int                 `json:"players"`
	BagCapacity int                 `json:"bag_capacity"`
	Rounds      []table.RoundRecord `json:"rounds"`
	FinalBag    int                 `json:"final_bag"`
	Duration    time.Duration       `json:"duration_ns"`
	// Outcomes holds what each participant observed, indexed by id then
	// round.
	Outcomes [][]table.Outcome `json:"-"`
}

// Wins counts rounds won per participant.
func (r *Result) Wins() []int {
	wins := make([]int, r.Players)
	for _, round := range r.Rounds {
		if round.Winner >= 0 && round.Winner < r.Players {
			wins[round.Winner]++
		}
	}
	return wins
}

// Validate checks the invariants every finished game must satisfy: one round
// per participant, dealt in ascending id order, each with exactly one winner
// who was not the dealer, and every participant agreeing on that winner.
func (r *Result) Validate() error {
	if len(r.Rounds) != r.Players {
		return fmt.Errorf("game played %d rounds, want %d", len(r.Rounds), r.Players)
	}
	for i, round := range r.Rounds {
		if round.Round != i || round.Dealer != i {
			return fmt.Errorf("round %d was dealt by %d", round.Round, round.Dealer)
		}
		if round.Winner == table.NoWinner || round.Winner == round.Dealer {
			return fmt.Errorf("round %d has invalid winner %d", i, round.Winner)
		}
	}
	for id, seen := range r.Outcomes {
		if len(seen) != len(r.Rounds) {
			return fmt.Errorf("player %d observed %d rounds, want %d", id, len(seen), len(r.Rounds))
		}
		for i, o := range seen {
			if o.Round != i || o.Winner != r.Rounds[i].Winner {
				return fmt.Errorf("player %d saw winner %d in round %d, table recorded %d", id, o.Winner, o.Round, r.Rounds[i].Winner)
			}
		}
	}
	return nil
}

// WriteSummary writes the result as JSON. Readers never see a partial file.
func (r *Result) WriteSummary(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}
