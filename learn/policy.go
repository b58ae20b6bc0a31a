package learn

import (
	"fmt"
	"math"
	"math/rand"
)

// Decision records why the policy picked a combo.
type Decision string

const (
	// DecisionExplore is a uniform random pick taken with probability epsilon.
	DecisionExplore Decision = "explore"
	// DecisionColdStart is a uniform random pick for a state with no Q entries.
	DecisionColdStart Decision = "cold-start"
	// DecisionExploit is the argmax of the state's Q row.
	DecisionExploit Decision = "exploit"
)

// ExplorationConfig holds the epsilon schedule.
type ExplorationConfig struct {
	EpsilonStart float64 `yaml:"epsilon_start"`
	EpsilonEnd   float64 `yaml:"epsilon_end"`
	EpsilonDecay float64 `yaml:"epsilon_decay"` // multiplicative, applied once per episode
}

// DefaultExplorationConfig returns the schedule of the reference run.
func DefaultExplorationConfig() ExplorationConfig {
	return ExplorationConfig{
		EpsilonStart: 0.9,
		EpsilonEnd:   0.1,
		EpsilonDecay: 0.98,
	}
}

// ValidateExplorationConfig returns an error if the schedule is invalid.
func ValidateExplorationConfig(cfg ExplorationConfig) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"epsilon_start", cfg.EpsilonStart},
		{"epsilon_end", cfg.EpsilonEnd},
		{"epsilon_decay", cfg.EpsilonDecay},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s must be a finite number, got %v", f.name, f.value)
		}
	}
	if cfg.EpsilonEnd < 0 || cfg.EpsilonStart > 1 || cfg.EpsilonEnd > cfg.EpsilonStart {
		return fmt.Errorf("epsilon must satisfy 0 <= end <= start <= 1, got start=%v end=%v",
			cfg.EpsilonStart, cfg.EpsilonEnd)
	}
	if cfg.EpsilonDecay <= 0 || cfg.EpsilonDecay >= 1 {
		return fmt.Errorf("epsilon_decay must be in (0, 1), got %v", cfg.EpsilonDecay)
	}
	return nil
}

// EpsilonGreedy picks combos from a catalog using the Q table.
// Epsilon changes only through Decay.
type EpsilonGreedy struct {
	epsilon float64
	end     float64
	decay   float64
	rng     *rand.Rand
	catalog *Catalog
	q       *QTable
}

// NewEpsilonGreedy creates a policy starting at cfg.EpsilonStart.
func NewEpsilonGreedy(cfg ExplorationConfig, catalog *Catalog, q *QTable, rng *rand.Rand) *EpsilonGreedy {
	return &EpsilonGreedy{
		epsilon: cfg.EpsilonStart,
		end:     cfg.EpsilonEnd,
		decay:   cfg.EpsilonDecay,
		rng:     rng,
		catalog: catalog,
		q:       q,
	}
}

// Select returns the combo to apply in state s and the reason it was chosen.
func (p *EpsilonGreedy) Select(s State) (ComboID, Decision, error) {
	n := p.catalog.Len()
	if n == 0 {
		return 0, "", ErrEmptyCatalog
	}
	if p.rng.Float64() < p.epsilon {
		return ComboID(p.rng.Intn(n)), DecisionExplore, nil
	}
	id, _, ok := p.q.Best(s)
	if !ok {
		return ComboID(p.rng.Intn(n)), DecisionColdStart, nil
	}
	return id, DecisionExploit, nil
}

// Decay shrinks epsilon by the decay factor, never below the floor.
func (p *EpsilonGreedy) Decay() {
	if p.epsilon > p.end {
		p.epsilon *= p.decay
		if p.epsilon < p.end {
			p.epsilon = p.end
		}
	}
}

// Epsilon returns the current exploration rate.
func (p *EpsilonGreedy) Epsilon() float64 {
	return p.epsilon
}
