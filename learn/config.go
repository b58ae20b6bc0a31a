package learn

import (
	"fmt"
	"math"
	"time"
)

// LearningConfig groups the Q-learning constants and the run seed.
type LearningConfig struct {
	Alpha float64 `yaml:"alpha"` // learning rate, (0, 1]
	Gamma float64 `yaml:"gamma"` // discount factor, [0, 1]
	Seed  int64   `yaml:"seed"`
}

// DefaultLearningConfig returns the constants of the reference run.
func DefaultLearningConfig() LearningConfig {
	return LearningConfig{Alpha: 0.1, Gamma: 0.9, Seed: 42}
}

// ValidateLearningConfig returns an error if alpha or gamma is out of range.
func ValidateLearningConfig(cfg LearningConfig) error {
	if math.IsNaN(cfg.Alpha) || cfg.Alpha <= 0 || cfg.Alpha > 1 {
		return fmt.Errorf("alpha must be in (0, 1], got %v", cfg.Alpha)
	}
	if math.IsNaN(cfg.Gamma) || cfg.Gamma < 0 || cfg.Gamma > 1 {
		return fmt.Errorf("gamma must be in [0, 1], got %v", cfg.Gamma)
	}
	return nil
}

// EngineConfig groups everything needed to build an Engine.
type EngineConfig struct {
	Kinds       []string
	Levels      LevelSets
	MaxCombo    int
	Learning    LearningConfig
	Exploration ExplorationConfig
	Reward      RewardConfig
	Outcome     OutcomeConfig
}

// DefaultEngineConfig returns the reference configuration for the given kinds.
func DefaultEngineConfig(kinds []string) EngineConfig {
	return EngineConfig{
		Kinds:       kinds,
		Levels:      DefaultLevelSets(),
		MaxCombo:    2,
		Learning:    DefaultLearningConfig(),
		Exploration: DefaultExplorationConfig(),
		Reward:      DefaultRewardConfig(),
		Outcome:     DefaultOutcomeConfig(),
	}
}

// Validate checks every section except the catalog, which NewCatalog validates.
func (c EngineConfig) Validate() error {
	if err := ValidateLearningConfig(c.Learning); err != nil {
		return err
	}
	if err := ValidateExplorationConfig(c.Exploration); err != nil {
		return err
	}
	if err := ValidateRewardConfig(c.Reward); err != nil {
		return err
	}
	return ValidateOutcomeConfig(c.Outcome)
}

// RunConfig groups the loop shape and the collaborator time windows.
type RunConfig struct {
	Episodes        int           `yaml:"episodes"`
	StepsPerEpisode int           `yaml:"steps_per_episode"`
	Settle          time.Duration `yaml:"settle"`          // combo active time before stop-all
	StepPause       time.Duration `yaml:"step_pause"`      // idle time after each step
	BaselineWindow  time.Duration `yaml:"baseline_window"` // performance baseline window
	ProbeWindow     time.Duration `yaml:"probe_window"`    // per-step performance window
	PresenceWindow  time.Duration `yaml:"presence_window"` // client presence scan window
	CaptureWindow   time.Duration `yaml:"capture_window"`  // traffic capture window
}

// DefaultRunConfig returns the timings of the reference run.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Episodes:        15,
		StepsPerEpisode: 3,
		Settle:          3 * time.Second,
		StepPause:       2 * time.Second,
		BaselineWindow:  2 * time.Second,
		ProbeWindow:     1 * time.Second,
		PresenceWindow:  5 * time.Second,
		CaptureWindow:   2 * time.Second,
	}
}

// Validate returns an error if the loop shape or any window is invalid.
func (c RunConfig) Validate() error {
	if c.Episodes <= 0 {
		return fmt.Errorf("episodes must be positive, got %d", c.Episodes)
	}
	if c.StepsPerEpisode <= 0 {
		return fmt.Errorf("steps_per_episode must be positive, got %d", c.StepsPerEpisode)
	}
	windows := []struct {
		name string
		d    time.Duration
	}{
		{"settle", c.Settle},
		{"step_pause", c.StepPause},
		{"baseline_window", c.BaselineWindow},
		{"probe_window", c.ProbeWindow},
		{"presence_window", c.PresenceWindow},
		{"capture_window", c.CaptureWindow},
	}
	for _, w := range windows {
		if w.d < 0 {
			return fmt.Errorf("%s must be non-negative, got %v", w.name, w.d)
		}
	}
	return nil
}
