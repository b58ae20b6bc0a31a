package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/airlearn/airlearn/learn"
	"github.com/airlearn/airlearn/learn/runner"
	"github.com/airlearn/airlearn/learn/simenv"
)

// Config is the run configuration file. Every section is optional; missing
// sections keep their defaults. Unknown keys are rejected.
type Config struct {
	Target      learn.Target            `yaml:"target"`
	Kinds       []runner.TemplateKind   `yaml:"kinds"`
	Levels      learn.LevelSets         `yaml:"levels"`
	MaxCombo    int                     `yaml:"max_combo"`
	Learning    learn.LearningConfig    `yaml:"learning"`
	Exploration learn.ExplorationConfig `yaml:"exploration"`
	Reward      learn.RewardConfig      `yaml:"reward"`
	Outcome     learn.OutcomeConfig     `yaml:"outcome"`
	Run         learn.RunConfig         `yaml:"run"`
	Executor    ExecutorConfig          `yaml:"executor"`
	Probe       ProbeConfig             `yaml:"probe"`
	Presence    PresenceConfig          `yaml:"presence"`
	Traffic     TrafficConfig           `yaml:"traffic"`
	Simulation  simenv.Config           `yaml:"simulation"`
}

// ExecutorConfig configures the process runner.
type ExecutorConfig struct {
	StopSweep [][]string    `yaml:"stop_sweep"`
	WaitDelay time.Duration `yaml:"wait_delay"`
}

// ProbeConfig configures the reachability probe. An empty URL disables it.
type ProbeConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// PresenceConfig configures the station scanner. An empty Output disables it.
type PresenceConfig struct {
	Argv   []string `yaml:"argv"`
	Output string   `yaml:"output"`
}

// TrafficConfig configures the traffic analyzer. An empty Argv disables it.
type TrafficConfig struct {
	Argv  []string      `yaml:"argv"`
	Grace time.Duration `yaml:"grace"`
}

// defaultKindNames name the placeholder kinds used when a config lists none.
// They have no command, so they only serve catalog and simulate.
var defaultKindNames = []string{"alpha", "beta", "gamma"}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	kinds := make([]runner.TemplateKind, len(defaultKindNames))
	for i, n := range defaultKindNames {
		kinds[i] = runner.TemplateKind{Kind: n}
	}
	ec := learn.DefaultEngineConfig(defaultKindNames)
	return Config{
		Kinds:       kinds,
		Levels:      ec.Levels,
		MaxCombo:    ec.MaxCombo,
		Learning:    ec.Learning,
		Exploration: ec.Exploration,
		Reward:      ec.Reward,
		Outcome:     ec.Outcome,
		Run:         learn.DefaultRunConfig(),
		Executor:    ExecutorConfig{WaitDelay: runner.DefaultWaitDelay},
		Simulation:  simenv.DefaultConfig(),
	}
}

// LoadConfig reads path over the defaults with strict field checking.
// An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Parse YAML with strict field checking: typos must cause errors
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// KindNames returns the configured kind names in order.
func (c *Config) KindNames() []string {
	out := make([]string, len(c.Kinds))
	for i, k := range c.Kinds {
		out[i] = k.Kind
	}
	return out
}

// EngineConfig extracts the learning engine configuration.
func (c *Config) EngineConfig() learn.EngineConfig {
	return learn.EngineConfig{
		Kinds:       c.KindNames(),
		Levels:      c.Levels,
		MaxCombo:    c.MaxCombo,
		Learning:    c.Learning,
		Exploration: c.Exploration,
		Reward:      c.Reward,
		Outcome:     c.Outcome,
	}
}

// Validate checks everything a synthetic run needs.
func (c *Config) Validate() error {
	if err := c.EngineConfig().Validate(); err != nil {
		return err
	}
	if _, err := learn.NewCatalog(c.KindNames(), c.Levels, c.MaxCombo); err != nil {
		return err
	}
	if err := c.Run.Validate(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	return nil
}

// ValidateLive additionally checks what a run against a real target needs.
func (c *Config) ValidateLive() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Target.ID == "" {
		return errors.New("target.id must be set")
	}
	for _, k := range c.Kinds {
		if err := k.Validate(); err != nil {
			return err
		}
	}
	if len(c.Presence.Argv) > 0 && c.Presence.Output == "" {
		return errors.New("presence.output must be set when presence.argv is")
	}
	if c.Executor.WaitDelay < 0 || c.Probe.Timeout < 0 || c.Traffic.Grace < 0 {
		return errors.New("wait_delay, timeout and grace must be non-negative")
	}
	return nil
}
