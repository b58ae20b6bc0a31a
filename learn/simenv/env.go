// Package simenv is a deterministic synthetic target. One Env implements every
// run collaborator, so a full learning run can execute offline: the combo
// applied by Launch sets a pressure that the following measurements observe.
//
// Given the same seed, kinds, config and call sequence, an Env produces the
// same readings.
package simenv

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/airlearn/airlearn/learn"
)

// Config shapes the synthetic target.
type Config struct {
	Clients     int     `yaml:"clients"`     // associated population before any action
	Performance float64 `yaml:"performance"` // undisturbed successes per second
	Noise       float64 `yaml:"noise"`       // relative std-dev of performance readings
	Sensitivity float64 `yaml:"sensitivity"` // pressure per unit of action intensity
}

// DefaultConfig returns a small target that a default run can learn to take offline.
func DefaultConfig() Config {
	return Config{
		Clients:     6,
		Performance: 50,
		Noise:       0.05,
		Sensitivity: 0.15,
	}
}

// Validate returns an error if the config cannot produce readings.
func (c Config) Validate() error {
	if c.Clients < 0 {
		return fmt.Errorf("clients must be non-negative, got %d", c.Clients)
	}
	if c.Performance < 0 || math.IsNaN(c.Performance) || math.IsInf(c.Performance, 0) {
		return fmt.Errorf("performance must be a finite non-negative number, got %v", c.Performance)
	}
	if c.Noise < 0 || c.Noise >= 1 || math.IsNaN(c.Noise) {
		return fmt.Errorf("noise must be in [0, 1), got %v", c.Noise)
	}
	if c.Sensitivity <= 0 || math.IsNaN(c.Sensitivity) || math.IsInf(c.Sensitivity, 0) {
		return fmt.Errorf("sensitivity must be a finite positive number, got %v", c.Sensitivity)
	}
	return nil
}

// Env is the synthetic target.
type Env struct {
	cfg           Config
	clients       []string
	effectiveness map[string]float64 // per kind, in [0.2, 1)
	rng           *rand.Rand

	mu           sync.Mutex
	disconnected int     // clients knocked off by the last launch
	fraction     float64 // expected disconnected share of the last launch
	active       bool
	launches     int
	instances    int
}

// New builds an Env. Kind effectiveness and reading noise come from the
// partitioned RNG, so they are fixed by the run seed.
func New(cfg Config, kinds []string, rng *learn.PartitionedRNG) (*Env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		return nil, errors.New("synthetic target needs at least one action kind")
	}
	eff := make(map[string]float64, len(kinds))
	for _, k := range kinds {
		eff[k] = 0.2 + 0.8*rng.ForSubsystem(learn.SubsystemKind(k)).Float64()
	}
	clients := make([]string, cfg.Clients)
	for i := range clients {
		clients[i] = fmt.Sprintf("02:00:00:00:%02x:%02x", (i>>8)&0xff, i&0xff)
	}
	return &Env{
		cfg:           cfg,
		clients:       clients,
		effectiveness: eff,
		rng:           rng.ForSubsystem(learn.SubsystemEnvironment),
	}, nil
}

// Effectiveness returns the hidden per-kind strength, for tests and reports.
func (e *Env) Effectiveness(kind string) (float64, bool) {
	v, ok := e.effectiveness[kind]
	return v, ok
}

// Pressure returns the disruption a combo exerts. Unknown kinds contribute nothing.
func (e *Env) Pressure(combo learn.ActionCombo) float64 {
	p := 0.0
	for _, a := range combo.Actions {
		eff, ok := e.effectiveness[a.Kind]
		if !ok {
			continue
		}
		l := a.Levels
		p += eff * float64(l.Rate*l.Threads*l.Power*l.Duration) * e.cfg.Sensitivity
	}
	return p
}

type doneWorkers struct{}

func (doneWorkers) Wait() error { return nil }

// Launch implements learn.Executor. The effect is resolved immediately and
// stays visible to measurements until the next launch.
func (e *Env) Launch(ctx context.Context, combo learn.ActionCombo, _ learn.Target) (learn.Workers, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var errs []error
	for _, a := range combo.Actions {
		if _, ok := e.effectiveness[a.Kind]; !ok {
			errs = append(errs, fmt.Errorf("synthetic target has no action kind %q", a.Kind))
		}
	}

	frac := 1 - math.Exp(-e.Pressure(combo))
	e.mu.Lock()
	defer e.mu.Unlock()
	// stochastic rounding keeps the expected count at frac × population
	d := int(math.Floor(frac*float64(len(e.clients)) + e.rng.Float64()))
	if d > len(e.clients) {
		d = len(e.clients)
	}
	e.fraction = frac
	e.disconnected = d
	e.active = true
	e.launches++
	for _, a := range combo.Actions {
		e.instances += a.Levels.Threads
	}
	logrus.Debugf("synthetic combo %d: pressure share %.2f, %d/%d clients off", combo.ID, frac, d, len(e.clients))
	return doneWorkers{}, errors.Join(errs...)
}

// StopAll implements learn.Executor.
func (e *Env) StopAll(context.Context) error {
	e.mu.Lock()
	e.active = false
	e.mu.Unlock()
	return nil
}

// Measure implements learn.PerformanceProbe.
func (e *Env) Measure(ctx context.Context, _ time.Duration) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.cfg.Performance * (1 - e.fraction) * (1 + e.cfg.Noise*e.rng.NormFloat64())
	if v < 0 {
		v = 0
	}
	return v, nil
}

// Scan implements learn.PresenceScanner. Clients knocked off by the last
// launch are the highest-numbered ones.
func (e *Env) Scan(ctx context.Context, _ learn.Target, _ time.Duration) (learn.ClientSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return learn.NewClientSet(e.clients[:len(e.clients)-e.disconnected]...), nil
}

// Analyze implements learn.TrafficAnalyzer. Every knocked-off client is
// modelled as two EAPOL frames of a reconnection attempt.
func (e *Env) Analyze(ctx context.Context, _ time.Duration) (learn.TrafficFeatures, error) {
	if err := ctx.Err(); err != nil {
		return learn.TrafficFeatures{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 2 * e.disconnected
	return learn.TrafficFeatures{EAPOLCount: n, HandshakeObserved: n > 3}, nil
}

// Stats reports what the executor side has seen.
type Stats struct {
	Launches  int  // combos launched
	Instances int  // worker instances implied by the launched combos
	Active    bool // a combo is running and StopAll has not been called since
}

// Stats returns a snapshot of executor activity.
func (e *Env) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{Launches: e.launches, Instances: e.instances, Active: e.active}
}
