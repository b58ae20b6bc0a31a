package learn

import (
	"context"
	"time"
)

// Target describes the network the run acts against.
type Target struct {
	ID        string `yaml:"id"`        // BSSID-style identifier
	Channel   string `yaml:"channel"`   // radio channel
	Interface string `yaml:"interface"` // local interface the workers use
}

// Workers is the handle set of one launched combo.
type Workers interface {
	// Wait blocks until every worker has terminated.
	Wait() error
}

// Executor applies combos. It starts one worker per atomic action instance
// (Threads instances per action) and supports a global stop.
type Executor interface {
	Launch(ctx context.Context, combo ActionCombo, target Target) (Workers, error)
	// StopAll signals every running worker, and any stray external process, to stop.
	StopAll(ctx context.Context) error
}

// PerformanceProbe measures the target's successful-interaction rate over a window.
// Used both for the run baseline and for every post-action reading.
type PerformanceProbe interface {
	Measure(ctx context.Context, window time.Duration) (float64, error)
}

// PresenceScanner reports which client ids are associated to the target.
type PresenceScanner interface {
	Scan(ctx context.Context, target Target, window time.Duration) (ClientSet, error)
}

// TrafficAnalyzer captures for a window and extracts features from the capture.
type TrafficAnalyzer interface {
	Analyze(ctx context.Context, window time.Duration) (TrafficFeatures, error)
}

// StepEvent describes one completed decision step.
type StepEvent struct {
	Episode     int
	Step        int
	State       State
	Combo       ActionCombo
	Decision    Decision
	Measured    int // presence count after baseline intersection
	Effective   int // measured count after half-baseline suppression
	Performance float64
	Reward      float64
	Outcome     OutcomeRecord
	QValue      float64 // Q(State, Combo) after the update
	Next        State
	Epsilon     float64
}

// EpisodeEvent describes an episode boundary.
type EpisodeEvent struct {
	Episode      int
	Metrics      Metrics
	Epsilon      float64 // epsilon used during the episode
	EpsilonAfter float64 // epsilon after decay
}

// Observer receives controller events. Implementations must not block.
type Observer interface {
	ObserveStep(ev StepEvent)
	ObserveEpisode(ev EpisodeEvent)
}
