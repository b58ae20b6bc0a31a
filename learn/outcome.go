package learn

import (
	"fmt"
	"math"
	"sync"
)

// OutcomeRecord pairs the step's self-assessed success label with the true label.
type OutcomeRecord struct {
	Predicted int `yaml:"predicted" json:"predicted"`
	True      int `yaml:"true" json:"true"`
}

// OutcomeConfig configures the success classifier.
type OutcomeConfig struct {
	// SuccessThreshold is the reward a step must exceed to be labeled a success.
	SuccessThreshold float64 `yaml:"success_threshold"`
	// Inclusive also labels reward == SuccessThreshold as a success.
	Inclusive bool `yaml:"inclusive"`
	// TrueLabel is the ground-truth label recorded for every step.
	TrueLabel int `yaml:"true_label"`
}

// DefaultOutcomeConfig returns the classifier of the reference run:
// success when reward > 1.0, ground truth always 1.
func DefaultOutcomeConfig() OutcomeConfig {
	return OutcomeConfig{
		SuccessThreshold: 1.0,
		TrueLabel:        1,
	}
}

// ValidateOutcomeConfig returns an error if the classifier is invalid.
func ValidateOutcomeConfig(cfg OutcomeConfig) error {
	if math.IsNaN(cfg.SuccessThreshold) || math.IsInf(cfg.SuccessThreshold, 0) {
		return fmt.Errorf("success_threshold must be a finite number, got %v", cfg.SuccessThreshold)
	}
	if cfg.TrueLabel != 0 && cfg.TrueLabel != 1 {
		return fmt.Errorf("true_label must be 0 or 1, got %d", cfg.TrueLabel)
	}
	return nil
}

// Classifier turns a step reward into an OutcomeRecord.
//
// The true label is a run constant, so precision and recall only measure how
// often the threshold was crossed. It is kept as a placeholder for a real
// ground-truth source.
type Classifier struct {
	cfg OutcomeConfig
}

// NewClassifier creates a Classifier.
func NewClassifier(cfg OutcomeConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Predict returns 1 if reward counts as a success, else 0.
func (c *Classifier) Predict(reward float64) int {
	if reward > c.cfg.SuccessThreshold || (c.cfg.Inclusive && reward == c.cfg.SuccessThreshold) {
		return 1
	}
	return 0
}

// Classify returns the outcome record for a reward.
func (c *Classifier) Classify(reward float64) OutcomeRecord {
	return OutcomeRecord{Predicted: c.Predict(reward), True: c.cfg.TrueLabel}
}

// History is the append-only outcome sequence of a run.
// Appends and snapshots are mutex-guarded so a reporter may read while the loop writes.
type History struct {
	mu      sync.Mutex
	records []OutcomeRecord
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{records: make([]OutcomeRecord, 0)}
}

// Record appends one outcome.
func (h *History) Record(r OutcomeRecord) {
	h.mu.Lock()
	h.records = append(h.records, r)
	h.mu.Unlock()
}

// Records returns a copy of all outcomes in order.
func (h *History) Records() []OutcomeRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]OutcomeRecord(nil), h.records...)
}

// Len returns the number of recorded outcomes.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// Metrics computes classification metrics over the full history.
func (h *History) Metrics() Metrics {
	return ComputeMetrics(h.Records())
}
