package learn

import (
	"fmt"
	"math"
)

// RewardConfig holds the shaping terms added to the reachability delta.
type RewardConfig struct {
	// PartialBonusPerClient is paid per client removed while some remain.
	PartialBonusPerClient float64 `yaml:"partial_bonus_per_client"`
	// OfflineTransitionBonus is paid on the step that takes the target to zero clients.
	OfflineTransitionBonus float64 `yaml:"offline_transition_bonus"`
	// OfflineSustainBonus is paid for every further step at zero clients.
	OfflineSustainBonus float64 `yaml:"offline_sustain_bonus"`
}

// DefaultRewardConfig returns the shaping of the reference run.
func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		PartialBonusPerClient:  0.5,
		OfflineTransitionBonus: 5.0,
		OfflineSustainBonus:    1.0,
	}
}

// ValidateRewardConfig rejects non-finite or negative shaping terms.
func ValidateRewardConfig(cfg RewardConfig) error {
	terms := []struct {
		name  string
		value float64
	}{
		{"partial_bonus_per_client", cfg.PartialBonusPerClient},
		{"offline_transition_bonus", cfg.OfflineTransitionBonus},
		{"offline_sustain_bonus", cfg.OfflineSustainBonus},
	}
	for _, t := range terms {
		if math.IsNaN(t.value) || math.IsInf(t.value, 0) {
			return fmt.Errorf("%s must be a finite number, got %v", t.name, t.value)
		}
		if t.value < 0 {
			return fmt.Errorf("%s must be non-negative, got %v", t.name, t.value)
		}
	}
	return nil
}

// Reward converts one step's measurements into a learning signal.
//
// The base term is baseline - current reachability, positive when the target
// degraded. Shaping is then added:
//   - 0 < newClients < oldClients: PartialBonusPerClient per client removed
//   - newClients == 0 and oldClients > 0: OfflineTransitionBonus
//   - newClients == 0 and oldClients == 0: OfflineSustainBonus
func (cfg RewardConfig) Reward(baseline, current float64, oldClients, newClients int) float64 {
	reward := baseline - current
	if newClients < oldClients && newClients > 0 {
		reward += cfg.PartialBonusPerClient * float64(oldClients-newClients)
	}
	if newClients == 0 {
		if oldClients > 0 {
			reward += cfg.OfflineTransitionBonus
		} else {
			reward += cfg.OfflineSustainBonus
		}
	}
	return reward
}
