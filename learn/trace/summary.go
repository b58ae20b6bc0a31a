package trace

// TraceSummary aggregates statistics from a RunTrace.
type TraceSummary struct {
	TotalSteps         int            `yaml:"total_steps"`
	ExploreCount       int            `yaml:"explore_count"`
	ColdStartCount     int            `yaml:"cold_start_count"`
	ExploitCount       int            `yaml:"exploit_count"`
	SuccessCount       int            `yaml:"success_count"`
	MeanReward         float64        `yaml:"mean_reward"`
	MaxReward          float64        `yaml:"max_reward"`
	OfflineTransitions int            `yaml:"offline_transitions"`
	UniqueCombos       int            `yaml:"unique_combos"`
	ComboDistribution  map[int]int    `yaml:"combo_distribution"` // combo ID → times applied
	DecisionMix        map[string]int `yaml:"-"`
}

// Summarize computes aggregate statistics from a RunTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(rt *RunTrace) *TraceSummary {
	summary := &TraceSummary{
		ComboDistribution: make(map[int]int),
		DecisionMix:       make(map[string]int),
	}
	if rt == nil || len(rt.Steps) == 0 {
		return summary
	}

	summary.TotalSteps = len(rt.Steps)
	total := 0.0
	for i, s := range rt.Steps {
		summary.ComboDistribution[s.ComboID]++
		summary.DecisionMix[s.Decision]++
		total += s.Reward
		if i == 0 || s.Reward > summary.MaxReward {
			summary.MaxReward = s.Reward
		}
		if s.Predicted == 1 {
			summary.SuccessCount++
		}
		if s.NextOfflineSteps == 1 {
			summary.OfflineTransitions++
		}
	}
	summary.MeanReward = total / float64(len(rt.Steps))
	summary.UniqueCombos = len(summary.ComboDistribution)
	summary.ExploreCount = summary.DecisionMix["explore"]
	summary.ColdStartCount = summary.DecisionMix["cold-start"]
	summary.ExploitCount = summary.DecisionMix["exploit"]

	return summary
}
