package trace

import (
	"testing"
)

func TestRunTrace_RecordStep_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	rt := NewRunTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN a step record is recorded
	rt.RecordStep(StepRecord{Episode: 1, Step: 1, ComboID: 7, Decision: "explore", Reward: 2.5})

	// THEN the trace contains one step record with correct data
	if len(rt.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(rt.Steps))
	}
	if rt.Steps[0].ComboID != 7 {
		t.Errorf("expected combo 7, got %d", rt.Steps[0].ComboID)
	}
}

func TestRunTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	// GIVEN a trace
	rt := NewRunTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN multiple records are added
	rt.RecordStep(StepRecord{Episode: 1, Step: 1})
	rt.RecordStep(StepRecord{Episode: 1, Step: 2})
	rt.RecordEpisode(EpisodeRecord{Episode: 1, Accuracy: 0.5})

	// THEN order is preserved
	if len(rt.Steps) != 2 || rt.Steps[0].Step != 1 || rt.Steps[1].Step != 2 {
		t.Error("step order not preserved")
	}
	if len(rt.Episodes) != 1 || rt.Episodes[0].Accuracy != 0.5 {
		t.Error("episode record mismatch")
	}
}

func TestRunTrace_Enabled(t *testing.T) {
	var nilTrace *RunTrace
	if nilTrace.Enabled() {
		t.Error("nil trace must report disabled")
	}
	if NewRunTrace(TraceConfig{Level: TraceLevelNone}).Enabled() {
		t.Error("level none must report disabled")
	}
	if !NewRunTrace(TraceConfig{Level: TraceLevelDecisions}).Enabled() {
		t.Error("level decisions must report enabled")
	}
}

func TestIsValidTraceLevel_ValidLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"decisions", true},
		{"", true}, // empty defaults to none
		{"detailed", false},
		{"NONE", false}, // case-sensitive
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := IsValidTraceLevel(tt.level); got != tt.valid {
				t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.valid)
			}
		})
	}
}
