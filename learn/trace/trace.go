// Package trace provides decision-trace recording for post-run policy analysis.
// It has no dependencies on learn/ and stores pure data types.
package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every step and episode boundary.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// RunTrace collects decision records during a run.
type RunTrace struct {
	Config   TraceConfig     `yaml:"-"`
	Steps    []StepRecord    `yaml:"steps"`
	Episodes []EpisodeRecord `yaml:"episodes"`
}

// NewRunTrace creates a RunTrace ready for recording.
func NewRunTrace(config TraceConfig) *RunTrace {
	return &RunTrace{
		Config:   config,
		Steps:    make([]StepRecord, 0),
		Episodes: make([]EpisodeRecord, 0),
	}
}

// Enabled reports whether records should be collected.
func (rt *RunTrace) Enabled() bool {
	return rt != nil && rt.Config.Level == TraceLevelDecisions
}

// RecordStep appends a step decision record.
func (rt *RunTrace) RecordStep(record StepRecord) {
	rt.Steps = append(rt.Steps, record)
}

// RecordEpisode appends an episode boundary record.
func (rt *RunTrace) RecordEpisode(record EpisodeRecord) {
	rt.Episodes = append(rt.Episodes, record)
}
