package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/airlearn/airlearn/learn"
	"github.com/airlearn/airlearn/learn/trace"
)

// Report is the machine-readable summary of a run.
type Report struct {
	Mode        string       `yaml:"mode"`
	Seed        int64        `yaml:"seed"`
	Target      learn.Target `yaml:"target"`
	Interrupted bool         `yaml:"interrupted"`

	Catalog CatalogReport `yaml:"catalog"`

	BaselineClients     int                    `yaml:"baseline_clients"`
	BaselinePerformance float64                `yaml:"baseline_performance"`
	Steps               int                    `yaml:"steps"`
	FinalState          StateReport            `yaml:"final_state"`
	FinalEpsilon        float64                `yaml:"final_epsilon"`
	QStates             int                    `yaml:"q_states"`
	QEntries            int                    `yaml:"q_entries"`
	BestCombo           *ComboReport           `yaml:"best_combo"`
	Metrics             learn.Metrics          `yaml:"metrics"`
	Episodes            []learn.EpisodeSummary `yaml:"episodes"`
	Trace               *trace.TraceSummary    `yaml:"trace,omitempty"`
}

// CatalogReport sizes the action space.
type CatalogReport struct {
	Kinds    []string `yaml:"kinds"`
	Atomic   int      `yaml:"atomic_actions"`
	Combos   int      `yaml:"combos"`
	MaxCombo int      `yaml:"max_combo"`
}

// StateReport is a State with explicit keys.
type StateReport struct {
	Clients      int  `yaml:"clients"`
	Handshake    bool `yaml:"handshake"`
	OfflineSteps int  `yaml:"offline_steps"`
}

// ComboReport describes one combo.
type ComboReport struct {
	ID      int      `yaml:"id"`
	Actions []string `yaml:"actions"`
}

func newCatalogReport(c *learn.Catalog) CatalogReport {
	return CatalogReport{
		Kinds:    c.Kinds(),
		Atomic:   len(c.Atomic()),
		Combos:   c.Len(),
		MaxCombo: c.MaxCombo(),
	}
}

func newComboReport(c learn.ActionCombo) *ComboReport {
	actions := make([]string, len(c.Actions))
	for i, a := range c.Actions {
		actions[i] = a.String()
	}
	return &ComboReport{ID: int(c.ID), Actions: actions}
}

// buildReport assembles the report. rt may be nil.
func buildReport(mode string, cfg *Config, engine *learn.Engine, res *learn.Result, rt *trace.RunTrace, interrupted bool) *Report {
	rep := &Report{
		Mode:                mode,
		Seed:                cfg.Learning.Seed,
		Target:              cfg.Target,
		Interrupted:         interrupted,
		Catalog:             newCatalogReport(engine.Catalog()),
		BaselineClients:     res.BaselineClients,
		BaselinePerformance: res.BaselinePerformance,
		Steps:               res.Steps,
		FinalState: StateReport{
			Clients:      res.FinalState.Clients,
			Handshake:    res.FinalState.Handshake,
			OfflineSteps: res.FinalState.OfflineSteps,
		},
		FinalEpsilon: engine.Epsilon(),
		QStates:      engine.QTable().States(),
		QEntries:     engine.QTable().Len(),
		Metrics:      learn.ComputeMetrics(res.History),
		Episodes:     res.Episodes,
	}
	if res.Best != nil {
		rep.BestCombo = newComboReport(*res.Best)
	}
	if rt != nil {
		rep.Trace = trace.Summarize(rt)
	}
	return rep
}

// writeYAML marshals v to path, creating or truncating it.
func writeYAML(path string, v any) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
