package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/airlearn/airlearn/learn"
	"github.com/airlearn/airlearn/learn/measure"
	"github.com/airlearn/airlearn/learn/runner"
	"github.com/airlearn/airlearn/learn/simenv"
)

func simulationConfig(t *testing.T, episodes, steps int) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Run.Episodes = episodes
	cfg.Run.StepsPerEpisode = steps
	prepareSimulation(&cfg)
	require.NoError(t, cfg.Validate())
	return &cfg
}

func runSimulatedSession(t *testing.T, cfg *Config, out outputs) *session {
	t.Helper()
	s, err := newSession(cfg)
	require.NoError(t, err)
	collab, err := simulatedCollaborators(cfg, s.engine)
	require.NoError(t, err)
	require.NoError(t, s.run(context.Background(), "simulate", collab, out))
	return s
}

func TestSession_SimulateWritesTraceAndReport(t *testing.T) {
	// GIVEN a short synthetic run with both artifacts requested
	dir := t.TempDir()
	out := outputs{tracePath: filepath.Join(dir, "trace.yaml"), reportPath: filepath.Join(dir, "report.yaml")}
	cfg := simulationConfig(t, 3, 2)

	// WHEN it runs
	s := runSimulatedSession(t, cfg, out)

	// THEN the trace holds every step and episode
	require.Equal(t, 6, s.result.Steps)
	data, err := os.ReadFile(out.tracePath)
	require.NoError(t, err)
	var tr struct {
		Steps    []map[string]any `yaml:"steps"`
		Episodes []map[string]any `yaml:"episodes"`
	}
	require.NoError(t, yaml.Unmarshal(data, &tr))
	assert.Len(t, tr.Steps, 6)
	assert.Len(t, tr.Episodes, 3)

	// AND the report decodes back into a Report with the run's numbers
	data, err = os.ReadFile(out.reportPath)
	require.NoError(t, err)
	var rep Report
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	require.NoError(t, dec.Decode(&rep))
	assert.Equal(t, "simulate", rep.Mode)
	assert.Equal(t, int64(42), rep.Seed)
	assert.False(t, rep.Interrupted)
	assert.Equal(t, 6, rep.Steps)
	assert.Equal(t, 6, rep.BaselineClients)
	assert.Equal(t, 24, rep.Catalog.Atomic)
	assert.Equal(t, 300, rep.Catalog.Combos)
	assert.Len(t, rep.Episodes, 3)
	require.NotNil(t, rep.Trace)
	assert.Equal(t, 6, rep.Trace.TotalSteps)
	assert.Equal(t, rep.Trace.ExploreCount+rep.Trace.ColdStartCount+rep.Trace.ExploitCount, 6)
}

func TestSession_SameSeedSameReport(t *testing.T) {
	dir := t.TempDir()
	a := outputs{reportPath: filepath.Join(dir, "a.yaml")}
	b := outputs{reportPath: filepath.Join(dir, "b.yaml")}
	runSimulatedSession(t, simulationConfig(t, 2, 3), a)
	runSimulatedSession(t, simulationConfig(t, 2, 3), b)

	ra, err := os.ReadFile(a.reportPath)
	require.NoError(t, err)
	rb, err := os.ReadFile(b.reportPath)
	require.NoError(t, err)
	assert.Equal(t, string(ra), string(rb))
}

func TestSession_InterruptedRunStillReports(t *testing.T) {
	cfg := simulationConfig(t, 5, 5)
	s, err := newSession(cfg)
	require.NoError(t, err)
	collab, err := simulatedCollaborators(cfg, s.engine)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := outputs{reportPath: filepath.Join(t.TempDir(), "report.yaml")}

	err = s.run(ctx, "simulate", collab, out)

	assert.ErrorIs(t, err, context.Canceled)
	data, readErr := os.ReadFile(out.reportPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "interrupted: true")
}

func TestLiveCollaborators_NeutralFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	for i := range cfg.Kinds {
		cfg.Kinds[i].Argv = []string{"true"}
	}

	c, err := liveCollaborators(&cfg)

	require.NoError(t, err)
	assert.IsType(t, &runner.Executor{}, c.executor)
	assert.IsType(t, measure.NeutralProbe{}, c.probe)
	assert.IsType(t, measure.NeutralPresence{}, c.presence)
	assert.IsType(t, measure.NeutralTraffic{}, c.traffic)
}

func TestLiveCollaborators_ConfiguredSources(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Probe.URL = "http://127.0.0.1:1/"
	cfg.Presence.Output = filepath.Join(t.TempDir(), "stations.csv")
	cfg.Traffic.Argv = []string{"analyzer", "{window}"}

	c, err := liveCollaborators(&cfg)

	require.NoError(t, err)
	assert.IsType(t, &measure.HTTPProbe{}, c.probe)
	assert.IsType(t, &measure.StationScanner{}, c.presence)
	assert.IsType(t, &measure.CommandAnalyzer{}, c.traffic)
}

func TestSimulatedCollaborators_ShareOneTarget(t *testing.T) {
	cfg := simulationConfig(t, 1, 1)
	s, err := newSession(cfg)
	require.NoError(t, err)

	c, err := simulatedCollaborators(cfg, s.engine)

	require.NoError(t, err)
	env, ok := c.executor.(*simenv.Env)
	require.True(t, ok)
	assert.Same(t, env, c.probe.(*simenv.Env))
	assert.Same(t, env, c.presence.(*simenv.Env))
}

func TestPrintCatalog(t *testing.T) {
	cat, err := learn.NewCatalog([]string{"a", "b"}, learn.LevelSets{Rate: []int{1}, Threads: []int{1}, Power: []int{1}, Duration: []int{1}}, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	printCatalog(&buf, cat, true)

	out := buf.String()
	assert.Contains(t, out, "atomic actions: 2\n")
	assert.Contains(t, out, "combos: 3\n")
	assert.Equal(t, 4+3, strings.Count(out, "\n"))
	assert.Contains(t, out, "2: [a, rate=1, thr=1, power=1, dur=1] + [b, rate=1, thr=1, power=1, dur=1]")
}
