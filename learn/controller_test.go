package learn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlearn/airlearn/learn/trace"
)

// callLog records collaborator calls in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	l.calls = append(l.calls, call)
	l.mu.Unlock()
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeWorkers struct{ log *callLog }

func (w fakeWorkers) Wait() error {
	w.log.add("wait")
	return nil
}

type fakeExecutor struct {
	log       *callLog
	launchErr error
	launched  []ActionCombo
	stops     int
}

func (f *fakeExecutor) Launch(_ context.Context, combo ActionCombo, _ Target) (Workers, error) {
	f.log.add("launch")
	f.launched = append(f.launched, combo)
	if f.launchErr != nil {
		return nil, f.launchErr
	}
	return fakeWorkers{log: f.log}, nil
}

func (f *fakeExecutor) StopAll(context.Context) error {
	f.log.add("stop")
	f.stops++
	return nil
}

type fakeProbe struct {
	log    *callLog
	values []float64 // consumed in order; the last value repeats
	err    error
}

func (f *fakeProbe) Measure(context.Context, time.Duration) (float64, error) {
	f.log.add("probe")
	if f.err != nil {
		return 0, f.err
	}
	v := f.values[0]
	if len(f.values) > 1 {
		f.values = f.values[1:]
	}
	return v, nil
}

type fakePresence struct {
	log  *callLog
	sets []ClientSet // consumed in order; the last set repeats
	err  error
}

func (f *fakePresence) Scan(context.Context, Target, time.Duration) (ClientSet, error) {
	f.log.add("scan")
	if f.err != nil {
		return nil, f.err
	}
	s := f.sets[0]
	if len(f.sets) > 1 {
		f.sets = f.sets[1:]
	}
	return s, nil
}

type fakeTraffic struct {
	log       *callLog
	features  TrafficFeatures
	err       error
	onAnalyze func()
}

func (f *fakeTraffic) Analyze(ctx context.Context, _ time.Duration) (TrafficFeatures, error) {
	f.log.add("traffic")
	if f.onAnalyze != nil {
		f.onAnalyze()
		if err := ctx.Err(); err != nil {
			return TrafficFeatures{}, err
		}
	}
	return f.features, f.err
}

type recordingObserver struct {
	steps    []StepEvent
	episodes []EpisodeEvent
	onStep   func(StepEvent)
}

func (o *recordingObserver) ObserveStep(ev StepEvent) {
	o.steps = append(o.steps, ev)
	if o.onStep != nil {
		o.onStep(ev)
	}
}

func (o *recordingObserver) ObserveEpisode(ev EpisodeEvent) {
	o.episodes = append(o.episodes, ev)
}

func instantRunConfig(episodes, steps int) RunConfig {
	return RunConfig{Episodes: episodes, StepsPerEpisode: steps}
}

type controllerFixture struct {
	log      *callLog
	exec     *fakeExecutor
	probe    *fakeProbe
	presence *fakePresence
	traffic  *fakeTraffic
	ctrl     *Controller
}

func newControllerFixture(t *testing.T, cfg RunConfig) *controllerFixture {
	t.Helper()
	engine, err := NewEngine(testEngineConfig())
	require.NoError(t, err)
	log := &callLog{}
	f := &controllerFixture{
		log:      log,
		exec:     &fakeExecutor{log: log},
		probe:    &fakeProbe{log: log, values: []float64{5, 1}},
		presence: &fakePresence{log: log, sets: []ClientSet{NewClientSet("a", "b", "c", "d"), NewClientSet()}},
		traffic:  &fakeTraffic{log: log},
	}
	f.ctrl = &Controller{
		Engine:   engine,
		Executor: f.exec,
		Probe:    f.probe,
		Presence: f.presence,
		Traffic:  f.traffic,
		Target:   Target{ID: "00:11:22:33:44:55", Channel: "6"},
		Config:   cfg,
	}
	return f
}

func TestController_Run_StepCountAndHistory(t *testing.T) {
	// GIVEN 4 episodes of 3 steps
	f := newControllerFixture(t, instantRunConfig(4, 3))
	obs := &recordingObserver{}
	f.ctrl.Observers = []Observer{obs}

	// WHEN the run completes
	res, err := f.ctrl.Run(context.Background())

	// THEN exactly E × S steps ran, each with one outcome and one launch
	require.NoError(t, err)
	assert.Equal(t, 12, res.Steps)
	assert.Len(t, res.History, 12)
	assert.Len(t, f.exec.launched, 12)
	assert.Len(t, obs.steps, 12)
	require.Len(t, res.Episodes, 4)
	require.Len(t, obs.episodes, 4)
	for i, ep := range res.Episodes {
		assert.Equal(t, i+1, ep.Episode)
	}
	assert.Equal(t, 4, res.BaselineClients)
	assert.Equal(t, 5.0, res.BaselinePerformance)
}

func TestController_Run_BarrierOrder(t *testing.T) {
	// GIVEN a single step
	f := newControllerFixture(t, instantRunConfig(1, 1))

	// WHEN it runs
	_, err := f.ctrl.Run(context.Background())
	require.NoError(t, err)

	// THEN baseline comes first, and measurement only starts after every worker is stopped and joined
	assert.Equal(t, []string{
		"scan", "probe",
		"launch", "stop", "wait",
		"traffic", "scan", "probe",
	}, f.log.snapshot())
}

func TestController_Run_OfflineTransitionAndSustain(t *testing.T) {
	// GIVEN 4 baseline clients that all vanish after the first combo
	f := newControllerFixture(t, instantRunConfig(1, 3))
	obs := &recordingObserver{}
	f.ctrl.Observers = []Observer{obs}

	// WHEN it runs
	res, err := f.ctrl.Run(context.Background())
	require.NoError(t, err)

	// THEN the first step is the offline transition and later steps sustain it
	require.Len(t, obs.steps, 3)
	first := obs.steps[0]
	assert.Equal(t, State{Clients: 4}, first.State)
	assert.Equal(t, 0, first.Measured)
	assert.InDelta(t, 4+5.0, first.Reward, 1e-12)
	assert.Equal(t, 1, first.Next.OfflineSteps)
	assert.Equal(t, 1, first.Outcome.Predicted)

	second := obs.steps[1]
	assert.InDelta(t, 4+1.0, second.Reward, 1e-12)
	assert.Equal(t, 2, second.Next.OfflineSteps)

	assert.Equal(t, State{Clients: 0, OfflineSteps: 3}, res.FinalState)
	// the final state was reached but never acted from
	assert.Nil(t, res.Best)
}

func TestController_Run_BestComboForRevisitedState(t *testing.T) {
	// GIVEN presence never changes, so every step starts from the same state
	f := newControllerFixture(t, instantRunConfig(2, 2))
	f.presence.sets = []ClientSet{NewClientSet("a", "b")}

	res, err := f.ctrl.Run(context.Background())
	require.NoError(t, err)

	// THEN the final state has Q entries and the best combo is its argmax
	require.NotNil(t, res.Best)
	id, _, ok := f.ctrl.Engine.QTable().Best(res.FinalState)
	require.True(t, ok)
	assert.Equal(t, id, res.Best.ID)
}

func TestController_Run_StateChainsAcrossSteps(t *testing.T) {
	f := newControllerFixture(t, instantRunConfig(2, 2))
	f.presence.sets = []ClientSet{
		NewClientSet("a", "b", "c", "d"),
		NewClientSet("a", "b", "c"),
		NewClientSet("a", "b", "x"), // x never counted: not in baseline
		NewClientSet("a"),           // 1 < 4/2, suppressed
		NewClientSet("a", "b", "c", "d"),
	}
	obs := &recordingObserver{}
	f.ctrl.Observers = []Observer{obs}

	_, err := f.ctrl.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, obs.steps, 4)
	assert.Equal(t, []int{3, 2, 1, 4}, []int{obs.steps[0].Measured, obs.steps[1].Measured, obs.steps[2].Measured, obs.steps[3].Measured})
	assert.Equal(t, []int{3, 2, 0, 4}, []int{obs.steps[0].Effective, obs.steps[1].Effective, obs.steps[2].Effective, obs.steps[3].Effective})
	for i := 1; i < len(obs.steps); i++ {
		assert.Equal(t, obs.steps[i-1].Next, obs.steps[i].State, "step %d", i)
	}
	assert.InDelta(t, 4+0.5*1, obs.steps[0].Reward, 1e-12)
}

func TestController_Run_MeasurementFailuresDegradeToNeutral(t *testing.T) {
	// GIVEN every measurement collaborator and the launch fail
	f := newControllerFixture(t, instantRunConfig(1, 2))
	f.exec.launchErr = errors.New("launch failed")
	f.probe.err = errors.New("probe down")
	f.presence.err = errors.New("scanner down")
	f.traffic.err = errors.New("capture failed")
	obs := &recordingObserver{}
	f.ctrl.Observers = []Observer{obs}

	// WHEN it runs
	res, err := f.ctrl.Run(context.Background())

	// THEN the run still completes with neutral readings
	require.NoError(t, err)
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, 0, res.BaselineClients)
	assert.Equal(t, 0.0, res.BaselinePerformance)
	for _, ev := range obs.steps {
		assert.Equal(t, 0, ev.Effective)
		assert.False(t, ev.Next.Handshake)
		assert.Equal(t, 0.0, ev.Performance)
	}
	// AND the global stop still ran after every failed launch
	assert.Equal(t, 2, f.exec.stops)
}

func TestController_Run_HandshakeFeedsState(t *testing.T) {
	f := newControllerFixture(t, instantRunConfig(1, 1))
	f.traffic.features = TrafficFeatures{EAPOLCount: 4, HandshakeObserved: true}

	res, err := f.ctrl.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, res.FinalState.Handshake)
}

func TestController_Run_CancellationSweepsAndReturnsPartialResult(t *testing.T) {
	// GIVEN a run that is cancelled after its second step
	f := newControllerFixture(t, instantRunConfig(3, 3))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	obs := &recordingObserver{onStep: func(ev StepEvent) {
		if ev.Step == 2 {
			cancel()
		}
	}}
	f.ctrl.Observers = []Observer{obs}

	// WHEN it runs
	res, err := f.ctrl.Run(ctx)

	// THEN it stops at the next step boundary with the cancellation cause
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Steps)
	assert.Len(t, res.History, 2)
	assert.Empty(t, res.Episodes)

	// AND a final stop-all sweep ran after the two per-step stops
	assert.Equal(t, 3, f.exec.stops)
	calls := f.log.snapshot()
	assert.Equal(t, "stop", calls[len(calls)-1])
}

func TestController_Run_CancelledDuringSettle(t *testing.T) {
	f := newControllerFixture(t, RunConfig{Episodes: 1, StepsPerEpisode: 1, Settle: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res, err := f.ctrl.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Steps)
	// per-step stop plus the interruption sweep
	assert.Equal(t, 2, f.exec.stops)
}

func TestController_Run_CancelledDuringMeasurementDropsStep(t *testing.T) {
	// GIVEN a run interrupted while the traffic capture is in progress
	f := newControllerFixture(t, instantRunConfig(1, 2))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.traffic.onAnalyze = cancel
	obs := &recordingObserver{}
	f.ctrl.Observers = []Observer{obs}

	// WHEN it runs
	res, err := f.ctrl.Run(ctx)

	// THEN the half-measured step leaves no trace in the learning state
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 0, res.Steps)
	assert.Empty(t, res.History)
	assert.Equal(t, 0, f.ctrl.Engine.QTable().Len())
	assert.Equal(t, 0, f.ctrl.Engine.History().Len())
	assert.Empty(t, obs.steps)
	// AND the final state is still the baseline one
	assert.Equal(t, State{Clients: 4}, res.FinalState)
}

func TestController_Run_RequiresCollaborators(t *testing.T) {
	f := newControllerFixture(t, instantRunConfig(1, 1))
	f.ctrl.Traffic = nil

	res, err := f.ctrl.Run(context.Background())

	assert.Error(t, err)
	assert.Nil(t, res)
	assert.Empty(t, f.log.snapshot())
}

func TestController_Run_InvalidRunConfig(t *testing.T) {
	f := newControllerFixture(t, instantRunConfig(0, 1))

	_, err := f.ctrl.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "episodes")
}

func TestController_Run_TraceObserverRecordsEverything(t *testing.T) {
	f := newControllerFixture(t, instantRunConfig(2, 2))
	rt := trace.NewRunTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	f.ctrl.Observers = []Observer{&TraceObserver{Trace: rt}}

	_, err := f.ctrl.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, rt.Steps, 4)
	require.Len(t, rt.Episodes, 2)
	assert.Equal(t, 1, rt.Steps[0].Episode)
	assert.Equal(t, 2, rt.Steps[3].Step)
	assert.NotEmpty(t, rt.Steps[0].Combo)
	assert.Equal(t, 0.9, rt.Episodes[0].Epsilon)

	summary := trace.Summarize(rt)
	assert.Equal(t, 4, summary.TotalSteps)
	assert.Equal(t, 1, summary.OfflineTransitions)
}
