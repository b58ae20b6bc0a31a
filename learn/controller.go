package learn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// EpisodeSummary is the per-episode line of a Result.
type EpisodeSummary struct {
	Episode int     `yaml:"episode"`
	Metrics Metrics `yaml:"metrics"`
	Epsilon float64 `yaml:"epsilon"`
}

// Result is what a run exposes to reporting once it has finished.
type Result struct {
	BaselineClients     int
	BaselinePerformance float64
	Steps               int
	FinalState          State
	Best                *ActionCombo // nil when the final state has no Q entries
	History             []OutcomeRecord
	Episodes            []EpisodeSummary
}

// Controller drives the episode/step loop against one target.
//
// The loop is strictly sequential. The only concurrency lives inside
// Executor.Launch; the controller waits for the settle time, stops every
// worker and joins them before measuring, so each reading reflects the
// whole combo.
type Controller struct {
	Engine    *Engine
	Executor  Executor
	Probe     PerformanceProbe
	Presence  PresenceScanner
	Traffic   TrafficAnalyzer
	Target    Target
	Config    RunConfig
	Observers []Observer
}

// Run executes Config.Episodes × Config.StepsPerEpisode steps.
//
// Cancellation is honored at step boundaries and during waits. When ctx is
// cancelled the controller sweeps all external workers, then returns the
// partial Result together with ctx.Err().
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	if c.Engine == nil || c.Executor == nil || c.Probe == nil || c.Presence == nil || c.Traffic == nil {
		return nil, errors.New("controller requires an engine, an executor and all three measurement collaborators")
	}
	if err := c.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}

	baselineSet := c.scan(ctx)
	baselinePerf := c.measure(ctx, c.Config.BaselineWindow)
	logrus.Infof("Initial client count = %d", baselineSet.Len())
	logrus.Debugf("Baseline clients: %v", baselineSet.Sorted())
	logrus.Infof("Baseline performance = %.2f", baselinePerf)

	res := &Result{
		BaselineClients:     baselineSet.Len(),
		BaselinePerformance: baselinePerf,
	}
	state := State{Clients: baselineSet.Len()}

	for ep := 1; ep <= c.Config.Episodes; ep++ {
		logrus.Infof("===== EPISODE %d/%d =====", ep, c.Config.Episodes)
		for step := 1; step <= c.Config.StepsPerEpisode; step++ {
			if err := ctx.Err(); err != nil {
				return c.abort(res, state, err)
			}
			ev, err := c.step(ctx, ep, step, state, baselineSet, baselinePerf)
			if err != nil {
				return c.abort(res, state, err)
			}
			logStep(ev)
			for _, obs := range c.Observers {
				obs.ObserveStep(ev)
			}
			state = ev.Next
			res.Steps++
			_ = sleepCtx(ctx, c.Config.StepPause)
		}

		epsilon := c.Engine.Epsilon()
		metrics := c.Engine.EndEpisode()
		logrus.Infof("[METRICS] Episode=%d, %s", ep, metrics)
		ev := EpisodeEvent{Episode: ep, Metrics: metrics, Epsilon: epsilon, EpsilonAfter: c.Engine.Epsilon()}
		for _, obs := range c.Observers {
			obs.ObserveEpisode(ev)
		}
		res.Episodes = append(res.Episodes, EpisodeSummary{Episode: ep, Metrics: metrics, Epsilon: epsilon})
	}

	logrus.Info("Q-learning complete.")
	c.finish(res, state)
	if res.Best != nil {
		logrus.Infof("Best combo at final state %s:", state)
		logCombo(*res.Best)
	} else {
		logrus.Info("No best combo found yet.")
	}
	return res, nil
}

// step runs one decision: select, apply behind the barrier, measure, learn.
func (c *Controller) step(ctx context.Context, ep, step int, state State, baselineSet ClientSet, baselinePerf float64) (StepEvent, error) {
	epsilon := c.Engine.Epsilon()
	combo, decision, err := c.Engine.Select(state)
	if err != nil {
		return StepEvent{}, fmt.Errorf("selecting action: %w", err)
	}

	c.apply(ctx, combo)
	if err := ctx.Err(); err != nil {
		return StepEvent{}, err
	}

	features := c.analyze(ctx)
	measured := c.scan(ctx).Intersect(baselineSet).Len()
	effective := EffectiveClients(measured, baselineSet.Len())
	perf := c.measure(ctx, c.Config.ProbeWindow)
	// readings cut short by cancellation are not learned from
	if err := ctx.Err(); err != nil {
		return StepEvent{}, err
	}

	next := ObserveState(state, effective, features)
	reward := c.Engine.Reward(baselinePerf, perf, state.Clients, effective)
	outcome := c.Engine.Record(reward)
	qv, err := c.Engine.Learn(state, combo.ID, reward, next)
	if err != nil {
		return StepEvent{}, fmt.Errorf("updating Q table: %w", err)
	}

	return StepEvent{
		Episode:     ep,
		Step:        step,
		State:       state,
		Combo:       combo,
		Decision:    decision,
		Measured:    measured,
		Effective:   effective,
		Performance: perf,
		Reward:      reward,
		Outcome:     outcome,
		QValue:      qv,
		Next:        next,
		Epsilon:     epsilon,
	}, nil
}

// apply launches the combo, lets it settle, stops everything and joins the
// workers. Execution errors are logged; a partially applied combo is still measured.
func (c *Controller) apply(ctx context.Context, combo ActionCombo) {
	workers, err := c.Executor.Launch(ctx, combo, c.Target)
	if err != nil {
		logrus.Warnf("launching combo %d: %v", combo.ID, err)
	}
	_ = sleepCtx(ctx, c.Config.Settle)
	if err := c.Executor.StopAll(context.WithoutCancel(ctx)); err != nil {
		logrus.Warnf("stopping combo %d: %v", combo.ID, err)
	}
	if workers != nil {
		if err := workers.Wait(); err != nil {
			logrus.Debugf("combo %d workers exited with: %v", combo.ID, err)
		}
	}
}

func (c *Controller) scan(ctx context.Context) ClientSet {
	set, err := c.Presence.Scan(ctx, c.Target, c.Config.PresenceWindow)
	if err != nil {
		logrus.Warnf("client presence scan failed, assuming no clients: %v", err)
		return ClientSet{}
	}
	if set == nil {
		return ClientSet{}
	}
	return set
}

func (c *Controller) measure(ctx context.Context, window time.Duration) float64 {
	v, err := c.Probe.Measure(ctx, window)
	if err != nil {
		logrus.Warnf("performance probe failed, assuming 0: %v", err)
		return 0
	}
	return v
}

func (c *Controller) analyze(ctx context.Context) TrafficFeatures {
	f, err := c.Traffic.Analyze(ctx, c.Config.CaptureWindow)
	if err != nil {
		logrus.Warnf("traffic analysis failed, assuming no handshake: %v", err)
		return TrafficFeatures{}
	}
	return f
}

// abort sweeps external processes and returns the partial result.
func (c *Controller) abort(res *Result, state State, cause error) (*Result, error) {
	if err := c.Executor.StopAll(context.Background()); err != nil {
		logrus.Warnf("stop-all sweep after interruption: %v", err)
	}
	c.finish(res, state)
	return res, cause
}

func (c *Controller) finish(res *Result, state State) {
	res.FinalState = state
	res.Best = c.Engine.Best(state)
	res.History = c.Engine.History().Records()
}

func logStep(ev StepEvent) {
	logrus.Infof("[STEP] Episode=%d, Step=%d, client_count=%d (effective: %d), offline_duration=%d, reward=%.2f, %s",
		ev.Episode, ev.Step, ev.Measured, ev.Effective, ev.Next.OfflineSteps, ev.Reward, ev.Decision)
	logCombo(ev.Combo)
}

func logCombo(combo ActionCombo) {
	for i, a := range combo.Actions {
		logrus.Infof("   combo#%d: %s", i+1, a)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
