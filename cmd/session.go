package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/airlearn/airlearn/learn"
	"github.com/airlearn/airlearn/learn/measure"
	"github.com/airlearn/airlearn/learn/runner"
	"github.com/airlearn/airlearn/learn/simenv"
	"github.com/airlearn/airlearn/learn/telemetry"
	"github.com/airlearn/airlearn/learn/trace"
)

// collaborators bundles the four run collaborators.
type collaborators struct {
	executor learn.Executor
	probe    learn.PerformanceProbe
	presence learn.PresenceScanner
	traffic  learn.TrafficAnalyzer
}

// liveCollaborators builds the process-backed collaborators. Measurement
// sources that are not configured fall back to neutral readings.
func liveCollaborators(cfg *Config) (collaborators, error) {
	kinds := make([]runner.ActionKind, len(cfg.Kinds))
	for i, k := range cfg.Kinds {
		kinds[i] = k
	}
	exec, err := runner.NewExecutor(kinds, runner.Options{
		StopSweep: cfg.Executor.StopSweep,
		WaitDelay: cfg.Executor.WaitDelay,
	})
	if err != nil {
		return collaborators{}, err
	}
	c := collaborators{executor: exec}

	if cfg.Probe.URL != "" {
		c.probe = measure.NewHTTPProbe(cfg.Probe.URL, cfg.Probe.Timeout)
	} else {
		logrus.Warn("No probe URL configured; performance readings are neutral")
		c.probe = measure.NeutralProbe{}
	}
	if cfg.Presence.Output != "" {
		c.presence = &measure.StationScanner{Argv: cfg.Presence.Argv, Output: cfg.Presence.Output}
	} else {
		logrus.Warn("No presence source configured; client counts are neutral")
		c.presence = measure.NeutralPresence{}
	}
	if len(cfg.Traffic.Argv) > 0 {
		c.traffic = &measure.CommandAnalyzer{Argv: cfg.Traffic.Argv, Grace: cfg.Traffic.Grace}
	} else {
		logrus.Warn("No traffic analyzer configured; handshake feature is neutral")
		c.traffic = measure.NeutralTraffic{}
	}
	return c, nil
}

// simulatedCollaborators builds a synthetic target sharing the engine's RNG.
func simulatedCollaborators(cfg *Config, engine *learn.Engine) (collaborators, error) {
	env, err := simenv.New(cfg.Simulation, cfg.KindNames(), engine.RNG())
	if err != nil {
		return collaborators{}, err
	}
	return collaborators{executor: env, probe: env, presence: env, traffic: env}, nil
}

// outputs selects the optional artifacts of a session.
type outputs struct {
	tracePath   string
	reportPath  string
	metricsAddr string
}

// session is one learning run and its artifacts.
type session struct {
	cfg       *Config
	engine    *learn.Engine
	trace     *trace.RunTrace
	telemetry *telemetry.Telemetry
	result    *learn.Result
}

// newSession builds the engine for cfg.
func newSession(cfg *Config) (*session, error) {
	engine, err := learn.NewEngine(cfg.EngineConfig())
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, engine: engine}, nil
}

// run drives the controller and writes the requested artifacts. An interrupted
// run still writes them from the partial result and returns the interruption.
func (s *session) run(ctx context.Context, mode string, collab collaborators, out outputs) error {
	var observers []learn.Observer
	if out.tracePath != "" {
		s.trace = trace.NewRunTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
		observers = append(observers, &learn.TraceObserver{Trace: s.trace})
	}
	if out.metricsAddr != "" {
		s.telemetry = telemetry.New()
		observers = append(observers, s.telemetry)
		srvCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
		defer stop()
		go func() {
			if err := s.telemetry.Serve(srvCtx, out.metricsAddr); err != nil {
				logrus.Warnf("metrics server: %v", err)
			}
		}()
	}

	ctrl := &learn.Controller{
		Engine:    s.engine,
		Executor:  collab.executor,
		Probe:     collab.probe,
		Presence:  collab.presence,
		Traffic:   collab.traffic,
		Target:    s.cfg.Target,
		Config:    s.cfg.Run,
		Observers: observers,
	}
	res, runErr := ctrl.Run(ctx)
	if res == nil {
		return runErr
	}
	s.result = res
	interrupted := runErr != nil && (errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded))
	if runErr != nil && !interrupted {
		return runErr
	}

	if out.tracePath != "" {
		if err := writeYAML(out.tracePath, s.trace); err != nil {
			return fmt.Errorf("writing trace: %w", err)
		}
		logrus.Infof("Decision trace written to %s", out.tracePath)
	}
	if out.reportPath != "" {
		rep := buildReport(mode, s.cfg, s.engine, res, s.trace, interrupted)
		if err := writeYAML(out.reportPath, rep); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		logrus.Infof("Run report written to %s", out.reportPath)
	}
	return runErr
}
