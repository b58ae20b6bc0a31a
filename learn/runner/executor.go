// Package runner applies action combos by running one external process per
// atomic action instance.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/airlearn/airlearn/learn"
)

// Options tunes an Executor.
type Options struct {
	// StopSweep lists argv commands run on every StopAll, after the executor's
	// own workers are cancelled, to catch processes it did not start.
	StopSweep [][]string
	// WaitDelay bounds how long Wait blocks on a cancelled worker's I/O.
	// Zero uses DefaultWaitDelay.
	WaitDelay time.Duration
}

// DefaultWaitDelay is the grace period given to a cancelled worker.
const DefaultWaitDelay = 2 * time.Second

// Executor implements learn.Executor on top of os/exec. Worker output is
// discarded (stdin, stdout and stderr are the null device).
type Executor struct {
	kinds     map[string]ActionKind
	sweep     [][]string
	waitDelay time.Duration

	mu      sync.Mutex
	cancels []context.CancelFunc // one per live launch
}

// NewExecutor creates an Executor for the given kinds.
func NewExecutor(kinds []ActionKind, opts Options) (*Executor, error) {
	if len(kinds) == 0 {
		return nil, errors.New("executor needs at least one action kind")
	}
	byName := make(map[string]ActionKind, len(kinds))
	for _, k := range kinds {
		if _, dup := byName[k.Name()]; dup {
			return nil, fmt.Errorf("action kind %q registered twice", k.Name())
		}
		byName[k.Name()] = k
	}
	for i, argv := range opts.StopSweep {
		if len(argv) == 0 || argv[0] == "" {
			return nil, fmt.Errorf("stop sweep command %d is empty", i)
		}
	}
	wd := opts.WaitDelay
	if wd <= 0 {
		wd = DefaultWaitDelay
	}
	return &Executor{kinds: byName, sweep: opts.StopSweep, waitDelay: wd}, nil
}

// Names returns the registered kind names, sorted.
func (e *Executor) Names() []string {
	out := make([]string, 0, len(e.kinds))
	for n := range e.kinds {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// workers is the join handle of one launch.
type workers struct {
	g *errgroup.Group
}

func (w *workers) Wait() error { return w.g.Wait() }

// Launch starts Threads instances of every action in the combo and returns
// without waiting for them. Actions whose kind is unknown are skipped and
// reported in the returned error; the others still run.
func (e *Executor) Launch(ctx context.Context, combo learn.ActionCombo, target learn.Target) (learn.Workers, error) {
	launchCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancels = append(e.cancels, cancel)
	e.mu.Unlock()

	g := new(errgroup.Group)
	var errs []error
	for _, action := range combo.Actions {
		kind, ok := e.kinds[action.Kind]
		if !ok {
			errs = append(errs, fmt.Errorf("no runner for action kind %q", action.Kind))
			continue
		}
		for inst := 1; inst <= action.Levels.Threads; inst++ {
			argv := kind.Command(target, action, inst)
			if len(argv) == 0 {
				errs = append(errs, fmt.Errorf("action kind %q produced an empty command", action.Kind))
				break
			}
			g.Go(func() error {
				return e.runWorker(launchCtx, argv)
			})
		}
	}
	logrus.Debugf("combo %d launched on %s", combo.ID, target.ID)
	return &workers{g: g}, errors.Join(errs...)
}

func (e *Executor) runWorker(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.WaitDelay = e.waitDelay

	logrus.Debugf("worker start: %v", argv)
	err := cmd.Run()
	if ctx.Err() != nil {
		// stopped by StopAll
		return nil
	}
	if err != nil {
		return fmt.Errorf("worker %s: %w", argv[0], err)
	}
	return nil
}

// StopAll cancels every launched worker, then runs the stop sweep commands.
// It does not wait for workers; callers join through the handle Launch returned.
func (e *Executor) StopAll(ctx context.Context) error {
	e.mu.Lock()
	cancels := e.cancels
	e.cancels = nil
	e.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}

	var errs []error
	for _, argv := range e.sweep {
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		if err := cmd.Run(); err != nil {
			errs = append(errs, fmt.Errorf("stop sweep %s: %w", argv[0], err))
		}
	}
	return errors.Join(errs...)
}
