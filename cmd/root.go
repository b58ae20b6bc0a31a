package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/airlearn/airlearn/learn"
)

var (
	// CLI flags shared by run and simulate
	configPath  string // YAML run configuration
	seed        int64  // Seed for the policy and the synthetic target
	episodes    int    // Number of episodes
	steps       int    // Steps per episode
	logLevel    string // Log verbosity level
	traceOut    string // Decision trace output path
	reportOut   string // Run report output path
	metricsAddr string // Prometheus listen address

	// simulate-only flags
	simClients int // Synthetic target population

	// catalog-only flags
	listCombos bool // Print every combo
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "airlearn",
	Short: "Tabular Q-learning of disruption action combos against a wireless target",
}

// runCmd learns against the configured target using external commands
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the learning loop against the configured target",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		cfg := loadConfigOrDie(cmd)
		if err := cfg.ValidateLive(); err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		s, err := newSession(cfg)
		if err != nil {
			logrus.Fatalf("Building engine: %v", err)
		}
		collab, err := liveCollaborators(cfg)
		if err != nil {
			logrus.Fatalf("Building collaborators: %v", err)
		}
		runSession(s, "run", collab)
	},
}

// simulateCmd learns against the deterministic synthetic target
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the learning loop against a synthetic target",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		cfg := loadConfigOrDie(cmd)
		prepareSimulation(cfg)
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		s, err := newSession(cfg)
		if err != nil {
			logrus.Fatalf("Building engine: %v", err)
		}
		collab, err := simulatedCollaborators(cfg, s.engine)
		if err != nil {
			logrus.Fatalf("Building synthetic target: %v", err)
		}
		runSession(s, "simulate", collab)
	},
}

// catalogCmd prints the action space a configuration produces
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the size of the action catalog",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		cfg := loadConfigOrDie(cmd)
		cat, err := learn.NewCatalog(cfg.KindNames(), cfg.Levels, cfg.MaxCombo)
		if err != nil {
			logrus.Fatalf("Invalid catalog: %v", err)
		}
		printCatalog(cmd.OutOrStdout(), cat, listCombos)
	},
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

func loadConfigOrDie(cmd *cobra.Command) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	applyOverrides(cmd, cfg)
	return cfg
}

// applyOverrides copies explicitly set flags over the file configuration.
func applyOverrides(cmd *cobra.Command, cfg *Config) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Learning.Seed = seed
	}
	if flags.Changed("episodes") {
		cfg.Run.Episodes = episodes
	}
	if flags.Changed("steps") {
		cfg.Run.StepsPerEpisode = steps
	}
	if flags.Changed("clients") {
		cfg.Simulation.Clients = simClients
	}
}

// prepareSimulation drops the real-time waits, which the synthetic target does not need.
func prepareSimulation(cfg *Config) {
	cfg.Run.Settle = 0
	cfg.Run.StepPause = 0
	if cfg.Target.ID == "" {
		cfg.Target.ID = "synthetic"
	}
}

// runSession runs s until it finishes or the process is interrupted.
func runSession(s *session, mode string, collab collaborators) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logrus.Infof("Starting %s: target=%s, %d episodes x %d steps, %d combos, seed=%d",
		mode, s.cfg.Target.ID, s.cfg.Run.Episodes, s.cfg.Run.StepsPerEpisode, s.engine.Catalog().Len(), s.cfg.Learning.Seed)
	start := time.Now()

	err := s.run(ctx, mode, collab, outputs{tracePath: traceOut, reportPath: reportOut, metricsAddr: metricsAddr})
	switch {
	case errors.Is(err, context.Canceled) && s.result != nil:
		logrus.Warnf("Interrupted after %d steps; workers stopped", s.result.Steps)
		stop()
		os.Exit(130)
	case err != nil:
		logrus.Fatalf("Run failed: %v", err)
	}
	logrus.Infof("Finished %d steps in %v", s.result.Steps, time.Since(start).Round(time.Millisecond))
}

func printCatalog(w io.Writer, cat *learn.Catalog, list bool) {
	fmt.Fprintf(w, "kinds: %d\n", len(cat.Kinds()))
	fmt.Fprintf(w, "atomic actions: %d\n", len(cat.Atomic()))
	fmt.Fprintf(w, "max combo size: %d\n", cat.MaxCombo())
	fmt.Fprintf(w, "combos: %d\n", cat.Len())
	if !list {
		return
	}
	for i := 0; i < cat.Len(); i++ {
		c, _ := cat.Combo(learn.ComboID(i))
		fmt.Fprintf(w, "%d: %s\n", c.ID, c)
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(c *cobra.Command) {
	c.Flags().StringVar(&configPath, "config", "", "YAML run configuration (defaults when empty)")
	c.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
}

func addRunFlags(c *cobra.Command) {
	addCommonFlags(c)
	c.Flags().Int64Var(&seed, "seed", 42, "Seed for exploration and the synthetic target")
	c.Flags().IntVar(&episodes, "episodes", 15, "Number of episodes")
	c.Flags().IntVar(&steps, "steps", 3, "Steps per episode")
	c.Flags().StringVar(&traceOut, "trace-out", "", "Write the per-step decision trace as YAML to this path")
	c.Flags().StringVar(&reportOut, "report", "", "Write the run report as YAML to this path")
	c.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run (e.g. :9090)")
}

// init sets up CLI flags and subcommands
func init() {
	addRunFlags(runCmd)

	addRunFlags(simulateCmd)
	simulateCmd.Flags().IntVar(&simClients, "clients", 6, "Synthetic target client population")

	addCommonFlags(catalogCmd)
	catalogCmd.Flags().BoolVar(&listCombos, "list", false, "Print every combo")

	rootCmd.AddCommand(runCmd, simulateCmd, catalogCmd)
}
