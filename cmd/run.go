package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clusterdrill/internal/config"
	"clusterdrill/internal/drill"
	"clusterdrill/internal/fixture"
	"clusterdrill/internal/metrics"
	"clusterdrill/internal/reporting"
	"clusterdrill/internal/stabilize"
	"clusterdrill/pkg/logging"
)

var (
	runScenarios   []string
	runSeeds       []string
	runRequests    int
	runValue       int
	runCases       int
	runSeed        int64
	runTimeout     time.Duration
	runFailFast    bool
	runReportPath  string
	runMetricsAddr string
	runVerbose     bool
	runQuiet       bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stabilize the cluster and execute drill scenarios",
	Long: `The run command acquires the fixture lock, stabilizes the cluster
(probe until the expected master count, then flush every master), and
executes the drill scenarios against it.

Scenarios:
  basic-cmd            write one key and read it back
  basic-eval           round trip a value through EVAL
  basic-script         round trip a value through the EVALSHA cache
  basic-pipe           pipeline writes across slots and read them back
  failover             concurrent workload with a mid-flight failover
  failover-randomized  repeated failover drills with random inputs

Example usage:
  clusterdrill run                             # Run all scenarios
  clusterdrill run --scenario=failover         # Run one scenario
  clusterdrill run --requests=12 --value=7     # Size the workload
  clusterdrill run --scenario=failover-randomized --seed=42
  clusterdrill run --fail-fast --report=./reports
  clusterdrill run --metrics-addr=:9104        # Expose Prometheus metrics

Configuration is layered: defaults, then the user and project config
files, then CLUSTERDRILL_* environment variables, then flags.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	defaults := config.DefaultConfig()

	// Scenario selection
	runCmd.Flags().StringSliceVar(&runScenarios, "scenario", nil, "Run only the named scenarios, in order (default: all)")

	// Cluster and workload configuration
	runCmd.Flags().StringSliceVar(&runSeeds, "seeds", defaults.Cluster.Seeds, "Cluster seed addresses (host:port)")
	runCmd.Flags().IntVar(&runRequests, "requests", defaults.Workload.Requests, "Concurrent round trips for the failover drill")
	runCmd.Flags().IntVar(&runValue, "value", defaults.Workload.Value, "Value namespacing the round-trip keys")
	runCmd.Flags().IntVar(&runCases, "cases", defaults.Drill.Cases, "Iterations for the randomized failover drill")
	runCmd.Flags().Int64Var(&runSeed, "seed", defaults.Drill.Seed, "Seed for the randomized drill (0 derives one from the clock)")

	// Execution control and reporting
	runCmd.Flags().DurationVar(&runTimeout, "timeout", defaults.Drill.Timeout.Std(), "Per-scenario timeout")
	runCmd.Flags().BoolVar(&runFailFast, "fail-fast", defaults.Drill.FailFast, "Stop after the first scenario that does not pass")
	runCmd.Flags().StringVar(&runReportPath, "report", defaults.Drill.ReportPath, "Directory to save the JSON suite report (default: console only)")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", defaults.Metrics.Addr, "Expose Prometheus metrics on this address (empty: disabled)")

	// Output
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "Verbose drill output")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "Suppress scenario progress output")
	runCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	_ = runCmd.RegisterFlagCompletionFunc("scenario", completeScenarioFlag)
}

// completeScenarioFlag provides shell completion for the scenario flag
func completeScenarioFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return drill.Names(), cobra.ShellCompDirectiveDefault
}

// applyRunOverrides folds explicitly set flags into the loaded
// configuration. Flags outrank config files and environment variables.
func applyRunOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("seeds") {
		cfg.Cluster.Seeds = runSeeds
	}
	if flags.Changed("requests") {
		cfg.Workload.Requests = runRequests
	}
	if flags.Changed("value") {
		cfg.Workload.Value = runValue
	}
	if flags.Changed("cases") {
		cfg.Drill.Cases = runCases
	}
	if flags.Changed("seed") {
		cfg.Drill.Seed = runSeed
	}
	if flags.Changed("timeout") {
		cfg.Drill.Timeout = config.Duration(runTimeout)
	}
	if flags.Changed("fail-fast") {
		cfg.Drill.FailFast = runFailFast
	}
	if flags.Changed("report") {
		cfg.Drill.ReportPath = runReportPath
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = runMetricsAddr
	}
}

// stabilizeConfig maps the cluster section onto the stabilizer knobs.
func stabilizeConfig(cfg config.Config) stabilize.Config {
	return stabilize.Config{
		Seeds:         cfg.Cluster.Seeds,
		TargetMasters: cfg.Cluster.TargetMasters,
		FlushTimeout:  cfg.Cluster.FlushTimeout.Std(),
		ProbeBackoff:  cfg.Cluster.ProbeBackoff.Std(),
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	applyRunOverrides(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate configuration: %w", err)
	}

	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, os.Stderr)

	// Create context with signal handling
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, stopping the drill gracefully...")
		cancel()
	}()

	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr)
		go func() {
			if err := srv.Start(ctx); err != nil {
				logging.Error("metrics", err, "metrics endpoint failed")
			}
		}()
	}

	out := io.Writer(os.Stdout)
	if runQuiet {
		out = io.Discard
	}
	console := drill.NewConsoleReporter(out, runVerbose, cfg.Drill.ReportPath)
	events := reporting.NewConsoleReporter()

	env, err := fixture.Setup(ctx, fixture.Options{
		LockDir:   cfg.LockDir,
		Stabilize: stabilizeConfig(cfg),
		Reporter:  events,
	})
	if err != nil {
		return fmt.Errorf("set up drill environment: %w", err)
	}
	defer env.Close()

	runner := drill.NewRunner(drill.NewTarget(env), console, events, env.RunID)
	suite, err := runner.Run(ctx, drill.Options{
		Scenarios: runScenarios,
		Params: drill.Params{
			Requests: cfg.Workload.Requests,
			Value:    cfg.Workload.Value,
			Cases:    cfg.Drill.Cases,
			Seed:     cfg.Drill.Seed,
		},
		Timeout:  cfg.Drill.Timeout.Std(),
		FailFast: cfg.Drill.FailFast,
	}, drill.Registry())
	if err != nil {
		return fmt.Errorf("drill execution failed: %w", err)
	}

	// Set exit code based on results. Close explicitly first: os.Exit
	// skips deferred calls.
	if suite.Failed() {
		env.Close()
		os.Exit(1)
	}
	return nil
}
