package drill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clusterdrill/internal/metrics"
	"clusterdrill/internal/reporting"
)

const logSubsystem = "drill"

// Runner executes scenarios sequentially against one target.
// Scenarios share the cluster and the fixture lock, so they never run
// in parallel: interleaved drills would flush each other's state.
type Runner struct {
	target  Target
	console Reporter
	events  reporting.Reporter
	runID   string
}

// NewRunner creates a runner bound to a stabilized target. A nil
// console or events reporter is replaced with a discarding one.
func NewRunner(target Target, console Reporter, events reporting.Reporter, runID string) *Runner {
	if console == nil {
		console = NopReporter{}
	}
	if events == nil {
		events = reporting.NopReporter{}
	}
	return &Runner{target: target, console: console, events: events, runID: runID}
}

// Run executes the selected scenarios in order and aggregates their
// results. The returned error covers scenario selection only; drill
// outcomes are carried in the suite result.
func (r *Runner) Run(ctx context.Context, opts Options, scenarios []Scenario) (*SuiteResult, error) {
	selected, err := filterScenarios(scenarios, opts.Scenarios)
	if err != nil {
		return nil, err
	}

	suite := &SuiteResult{
		StartTime:      time.Now(),
		TotalScenarios: len(selected),
	}
	r.console.ReportStart(opts, scenarioNames(selected))

	for i, sc := range selected {
		if ctx.Err() != nil {
			r.skipRemaining(suite, selected[i:])
			break
		}

		res := r.runScenario(ctx, sc, opts)
		suite.ScenarioResults = append(suite.ScenarioResults, res)
		updateCounters(suite, res)
		r.console.ReportScenarioResult(res)

		if opts.FailFast && res.Result != ResultPassed {
			r.skipRemaining(suite, selected[i+1:])
			break
		}
	}

	suite.EndTime = time.Now()
	suite.Duration = suite.EndTime.Sub(suite.StartTime)
	r.console.ReportSuiteResult(*suite)
	return suite, nil
}

// runScenario executes a single scenario under the per-scenario
// timeout and classifies its outcome.
func (r *Runner) runScenario(ctx context.Context, sc Scenario, opts Options) ScenarioResult {
	res := ScenarioResult{
		Name:        sc.Name,
		Description: sc.Description,
		StartTime:   time.Now(),
		Result:      ResultPassed,
	}

	r.console.ReportScenarioStart(sc)
	r.events.Report(reporting.NewEvent(reporting.EventTypeScenarioStart, logSubsystem, reporting.SeverityInfo,
		r.runID, "running scenario %s", sc.Name))

	scenarioCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		scenarioCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	err := sc.Run(scenarioCtx, RunContext{
		Target: r.target,
		Params: opts.Params,
		Events: r.events,
		RunID:  r.runID,
	})

	res.EndTime = time.Now()
	res.Duration = res.EndTime.Sub(res.StartTime)
	if err != nil {
		res.Error = err.Error()
		res.Result = classify(err)
	}

	metrics.ScenarioResults.WithLabelValues(sc.Name, string(res.Result)).Inc()
	r.events.Report(reporting.NewEvent(reporting.EventTypeScenarioResult, logSubsystem, reporting.SeverityInfo,
		r.runID, "scenario %s finished: %s in %v", sc.Name, res.Result, res.Duration).WithError(err))
	return res
}

// skipRemaining records scenarios that will not run.
func (r *Runner) skipRemaining(suite *SuiteResult, scenarios []Scenario) {
	for _, sc := range scenarios {
		res := ScenarioResult{
			Name:        sc.Name,
			Description: sc.Description,
			Result:      ResultSkipped,
		}
		suite.ScenarioResults = append(suite.ScenarioResults, res)
		updateCounters(suite, res)
		r.console.ReportScenarioResult(res)
		metrics.ScenarioResults.WithLabelValues(sc.Name, string(ResultSkipped)).Inc()
		r.events.Report(reporting.NewEvent(reporting.EventTypeScenarioResult, logSubsystem, reporting.SeverityInfo,
			r.runID, "scenario %s skipped", sc.Name))
	}
}

// filterScenarios resolves the requested names against the given
// scenarios, preserving the requested order. Empty names selects
// everything.
func filterScenarios(scenarios []Scenario, names []string) ([]Scenario, error) {
	if len(names) == 0 {
		return scenarios, nil
	}

	byName := make(map[string]Scenario, len(scenarios))
	for _, sc := range scenarios {
		byName[sc.Name] = sc
	}

	selected := make([]Scenario, 0, len(names))
	for _, name := range names {
		sc, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q (known: %s)", name, strings.Join(scenarioNames(scenarios), ", "))
		}
		selected = append(selected, sc)
	}
	return selected, nil
}

// updateCounters folds one scenario result into the suite counters.
func updateCounters(suite *SuiteResult, res ScenarioResult) {
	switch res.Result {
	case ResultPassed:
		suite.PassedScenarios++
	case ResultFailed:
		suite.FailedScenarios++
	case ResultSkipped:
		suite.SkippedScenarios++
	case ResultError:
		suite.ErrorScenarios++
	}
}

// classify maps a scenario error to a result. Context expiry means
// the harness could not finish the drill, which is an execution error
// rather than a failed assertion.
func classify(err error) Result {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ResultError
	}
	return ResultFailed
}
