// Package drill runs failure scenarios against a stabilized cluster
// and reports their outcomes. Scenarios are plain functions over a
// Target; the runner sequences them, classifies their errors, and
// hands results to the reporters.
package drill

import (
	"context"
	"time"

	"clusterdrill/internal/reporting"
)

// Result represents the outcome of a scenario run.
type Result string

const (
	// ResultPassed indicates every assertion of the scenario held.
	ResultPassed Result = "PASSED"
	// ResultFailed indicates a drill assertion or cluster operation failed.
	ResultFailed Result = "FAILED"
	// ResultSkipped indicates the scenario was selected but never ran.
	ResultSkipped Result = "SKIPPED"
	// ResultError indicates the scenario could not run to completion.
	ResultError Result = "ERROR"
)

// Params carries the tunable inputs scenarios draw from.
type Params struct {
	// Requests is the workload size for the failover drill.
	Requests int
	// Value namespaces the round-trip keys of one drill.
	Value int
	// Cases is the iteration count for the randomized drill.
	Cases int
	// Seed seeds the randomized drill. Zero derives a seed from the
	// clock and reports it so the run can be replayed.
	Seed int64
}

// Options configures a suite run.
type Options struct {
	// Scenarios filters the run to the named scenarios, executed in
	// the requested order. Empty runs every scenario given.
	Scenarios []string
	// Params are handed to every scenario.
	Params Params
	// Timeout bounds each scenario. Zero leaves scenarios unbounded.
	Timeout time.Duration
	// FailFast skips the remaining scenarios after the first one that
	// does not pass.
	FailFast bool
}

// RunContext bundles everything a scenario needs to execute.
type RunContext struct {
	// Target is the stabilized cluster under drill.
	Target Target
	// Params are the run inputs.
	Params Params
	// Events receives structured run events.
	Events reporting.Reporter
	// RunID correlates events across one harness run.
	RunID string
}

// Scenario is a named drill executed against a stabilized cluster.
type Scenario struct {
	// Name is the unique identifier for the scenario.
	Name string
	// Description is a one-line summary shown by reporters.
	Description string
	// Run drives the scenario. A nil return means it passed.
	Run func(ctx context.Context, rc RunContext) error
}

// ScenarioResult records the execution of a single scenario.
type ScenarioResult struct {
	// Name is the scenario that ran.
	Name string `json:"name"`
	// Description is the scenario summary.
	Description string `json:"description,omitempty"`
	// Result is the outcome.
	Result Result `json:"result"`
	// StartTime is when the scenario began.
	StartTime time.Time `json:"start_time"`
	// EndTime is when the scenario finished.
	EndTime time.Time `json:"end_time"`
	// Duration is the total execution time.
	Duration time.Duration `json:"duration"`
	// Error holds the failure detail, if any.
	Error string `json:"error,omitempty"`
}

// SuiteResult aggregates the outcome of a whole run.
type SuiteResult struct {
	// StartTime is when the suite began.
	StartTime time.Time `json:"start_time"`
	// EndTime is when the suite finished.
	EndTime time.Time `json:"end_time"`
	// Duration is the total suite time.
	Duration time.Duration `json:"duration"`
	// TotalScenarios is the number of scenarios selected.
	TotalScenarios int `json:"total_scenarios"`
	// PassedScenarios is the number that passed.
	PassedScenarios int `json:"passed_scenarios"`
	// FailedScenarios is the number that failed an assertion.
	FailedScenarios int `json:"failed_scenarios"`
	// SkippedScenarios is the number never run.
	SkippedScenarios int `json:"skipped_scenarios"`
	// ErrorScenarios is the number that hit execution errors.
	ErrorScenarios int `json:"error_scenarios"`
	// ScenarioResults holds the per-scenario records in run order.
	ScenarioResults []ScenarioResult `json:"scenario_results"`
}

// Failed reports whether the suite should be treated as unsuccessful.
func (s SuiteResult) Failed() bool {
	return s.FailedScenarios > 0 || s.ErrorScenarios > 0
}
