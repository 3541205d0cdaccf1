package drill

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Reporter presents suite progress to a person. The structured event
// stream is separate; this is the console surface.
type Reporter interface {
	// ReportStart is called once before the first scenario.
	ReportStart(opts Options, names []string)
	// ReportScenarioStart is called when a scenario begins.
	ReportScenarioStart(scenario Scenario)
	// ReportScenarioResult is called when a scenario completes.
	ReportScenarioResult(result ScenarioResult)
	// ReportSuiteResult is called once after the last scenario.
	ReportSuiteResult(suite SuiteResult)
}

// consoleReporter prints human-oriented progress and optionally saves
// a JSON report when the suite finishes.
type consoleReporter struct {
	out        io.Writer
	verbose    bool
	reportPath string
}

// NewConsoleReporter creates a reporter writing to out. reportPath,
// when non-empty, names a directory that receives a timestamped JSON
// report after the suite finishes.
func NewConsoleReporter(out io.Writer, verbose bool, reportPath string) Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &consoleReporter{out: out, verbose: verbose, reportPath: reportPath}
}

// ReportStart is called once before the first scenario.
func (r *consoleReporter) ReportStart(opts Options, names []string) {
	fmt.Fprintf(r.out, "🧪 Starting cluster drill\n")
	fmt.Fprintf(r.out, "🎯 Scenarios: %s\n", strings.Join(names, ", "))

	if r.verbose {
		fmt.Fprintf(r.out, "⚙️  Configuration:\n")
		fmt.Fprintf(r.out, "   • Requests: %d\n", opts.Params.Requests)
		fmt.Fprintf(r.out, "   • Value: %d\n", opts.Params.Value)
		fmt.Fprintf(r.out, "   • Cases: %d\n", opts.Params.Cases)
		if opts.Params.Seed != 0 {
			fmt.Fprintf(r.out, "   • Seed: %d\n", opts.Params.Seed)
		}
		fmt.Fprintf(r.out, "   • Fail fast: %t\n", opts.FailFast)
		if opts.Timeout > 0 {
			fmt.Fprintf(r.out, "   • Scenario timeout: %v\n", opts.Timeout)
		}
		if r.reportPath != "" {
			fmt.Fprintf(r.out, "   • Report path: %s\n", r.reportPath)
		}
		fmt.Fprintf(r.out, "\n")
	}
}

// ReportScenarioStart is called when a scenario begins.
func (r *consoleReporter) ReportScenarioStart(scenario Scenario) {
	if r.verbose {
		fmt.Fprintf(r.out, "🎯 Starting scenario: %s\n", scenario.Name)
		if scenario.Description != "" {
			fmt.Fprintf(r.out, "   📝 %s\n", scenario.Description)
		}
	} else {
		fmt.Fprintf(r.out, "🎯 %s... ", scenario.Name)
	}
}

// ReportScenarioResult is called when a scenario completes.
func (r *consoleReporter) ReportScenarioResult(result ScenarioResult) {
	symbol := resultSymbol(result.Result)

	if r.verbose {
		fmt.Fprintf(r.out, "%s Scenario completed: %s (%v)\n", symbol, result.Name, result.Duration)
		if result.Error != "" {
			fmt.Fprintf(r.out, "   ❌ Error: %s\n", result.Error)
		}
		fmt.Fprintf(r.out, "\n")
		return
	}

	// Compact output. Skipped scenarios never reported a start line,
	// so print the whole line here.
	if result.Result == ResultSkipped {
		fmt.Fprintf(r.out, "🎯 %s... %s\n", result.Name, symbol)
		return
	}
	fmt.Fprintf(r.out, "%s (%v)\n", symbol, result.Duration)
}

// ReportSuiteResult is called once after the last scenario.
func (r *consoleReporter) ReportSuiteResult(suite SuiteResult) {
	fmt.Fprintf(r.out, "\n🏁 Drill Suite Complete\n")
	fmt.Fprintf(r.out, "⏱️  Duration: %v\n", suite.Duration)
	fmt.Fprintf(r.out, "📊 Results:\n")
	fmt.Fprintf(r.out, "   ✅ Passed: %d\n", suite.PassedScenarios)

	if suite.FailedScenarios > 0 {
		fmt.Fprintf(r.out, "   ❌ Failed: %d\n", suite.FailedScenarios)
	}
	if suite.ErrorScenarios > 0 {
		fmt.Fprintf(r.out, "   💥 Errors: %d\n", suite.ErrorScenarios)
	}
	if suite.SkippedScenarios > 0 {
		fmt.Fprintf(r.out, "   ⏭️  Skipped: %d\n", suite.SkippedScenarios)
	}
	fmt.Fprintf(r.out, "   📈 Total: %d\n", suite.TotalScenarios)

	successRate := 0.0
	if suite.TotalScenarios > 0 {
		successRate = float64(suite.PassedScenarios) / float64(suite.TotalScenarios) * 100
	}
	fmt.Fprintf(r.out, "   📏 Success Rate: %.1f%%\n", successRate)

	if suite.Failed() {
		fmt.Fprintf(r.out, "\n💔 Some drills failed\n")
	} else {
		fmt.Fprintf(r.out, "\n🎉 All drills passed!\n")
	}

	if r.reportPath != "" {
		path, err := saveReport(r.reportPath, suite)
		if err != nil {
			fmt.Fprintf(r.out, "⚠️  Failed to save report: %v\n", err)
		} else {
			fmt.Fprintf(r.out, "📄 Report saved to: %s\n", path)
		}
	}
}

// saveReport writes the suite result as indented JSON into dir under
// a timestamped name and returns the written path.
func saveReport(dir string, suite SuiteResult) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("clusterdrill-report-%s.json", timestamp))

	data, err := json.MarshalIndent(suite, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}

// resultSymbol returns the console symbol for a result.
func resultSymbol(result Result) string {
	switch result {
	case ResultPassed:
		return "✅"
	case ResultFailed:
		return "❌"
	case ResultSkipped:
		return "⏭️"
	case ResultError:
		return "💥"
	default:
		return "❓"
	}
}

// NopReporter discards all suite output.
type NopReporter struct{}

func (NopReporter) ReportStart(Options, []string)       {}
func (NopReporter) ReportScenarioStart(Scenario)        {}
func (NopReporter) ReportScenarioResult(ScenarioResult) {}
func (NopReporter) ReportSuiteResult(SuiteResult)       {}
