package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML and environment values can
// express it as "3s" or "250ms".
type Duration time.Duration

// Std returns the underlying time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML accepts either a duration string ("3s") or raw
// nanoseconds. The integer form is tried first; a string scalar
// cannot decode into an int64, while the reverse coercion can.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration value on line %d", value.Line)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in its string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is the root configuration for clusterdrill.
type Config struct {
	Cluster  ClusterConfig  `yaml:"cluster"`
	Workload WorkloadConfig `yaml:"workload"`
	Drill    DrillConfig    `yaml:"drill"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	// LockDir is where the fixture lock file lives. Empty means the
	// system temp directory.
	LockDir string `yaml:"lockDir"`
}

// ClusterConfig describes the cluster under drill and the
// stabilization knobs.
type ClusterConfig struct {
	// Seeds are the bootstrap addresses for probing and routing.
	Seeds []string `yaml:"seeds"`
	// TargetMasters is the master count that defines a stable cluster.
	TargetMasters int `yaml:"targetMasters"`
	// FlushTimeout bounds each master's flush during a reset cycle.
	FlushTimeout Duration `yaml:"flushTimeout"`
	// ProbeBackoff is the delay between convergence attempts.
	ProbeBackoff Duration `yaml:"probeBackoff"`
}

// WorkloadConfig carries the failover drill's workload parameters.
type WorkloadConfig struct {
	// Requests is the number of round-trip tasks; one extra task
	// injects the failover.
	Requests int `yaml:"requests"`
	// Value namespaces the keys of one run.
	Value int `yaml:"value"`
}

// DrillConfig controls scenario execution.
type DrillConfig struct {
	// Cases is how many random parameter sets the randomized failover
	// drill runs.
	Cases int `yaml:"cases"`
	// Seed fixes the randomized drill's generator; 0 means derive
	// from the clock.
	Seed int64 `yaml:"seed"`
	// Timeout bounds one scenario end to end.
	Timeout Duration `yaml:"timeout"`
	// FailFast stops the suite at the first failing scenario.
	FailFast bool `yaml:"failFast"`
	// ReportPath, when set, is the directory JSON suite reports are
	// written to.
	ReportPath string `yaml:"reportPath"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address; empty disables the endpoint.
	Addr string `yaml:"addr"`
}

// Validate rejects configurations no drill can run with.
func (c *Config) Validate() error {
	if len(c.Cluster.Seeds) == 0 {
		return fmt.Errorf("cluster.seeds must not be empty")
	}
	if c.Cluster.TargetMasters <= 0 {
		return fmt.Errorf("cluster.targetMasters must be positive, got %d", c.Cluster.TargetMasters)
	}
	if c.Cluster.FlushTimeout <= 0 {
		return fmt.Errorf("cluster.flushTimeout must be positive, got %s", c.Cluster.FlushTimeout)
	}
	if c.Cluster.ProbeBackoff <= 0 {
		return fmt.Errorf("cluster.probeBackoff must be positive, got %s", c.Cluster.ProbeBackoff)
	}
	if c.Workload.Requests < 0 {
		return fmt.Errorf("workload.requests must be non-negative, got %d", c.Workload.Requests)
	}
	if c.Workload.Value < 0 {
		return fmt.Errorf("workload.value must be non-negative, got %d", c.Workload.Value)
	}
	if c.Drill.Cases <= 0 {
		return fmt.Errorf("drill.cases must be positive, got %d", c.Drill.Cases)
	}
	if c.Drill.Timeout <= 0 {
		return fmt.Errorf("drill.timeout must be positive, got %s", c.Drill.Timeout)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format)
	}
	return nil
}
