package config

import "time"

// DefaultConfig returns the configuration clusterdrill runs with when
// no file or environment override says otherwise. The defaults match
// a local six-node cluster with three masters on ports 7000-7005.
func DefaultConfig() Config {
	return Config{
		Cluster: ClusterConfig{
			Seeds:         []string{"127.0.0.1:7000"},
			TargetMasters: 3,
			FlushTimeout:  Duration(3 * time.Second),
			ProbeBackoff:  Duration(100 * time.Millisecond),
		},
		Workload: WorkloadConfig{
			Requests: 10,
			Value:    123,
		},
		Drill: DrillConfig{
			Cases:   30,
			Timeout: Duration(5 * time.Minute),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
