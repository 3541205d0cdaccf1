package cmd

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clusterdrill/internal/config"
	"clusterdrill/internal/drill"
)

func TestApplyRunOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	flags := runCmd.Flags()

	// Setting through the flag set marks the flags as changed, the
	// same path cobra takes when parsing a command line.
	require.NoError(t, flags.Set("requests", "12"))
	require.NoError(t, flags.Set("value", "777"))
	require.NoError(t, flags.Set("seed", "42"))
	require.NoError(t, flags.Set("timeout", "90s"))
	require.NoError(t, flags.Set("fail-fast", "true"))
	require.NoError(t, flags.Set("seeds", "10.0.0.1:7000,10.0.0.2:7000"))
	require.NoError(t, flags.Set("report", "./reports"))
	require.NoError(t, flags.Set("metrics-addr", ":9104"))

	applyRunOverrides(runCmd, &cfg)

	assert.Equal(t, 12, cfg.Workload.Requests)
	assert.Equal(t, 777, cfg.Workload.Value)
	assert.Equal(t, int64(42), cfg.Drill.Seed)
	assert.Equal(t, 90*time.Second, cfg.Drill.Timeout.Std())
	assert.True(t, cfg.Drill.FailFast)
	assert.Equal(t, []string{"10.0.0.1:7000", "10.0.0.2:7000"}, cfg.Cluster.Seeds)
	assert.Equal(t, "./reports", cfg.Drill.ReportPath)
	assert.Equal(t, ":9104", cfg.Metrics.Addr)

	// Flags that were never set leave the loaded values alone.
	defaults := config.DefaultConfig()
	assert.Equal(t, defaults.Drill.Cases, cfg.Drill.Cases)
	assert.Equal(t, defaults.Cluster.TargetMasters, cfg.Cluster.TargetMasters)
}

func TestStabilizeConfigMapping(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cluster.Seeds = []string{"127.0.0.1:7000"}
	cfg.Cluster.TargetMasters = 3
	cfg.Cluster.FlushTimeout = config.Duration(3 * time.Second)
	cfg.Cluster.ProbeBackoff = config.Duration(100 * time.Millisecond)

	sc := stabilizeConfig(cfg)
	assert.Equal(t, []string{"127.0.0.1:7000"}, sc.Seeds)
	assert.Equal(t, 3, sc.TargetMasters)
	assert.Equal(t, 3*time.Second, sc.FlushTimeout)
	assert.Equal(t, 100*time.Millisecond, sc.ProbeBackoff)
}

func TestScenarioFlagCompletion(t *testing.T) {
	names, directive := completeScenarioFlag(runCmd, nil, "")
	assert.Equal(t, drill.Names(), names)
	assert.Equal(t, cobra.ShellCompDirectiveDefault, directive)
}

func TestRunCommandFlags(t *testing.T) {
	for _, name := range []string{
		"scenario", "seeds", "requests", "value", "cases", "seed",
		"timeout", "fail-fast", "report", "metrics-addr", "verbose", "quiet",
	} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "flag %q", name)
	}
}
