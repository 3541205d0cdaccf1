package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clusterdrill",
	Short: "Failover drills for Redis-style clusters",
	Long: `clusterdrill stabilizes a Redis-style cluster into a known shape and
then runs failure drills against it: a concurrent workload with a
failover injected mid-flight, script and pipeline round trips, and a
randomized sweep of workload sizes.

Every drill starts from the same fixture: the harness probes the
topology until the expected master count appears, flushes all masters,
and holds a connection to every node for the duration of the run.`,
	// SilenceUsage is set to true to prevent printing usage message on
	// errors handled by us (e.g. invalid arguments, unreachable cluster)
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "clusterdrill version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
