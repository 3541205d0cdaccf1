package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"clusterdrill/internal/config"
	"clusterdrill/internal/fixture"
	"clusterdrill/internal/reporting"
	"clusterdrill/pkg/logging"
)

var resetSeeds []string

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Stabilize the cluster without running any drills",
	Long: `The reset command acquires the fixture lock, probes the cluster
until the expected master count appears, and flushes every master.
It leaves the cluster in the same stable state every drill run starts
from, then releases the lock.

It keeps retrying until the cluster converges; interrupt it to give
up.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().StringSliceVar(&resetSeeds, "seeds", nil, "Cluster seed addresses (host:port)")
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cmd.Flags().Changed("seeds") {
		cfg.Cluster.Seeds = resetSeeds
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("validate configuration: %w", err)
		}
	}

	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, os.Stderr)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, giving up on the reset...")
		cancel()
	}()

	env, err := fixture.Setup(ctx, fixture.Options{
		LockDir:   cfg.LockDir,
		Stabilize: stabilizeConfig(cfg),
		Reporter:  reporting.NewConsoleReporter(),
	})
	if err != nil {
		return fmt.Errorf("reset cluster: %w", err)
	}

	fmt.Printf("✅ Cluster stable: %d nodes, masters: %s\n",
		env.Pool.Size(), strings.Join(env.Pool.MasterAddrs(), ", "))
	return env.Close()
}
