package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"clusterdrill/internal/cluster"
	"clusterdrill/internal/config"
	"clusterdrill/internal/topology"
	"clusterdrill/pkg/logging"
)

var topologySeeds []string

// topologyCmd represents the topology command
var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Probe the cluster once and print the parsed topology",
	Long: `The topology command connects to the first seed node, asks it for
the cluster layout, and prints every node with its role. It takes no
lock and changes nothing; use it to check what the harness would see
before running drills.`,
	RunE: runTopology,
}

func init() {
	rootCmd.AddCommand(topologyCmd)
	topologyCmd.Flags().StringSliceVar(&topologySeeds, "seeds", nil, "Cluster seed addresses (host:port)")
}

func runTopology(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cmd.Flags().Changed("seeds") {
		cfg.Cluster.Seeds = topologySeeds
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("validate configuration: %w", err)
		}
	}

	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, os.Stderr)

	conn := cluster.DialNode(cfg.Cluster.Seeds[0])
	defer conn.Close()

	topo, err := topology.Probe(cmd.Context(), conn)
	if err != nil {
		return fmt.Errorf("probe topology: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tROLE")
	for _, node := range topo {
		fmt.Fprintf(w, "%s\t%s\n", node.Addr, node.Role)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d nodes, %d masters\n", len(topo), topo.MasterCount())
	return nil
}
