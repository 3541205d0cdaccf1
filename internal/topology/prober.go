package topology

import (
	"context"
	"fmt"

	"clusterdrill/pkg/logging"
)

const logSubsystem = "topology"

// NodesCommander issues the node-introspection command over one live
// connection. *cluster.NodeConn satisfies this.
type NodesCommander interface {
	ClusterNodes(ctx context.Context) (string, error)
}

// Probe fetches the introspection reply over conn and parses it.
// Transport failures come back wrapped; malformed replies come back
// as *ParseError so callers can treat them as fatal.
func Probe(ctx context.Context, conn NodesCommander) (Topology, error) {
	raw, err := conn.ClusterNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("probe cluster nodes: %w", err)
	}

	topo, err := ParseNodes(raw)
	if err != nil {
		return nil, err
	}

	logging.Debug(logSubsystem, "probed %d nodes, %d masters", len(topo), topo.MasterCount())
	return topo, nil
}
