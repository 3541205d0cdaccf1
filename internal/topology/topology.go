package topology

import (
	"fmt"
	"strings"
)

// Role describes a node's responsibility within the cluster.
type Role string

const (
	RoleMaster  Role = "master"
	RoleReplica Role = "replica"
)

// Node describes a single cluster node as reported by one probe.
// Nodes are derived fresh from every introspection reply and never
// persisted across probe cycles.
type Node struct {
	Addr string
	Role Role
}

// Topology is the set of nodes reported by one probe cycle.
type Topology []Node

// Masters returns the nodes currently reporting the master role.
func (t Topology) Masters() []Node {
	var masters []Node
	for _, n := range t {
		if n.Role == RoleMaster {
			masters = append(masters, n)
		}
	}
	return masters
}

// MasterCount returns the number of nodes reporting the master role.
func (t Topology) MasterCount() int {
	count := 0
	for _, n := range t {
		if n.Role == RoleMaster {
			count++
		}
	}
	return count
}

// Addrs returns the addresses of all nodes in reply order.
func (t Topology) Addrs() []string {
	addrs := make([]string, 0, len(t))
	for _, n := range t {
		addrs = append(addrs, n.Addr)
	}
	return addrs
}

// ParseError reports a malformed record in the node-introspection
// reply. Parse failures are fatal: the reply text will not improve on
// a retry, so callers must abort instead of re-probing.
type ParseError struct {
	Line   int    // 1-based line number of the offending record
	Record string // the record as received, CR stripped
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse cluster nodes reply: line %d: %s: %q", e.Line, e.Reason, e.Record)
}

// ParseNodes parses the raw multi-line reply of the CLUSTER NODES
// command. Each line is one whitespace-delimited record:
//
//	<id> <ip:port@cport> <flags> <master-id> <ping> <pong> <epoch> <state> <slots...>
//
// Only the address and flags fields are consumed. The advertised
// address is rewritten to its loopback form (127.0.0.1:<port>) so the
// harness can reach nodes that announce container-internal IPs. A
// node is a master iff its flags field contains "master".
//
// ParseNodes is pure: it never touches the network, and any malformed
// record yields a *ParseError.
func ParseNodes(raw string) (Topology, error) {
	trimmed := strings.TrimSuffix(raw, "\n")
	if trimmed == "" {
		return nil, &ParseError{Line: 1, Record: raw, Reason: "empty reply"}
	}

	lines := strings.Split(trimmed, "\n")
	topo := make(Topology, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, &ParseError{Line: i + 1, Record: line, Reason: "record has fewer than 3 fields"}
		}

		addr, err := loopbackAddr(fields[1])
		if err != nil {
			return nil, &ParseError{Line: i + 1, Record: line, Reason: err.Error()}
		}

		role := RoleReplica
		if strings.Contains(fields[2], "master") {
			role = RoleMaster
		}

		topo = append(topo, Node{Addr: addr, Role: role})
	}
	return topo, nil
}

// loopbackAddr extracts the client port from an advertised
// "ip:port[@busport]" address and rebinds it to the loopback
// interface.
func loopbackAddr(advertised string) (string, error) {
	hostport, _, _ := strings.Cut(advertised, "@")
	_, port, found := strings.Cut(hostport, ":")
	if !found {
		return "", fmt.Errorf("address %q has no port", advertised)
	}
	if port == "" {
		return "", fmt.Errorf("address %q has an empty port", advertised)
	}
	return "127.0.0.1:" + port, nil
}
