package stabilize

import (
	"errors"

	"clusterdrill/internal/cluster"
)

// Pool is the set of dedicated connections held after a successful
// stabilization: one per node of the committed topology, replicas
// included. A later failover broadcast needs the replica connections;
// masters reject the promote command.
type Pool struct {
	conns       []cluster.Conn
	masterAddrs []string
}

// NewPool builds a pool from the connections of one committed
// topology and the master addresses observed at commit time.
func NewPool(conns []cluster.Conn, masterAddrs []string) *Pool {
	return &Pool{conns: conns, masterAddrs: masterAddrs}
}

// Snapshot returns a copy of the held connection set. Callers get a
// stable view even if the pool is closed while they work; the
// connections themselves are shared.
func (p *Pool) Snapshot() []cluster.Conn {
	out := make([]cluster.Conn, len(p.conns))
	copy(out, p.conns)
	return out
}

// MasterAddrs returns the loopback addresses of the masters as they
// stood when the pool was committed.
func (p *Pool) MasterAddrs() []string {
	out := make([]string, len(p.masterAddrs))
	copy(out, p.masterAddrs)
	return out
}

// Size returns the number of held connections.
func (p *Pool) Size() int {
	return len(p.conns)
}

// Close tears down every held connection and reports all close
// failures together.
func (p *Pool) Close() error {
	var errs []error
	for _, conn := range p.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
