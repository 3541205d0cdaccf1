package cluster

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Conn is the administrative surface of a dedicated node connection.
// Commands issued through it are never routed: flushing one master,
// promoting one replica, and introspecting the topology all have to
// land on the exact node they were aimed at. *NodeConn implements
// Conn; the stabilizer and the failover drill accept the interface so
// they can run against fakes.
type Conn interface {
	Addr() string
	ClusterNodes(ctx context.Context) (string, error)
	FlushAll(ctx context.Context) error
	ClusterFailover(ctx context.Context) error
	Close() error
}

// Dialer opens dedicated connections to individual nodes.
type Dialer interface {
	Dial(addr string) Conn
}

// NetDialer is the production Dialer, backed by go-redis clients.
type NetDialer struct{}

func (NetDialer) Dial(addr string) Conn {
	return DialNode(addr)
}

// NodeConn is a dedicated connection to one node. Errors carry the
// node address so aggregated failures keep their provenance.
type NodeConn struct {
	addr string
	rdb  *redis.Client
}

// DialNode opens a dedicated connection to the node at addr. The
// connection is established lazily on first command.
func DialNode(addr string) *NodeConn {
	return &NodeConn{
		addr: addr,
		rdb:  redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Addr returns the node address this connection was dialed with.
func (c *NodeConn) Addr() string {
	return c.addr
}

// ClusterNodes returns the raw node-introspection reply.
func (c *NodeConn) ClusterNodes(ctx context.Context) (string, error) {
	raw, err := c.rdb.ClusterNodes(ctx).Result()
	if err != nil {
		return "", fmt.Errorf("node %s: cluster nodes: %w", c.addr, err)
	}
	return raw, nil
}

// FlushAll clears every key held by this node.
func (c *NodeConn) FlushAll(ctx context.Context) error {
	if err := c.rdb.FlushAll(ctx).Err(); err != nil {
		return fmt.Errorf("node %s: flushall: %w", c.addr, err)
	}
	return nil
}

// ClusterFailover asks this node to take over its shard. Masters
// reject the command; only a replica can be promoted.
func (c *NodeConn) ClusterFailover(ctx context.Context) error {
	if err := c.rdb.ClusterFailover(ctx).Err(); err != nil {
		return fmt.Errorf("node %s: cluster failover: %w", c.addr, err)
	}
	return nil
}

// Close tears the connection down.
func (c *NodeConn) Close() error {
	return c.rdb.Close()
}
