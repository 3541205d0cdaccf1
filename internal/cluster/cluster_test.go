package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDialNode_Addr(t *testing.T) {
	conn := DialNode("127.0.0.1:7000")
	defer conn.Close()

	assert.Equal(t, "127.0.0.1:7000", conn.Addr())
}

func TestNetDialer_HandsOutDedicatedConns(t *testing.T) {
	dialer := NetDialer{}

	a := dialer.Dial("127.0.0.1:7000")
	b := dialer.Dial("127.0.0.1:7001")
	defer a.Close()
	defer b.Close()

	assert.Equal(t, "127.0.0.1:7000", a.Addr())
	assert.Equal(t, "127.0.0.1:7001", b.Addr())
	assert.NotSame(t, a, b)
}

func TestOpen_CloseWithoutUse(t *testing.T) {
	// Connections are lazy; opening and closing a routed client must
	// not need a reachable cluster.
	c := Open([]string{"127.0.0.1:7000", "127.0.0.1:7001"})
	assert.NoError(t, c.Close())
}

func TestNodeConn_ErrorsCarryNodeAddress(t *testing.T) {
	// Port 0 is never listening, so every command fails at dial time.
	// The wrapper must prefix the node address so aggregated failures
	// keep their provenance.
	conn := DialNode("127.0.0.1:0")
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := conn.FlushAll(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "node 127.0.0.1:0")
	assert.Contains(t, err.Error(), "flushall")

	_, err = conn.ClusterNodes(ctx)
	assert.ErrorContains(t, err, "node 127.0.0.1:0")

	err = conn.ClusterFailover(ctx)
	assert.ErrorContains(t, err, "node 127.0.0.1:0")
}
