package stabilize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"clusterdrill/internal/cluster"
	"clusterdrill/internal/reporting"
	"clusterdrill/internal/topology"
)

// fakeConn scripts one dedicated node connection.
type fakeConn struct {
	addr string

	mu           sync.Mutex
	nodesReplies []string
	nodesErr     error
	nodesCalls   int
	flushErr     error
	flushDelay   time.Duration
	flushCalls   int
	closed       bool
}

func (c *fakeConn) Addr() string { return c.addr }

func (c *fakeConn) ClusterNodes(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodesCalls++
	if c.nodesErr != nil {
		return "", c.nodesErr
	}
	idx := c.nodesCalls - 1
	if idx >= len(c.nodesReplies) {
		idx = len(c.nodesReplies) - 1
	}
	return c.nodesReplies[idx], nil
}

func (c *fakeConn) FlushAll(ctx context.Context) error {
	c.mu.Lock()
	c.flushCalls++
	delay := c.flushDelay
	err := c.flushErr
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (c *fakeConn) ClusterFailover(ctx context.Context) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) flushCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushCalls
}

// fakeDialer hands out scripted connections. Flush behavior keyed by
// address applies to the first connection dialed for that address
// only, so a failing cycle can be followed by a clean one.
type fakeDialer struct {
	mu           sync.Mutex
	probeReplies []string
	probeErr     error
	failOnce     map[string]error
	delayOnce    map[string]time.Duration
	dialed       []*fakeConn
	seen         map[string]int
}

func newFakeDialer(probeReplies ...string) *fakeDialer {
	return &fakeDialer{
		probeReplies: probeReplies,
		failOnce:     map[string]error{},
		delayOnce:    map[string]time.Duration{},
		seen:         map[string]int{},
	}
}

func (d *fakeDialer) Dial(addr string) cluster.Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[addr]++
	conn := &fakeConn{
		addr:         addr,
		nodesReplies: d.probeReplies,
		nodesErr:     d.probeErr,
	}
	if d.seen[addr] == 1 {
		if err, ok := d.failOnce[addr]; ok {
			conn.flushErr = err
		}
		if delay, ok := d.delayOnce[addr]; ok {
			conn.flushDelay = delay
		}
	}
	d.dialed = append(d.dialed, conn)
	return conn
}

func (d *fakeDialer) connsFor(addr string) []*fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*fakeConn
	for _, c := range d.dialed {
		if c.addr == addr {
			out = append(out, c)
		}
	}
	return out
}

func (d *fakeDialer) probeConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dialed[0]
}

// reply builds an introspection reply with the given master and
// replica client ports.
func reply(masterPorts, replicaPorts []int) string {
	var b strings.Builder
	for i, p := range masterPorts {
		fmt.Fprintf(&b, "m%d 10.0.0.%d:%d@%d master - 0 0 %d connected 0-5460\n", i, i+1, p, p+10000, i+1)
	}
	for i, p := range replicaPorts {
		fmt.Fprintf(&b, "r%d 10.0.1.%d:%d@%d slave m%d 0 0 1 connected\n", i, i+1, p, p+10000, i%len(masterPorts))
	}
	return b.String()
}

func stableReply() string {
	return reply([]int{7000, 7001, 7002}, []int{7003, 7004, 7005})
}

func testConfig() Config {
	return Config{
		Seeds:         []string{"127.0.0.1:7000"},
		TargetMasters: 3,
		FlushTimeout:  3 * time.Second,
		ProbeBackoff:  time.Millisecond,
	}
}

func TestStabilize_ConvergesInOneCycle(t *testing.T) {
	dialer := newFakeDialer(stableReply())
	rec := reporting.NewRecorder()
	s := New(testConfig(), dialer, rec, "run-1")

	pool, err := s.Stabilize(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, PhaseStable, s.Phase())
	assert.Equal(t, 6, pool.Size())
	assert.Equal(t, []string{"127.0.0.1:7000", "127.0.0.1:7001", "127.0.0.1:7002"}, pool.MasterAddrs())

	// One probe over the seed connection, which is closed afterwards.
	assert.Equal(t, 1, dialer.probeConn().nodesCalls)
	assert.True(t, dialer.probeConn().isClosed())

	// Masters flushed exactly once, replicas never.
	for _, port := range []int{7000, 7001, 7002} {
		conns := dialer.connsFor(fmt.Sprintf("127.0.0.1:%d", port))
		flushed := 0
		for _, c := range conns {
			flushed += c.flushCount()
		}
		assert.Equal(t, 1, flushed, "master port %d", port)
	}
	for _, port := range []int{7003, 7004, 7005} {
		for _, c := range dialer.connsFor(fmt.Sprintf("127.0.0.1:%d", port)) {
			assert.Zero(t, c.flushCount(), "replica port %d", port)
		}
	}

	// Held connections stay open until the pool is closed.
	for _, c := range pool.Snapshot() {
		assert.False(t, c.(*fakeConn).isClosed())
	}
	assert.NoError(t, pool.Close())
	for _, c := range pool.Snapshot() {
		assert.True(t, c.(*fakeConn).isClosed())
	}
}

func TestStabilize_RetriesUntilMasterCountMatches(t *testing.T) {
	// Two probes see a mid-failover shape, the third sees the target.
	dialer := newFakeDialer(
		reply([]int{7000, 7001}, []int{7003, 7004, 7005}),
		reply([]int{7000, 7001}, []int{7003, 7004, 7005}),
		stableReply(),
	)
	s := New(testConfig(), dialer, nil, "run-1")

	pool, err := s.Stabilize(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 3, dialer.probeConn().nodesCalls)
	assert.Equal(t, 6, pool.Size())

	// Mismatched cycles never reach the reset: besides the probe
	// connection, only the committed cycle dialed anything.
	dialer.mu.Lock()
	assert.Len(t, dialer.dialed, 7)
	dialer.mu.Unlock()

	assert.NoError(t, pool.Close())
}

func TestStabilize_ParseErrorIsFatal(t *testing.T) {
	dialer := newFakeDialer("not a cluster nodes reply")
	s := New(testConfig(), dialer, nil, "run-1")

	pool, err := s.Stabilize(context.Background())
	assert.Nil(t, pool)
	var parseErr *topology.ParseError
	assert.True(t, errors.As(err, &parseErr))
	assert.Equal(t, PhaseFailed, s.Phase())

	// Fatal means exactly one probe, no retry.
	assert.Equal(t, 1, dialer.probeConn().nodesCalls)
}

func TestStabilize_ProbeTransportErrorIsFatal(t *testing.T) {
	dialer := newFakeDialer()
	dialer.probeErr = errors.New("connection refused")
	s := New(testConfig(), dialer, nil, "run-1")

	pool, err := s.Stabilize(context.Background())
	assert.Nil(t, pool)
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, PhaseFailed, s.Phase())
	assert.Equal(t, 1, dialer.probeConn().nodesCalls)
}

func TestStabilize_FlushFailureDiscardsCycleConnections(t *testing.T) {
	dialer := newFakeDialer(stableReply())
	dialer.failOnce["127.0.0.1:7001"] = errors.New("node 127.0.0.1:7001: flushall: LOADING")
	rec := reporting.NewRecorder()
	s := New(testConfig(), dialer, rec, "run-1")

	pool, err := s.Stabilize(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, PhaseStable, s.Phase())

	// The failed cycle's connections were all closed, replicas too.
	for _, port := range []int{7001, 7002, 7003, 7004, 7005} {
		conns := dialer.connsFor(fmt.Sprintf("127.0.0.1:%d", port))
		assert.Len(t, conns, 2, "port %d dialed once per cycle", port)
		assert.True(t, conns[0].isClosed(), "first-cycle conn to %d must be discarded", port)
		assert.False(t, conns[1].isClosed(), "second-cycle conn to %d must be held", port)
	}

	// The retry was driven by a reset failure, not a probe failure.
	resetEvents := rec.ByType(reporting.EventTypeResetCycle)
	assert.GreaterOrEqual(t, len(resetEvents), 2)
	assert.Contains(t, resetEvents[0].ErrorDetail, "LOADING")

	assert.NoError(t, pool.Close())
}

func TestStabilize_FlushTimeoutFailsTheCycle(t *testing.T) {
	cfg := testConfig()
	cfg.FlushTimeout = 20 * time.Millisecond

	dialer := newFakeDialer(stableReply())
	dialer.delayOnce["127.0.0.1:7002"] = 500 * time.Millisecond
	rec := reporting.NewRecorder()
	s := New(cfg, dialer, rec, "run-1")

	pool, err := s.Stabilize(context.Background())
	assert.NoError(t, err)

	resetEvents := rec.ByType(reporting.EventTypeResetCycle)
	assert.GreaterOrEqual(t, len(resetEvents), 2)
	assert.Contains(t, resetEvents[0].ErrorDetail, context.DeadlineExceeded.Error())
	assert.NoError(t, pool.Close())
}

func TestStabilize_FlushesFailFast(t *testing.T) {
	// One master hangs for much longer than the test budget while
	// another fails immediately. Fail-fast cancellation must abort
	// the hanging flush instead of waiting it out.
	cfg := testConfig()
	cfg.FlushTimeout = 10 * time.Second

	dialer := newFakeDialer(stableReply())
	dialer.delayOnce["127.0.0.1:7001"] = 8 * time.Second
	dialer.failOnce["127.0.0.1:7002"] = errors.New("node 127.0.0.1:7002: flushall: rejected")
	s := New(cfg, dialer, nil, "run-1")

	start := time.Now()
	pool, err := s.Stabilize(context.Background())
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	hung := dialer.connsFor("127.0.0.1:7001")[0]
	assert.True(t, hung.isClosed())
	assert.NoError(t, pool.Close())
}

func TestStabilize_ContextCancelEndsTheLoop(t *testing.T) {
	// The cluster never reaches three masters.
	dialer := newFakeDialer(reply([]int{7000, 7001}, []int{7003}))
	s := New(testConfig(), dialer, nil, "run-1")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	pool, err := s.Stabilize(ctx)
	assert.Nil(t, pool)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, PhaseFailed, s.Phase())
	assert.Greater(t, dialer.probeConn().nodesCalls, 1, "mismatch must be retried until the deadline")
}

func TestStabilize_PhaseTransitionsReported(t *testing.T) {
	dialer := newFakeDialer(
		reply([]int{7000, 7001}, []int{7003, 7004, 7005}),
		stableReply(),
	)
	rec := reporting.NewRecorder()
	s := New(testConfig(), dialer, rec, "run-1")

	_, err := s.Stabilize(context.Background())
	assert.NoError(t, err)

	var transitions []string
	for _, e := range rec.ByType(reporting.EventTypePhaseChange) {
		transitions = append(transitions, e.Message)
	}
	assert.Equal(t, []string{
		"Probing -> Resetting",
		"Resetting -> Stable",
	}, transitions)

	for _, e := range rec.Events() {
		assert.Equal(t, "run-1", e.CorrelationID)
	}
}
