// Package stabilize drives a cluster to the known-good state every
// drill starts from: the expected number of masters, all of them
// freshly flushed, with a dedicated connection held to every node.
package stabilize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"clusterdrill/internal/cluster"
	"clusterdrill/internal/metrics"
	"clusterdrill/internal/reporting"
	"clusterdrill/internal/topology"
	"clusterdrill/pkg/logging"
)

const logSubsystem = "stabilize"

// ErrNotConverged marks a probe cycle that found the wrong number of
// masters. The loop retries it; mid-failover clusters report interim
// shapes until the new master wins its epoch.
var ErrNotConverged = errors.New("cluster has not converged to the target master count")

// Config carries the stabilization knobs.
type Config struct {
	// Seeds are the bootstrap addresses. The first reachable shape of
	// the cluster is probed through the first seed.
	Seeds []string
	// TargetMasters is the master count that defines a stable cluster.
	TargetMasters int
	// FlushTimeout bounds each master's flush during a reset cycle.
	FlushTimeout time.Duration
	// ProbeBackoff is the constant delay between convergence attempts.
	ProbeBackoff time.Duration
}

// Stabilizer converges the cluster and hands out the resulting pool.
// It is not safe for concurrent use; one drill run owns one
// Stabilizer.
type Stabilizer struct {
	cfg      Config
	dialer   cluster.Dialer
	reporter reporting.Reporter
	runID    string
	phase    Phase
}

// New builds a Stabilizer. The reporter receives phase transitions
// and cycle outcomes tagged with runID.
func New(cfg Config, dialer cluster.Dialer, reporter reporting.Reporter, runID string) *Stabilizer {
	if reporter == nil {
		reporter = reporting.NopReporter{}
	}
	return &Stabilizer{
		cfg:      cfg,
		dialer:   dialer,
		reporter: reporter,
		runID:    runID,
		phase:    PhaseProbing,
	}
}

// Phase returns the last phase the state machine entered.
func (s *Stabilizer) Phase() Phase {
	return s.phase
}

// Stabilize probes and resets until the cluster is stable, backing
// off a constant interval between attempts. There is no attempt
// ceiling; cancel ctx to bound the wait. Probe failures, transport or
// parse alike, are fatal and end the loop immediately.
//
// On success the returned pool holds an open dedicated connection to
// every node of the committed topology. The caller owns the pool.
func (s *Stabilizer) Stabilize(ctx context.Context) (*Pool, error) {
	start := time.Now()

	probeConn := s.dialer.Dial(s.cfg.Seeds[0])
	defer probeConn.Close()

	var pool *Pool
	operation := func() error {
		p, err := s.cycle(ctx, probeConn)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(s.cfg.ProbeBackoff), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		s.setPhase(PhaseFailed)
		return nil, err
	}

	s.setPhase(PhaseStable)
	metrics.StabilizeDuration.Observe(time.Since(start).Seconds())
	logging.Info(logSubsystem, "cluster stable: %d nodes held, %d masters", pool.Size(), len(pool.MasterAddrs()))
	return pool, nil
}

// cycle runs one probe-and-reset attempt. It returns a permanent
// error for probe failures and a plain error for anything the loop
// should retry.
func (s *Stabilizer) cycle(ctx context.Context, probeConn cluster.Conn) (*Pool, error) {
	s.setPhase(PhaseProbing)

	topo, err := topology.Probe(ctx, probeConn)
	if err != nil {
		metrics.ProbeAttempts.WithLabelValues("error").Inc()
		s.reporter.Report(reporting.NewEvent(reporting.EventTypeProbe, logSubsystem, reporting.SeverityError,
			s.runID, "topology probe failed").WithError(err))
		return nil, backoff.Permanent(err)
	}

	if got := topo.MasterCount(); got != s.cfg.TargetMasters {
		metrics.ProbeAttempts.WithLabelValues("mismatch").Inc()
		s.reporter.Report(reporting.NewEvent(reporting.EventTypeProbe, logSubsystem, reporting.SeverityDebug,
			s.runID, "probed %d masters, want %d", got, s.cfg.TargetMasters))
		return nil, fmt.Errorf("%w: have %d, want %d", ErrNotConverged, got, s.cfg.TargetMasters)
	}
	metrics.ProbeAttempts.WithLabelValues("converged").Inc()

	s.setPhase(PhaseResetting)
	pool, err := s.reset(ctx, topo)
	if err != nil {
		metrics.ResetCycles.WithLabelValues("failed").Inc()
		s.reporter.Report(reporting.NewEvent(reporting.EventTypeResetCycle, logSubsystem, reporting.SeverityWarn,
			s.runID, "reset cycle failed, re-probing").WithError(err))
		return nil, err
	}
	metrics.ResetCycles.WithLabelValues("ok").Inc()
	s.reporter.Report(reporting.NewEvent(reporting.EventTypeResetCycle, logSubsystem, reporting.SeverityInfo,
		s.runID, "flushed %d masters, holding %d connections", len(pool.MasterAddrs()), pool.Size()))
	return pool, nil
}

// reset opens a dedicated connection to every node of topo and
// flushes each master under the flush timeout. The flushes run
// concurrently and fail fast: the first failure cancels the rest. On
// any failure every connection opened for this cycle is closed and
// discarded; the next cycle starts from scratch.
func (s *Stabilizer) reset(ctx context.Context, topo topology.Topology) (*Pool, error) {
	conns := make([]cluster.Conn, len(topo))
	for i, node := range topo {
		conns[i] = s.dialer.Dial(node.Addr)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, node := range topo {
		if node.Role != topology.RoleMaster {
			continue
		}
		conn := conns[i]
		g.Go(func() error {
			flushCtx, cancel := context.WithTimeout(gctx, s.cfg.FlushTimeout)
			defer cancel()
			return conn.FlushAll(flushCtx)
		})
	}

	if err := g.Wait(); err != nil {
		closeAll(conns)
		return nil, fmt.Errorf("reset cycle: %w", err)
	}

	masters := topo.Masters()
	masterAddrs := make([]string, 0, len(masters))
	for _, m := range masters {
		masterAddrs = append(masterAddrs, m.Addr)
	}
	return NewPool(conns, masterAddrs), nil
}

func (s *Stabilizer) setPhase(to Phase) {
	if s.phase == to {
		return
	}
	from := s.phase
	s.phase = to
	s.reporter.Report(reporting.NewEvent(reporting.EventTypePhaseChange, logSubsystem, reporting.SeverityDebug,
		s.runID, "%s -> %s", from, to))
}

func closeAll(conns []cluster.Conn) {
	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			logging.Warn(logSubsystem, "closing discarded connection %s: %v", conn.Addr(), err)
		}
	}
}
