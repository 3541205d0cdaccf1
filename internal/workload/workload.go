// Package workload drives the request load of a failover drill: a set
// of independent write/read round trips launched all at once, with
// one task in the middle of the index range promoting a replica while
// the others are in flight.
package workload

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"clusterdrill/internal/cluster"
	"clusterdrill/internal/fanout"
	"clusterdrill/internal/metrics"
	"clusterdrill/internal/reporting"
	"clusterdrill/pkg/logging"
)

const logSubsystem = "workload"

// ErrRoundTripMismatch marks a read that did not return the value
// just written under the same key.
var ErrRoundTripMismatch = errors.New("round trip value mismatch")

// ErrIncompleteRun marks a drill whose completion counter did not
// reach the request count even though no task reported an error.
var ErrIncompleteRun = errors.New("completion counter below request count")

// ErrFailoverRejected marks a failover broadcast that no node
// accepted. It wraps the full set of per-node rejections.
var ErrFailoverRejected = errors.New("no node accepted the failover")

// KV is the routed read/write surface the workload drives.
// *cluster.Client satisfies it.
type KV interface {
	Set(ctx context.Context, key string, value interface{}) error
	GetInt(ctx context.Context, key string) (int, error)
}

// Driver runs the workload of one drill over a routed client and a
// snapshot of the stabilized connection set.
type Driver struct {
	kv       KV
	conns    []cluster.Conn
	reporter reporting.Reporter
	runID    string
}

// New builds a Driver. conns is the connection snapshot the failover
// task broadcasts over; take it before launching so a concurrent
// reset cannot swap connections underneath the drill.
func New(kv KV, conns []cluster.Conn, reporter reporting.Reporter, runID string) *Driver {
	if reporter == nil {
		reporter = reporting.NopReporter{}
	}
	return &Driver{
		kv:       kv,
		conns:    conns,
		reporter: reporter,
		runID:    runID,
	}
}

// Run launches requests+1 concurrent tasks, indices 0 through
// requests inclusive. The task at index requests/2 broadcasts the
// promote command over the connection snapshot; every other task
// writes its index under "test-<value>-<i>", reads it back, verifies
// the round trip, and counts itself completed. Tasks join fail-fast:
// the first failure cancels the rest.
//
// After the join the completion counter must equal requests exactly.
func (d *Driver) Run(ctx context.Context, requests, value int) error {
	if requests < 0 {
		return fmt.Errorf("requests must be non-negative, got %d", requests)
	}

	injectorIdx := requests / 2
	var completed atomic.Int64

	logging.Debug(logSubsystem, "launching %d tasks, failover at index %d", requests+1, injectorIdx)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i <= requests; i++ {
		i := i
		if i == injectorIdx {
			g.Go(func() error {
				return d.injectFailover(gctx)
			})
			continue
		}
		g.Go(func() error {
			return d.roundTrip(gctx, value, i, &completed)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if got := completed.Load(); got != int64(requests) {
		return fmt.Errorf("%w: %d of %d", ErrIncompleteRun, got, requests)
	}
	d.reporter.Report(reporting.NewEvent(reporting.EventTypeWorkloadTask, logSubsystem, reporting.SeverityInfo,
		d.runID, "%d round trips completed through the failover", requests))
	return nil
}

// roundTrip performs one write/read/verify cycle for task index i.
func (d *Driver) roundTrip(ctx context.Context, value, i int, completed *atomic.Int64) error {
	key := fmt.Sprintf("test-%d-%d", value, i)
	start := time.Now()

	if err := d.kv.Set(ctx, key, i); err != nil {
		metrics.WorkloadOps.WithLabelValues("set", "error").Inc()
		return err
	}
	metrics.WorkloadOps.WithLabelValues("set", "ok").Inc()

	got, err := d.kv.GetInt(ctx, key)
	if err != nil {
		metrics.WorkloadOps.WithLabelValues("get", "error").Inc()
		return err
	}
	metrics.WorkloadOps.WithLabelValues("get", "ok").Inc()

	if got != i {
		return fmt.Errorf("%w: key %q: wrote %d, read %d", ErrRoundTripMismatch, key, i, got)
	}

	metrics.OpDuration.WithLabelValues("round_trip").Observe(time.Since(start).Seconds())
	completed.Add(1)
	return nil
}

// injectFailover broadcasts the promote command to every held
// connection. Masters reject it; one replica accepting is success.
// Only a unanimous rejection fails the drill, and then the error
// carries every node's refusal.
func (d *Driver) injectFailover(ctx context.Context) error {
	d.reporter.Report(reporting.NewEvent(reporting.EventTypeFailover, logSubsystem, reporting.SeverityInfo,
		d.runID, "broadcasting failover to %d nodes", len(d.conns)))

	ops := make([]fanout.Op, 0, len(d.conns))
	for _, conn := range d.conns {
		conn := conn
		ops = append(ops, func(ctx context.Context) error {
			return conn.ClusterFailover(ctx)
		})
	}

	if err := fanout.AnySuccess(ctx, ops); err != nil {
		metrics.FailoverAttempts.WithLabelValues("rejected").Inc()
		d.reporter.Report(reporting.NewEvent(reporting.EventTypeFailover, logSubsystem, reporting.SeverityError,
			d.runID, "failover broadcast failed").WithError(err))
		return fmt.Errorf("%w: %w", ErrFailoverRejected, err)
	}

	metrics.FailoverAttempts.WithLabelValues("accepted").Inc()
	d.reporter.Report(reporting.NewEvent(reporting.EventTypeFailover, logSubsystem, reporting.SeverityInfo,
		d.runID, "failover accepted"))
	return nil
}
