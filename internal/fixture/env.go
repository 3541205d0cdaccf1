package fixture

import (
	"context"
	"errors"
	"fmt"

	"clusterdrill/internal/cluster"
	"clusterdrill/internal/reporting"
	"clusterdrill/internal/stabilize"
)

// Options configures the drill environment.
type Options struct {
	// LockDir is where the fixture lock file lives. Empty means the
	// system temp directory.
	LockDir string
	// Stabilize carries the convergence knobs, including the seeds.
	Stabilize stabilize.Config
	// Dialer opens dedicated node connections. Nil means the real
	// network dialer.
	Dialer cluster.Dialer
	// Reporter receives run events. Nil means discard.
	Reporter reporting.Reporter
}

// Env owns everything one drill run needs: the held fixture lock, the
// stabilized connection pool, and a routed client seeded with the
// committed masters. There is no ambient environment; each run sets
// up its own Env and passes it along explicitly.
type Env struct {
	RunID  string
	Client *cluster.Client
	Pool   *stabilize.Pool

	lock     *Lock
	reporter reporting.Reporter
}

// Setup acquires the fixture, converges the cluster, and opens the
// routed client. Every partial acquisition is rolled back on failure,
// so an error never leaves the fixture held.
func Setup(ctx context.Context, opts Options) (*Env, error) {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = reporting.NopReporter{}
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = cluster.NetDialer{}
	}

	runID := reporting.GenerateCorrelationID()

	lock := NewLock(opts.LockDir, opts.Stabilize.Seeds)
	if err := lock.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("acquire fixture: %w", err)
	}
	reporter.Report(reporting.NewEvent(reporting.EventTypeFixtureAcquired, logSubsystem, reporting.SeverityDebug,
		runID, "fixture lock held: %s", lock.Path()))

	ok := false
	defer func() {
		if !ok {
			lock.Release()
		}
	}()

	stab := stabilize.New(opts.Stabilize, dialer, reporter, runID)
	pool, err := stab.Stabilize(ctx)
	if err != nil {
		return nil, fmt.Errorf("stabilize cluster: %w", err)
	}
	defer func() {
		if !ok {
			pool.Close()
		}
	}()

	env := &Env{
		RunID:    runID,
		Client:   cluster.Open(pool.MasterAddrs()),
		Pool:     pool,
		lock:     lock,
		reporter: reporter,
	}
	ok = true
	return env, nil
}

// Close releases the environment in reverse acquisition order:
// client, pool, then the fixture lock. Safe to call more than once.
func (e *Env) Close() error {
	var errs []error
	if e.Client != nil {
		if err := e.Client.Close(); err != nil {
			errs = append(errs, err)
		}
		e.Client = nil
	}
	if e.Pool != nil {
		if err := e.Pool.Close(); err != nil {
			errs = append(errs, err)
		}
		e.Pool = nil
	}
	if e.lock != nil {
		e.lock.Release()
		e.reporter.Report(reporting.NewEvent(reporting.EventTypeFixtureReleased, logSubsystem, reporting.SeverityDebug,
			e.RunID, "fixture lock released"))
		e.lock = nil
	}
	return errors.Join(errs...)
}
