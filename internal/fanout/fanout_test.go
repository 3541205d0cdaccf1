package fanout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func succeedOp(ctx context.Context) error { return nil }

func failOp(err error) Op {
	return func(ctx context.Context) error { return err }
}

func TestAnySuccess_AllSucceed(t *testing.T) {
	err := AnySuccess(context.Background(), []Op{succeedOp, succeedOp, succeedOp})
	assert.NoError(t, err)
}

func TestAnySuccess_OneSucceedsAmongFailures(t *testing.T) {
	rejected := errors.New("target rejected command")
	ops := []Op{
		failOp(rejected),
		failOp(rejected),
		succeedOp,
		failOp(rejected),
	}
	assert.NoError(t, AnySuccess(context.Background(), ops))
}

func TestAnySuccess_AllFailSurfacesEveryFailure(t *testing.T) {
	errA := errors.New("node a: rejected")
	errB := errors.New("node b: rejected")
	errC := errors.New("node c: rejected")

	err := AnySuccess(context.Background(), []Op{failOp(errA), failOp(errB), failOp(errC)})
	assert.Error(t, err)

	// Every failure must be present in the joined error, not just the
	// last one collected.
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.ErrorIs(t, err, errC)
}

func TestAnySuccess_EmptySet(t *testing.T) {
	err := AnySuccess(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoOperations)
}

func TestAnySuccess_SingleOp(t *testing.T) {
	boom := errors.New("boom")
	assert.NoError(t, AnySuccess(context.Background(), []Op{succeedOp}))
	assert.ErrorIs(t, AnySuccess(context.Background(), []Op{failOp(boom)}), boom)
}

func TestAnySuccess_RunsOpsConcurrently(t *testing.T) {
	const n = 8
	var started sync.WaitGroup
	started.Add(n)
	release := make(chan struct{})

	ops := make([]Op, n)
	for i := range ops {
		ops[i] = func(ctx context.Context) error {
			started.Done()
			// Block until every op has started. Sequential execution
			// would deadlock here.
			<-release
			return nil
		}
	}

	go func() {
		started.Wait()
		close(release)
	}()

	done := make(chan error, 1)
	go func() { done <- AnySuccess(context.Background(), ops) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ops did not run concurrently")
	}
}

func TestAnySuccess_WaitsForAllOps(t *testing.T) {
	var finished atomic.Int32

	slowFailure := func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		finished.Add(1)
		return errors.New("slow rejection")
	}
	quickSuccess := func(ctx context.Context) error {
		finished.Add(1)
		return nil
	}

	err := AnySuccess(context.Background(), []Op{slowFailure, quickSuccess, slowFailure})
	assert.NoError(t, err)
	// The early success must not abandon in-flight ops.
	assert.Equal(t, int32(3), finished.Load())
}

func TestAnySuccess_PassesContextThrough(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := AnySuccess(ctx, []Op{func(ctx context.Context) error {
		return ctx.Err()
	}})
	assert.ErrorIs(t, err, context.Canceled)
}
