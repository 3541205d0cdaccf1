package drill

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"clusterdrill/internal/cluster"
	"clusterdrill/internal/workload"
	"clusterdrill/pkg/logging"
)

// roundTripScript writes ARGV[1] under KEYS[1] server-side and reads
// it back in the same call.
const roundTripScript = `redis.call("SET", KEYS[1], ARGV[1]); return redis.call("GET", KEYS[1])`

// runBasicCmd writes one key through the routed client and verifies
// the read returns the same value.
func runBasicCmd(ctx context.Context, rc RunContext) error {
	if err := rc.Target.Set(ctx, "test", "test_data"); err != nil {
		return err
	}
	got, err := rc.Target.GetString(ctx, "test")
	if err != nil {
		return err
	}
	if got != "test_data" {
		return fmt.Errorf("%w: key %q: wrote %q, read %q", workload.ErrRoundTripMismatch, "test", "test_data", got)
	}
	return nil
}

// runBasicEval round trips a value through EVAL.
func runBasicEval(ctx context.Context, rc RunContext) error {
	res, err := rc.Target.Eval(ctx, roundTripScript, []string{"key"}, "test")
	if err != nil {
		return err
	}
	return expectString(res, "test", "eval")
}

// runBasicScript round trips the same value through the script cache,
// exercising the EVALSHA path and its load-on-miss fallback.
func runBasicScript(ctx context.Context, rc RunContext) error {
	res, err := rc.Target.EvalCached(ctx, roundTripScript, []string{"key"}, "test")
	if err != nil {
		return err
	}
	return expectString(res, "test", "cached script")
}

// runBasicPipe pipelines writes to keys that hash to different slots,
// then reads each back. The routed client splits the pipeline per
// node, so this checks cross-slot dispatch end to end.
func runBasicPipe(ctx context.Context, rc RunContext) error {
	entries := []cluster.Entry{
		{Key: "test", Value: "test_data"},
		{Key: "test3", Value: "test_data3"},
	}
	if err := rc.Target.PipelineSet(ctx, entries); err != nil {
		return err
	}
	for _, e := range entries {
		got, err := rc.Target.GetString(ctx, e.Key)
		if err != nil {
			return err
		}
		if got != e.Value {
			return fmt.Errorf("%w: key %q: wrote %q, read %q", workload.ErrRoundTripMismatch, e.Key, e.Value, got)
		}
	}
	return nil
}

// runFailover drives the concurrent workload with the configured
// request count and value, promoting a replica mid-flight.
func runFailover(ctx context.Context, rc RunContext) error {
	driver := workload.New(rc.Target, rc.Target.Snapshot(), rc.Events, rc.RunID)
	return driver.Run(ctx, rc.Params.Requests, rc.Params.Value)
}

// runFailoverRandomized repeats the failover drill with randomized
// inputs, back to back against the same stabilized cluster. Each case
// namespaces its keys by value, so cases do not need a flush between
// them. A failure names the case and the seed so the exact sequence
// can be replayed with --seed.
func runFailoverRandomized(ctx context.Context, rc RunContext) error {
	seed := rc.Params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	logging.Info(logSubsystem, "randomized failover drill: %d cases, seed %d", rc.Params.Cases, seed)

	for i := 0; i < rc.Params.Cases; i++ {
		requests := rng.Intn(15)
		value := rng.Intn(math.MaxInt32)

		driver := workload.New(rc.Target, rc.Target.Snapshot(), rc.Events, rc.RunID)
		if err := driver.Run(ctx, requests, value); err != nil {
			return fmt.Errorf("case %d of %d (requests=%d, value=%d, seed=%d): %w",
				i+1, rc.Params.Cases, requests, value, seed, err)
		}
	}
	return nil
}

// expectString checks that a script result is the expected string.
func expectString(got interface{}, want, what string) error {
	s, ok := got.(string)
	if !ok {
		return fmt.Errorf("%s returned %T, want string", what, got)
	}
	if s != want {
		return fmt.Errorf("%s returned %q, want %q", what, s, want)
	}
	return nil
}
