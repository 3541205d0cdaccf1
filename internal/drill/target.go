package drill

import (
	"context"

	"clusterdrill/internal/cluster"
	"clusterdrill/internal/fixture"
)

// Target is the cluster surface scenarios drive: routed data commands
// plus a snapshot of the per-node connections held since
// stabilization. Scenarios never dial; they work with what the
// fixture committed to.
type Target interface {
	Set(ctx context.Context, key string, value interface{}) error
	GetInt(ctx context.Context, key string) (int, error)
	GetString(ctx context.Context, key string) (string, error)
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
	EvalCached(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
	PipelineSet(ctx context.Context, entries []cluster.Entry) error

	// Snapshot returns the stabilized node connections, replicas
	// included. Failover broadcasts go over these.
	Snapshot() []cluster.Conn
}

type envTarget struct {
	*cluster.Client
	pool interface {
		Snapshot() []cluster.Conn
	}
}

// NewTarget adapts a drill environment into a scenario target.
func NewTarget(env *fixture.Env) Target {
	return &envTarget{Client: env.Client, pool: env.Pool}
}

func (t *envTarget) Snapshot() []cluster.Conn {
	return t.pool.Snapshot()
}
