// Package fanout runs one operation against many targets at once and
// reduces the outcomes. Its only combinator today is AnySuccess, the
// shape a cluster-wide administrative broadcast needs: most nodes are
// expected to reject, one acceptance is enough.
package fanout

import (
	"context"
	"errors"
)

// Op is a single target-scoped operation.
type Op func(ctx context.Context) error

// ErrNoOperations is returned when the operation set is empty, so a
// vacuous broadcast is never mistaken for a successful one.
var ErrNoOperations = errors.New("fanout: no operations to run")

// AnySuccess launches all ops concurrently and waits for every one of
// them to finish, regardless of individual outcomes. It returns nil
// if at least one op succeeded. If all failed, it returns every
// failure joined, so no target's rejection is lost.
func AnySuccess(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return ErrNoOperations
	}

	results := make(chan error, len(ops))
	for _, op := range ops {
		op := op
		go func() {
			results <- op(ctx)
		}()
	}

	succeeded := false
	failures := make([]error, 0, len(ops))
	for range ops {
		if err := <-results; err != nil {
			failures = append(failures, err)
		} else {
			succeeded = true
		}
	}

	if succeeded {
		return nil
	}
	return errors.Join(failures...)
}
