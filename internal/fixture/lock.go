// Package fixture guards the one shared physical cluster a drill run
// works against and assembles the run's environment on top of it.
package fixture

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"clusterdrill/pkg/logging"
)

const (
	logSubsystem     = "fixture"
	lockPollInterval = 100 * time.Millisecond
)

// Lock serializes drill runs over one shared cluster. Goroutines in
// this process queue on an internal gate; other harness processes
// queue on a flock'd file derived from the seed set. The kernel drops
// a flock when its holding process dies, so a crashed or killed run
// never leaves the fixture unacquirable.
type Lock struct {
	path string
	gate chan struct{}

	mu   sync.Mutex
	file *os.File
}

// NewLock builds a lock scoped to the given seed set. Runs against
// different clusters get different lock files and do not serialize
// with each other. An empty lockDir falls back to the system temp
// directory.
func NewLock(lockDir string, seeds []string) *Lock {
	if lockDir == "" {
		lockDir = os.TempDir()
	}
	h := fnv.New64a()
	h.Write([]byte(strings.Join(seeds, ",")))
	name := fmt.Sprintf("clusterdrill-%016x.lock", h.Sum64())
	return &Lock{
		path: filepath.Join(lockDir, name),
		gate: make(chan struct{}, 1),
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Acquire blocks until the fixture is exclusively held or ctx ends.
func (l *Lock) Acquire(ctx context.Context) error {
	select {
	case l.gate <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o640)
	if err != nil {
		<-l.gate
		return fmt.Errorf("open lock file %s: %w", l.path, err)
	}

	for {
		err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if err != syscall.EWOULDBLOCK {
			file.Close()
			<-l.gate
			return fmt.Errorf("flock %s: %w", l.path, err)
		}
		select {
		case <-time.After(lockPollInterval):
		case <-ctx.Done():
			file.Close()
			<-l.gate
			return ctx.Err()
		}
	}

	l.mu.Lock()
	l.file = file
	l.mu.Unlock()
	logging.Debug(logSubsystem, "fixture lock held: %s", l.path)
	return nil
}

// Release gives the fixture up. It is idempotent; releasing an
// unheld lock is a no-op, so callers can defer it on every path.
func (l *Lock) Release() {
	l.mu.Lock()
	file := l.file
	l.file = nil
	l.mu.Unlock()

	if file != nil {
		if err := syscall.Flock(int(file.Fd()), syscall.LOCK_UN); err != nil {
			logging.Warn(logSubsystem, "unlock %s: %v", l.path, err)
		}
		file.Close()
	}

	select {
	case <-l.gate:
	default:
	}
}
