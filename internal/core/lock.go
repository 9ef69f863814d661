package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrOutputLocked is returned when another process holds the output
// directory lock past the wait timeout.
var ErrOutputLocked = errors.New("output directory is locked by another run")

// LockFileName is the lock file created inside an output directory.
const LockFileName = ".emailclean.lock"

// DefaultLockTimeout is how long LockDir waits for a busy directory.
const DefaultLockTimeout = 5 * time.Second

// LockDir takes an exclusive lock on dir, creating it if needed, so two
// runs never interleave their kept and removed files. It returns an unlock
// function that must be deferred by the caller.
func LockDir(ctx context.Context, dir string, timeout time.Duration) (unlock func(), err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	fl := flock.New(filepath.Join(dir, LockFileName))
	lockCtx, cancel := context.WithTimeout(ctx, timeout)

	locked, err := fl.TryLockContext(lockCtx, 50*time.Millisecond)
	if !locked || err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w", dir, ErrOutputLocked)
	}

	return func() {
		_ = fl.Unlock()
		cancel()
	}, nil
}
