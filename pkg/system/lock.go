package system

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// FileLock is an exclusive advisory flock(2) on a file. It serializes
// hotspot mutations between separate invocations of the program.
type FileLock struct {
	path string
}

func NewFileLock(path string) FileLock {
	return FileLock{path: path}
}

// Acquire blocks until the lock is held. The returned func releases it.
func (l FileLock) Acquire() (func() error, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %q: %w", l.path, err)
	}

	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to lock %q: %w", l.path, err)
	}

	return func() error {
		unlockErr := unix.Flock(int(f.Fd()), unix.LOCK_UN)
		closeErr := f.Close()
		if unlockErr != nil {
			return fmt.Errorf("failed to unlock %q: %w", l.path, unlockErr)
		}
		return closeErr
	}, nil
}
