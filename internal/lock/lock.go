// Package lock provides the advisory single-instance lock for the poller.
//
// The lock is a marker file holding the time it was taken. It is not a
// distributed lock: it only keeps two pollers on the same host from sharing
// one log/error directory.
package lock

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/jpalmerr/uptimerobot/internal/errs"
	"github.com/jpalmerr/uptimerobot/internal/marker"
)

// Lock is a held process lock. Release it on every exit path.
type Lock struct {
	file *marker.File
}

// Acquire takes the lock at path.
//
// If the lock is already held, the returned error carries
// [errs.CodeLockAcquireHeld] and a "since" field with the holder's timestamp.
func Acquire(path string, now time.Time) (*Lock, error) {
	file := marker.NewFile(path)

	err := file.CreateExclusive(now)
	if err == nil {
		return &Lock{file: file}, nil
	}

	if errors.Is(err, fs.ErrExist) {
		since, readErr := file.Raw()
		if readErr != nil {
			since = "unknown"
		}
		since = strings.TrimSpace(since)
		return nil, errs.New(errs.CodeLockAcquireHeld, "uptimerobot runs since "+since,
			errs.FieldPath(path), errs.Field("since", since))
	}

	return nil, errs.Wrap(err, errs.CodeLockAcquireFailure, "acquiring lock", errs.FieldPath(path))
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.file.Path()
}

// Release removes the lock file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := l.file.Delete(); err != nil {
		return errs.Wrap(err, errs.CodeLockReleaseFailure, "releasing lock", errs.FieldPath(l.file.Path()))
	}
	return nil
}

// Held reports whether a lock file exists at path.
func Held(path string) bool {
	return marker.NewFile(path).Exists()
}
