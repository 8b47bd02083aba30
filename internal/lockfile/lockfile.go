// Package lockfile implements advisory cross-process mutual exclusion through
// a marker file. Existence of the marker is the lock; its content is the
// holder's pid. The protocol is cooperative: every participant must go through
// Acquire/Release, nothing is kernel-enforced.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Suffix is appended to the protected file's path to form the marker path.
const Suffix = ".lock"

// ErrTimeout is returned when the marker could not be created within the
// configured window.
var ErrTimeout = errors.New("lockfile: timeout")

const pollInterval = 10 * time.Millisecond

// Lock guards one file via a sibling marker file.
type Lock struct {
	path       string        // marker path
	timeout    time.Duration // max total wait in Acquire
	staleAfter time.Duration // marker older than this is treated as abandoned; 0 disables
}

// New returns a Lock whose marker sits next to target.
func New(target string, timeout, staleAfter time.Duration) *Lock {
	return &Lock{path: target + Suffix, timeout: timeout, staleAfter: staleAfter}
}

// Path returns the marker file path.
func (l *Lock) Path() string { return l.path }

// Acquire creates the marker with an exclusive-create flag, polling with a
// short fixed backoff while another holder exists. It returns ErrTimeout once
// the configured window elapses. A marker older than staleAfter is assumed to
// belong to a crashed holder and is removed before retrying; the returned
// broke flag reports that this happened so the caller can log it.
func (l *Lock) Acquire() (broke bool, err error) {
	deadline := time.Now().Add(l.timeout)
	for {
		err := l.tryCreate()
		if err == nil {
			return broke, nil
		}
		if !os.IsExist(err) {
			return broke, fmt.Errorf("lockfile: create %s: %w", l.path, err)
		}
		if l.staleAfter > 0 {
			if st, serr := os.Stat(l.path); serr == nil && time.Since(st.ModTime()) > l.staleAfter {
				// Best effort: the holder may release concurrently.
				if os.Remove(l.path) == nil {
					broke = true
				}
				continue
			}
		}
		if time.Now().After(deadline) {
			return broke, ErrTimeout
		}
		time.Sleep(pollInterval)
	}
}

// Release deletes the marker. Safe to call when the marker is already gone.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lockfile: remove %s: %w", l.path, err)
	}
	return nil
}

func (l *Lock) tryCreate() error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}
