package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func target(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "db.json")
}

func TestAcquireRelease(t *testing.T) {
	l := New(target(t), time.Second, 0)
	if _, err := l.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := os.Stat(l.Path()); err != nil {
		t.Fatalf("marker missing after Acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
		t.Fatalf("marker survived Release: %v", err)
	}
}

func TestSecondAcquireTimesOut(t *testing.T) {
	tgt := target(t)
	held := New(tgt, time.Second, 0)
	if _, err := held.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer held.Release()

	waiter := New(tgt, 50*time.Millisecond, 0)
	if _, err := waiter.Acquire(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestAcquireWaitsForRelease(t *testing.T) {
	tgt := target(t)
	held := New(tgt, time.Second, 0)
	if _, err := held.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = held.Release()
	}()

	waiter := New(tgt, time.Second, 0)
	if _, err := waiter.Acquire(); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	_ = waiter.Release()
}

func TestStaleMarkerIsBroken(t *testing.T) {
	tgt := target(t)
	stale := New(tgt, time.Second, 0)
	if _, err := stale.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	// Age the marker past the grace period.
	old := time.Now().Add(-time.Minute)
	if err := os.Chtimes(stale.Path(), old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	l := New(tgt, 100*time.Millisecond, 10*time.Second)
	broke, err := l.Acquire()
	if err != nil {
		t.Fatalf("Acquire over stale marker: %v", err)
	}
	if !broke {
		t.Fatal("expected broke=true for stale marker")
	}
	_ = l.Release()
}

func TestReleaseWithoutMarkerIsNoop(t *testing.T) {
	l := New(target(t), time.Second, 0)
	if err := l.Release(); err != nil {
		t.Fatalf("Release without marker: %v", err)
	}
}
