package dotstore

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyPath is returned by mutating operations addressed at "".
	// The root is the document itself and cannot be reassigned in place.
	ErrEmptyPath = errors.New("dotstore: empty path")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("dotstore: store is closed")
)

// LockTimeoutError reports that the cross-process lock was not obtained
// within the configured window. The operation was not performed.
type LockTimeoutError struct {
	Path    string // lock marker path
	Timeout time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("dotstore: lock %q not acquired within %s", e.Path, e.Timeout)
}

// TypeMismatchError reports an operation applied to a value of the wrong
// shape (toggle on a non-boolean, merge into a non-object, array helper on a
// non-array). No partial mutation was applied.
type TypeMismatchError struct {
	Path string
	Want string // "boolean", "object", "array", "number"
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("dotstore: %q is %s, want %s", e.Path, e.Got, e.Want)
}

// InvalidOperationError reports an unrecognized arithmetic operator symbol.
type InvalidOperationError struct {
	Op string
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("dotstore: invalid operation %q", e.Op)
}

// DivisionByZeroError reports a zero operand to "/" or "%". Kept distinct
// from InvalidOperationError for precise diagnostics.
type DivisionByZeroError struct {
	Path string
	Op   string
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("dotstore: %s by zero at %q", opName(e.Op), e.Path)
}

func opName(op string) string {
	if op == "%" {
		return "modulo"
	}
	return "division"
}
