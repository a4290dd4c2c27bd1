package conn

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout matches every *TimeoutError via errors.Is.
	ErrTimeout = errors.New("timed out")

	// ErrNotRunning is returned when the process has not been started.
	ErrNotRunning = errors.New("process not running")

	// ErrAlreadyRunning is returned by Start on a running connection.
	ErrAlreadyRunning = errors.New("process already running")

	// ErrFinished is returned by Start after Finish; connections are not restartable.
	ErrFinished = errors.New("connection finished")

	// ErrBroken is wrapped by every call made after a fatal I/O failure.
	ErrBroken = errors.New("connection broken")
)

// TimeoutError is returned when a completion predicate did not fire in time.
type TimeoutError struct {
	Op      string // "send" or "wait"
	Target  string // the command sent or the pattern waited for
	Limit   time.Duration
	// Output holds whatever text was accumulated before giving up.
	Output string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %q timed out after %v", e.Op, e.Target, e.Limit)
}

// Timeout reports true, matching the net.Error convention.
func (e *TimeoutError) Timeout() bool {
	return true
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// IOError is a fatal failure reading from or writing to the child.
type IOError struct {
	Op     string // "read", "write", "start", ...
	Stream string // "stdin", "stdout", "stderr" or empty
	Err    error
}

func (e *IOError) Error() string {
	if e.Stream == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Op, e.Stream, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// brokenError reports a call on a connection that already hit a fatal error.
type brokenError struct {
	cause error
}

func (e *brokenError) Error() string {
	return fmt.Sprintf("%v: %v", ErrBroken, e.cause)
}

func (e *brokenError) Unwrap() []error {
	return []error{ErrBroken, e.cause}
}
