package vmix

import (
	"errors"
	"fmt"
)

// NetworkError wraps transport-level failures: unreachable host, timeout,
// connection reset. These are transient and safe to retry.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RejectedError indicates vMix received the request and refused it. These are
// not retried; the failure is surfaced to the caller that issued the command.
type RejectedError struct {
	Function string
	Status   int
	Body     string
}

func (e *RejectedError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("vmix rejected %s: status %d: %s", e.Function, e.Status, e.Body)
	}
	return fmt.Sprintf("vmix rejected %s: status %d", e.Function, e.Status)
}

// IsNetwork reports whether err originated as a transport failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsRejected reports whether err is a command rejection from vMix.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
