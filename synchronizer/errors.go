package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"net"

	"mb-route-sync/clients/mountebank"
)

var (
	// ErrRemote is matched by every *RemoteError.
	ErrRemote = errors.New("remote call failed")
	// ErrStaleDelete is matched by every *StaleDeleteError.
	ErrStaleDelete = errors.New("delete removed nothing")
)

// RemoteError reports a transport failure, timeout or unexpected status
// from a single remote call.
type RemoteError struct {
	Op         string // "create" or "delete"
	Port       int
	StatusCode int // zero when no response was received
	Err        error
}

func newRemoteError(op string, port int, err error) *RemoteError {
	re := &RemoteError{Op: op, Port: port, Err: err}
	var statusErr *mountebank.StatusError
	if errors.As(err, &statusErr) {
		re.StatusCode = statusErr.StatusCode
	}
	return re
}

func (e *RemoteError) Error() string {
	if e.Timeout() {
		return fmt.Sprintf("%s imposter on port %d timed out: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s imposter on port %d failed: %v", e.Op, e.Port, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

// Timeout reports whether the call was cut off by the per-call timeout.
func (e *RemoteError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// StaleDeleteError means the delete step succeeded at the HTTP level but
// the body showed nothing was deleted, so the local table and the remote
// side have diverged. Recreating is not attempted.
type StaleDeleteError struct {
	Port int
	Body string
}

func (e *StaleDeleteError) Error() string {
	return fmt.Sprintf("old imposter on port %d was never deleted (response body %q)", e.Port, e.Body)
}

func (e *StaleDeleteError) Is(target error) bool { return target == ErrStaleDelete }
