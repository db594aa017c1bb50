package authclient

import (
	"errors"
	"fmt"

	domainerr "github.com/authgreet/authgreet/domain/error"
)

var (
	// ErrUnauthenticated means no silent recovery is possible for this
	// request: it was already retried once, or no credential is held.
	ErrUnauthenticated = errors.New("authclient: unauthenticated")

	// ErrRefreshExhausted is the terminal outcome of a failed refresh
	// exchange. The caller must log in again.
	ErrRefreshExhausted = domainerr.ErrRefreshExhausted

	errRefreshAborted = errors.New("refresh aborted")
)

// RefreshError is delivered to the leader and every waiter of a failed
// refresh cycle. It matches ErrRefreshExhausted and its cause.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%s: %v", ErrRefreshExhausted.Error(), e.Err)
}

func (e *RefreshError) Unwrap() []error {
	return []error{ErrRefreshExhausted, e.Err}
}

// StatusError is a non-2xx answer from the auth server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authclient: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("authclient: %d %s", e.StatusCode, e.Message)
}
