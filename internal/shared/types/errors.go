package types

import "errors"

var (
	// ErrNotFound reports an application id absent from the registry
	ErrNotFound = errors.New("unknown application")
	// ErrUnavailable reports a missing or tripped supervisor connection
	ErrUnavailable = errors.New("unit supervisor unavailable")
	// ErrStartFailed reports that the supervisor rejected a start command
	ErrStartFailed = errors.New("failed to start application")
	// ErrInconsistent reports a runtime handle missing where one was expected
	ErrInconsistent = errors.New("internal inconsistency")
)
