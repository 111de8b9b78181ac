package source

import (
	"errors"
	"fmt"
)

// Sentinel kinds for standings source errors.
var (
	ErrNotFound = errors.New("contest not found")
	ErrUpstream = errors.New("upstream standings call failed")
)

// RemoteError carries the upstream API's human-readable comment so the
// boundary layers can surface it verbatim.
type RemoteError struct {
	Comment string
}

// Error implements error.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("upstream: %s", e.Comment)
}

// Unwrap lets errors.Is(err, ErrUpstream) match.
func (e *RemoteError) Unwrap() error { return ErrUpstream }
