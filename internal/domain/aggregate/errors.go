package aggregate

import "errors"

// Sentinel kinds for aggregation errors.
var (
	ErrNoContests      = errors.New("no contest ids requested")
	ErrTooManyContests = errors.New("too many contest ids requested")
)
