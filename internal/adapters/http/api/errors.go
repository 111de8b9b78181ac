package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrMissingContestIDs = errors.New("contestIds parameter is required")
)
