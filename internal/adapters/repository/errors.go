package repository

import "errors"

// Sentinel kinds for history errors.
var (
	ErrUnknownHandle = errors.New("handle not found")
)
