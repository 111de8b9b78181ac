// Package site serves the embedded live standings viewer.
package site

import (
	"context"
	"errors"
	"net/http"
)

// Error constants
var (
	ErrServe = errors.New("viewer serve failed")
)

// Register attaches the embedded viewer routes to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	// Serve the embedded viewer page at root /
	files := http.FileServer(FS())
	mux.Handle("/", files)
}
