package source

import (
	"context"

	"github.com/okian/standlive/internal/domain/model"
)

// Resolver routes a contest identifier to the static source when a local
// file defines it and to the remote source otherwise. The output shape is
// identical either way.
type Resolver struct {
	static *Static
	remote Source
}

// NewResolver creates a Resolver. static may be nil, in which case every
// contest resolves to remote.
func NewResolver(static *Static, remote Source) *Resolver {
	return &Resolver{static: static, remote: remote}
}

// Standings implements Source.
func (r *Resolver) Standings(ctx context.Context, contestID string) (*model.ContestRecord, error) {
	if r.static != nil && r.static.Defines(contestID) {
		return r.static.Standings(ctx, contestID)
	}
	return r.remote.Standings(ctx, contestID)
}
