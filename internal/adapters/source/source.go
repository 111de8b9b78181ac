// Package source supplies raw contest standings.
//
// A Source is the one capability the rest of the system consumes: given a
// contest identifier, produce a ContestRecord. Remote proxies the upstream
// contest API, Static synthesizes records from local leaderboard files, Cache
// memoizes either for the process lifetime, and Resolver picks between them.
// Downstream code never special-cases where a record came from.
package source

import (
	"context"

	"github.com/okian/standlive/internal/domain/model"
)

// Source produces raw standings for a contest identifier.
type Source interface {
	Standings(ctx context.Context, contestID string) (*model.ContestRecord, error)
}
