// Package aggregate builds cumulative leaderboards across contests.
package aggregate

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/okian/standlive/internal/adapters/repository"
	"github.com/okian/standlive/internal/domain/model"
	"github.com/okian/standlive/internal/domain/types"
	"github.com/okian/standlive/pkg/metrics"
)

// Fetcher supplies raw standings for a contest identifier.
type Fetcher interface {
	Standings(ctx context.Context, contestID string) (*model.ContestRecord, error)
}

// Scorer re-scores one contest record against a history instance.
type Scorer interface {
	Score(ctx context.Context, rec *model.ContestRecord, hist *repository.History)
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithMaxContests caps the number of contests per request. Zero disables
// the cap.
func WithMaxContests(n int) Option {
	return func(a *Aggregator) {
		if n >= 0 {
			a.maxContests = n
		}
	}
}

// Aggregator drives the scoring engine across an ordered list of contests
// and folds the results into one cumulative leaderboard.
type Aggregator struct {
	fetcher     Fetcher
	scorer      Scorer
	maxContests int
}

// New constructs an Aggregator.
func New(fetcher Fetcher, scorer Scorer, opts ...Option) *Aggregator {
	a := &Aggregator{
		fetcher: fetcher,
		scorer:  scorer,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Leaderboard fetches every requested contest, scores them chronologically
// against a fresh request-scoped history, and returns the cumulative
// leaderboard plus the problem slots of the first requested contest that
// carries any.
//
// Fetches run concurrently; the first failure cancels the rest and fails the
// whole request. There is no partial-success leaderboard.
//
// The requested order only affects response presentation. Scoring always
// happens oldest-to-newest by numeric contest identifier, so requesting
// "20,10" and "10,20" yield the same totals.
func (a *Aggregator) Leaderboard(ctx context.Context, ids []string) ([]types.LeaderboardEntry, []model.Problem, error) {
	if len(ids) == 0 {
		return nil, nil, ErrNoContests
	}
	if a.maxContests > 0 && len(ids) > a.maxContests {
		return nil, nil, fmt.Errorf("%w: %d requested, %d allowed", ErrTooManyContests, len(ids), a.maxContests)
	}
	defer metrics.TimeAggregation()()

	records := make([]*model.ContestRecord, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			rec, err := a.fetcher.Standings(gctx, id)
			if err != nil {
				return fmt.Errorf("fetch standings for %s: %w", id, err)
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// Score strictly oldest-to-newest whatever order was requested; streaks
	// depend on chronological processing.
	chrono := make([]*model.ContestRecord, len(records))
	copy(chrono, records)
	sort.SliceStable(chrono, func(i, j int) bool {
		return model.ChronoLess(chrono[i].ContestID, chrono[j].ContestID)
	})

	hist := repository.NewHistory()
	for _, rec := range chrono {
		a.scorer.Score(ctx, rec, hist)
	}

	// Fold per-contest results in the originally requested order.
	totals := make(map[string]*types.LeaderboardEntry)
	for _, rec := range records {
		for i := range rec.Rows {
			row := &rec.Rows[i]
			entry, ok := totals[row.Handle]
			if !ok {
				entry = &types.LeaderboardEntry{
					Handle:   row.Handle,
					Contests: make(map[string]types.ContestResult, len(records)),
				}
				totals[row.Handle] = entry
			}
			entry.TotalScore += row.CustomScore
			entry.TotalPenalty += row.Penalty
			entry.Contests[rec.ContestID] = types.ContestResult{
				Score:        row.CustomScore,
				Rank:         row.Rank,
				Streak:       row.StreakLen,
				BaseScore:    row.BaseScore,
				FirstACBonus: row.FirstACBonus,
				StreakBonus:  row.StreakBonus,
			}
		}
	}

	board := make([]types.LeaderboardEntry, 0, len(totals))
	for _, entry := range totals {
		board = append(board, *entry)
	}
	// Displayed rank is the 1-based position in this order; the cumulative
	// level does no dense tie handling.
	sort.SliceStable(board, func(i, j int) bool {
		if board[i].TotalScore != board[j].TotalScore {
			return board[i].TotalScore > board[j].TotalScore
		}
		if board[i].TotalPenalty != board[j].TotalPenalty {
			return board[i].TotalPenalty < board[j].TotalPenalty
		}
		return board[i].Handle < board[j].Handle
	})

	return board, firstProblems(records), nil
}

// firstProblems returns the problem slots of the first requested contest
// that has any.
func firstProblems(records []*model.ContestRecord) []model.Problem {
	for _, rec := range records {
		if len(rec.Problems) > 0 {
			return rec.Problems
		}
	}
	return nil
}
