package scoring

import (
	"context"
	"sort"

	"github.com/okian/standlive/internal/adapters/repository"
	"github.com/okian/standlive/internal/domain/model"
	"github.com/okian/standlive/pkg/metrics"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithPolicyTable sets the contest-to-policy mapping.
func WithPolicyTable(t *PolicyTable) Option {
	return func(e *Engine) {
		if t != nil {
			e.policies = t
		}
	}
}

// WithOverrides sets the administrative score corrections.
func WithOverrides(o Overrides) Option {
	return func(e *Engine) {
		e.overrides = o
	}
}

// WithFirstAcceptBonus sets the per-problem bonus for first-accept holders.
func WithFirstAcceptBonus(bonus float64) Option {
	return func(e *Engine) {
		if bonus > 0 {
			e.firstACBonus = bonus
		}
	}
}

// Engine re-scores and re-ranks a contest's standings against a score
// history. Score is a pure data transformation over the record plus the
// history it mutates; the engine itself holds only configuration and is safe
// for concurrent use.
type Engine struct {
	policies     *PolicyTable
	overrides    Overrides
	firstACBonus float64
}

// NewEngine creates an Engine with default configuration.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		policies:     NewPolicyTable(nil),
		firstACBonus: defaultFirstACBonus,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score derives custom scores for every row of rec, re-ranks the rows, and
// records each handle's raw score in hist. Handles already known to hist but
// absent from rec receive a zero entry for this contest, which breaks their
// streak going forward.
//
// Streak correctness depends on the caller scoring contests strictly
// oldest-to-newest against one history instance.
//
// A record with no rows is a no-op, not an error.
func (e *Engine) Score(ctx context.Context, rec *model.ContestRecord, hist *repository.History) {
	if rec == nil || len(rec.Rows) == 0 {
		return
	}
	defer metrics.TimeScoringPass()()

	pol := e.policies.For(rec.ContestID)
	winners := e.detectFirstAccepts(rec)

	present := make(map[string]struct{}, len(rec.Rows))
	for i := range rec.Rows {
		row := &rec.Rows[i]
		present[row.Handle] = struct{}{}

		base := pol.Base(row)
		if forced, ok := e.overrides.BaseFor(rec.ContestID, row.Handle); ok {
			base = forced
		}

		var bonus float64
		if forced, ok := e.overrides.FirstACFor(rec.ContestID, row.Handle); ok {
			bonus = forced
		} else if pol.AwardsFirstAccept() {
			bonus = float64(winners[i]) * e.firstACBonus
		}

		row.BaseScore = base
		row.FirstACBonus = bonus

		raw := row.RawScore()
		hist.Upsert(ctx, row.Handle, repository.HistoryEntry{
			ContestID: rec.ContestID,
			Score:     raw,
			Rank:      row.Rank,
			Present:   true,
		})

		streak := hist.Streak(ctx, row.Handle, rec.ContestID)
		mult := Multiplier(streak)
		row.StreakLen = streak
		row.CustomScore = raw * mult
		row.StreakBonus = raw * (mult - 1)
	}

	rerank(rec.Rows)

	for _, handle := range hist.Handles(ctx) {
		if _, ok := present[handle]; ok {
			continue
		}
		if hist.Has(ctx, handle, rec.ContestID) {
			continue
		}
		hist.Upsert(ctx, handle, repository.HistoryEntry{
			ContestID: rec.ContestID,
			Score:     0,
			Present:   false,
		})
	}
}

// detectFirstAccepts returns, per row index, the number of problems on which
// that row holds the first accept. The holder of a problem is the row with
// the smallest best-accepted time among rows with positive points; on equal
// times the row encountered first in standings order wins. That tie-break is
// incidental upstream behavior kept as-is.
func (e *Engine) detectFirstAccepts(rec *model.ContestRecord) []int {
	counts := make([]int, len(rec.Rows))
	if len(rec.Problems) == 0 {
		return counts
	}
	for p := range rec.Problems {
		holder := -1
		var best int64
		for i := range rec.Rows {
			row := &rec.Rows[i]
			if p >= len(row.Problems) {
				continue
			}
			pr := row.Problems[p]
			if !pr.Solved || pr.Points <= 0 {
				continue
			}
			if holder < 0 || pr.BestTimeSeconds < best {
				holder = i
				best = pr.BestTimeSeconds
			}
		}
		if holder >= 0 {
			counts[holder]++
		}
	}
	return counts
}

// Multiplier is the streak step function. It is monotonically non-decreasing
// in streak length.
func Multiplier(streak int) float64 {
	switch {
	case streak >= 4:
		return 1.15
	case streak == 3:
		return 1.10
	case streak == 2:
		return 1.05
	default:
		return 1.00
	}
}

// rerank sorts rows by custom score descending with penalty ascending as the
// tie-break, then assigns competition ranks: rows equal on both keys share a
// rank, the next distinct row gets 1 + the number of rows before it.
func rerank(rows []model.ParticipantRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CustomScore != rows[j].CustomScore {
			return rows[i].CustomScore > rows[j].CustomScore
		}
		return rows[i].Penalty < rows[j].Penalty
	})
	for i := range rows {
		if i > 0 && rows[i].CustomScore == rows[i-1].CustomScore && rows[i].Penalty == rows[i-1].Penalty {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = i + 1
	}
}
