// Package types contains common read shapes used across the application
package types

import "github.com/okian/standlive/internal/domain/model"

// ContestResult is one handle's derived outcome in a single contest.
type ContestResult struct {
	Score        float64 `json:"score"`
	Rank         int     `json:"rank"`
	Streak       int     `json:"streak"`
	BaseScore    float64 `json:"baseScore"`
	FirstACBonus float64 `json:"firstAcBonus"`
	StreakBonus  float64 `json:"streakBonus"`
}

// LeaderboardEntry is one row of the cumulative leaderboard.
type LeaderboardEntry struct {
	Handle       string                   `json:"handle"`
	TotalScore   float64                  `json:"score"`
	TotalPenalty int                      `json:"penalty"`
	Contests     map[string]ContestResult `json:"contests"`
}

// ProblemRef identifies a problem slot in API responses.
type ProblemRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StandingsResult is the payload of a successful standings response.
type StandingsResult struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Problems    []ProblemRef       `json:"problems"`
}

// Envelope mirrors the upstream API's status/comment wrapper.
type Envelope struct {
	Status  string           `json:"status"`
	Comment string           `json:"comment,omitempty"`
	Result  *StandingsResult `json:"result,omitempty"`
}

// Envelope status values.
const (
	StatusOK     = "OK"
	StatusFailed = "FAILED"
)

// ResultFromRecord projects one scored contest record into the standings
// result shape. Row order is preserved, so a record already ranked by the
// scoring engine yields a ranked leaderboard.
func ResultFromRecord(rec *model.ContestRecord) *StandingsResult {
	board := make([]LeaderboardEntry, 0, len(rec.Rows))
	for i := range rec.Rows {
		row := &rec.Rows[i]
		board = append(board, LeaderboardEntry{
			Handle:       row.Handle,
			TotalScore:   row.CustomScore,
			TotalPenalty: row.Penalty,
			Contests: map[string]ContestResult{
				rec.ContestID: {
					Score:        row.CustomScore,
					Rank:         row.Rank,
					Streak:       row.StreakLen,
					BaseScore:    row.BaseScore,
					FirstACBonus: row.FirstACBonus,
					StreakBonus:  row.StreakBonus,
				},
			},
		})
	}
	problems := make([]ProblemRef, 0, len(rec.Problems))
	for _, p := range rec.Problems {
		problems = append(problems, ProblemRef{ID: p.Index, Name: p.Name})
	}
	return &StandingsResult{Leaderboard: board, Problems: problems}
}
