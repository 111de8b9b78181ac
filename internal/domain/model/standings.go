// Package model contains domain models passed between layers.
package model

import "strconv"

// ProblemResult is one participant's outcome on a single problem slot.
type ProblemResult struct {
	Points float64 // points earned, 0 if unsolved
	// BestTimeSeconds is the best accepted submission time in seconds.
	// Only meaningful when Solved is true.
	BestTimeSeconds int64
	Solved          bool
	Rejected        int // rejected attempt count
}

// ParticipantRow is one row of a contest's standings.
//
// Handle, Rank, Points, Penalty and Problems come from the standings source
// and are not touched after fetch. The remaining fields are derived by the
// scoring engine on every pass.
type ParticipantRow struct {
	Handle   string
	Rank     int
	Points   float64
	Penalty  int
	Problems []ProblemResult

	BaseScore    float64
	FirstACBonus float64
	CustomScore  float64
	StreakLen    int
	StreakBonus  float64
}

// RawScore is the pre-multiplier score for the row.
func (r *ParticipantRow) RawScore() float64 {
	return r.BaseScore + r.FirstACBonus
}

// Problem identifies one problem slot of a contest.
type Problem struct {
	Index string
	Name  string
}

// ContestRecord is a full standings snapshot for one contest.
//
// ContestID doubles as display key and chronological sort key; it must parse
// as an integer for ordering. Problems may be empty for synthetic contests,
// in which case first-accept detection is skipped.
type ContestRecord struct {
	ContestID string
	Name      string
	Rows      []ParticipantRow
	Problems  []Problem
}

// ChronoLess orders contest identifiers by their numeric value. Identifiers
// that fail to parse sort after all numeric ones, then lexically, so a
// malformed id never panics the pipeline.
func ChronoLess(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
