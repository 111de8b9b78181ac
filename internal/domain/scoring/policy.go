// Package scoring derives custom scores and ranks from raw contest standings.
package scoring

import "github.com/okian/standlive/internal/domain/model"

// Default policy constants.
const (
	defaultRankCutoff   = 30
	defaultFirstACBonus = 2.0
)

// Policy computes the base score for one standings row. Which policy applies
// is a property of the contest, selected through a PolicyTable, not a single
// universal formula.
type Policy interface {
	// Base returns the base score for a row before bonuses and multipliers.
	Base(row *model.ParticipantRow) float64

	// AwardsFirstAccept reports whether detected first-accept bonuses apply
	// under this policy.
	AwardsFirstAccept() bool
}

// RankedBonus awards cutoff+1-rank points to the top cutoff ranks and zero
// to everyone below, with no eligibility filter.
type RankedBonus struct {
	Cutoff int
}

// Base implements Policy.
func (p RankedBonus) Base(row *model.ParticipantRow) float64 {
	if row.Rank >= 1 && row.Rank <= p.Cutoff {
		return float64(p.Cutoff + 1 - row.Rank)
	}
	return 0
}

// AwardsFirstAccept implements Policy.
func (p RankedBonus) AwardsFirstAccept() bool { return false }

// FlatParticipation awards a fixed base score to every participant
// regardless of rank.
type FlatParticipation struct {
	Points float64
}

// Base implements Policy.
func (p FlatParticipation) Base(_ *model.ParticipantRow) float64 { return p.Points }

// AwardsFirstAccept implements Policy.
func (p FlatParticipation) AwardsFirstAccept() bool { return false }

// DefaultPolicy is the generic live-contest policy: only rows with positive
// raw points are eligible, the top 30 ranks earn 31-rank, and detected
// first-accept holders earn a bonus per problem.
type DefaultPolicy struct{}

// Base implements Policy.
func (p DefaultPolicy) Base(row *model.ParticipantRow) float64 {
	if row.Points <= 0 {
		return 0
	}
	return RankedBonus{Cutoff: defaultRankCutoff}.Base(row)
}

// AwardsFirstAccept implements Policy.
func (p DefaultPolicy) AwardsFirstAccept() bool { return true }

// PolicyTable maps contest identifiers to their scoring policy. Contests
// without an explicit entry use DefaultPolicy.
type PolicyTable struct {
	policies map[string]Policy
}

// NewPolicyTable creates a table from an explicit contest-to-policy mapping.
// The map may be nil.
func NewPolicyTable(policies map[string]Policy) *PolicyTable {
	t := &PolicyTable{policies: make(map[string]Policy, len(policies))}
	for id, p := range policies {
		if p != nil {
			t.policies[id] = p
		}
	}
	return t
}

// For returns the policy for a contest identifier.
func (t *PolicyTable) For(contestID string) Policy {
	if t != nil {
		if p, ok := t.policies[contestID]; ok {
			return p
		}
	}
	return DefaultPolicy{}
}

// Overrides holds sparse administrative corrections consulted after the base
// policy runs. Base entries force-set a handle's base score; FirstAC entries
// replace (not add to) the detected first-accept bonus for that contest.
type Overrides struct {
	Base    map[string]map[string]float64
	FirstAC map[string]map[string]float64
}

// BaseFor returns a forced base score for (contestID, handle) if one exists.
func (o Overrides) BaseFor(contestID, handle string) (float64, bool) {
	v, ok := o.Base[contestID][handle]
	return v, ok
}

// FirstACFor returns a forced first-accept bonus for (contestID, handle)
// if one exists.
func (o Overrides) FirstACFor(contestID, handle string) (float64, bool) {
	v, ok := o.FirstAC[contestID][handle]
	return v, ok
}
