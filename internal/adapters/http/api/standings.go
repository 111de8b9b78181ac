// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/standlive/internal/adapters/source"
	"github.com/okian/standlive/internal/domain/aggregate"
	"github.com/okian/standlive/internal/domain/types"
)

// StandingsHandler handles multi-contest standings requests.
type StandingsHandler struct {
	deps Dependencies
}

// NewStandingsHandler creates a new standings handler.
func NewStandingsHandler(deps Dependencies) *StandingsHandler {
	return &StandingsHandler{deps: deps}
}

// HandleGetStandings handles GET /api/multiconteststandings?contestIds=1,2,3
// requests. The response mirrors the upstream envelope: OK with a result on
// success, FAILED with a comment otherwise.
func (h *StandingsHandler) HandleGetStandings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	ids, err := parseContestIDs(r.URL.Query().Get("contestIds"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	board, problems, err := h.deps.Leaderboard(r.Context(), ids)
	if err != nil {
		status, comment := classifyStandingsError(err)
		writeFailure(w, status, comment)
		return
	}

	refs := make([]types.ProblemRef, 0, len(problems))
	for _, p := range problems {
		refs = append(refs, types.ProblemRef{ID: p.Index, Name: p.Name})
	}
	writeJSON(w, http.StatusOK, types.Envelope{
		Status: types.StatusOK,
		Result: &types.StandingsResult{
			Leaderboard: board,
			Problems:    refs,
		},
	})
}

// parseContestIDs splits the comma-separated contestIds parameter, dropping
// blank segments so trailing commas stay legal.
func parseContestIDs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrMissingContestIDs
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ids = append(ids, p)
	}
	if len(ids) == 0 {
		return nil, ErrMissingContestIDs
	}
	return ids, nil
}

// classifyStandingsError maps aggregation failures to a status code and a
// comment for the FAILED envelope. Upstream rejections keep the upstream's
// own comment so callers see the same text the third-party API produced.
func classifyStandingsError(err error) (int, string) {
	if errors.Is(err, aggregate.ErrNoContests) || errors.Is(err, aggregate.ErrTooManyContests) {
		return http.StatusBadRequest, err.Error()
	}
	var remote *source.RemoteError
	if errors.As(err, &remote) {
		return http.StatusInternalServerError, remote.Comment
	}
	return http.StatusInternalServerError, err.Error()
}
