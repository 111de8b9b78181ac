package types

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/standlive/internal/domain/model"
)

func TestResultFromRecord(t *testing.T) {
	Convey("Given a scored contest record", t, func() {
		rec := &model.ContestRecord{
			ContestID: "631207",
			Rows: []model.ParticipantRow{
				{Handle: "tourist", Rank: 1, Penalty: 90, BaseScore: 30, FirstACBonus: 2, CustomScore: 33.6, StreakLen: 2, StreakBonus: 1.6},
				{Handle: "rng_58", Rank: 2, Penalty: 120, BaseScore: 29, CustomScore: 29, StreakLen: 1},
			},
			Problems: []model.Problem{{Index: "A", Name: "Watermelon"}, {Index: "B", Name: "Spreadsheet"}},
		}

		Convey("When projected into the standings result shape", func() {
			res := ResultFromRecord(rec)

			Convey("Then rows keep their order and per-contest breakdown", func() {
				So(res.Leaderboard, ShouldHaveLength, 2)
				So(res.Leaderboard[0].Handle, ShouldEqual, "tourist")
				So(res.Leaderboard[0].TotalScore, ShouldEqual, 33.6)
				So(res.Leaderboard[0].TotalPenalty, ShouldEqual, 90)

				cr, ok := res.Leaderboard[0].Contests["631207"]
				So(ok, ShouldBeTrue)
				So(cr.Rank, ShouldEqual, 1)
				So(cr.Streak, ShouldEqual, 2)
				So(cr.BaseScore, ShouldEqual, 30)
				So(cr.FirstACBonus, ShouldEqual, 2)
			})

			Convey("And problem slots carry over in order", func() {
				So(res.Problems, ShouldResemble, []ProblemRef{
					{ID: "A", Name: "Watermelon"},
					{ID: "B", Name: "Spreadsheet"},
				})
			})
		})
	})
}
