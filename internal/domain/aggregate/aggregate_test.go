package aggregate_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/standlive/internal/domain/aggregate"
	"github.com/okian/standlive/internal/domain/model"
	scoring "github.com/okian/standlive/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

// mockFetcher serves canned records and can fail selected ids.
type mockFetcher struct {
	records map[string]*model.ContestRecord
	fail    map[string]error
	calls   int
}

func (m *mockFetcher) Standings(ctx context.Context, contestID string) (*model.ContestRecord, error) {
	m.calls++
	if err, ok := m.fail[contestID]; ok {
		return nil, err
	}
	rec, ok := m.records[contestID]
	if !ok {
		return nil, fmt.Errorf("unknown contest %s", contestID)
	}
	// Hand out a fresh copy the way a real source does.
	cp := *rec
	cp.Rows = make([]model.ParticipantRow, len(rec.Rows))
	copy(cp.Rows, rec.Rows)
	return &cp, nil
}

func contest(id string, handles ...string) *model.ContestRecord {
	rows := make([]model.ParticipantRow, len(handles))
	for i, h := range handles {
		rows[i] = model.ParticipantRow{Handle: h, Rank: i + 1, Points: float64(100 - i), Penalty: (i + 1) * 10}
	}
	return &model.ContestRecord{ContestID: id, Name: "Round " + id, Rows: rows}
}

func newAggregator(f *mockFetcher, opts ...aggregate.Option) *aggregate.Aggregator {
	return aggregate.New(f, scoring.NewEngine(), opts...)
}

func TestAggregator_SingleContest(t *testing.T) {
	Convey("Given a synthetic ranked contest with three entries", t, func() {
		fetcher := &mockFetcher{records: map[string]*model.ContestRecord{
			"631207": contest("631207", "A", "B", "C"),
		}}
		agg := newAggregator(fetcher)

		Convey("When it is aggregated alone", func() {
			board, _, err := agg.Leaderboard(context.Background(), []string{"631207"})

			Convey("Then the leaderboard is 30/29/28 with multiplier 1.0", func() {
				So(err, ShouldBeNil)
				So(board, ShouldHaveLength, 3)
				So(board[0].Handle, ShouldEqual, "A")
				So(board[0].TotalScore, ShouldEqual, 30)
				So(board[1].Handle, ShouldEqual, "B")
				So(board[1].TotalScore, ShouldEqual, 29)
				So(board[2].Handle, ShouldEqual, "C")
				So(board[2].TotalScore, ShouldEqual, 28)
				So(board[0].Contests["631207"].Streak, ShouldEqual, 1)
				So(board[0].Contests["631207"].StreakBonus, ShouldEqual, 0)
			})
		})
	})
}

func TestAggregator_OrderIndependence(t *testing.T) {
	Convey("Given two contests requested in both orders", t, func() {
		records := map[string]*model.ContestRecord{
			"10": contest("10", "A", "B"),
			"20": contest("20", "B", "A"),
		}
		ctx := context.Background()

		Convey("When the same set is aggregated as 10,20 and 20,10", func() {
			forward, _, errF := newAggregator(&mockFetcher{records: records}).Leaderboard(ctx, []string{"10", "20"})
			reversed, _, errR := newAggregator(&mockFetcher{records: records}).Leaderboard(ctx, []string{"20", "10"})

			Convey("Then totals and streaks are identical", func() {
				So(errF, ShouldBeNil)
				So(errR, ShouldBeNil)
				So(reversed, ShouldResemble, forward)
				// Both handles played both contests back to back.
				So(forward[0].Contests["20"].Streak, ShouldEqual, 2)
			})
		})
	})
}

func TestAggregator_StreakReset(t *testing.T) {
	Convey("Given a handle present in C1 and C3 but absent from C2", t, func() {
		records := map[string]*model.ContestRecord{
			"1": contest("1", "gone", "stays"),
			"2": contest("2", "stays"),
			"3": contest("3", "gone", "stays"),
		}
		agg := newAggregator(&mockFetcher{records: records})

		Convey("When all three are aggregated", func() {
			board, _, err := agg.Leaderboard(context.Background(), []string{"1", "2", "3"})
			So(err, ShouldBeNil)

			byHandle := make(map[string]int)
			for i, e := range board {
				byHandle[e.Handle] = i
			}

			Convey("Then the absentee restarts at streak 1 in C3", func() {
				gone := board[byHandle["gone"]]
				So(gone.Contests["3"].Streak, ShouldEqual, 1)
				So(gone.Contests["3"].StreakBonus, ShouldEqual, 0)
			})

			Convey("Then the ever-present handle reaches streak 3", func() {
				stays := board[byHandle["stays"]]
				So(stays.Contests["3"].Streak, ShouldEqual, 3)
			})
		})
	})
}

func TestAggregator_Failures(t *testing.T) {
	Convey("Given a fetcher that fails one of two contests", t, func() {
		boom := errors.New("upstream unavailable")
		fetcher := &mockFetcher{
			records: map[string]*model.ContestRecord{"10": contest("10", "A")},
			fail:    map[string]error{"20": boom},
		}
		agg := newAggregator(fetcher)

		Convey("When the pair is aggregated", func() {
			board, _, err := agg.Leaderboard(context.Background(), []string{"10", "20"})

			Convey("Then the whole request fails with the fetch error", func() {
				So(board, ShouldBeNil)
				So(errors.Is(err, boom), ShouldBeTrue)
			})
		})
	})

	Convey("Given an empty id list", t, func() {
		agg := newAggregator(&mockFetcher{})

		Convey("Then aggregation is rejected", func() {
			_, _, err := agg.Leaderboard(context.Background(), nil)
			So(errors.Is(err, aggregate.ErrNoContests), ShouldBeTrue)
		})
	})

	Convey("Given a request above the contest cap", t, func() {
		agg := newAggregator(&mockFetcher{}, aggregate.WithMaxContests(2))

		Convey("Then aggregation is rejected", func() {
			_, _, err := agg.Leaderboard(context.Background(), []string{"1", "2", "3"})
			So(errors.Is(err, aggregate.ErrTooManyContests), ShouldBeTrue)
		})
	})
}

func TestAggregator_Problems(t *testing.T) {
	Convey("Given a mix of synthetic and problem-carrying contests", t, func() {
		withProblems := contest("30", "A")
		withProblems.Problems = []model.Problem{{Index: "A", Name: "Watermelon"}}
		fetcher := &mockFetcher{records: map[string]*model.ContestRecord{
			"10": contest("10", "A"),
			"30": withProblems,
		}}
		agg := newAggregator(fetcher)

		Convey("When aggregated with the synthetic contest requested first", func() {
			_, problems, err := agg.Leaderboard(context.Background(), []string{"10", "30"})

			Convey("Then the first contest carrying slots supplies them", func() {
				So(err, ShouldBeNil)
				So(problems, ShouldHaveLength, 1)
				So(problems[0].Name, ShouldEqual, "Watermelon")
			})
		})
	})
}
