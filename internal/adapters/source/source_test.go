package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	source "github.com/okian/standlive/internal/adapters/source"
	"github.com/okian/standlive/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const standingsBody = `{
  "status": "OK",
  "result": {
    "contest": {"id": 566, "name": "Round 566"},
    "problems": [{"index": "A", "name": "Watermelon"}, {"index": "B", "name": "Theatre"}],
    "rows": [
      {
        "party": {"members": [{"handle": "tourist"}]},
        "rank": 1, "points": 2500, "penalty": 0,
        "problemResults": [
          {"points": 1500, "rejectedAttemptCount": 0, "bestSubmissionTimeSeconds": 600},
          {"points": 1000, "rejectedAttemptCount": 1, "bestSubmissionTimeSeconds": 2400}
        ]
      },
      {
        "party": {"teamName": "Never Lucky", "members": [{"handle": "p1"}, {"handle": "p2"}]},
        "rank": 2, "points": 1500, "penalty": 30,
        "problemResults": [
          {"points": 1500, "rejectedAttemptCount": 2, "bestSubmissionTimeSeconds": 900},
          {"points": 0, "rejectedAttemptCount": 3}
        ]
      }
    ]
  }
}`

func TestRemote_Standings(t *testing.T) {
	Convey("Given an upstream that serves standings", t, func() {
		var gotQuery map[string][]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(standingsBody))
		}))
		defer srv.Close()

		remote := source.NewRemote(srv.URL, source.WithRowLimit(200))

		Convey("When standings are fetched", func() {
			rec, err := remote.Standings(context.Background(), "566")

			Convey("Then the record mirrors the upstream shape", func() {
				So(err, ShouldBeNil)
				So(rec.ContestID, ShouldEqual, "566")
				So(rec.Name, ShouldEqual, "Round 566")
				So(rec.Problems, ShouldHaveLength, 2)
				So(rec.Rows, ShouldHaveLength, 2)
				So(rec.Rows[0].Handle, ShouldEqual, "tourist")
				So(rec.Rows[0].Problems[0].Solved, ShouldBeTrue)
				So(rec.Rows[0].Problems[0].BestTimeSeconds, ShouldEqual, 600)
				So(rec.Rows[1].Handle, ShouldEqual, "Never Lucky")
				So(rec.Rows[1].Problems[1].Solved, ShouldBeFalse)
			})

			Convey("Then the request carries pagination and official-only flags", func() {
				So(gotQuery["contestId"], ShouldResemble, []string{"566"})
				So(gotQuery["from"], ShouldResemble, []string{"1"})
				So(gotQuery["count"], ShouldResemble, []string{"200"})
				So(gotQuery["showUnofficial"], ShouldResemble, []string{"false"})
			})
		})
	})

	Convey("Given an upstream with signing enabled", t, func() {
		var gotQuery map[string][]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			_, _ = w.Write([]byte(standingsBody))
		}))
		defer srv.Close()

		remote := source.NewRemote(srv.URL, source.WithAPIKey("key", "secret"))

		Convey("When standings are fetched", func() {
			_, err := remote.Standings(context.Background(), "566")

			Convey("Then apiKey, time and a nonce-prefixed apiSig are sent", func() {
				So(err, ShouldBeNil)
				So(gotQuery["apiKey"], ShouldResemble, []string{"key"})
				So(gotQuery["time"], ShouldNotBeEmpty)
				So(gotQuery["apiSig"], ShouldNotBeEmpty)
				// 6 nonce digits + 128 hex chars of SHA-512.
				So(gotQuery["apiSig"][0], ShouldHaveLength, 134)
			})
		})
	})

	Convey("Given an upstream that reports a failure", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":"FAILED","comment":"contestId: Contest with id 999999 not found"}`))
		}))
		defer srv.Close()

		remote := source.NewRemote(srv.URL)

		Convey("When standings are fetched", func() {
			_, err := remote.Standings(context.Background(), "999999")

			Convey("Then the upstream comment is preserved", func() {
				So(errors.Is(err, source.ErrUpstream), ShouldBeTrue)
				var remoteErr *source.RemoteError
				So(errors.As(err, &remoteErr), ShouldBeTrue)
				So(remoteErr.Comment, ShouldContainSubstring, "999999")
			})
		})
	})

	Convey("Given an unreachable upstream", t, func() {
		remote := source.NewRemote("http://127.0.0.1:1")

		Convey("Then the fetch surfaces an upstream error", func() {
			_, err := remote.Standings(context.Background(), "1")
			So(errors.Is(err, source.ErrUpstream), ShouldBeTrue)
		})
	})
}

func TestStatic_Standings(t *testing.T) {
	Convey("Given a data directory with a leaderboard file", t, func() {
		dir := t.TempDir()
		lb := "handle,rank,points,penalty\nalice,1,100,10\nbob,2,90,20\n,3,80,30\n"
		So(os.WriteFile(filepath.Join(dir, "leaderboard_631207.csv"), []byte(lb), 0o600), ShouldBeNil)
		ids := "name,handle\nalice,alice_cf\n"
		So(os.WriteFile(filepath.Join(dir, "identities.csv"), []byte(ids), 0o600), ShouldBeNil)

		static, err := source.NewStatic(dir)
		So(err, ShouldBeNil)

		Convey("Then the contest is defined locally", func() {
			So(static.Defines("631207"), ShouldBeTrue)
			So(static.Defines("999"), ShouldBeFalse)
		})

		Convey("When standings are synthesized", func() {
			rec, err := static.Standings(context.Background(), "631207")

			Convey("Then the header and malformed lines are skipped", func() {
				So(err, ShouldBeNil)
				So(rec.Rows, ShouldHaveLength, 2)
				So(rec.Rows[1].Handle, ShouldEqual, "bob")
				So(rec.Rows[1].Points, ShouldEqual, 90)
				So(rec.Rows[1].Penalty, ShouldEqual, 20)
				So(rec.Problems, ShouldBeEmpty)
			})

			Convey("Then identity mapping rewrites display names", func() {
				So(err, ShouldBeNil)
				So(rec.Rows[0].Handle, ShouldEqual, "alice_cf")
			})
		})

		Convey("When an undefined contest is requested", func() {
			_, err := static.Standings(context.Background(), "999")
			So(errors.Is(err, source.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a missing data directory", t, func() {
		static, err := source.NewStatic("/nonexistent/standlive-data")

		Convey("Then the source defines nothing and does not fail", func() {
			So(err, ShouldBeNil)
			So(static.Defines("1"), ShouldBeFalse)
		})
	})
}

// countingSource counts fetches and can fail on demand.
type countingSource struct {
	calls int
	err   error
}

func (c *countingSource) Standings(ctx context.Context, contestID string) (*model.ContestRecord, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &model.ContestRecord{
		ContestID: contestID,
		Rows:      []model.ParticipantRow{{Handle: "a", Rank: 1, Points: 100}},
	}, nil
}

func TestCache_Standings(t *testing.T) {
	Convey("Given a cache over a counting source", t, func() {
		next := &countingSource{}
		cache := source.NewCache(next)
		ctx := context.Background()

		Convey("When the same contest is fetched twice", func() {
			first, err1 := cache.Standings(ctx, "42")
			second, err2 := cache.Standings(ctx, "42")

			Convey("Then the upstream is called once", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(next.calls, ShouldEqual, 1)
				So(cache.Len(), ShouldEqual, 1)
			})

			Convey("Then callers receive independent copies", func() {
				first.Rows[0].CustomScore = 99
				So(second.Rows[0].CustomScore, ShouldEqual, 0)
			})
		})

		Convey("When the source fails", func() {
			next.err = errors.New("down")
			_, err := cache.Standings(ctx, "7")
			next.err = nil
			_, retry := cache.Standings(ctx, "7")

			Convey("Then the error is not cached", func() {
				So(err, ShouldNotBeNil)
				So(retry, ShouldBeNil)
				So(next.calls, ShouldEqual, 2)
			})
		})
	})
}

func TestResolver_Standings(t *testing.T) {
	Convey("Given a resolver with a static and a remote source", t, func() {
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "leaderboard_5.csv"), []byte("handle,rank\nx,1\n"), 0o600), ShouldBeNil)
		static, err := source.NewStatic(dir)
		So(err, ShouldBeNil)
		remote := &countingSource{}
		resolver := source.NewResolver(static, remote)
		ctx := context.Background()

		Convey("When a locally-defined contest is requested", func() {
			rec, err := resolver.Standings(ctx, "5")

			Convey("Then the static source serves it", func() {
				So(err, ShouldBeNil)
				So(rec.Rows[0].Handle, ShouldEqual, "x")
				So(remote.calls, ShouldEqual, 0)
			})
		})

		Convey("When any other contest is requested", func() {
			_, err := resolver.Standings(ctx, "6")

			Convey("Then the remote source serves it", func() {
				So(err, ShouldBeNil)
				So(remote.calls, ShouldEqual, 1)
			})
		})
	})
}
