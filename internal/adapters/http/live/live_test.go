package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/standlive/internal/adapters/hub"
	"github.com/okian/standlive/internal/adapters/repository"
	"github.com/okian/standlive/internal/domain/model"
	"github.com/okian/standlive/internal/domain/scoring"
	"github.com/okian/standlive/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type stubFetcher struct{}

func (stubFetcher) Standings(ctx context.Context, contestID string) (*model.ContestRecord, error) {
	return &model.ContestRecord{
		ContestID: contestID,
		Rows: []model.ParticipantRow{
			{Handle: "tourist", Rank: 1, Points: 5000, Penalty: 90},
		},
		Problems: []model.Problem{{Index: "A", Name: "Theatre Square"}},
	}, nil
}

// rawMessage is loose enough to decode any frame the server pushes.
type rawMessage struct {
	Type      string          `json:"type"`
	ContestID string          `json:"contestId"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

func newLiveServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	h := hub.New(stubFetcher{}, scoring.NewEngine(), repository.NewHistory(),
		hub.WithPollInterval(25*time.Millisecond),
	)
	t.Cleanup(h.Stop)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/standings", NewHandler(h).HandleStandings)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, h
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func readFrame(t *testing.T, conn *websocket.Conn) (rawMessage, error) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg rawMessage
	err := conn.ReadJSON(&msg)
	return msg, err
}

func TestLive_StandingsPush(t *testing.T) {
	Convey("Given a client connected for one contest", t, func() {
		srv, h := newLiveServer(t)

		conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/standings?contestId=2042"), nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		Convey("Then standings arrive without waiting a poll interval", func() {
			msg, err := readFrame(t, conn)
			So(err, ShouldBeNil)
			So(msg.Type, ShouldEqual, "standings")
			So(msg.ContestID, ShouldEqual, "2042")

			var data struct {
				Status string `json:"status"`
				Result struct {
					Leaderboard []struct {
						Handle string `json:"handle"`
					} `json:"leaderboard"`
				} `json:"result"`
			}
			So(json.Unmarshal(msg.Data, &data), ShouldBeNil)
			So(data.Status, ShouldEqual, "OK")
			So(data.Result.Leaderboard, ShouldHaveLength, 1)
			So(data.Result.Leaderboard[0].Handle, ShouldEqual, "tourist")

			Convey("And the subscription is registered on the hub", func() {
				So(h.ListenerCount(), ShouldEqual, 1)
			})
		})
	})
}

func TestLive_PingPong(t *testing.T) {
	Convey("Given a connected client", t, func() {
		srv, _ := newLiveServer(t)

		conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/standings?contestId=7"), nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		Convey("When it sends a ping", func() {
			So(conn.WriteJSON(map[string]string{"type": "ping"}), ShouldBeNil)

			Convey("Then a pong comes back among the pushed frames", func() {
				for {
					msg, err := readFrame(t, conn)
					So(err, ShouldBeNil)
					if msg.Type == "pong" {
						break
					}
					So(msg.Type, ShouldEqual, "standings")
				}
			})
		})
	})
}

func TestLive_MissingContestIDIsFatal(t *testing.T) {
	Convey("Given a client that omits contestId", t, func() {
		srv, h := newLiveServer(t)

		conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/standings"), nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		Convey("Then it receives one error frame and the connection closes", func() {
			msg, err := readFrame(t, conn)
			So(err, ShouldBeNil)
			So(msg.Type, ShouldEqual, "error")
			So(msg.Message, ShouldContainSubstring, "contestId")

			_, err = readFrame(t, conn)
			So(err, ShouldNotBeNil)
			So(websocket.IsCloseError(err, websocket.ClosePolicyViolation), ShouldBeTrue)

			Convey("And no subscription was created", func() {
				So(h.ListenerCount(), ShouldEqual, 0)
			})
		})
	})
}

func TestLive_DisconnectUnsubscribes(t *testing.T) {
	Convey("Given the only client of a contest", t, func() {
		srv, h := newLiveServer(t)

		conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/standings?contestId=55"), nil)
		So(err, ShouldBeNil)

		_, err = readFrame(t, conn)
		So(err, ShouldBeNil)

		Convey("When it disconnects", func() {
			So(conn.Close(), ShouldBeNil)

			Convey("Then the hub tears the subscription down", func() {
				deadline := time.Now().Add(2 * time.Second)
				for h.ListenerCount() != 0 && time.Now().Before(deadline) {
					time.Sleep(10 * time.Millisecond)
				}
				So(h.ListenerCount(), ShouldEqual, 0)
				So(h.TopicCount(), ShouldEqual, 0)
			})
		})
	})
}
