// Package live exposes the standings push channel over WebSocket.
//
// A connection subscribes to exactly one contest, named by the contestId
// query parameter at connect time. The server pushes standings and error
// envelopes produced by the hub; the client may send ping frames as JSON and
// receives pong replies on the same connection.
package live

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/okian/standlive/internal/adapters/hub"
	"github.com/okian/standlive/pkg/logger"
)

const (
	messagePing = "ping"
	messagePong = "pong"

	outboundBuffer = 4
)

// clientMessage is the only shape clients are expected to send.
type clientMessage struct {
	Type string `json:"type"`
}

type controlMessage struct {
	Type string `json:"type"`
}

type fatalMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Option applies a configuration option to the Handler.
type Option func(*Handler)

// WithLogger sets a custom logger for the handler.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// Handler upgrades HTTP requests and bridges connections to the hub.
type Handler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewHandler creates a live standings handler backed by h.
func NewHandler(h *hub.Hub, opts ...Option) *Handler {
	handler := &Handler{
		hub: h,
		upgrader: websocket.Upgrader{
			// The viewer page is served from arbitrary hosts in local
			// setups, so origin checks are left to the deployment edge.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(handler)
	}
	if handler.logger == nil {
		handler.logger = logger.Get().Named("live")
	}
	return handler
}

// HandleStandings handles GET /ws/standings?contestId=N upgrades. A missing
// contestId is fatal: the client gets one error message and the connection
// closes with a policy violation.
func (h *Handler) HandleStandings(w http.ResponseWriter, r *http.Request) {
	contestID := strings.TrimSpace(r.URL.Query().Get("contestId"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	if contestID == "" {
		_ = conn.WriteJSON(fatalMessage{
			Type:    hub.MessageError,
			Message: "contestId query parameter is required",
		})
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "missing contestId"))
		_ = conn.Close()
		return
	}

	l := h.hub.Subscribe(contestID)
	defer h.hub.Unsubscribe(l)
	defer conn.Close()

	out := make(chan any, outboundBuffer)
	done := make(chan struct{})
	go h.writePump(conn, l, out, done)

	h.readPump(conn, out, done)
}

// readPump consumes client frames until the connection drops. Closing done
// tells the write pump to stop.
func (h *Handler) readPump(conn *websocket.Conn, out chan<- any, done chan struct{}) {
	defer close(done)

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == messagePing {
			select {
			case out <- controlMessage{Type: messagePong}:
			default:
			}
		}
	}
}

// writePump is the connection's single writer: it interleaves hub broadcasts
// with pong replies so no two goroutines write the socket concurrently.
func (h *Handler) writePump(conn *websocket.Conn, l *hub.Listener, out <-chan any, done <-chan struct{}) {
	for {
		select {
		case msg, ok := <-l.C():
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub shutting down"))
				_ = conn.Close()
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case v := <-out:
			if err := conn.WriteJSON(v); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
