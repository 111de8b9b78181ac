// Package hub fans live standings out to subscribed viewers.
//
// Each contest identifier with at least one listener owns a poll goroutine:
// subscribe-first starts it with an immediate poll so a new viewer never
// waits a full interval, unsubscribe-last cancels it. Polls fetch through
// the caching standings source, score against the single long-lived history,
// and broadcast to every listener of that contest.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/standlive/internal/adapters/repository"
	"github.com/okian/standlive/internal/domain/model"
	"github.com/okian/standlive/internal/domain/types"
	"github.com/okian/standlive/pkg/logger"
	"github.com/okian/standlive/pkg/metrics"
)

// Default hub configuration constants.
const (
	defaultPollInterval   = 20 * time.Second
	defaultListenerBuffer = 16
)

// Message type discriminators on the push channel.
const (
	MessageStandings = "standings"
	MessageError     = "error"
)

// Message is one unit pushed to a listener.
type Message struct {
	Type      string          `json:"type"`
	ContestID string          `json:"contestId"`
	Data      *types.Envelope `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// Listener is one connected viewer's subscription to a contest.
type Listener struct {
	ID        uuid.UUID
	ContestID string
	ch        chan Message
}

// C is the listener's receive channel. It is closed on unsubscribe.
func (l *Listener) C() <-chan Message { return l.ch }

// Fetcher supplies raw standings for a contest identifier.
type Fetcher interface {
	Standings(ctx context.Context, contestID string) (*model.ContestRecord, error)
}

// Scorer re-scores one contest record against a history instance.
type Scorer interface {
	Score(ctx context.Context, rec *model.ContestRecord, hist *repository.History)
}

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithPollInterval sets the re-poll cadence per subscribed contest.
func WithPollInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.interval = d
		}
	}
}

// WithListenerBuffer sizes each listener's outbound buffer.
func WithListenerBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// topic is the per-contest listener set plus its poller's cancel handle.
type topic struct {
	listeners map[uuid.UUID]*Listener
	cancel    context.CancelFunc
}

// Hub maintains listeners grouped by contest identifier and drives their
// poll timers. All state transitions happen under one mutex so cancelling a
// poller is atomic with the listener-set emptiness check.
type Hub struct {
	fetcher  Fetcher
	scorer   Scorer
	hist     *repository.History
	interval time.Duration
	buffer   int
	logger   logger.Logger

	mu     sync.Mutex
	topics map[string]*topic
}

// New constructs a Hub. hist is the process-wide history shared by all live
// polling; it grows for the process lifetime and is never reset.
func New(fetcher Fetcher, scorer Scorer, hist *repository.History, opts ...Option) *Hub {
	h := &Hub{
		fetcher:  fetcher,
		scorer:   scorer,
		hist:     hist,
		interval: defaultPollInterval,
		buffer:   defaultListenerBuffer,
		topics:   make(map[string]*topic),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("hub")
	}
	return h
}

// Subscribe registers a listener for a contest. The first listener of a
// contest starts its poller, which polls once immediately.
func (h *Hub) Subscribe(contestID string) *Listener {
	l := &Listener{
		ID:        uuid.New(),
		ContestID: contestID,
		ch:        make(chan Message, h.buffer),
	}

	h.mu.Lock()
	t, ok := h.topics[contestID]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		t = &topic{
			listeners: make(map[uuid.UUID]*Listener),
			cancel:    cancel,
		}
		h.topics[contestID] = t
		go h.pollLoop(ctx, contestID)
	}
	t.listeners[l.ID] = l
	h.updateGaugesLocked()
	h.mu.Unlock()

	h.logger.Debug(context.Background(), "listener subscribed",
		logger.String("contestId", contestID),
		logger.String("listener", l.ID.String()),
	)
	return l
}

// Unsubscribe removes a listener and closes its channel. When the last
// listener of a contest leaves, the contest's poller is cancelled.
func (h *Hub) Unsubscribe(l *Listener) {
	h.mu.Lock()
	t, ok := h.topics[l.ContestID]
	if ok {
		if _, present := t.listeners[l.ID]; present {
			delete(t.listeners, l.ID)
			close(l.ch)
		}
		if len(t.listeners) == 0 {
			t.cancel()
			delete(h.topics, l.ContestID)
		}
	}
	h.updateGaugesLocked()
	h.mu.Unlock()

	h.logger.Debug(context.Background(), "listener unsubscribed",
		logger.String("contestId", l.ContestID),
		logger.String("listener", l.ID.String()),
	)
}

// Stop cancels every poller and disconnects every listener.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, t := range h.topics {
		t.cancel()
		for _, l := range t.listeners {
			close(l.ch)
		}
		delete(h.topics, id)
	}
	h.updateGaugesLocked()
}

// ListenerCount returns the number of connected listeners across contests.
func (h *Hub) ListenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, t := range h.topics {
		n += len(t.listeners)
	}
	return n
}

// TopicCount returns the number of contests with an active poller.
func (h *Hub) TopicCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics)
}

// pollLoop polls once immediately, then on every tick until cancelled.
func (h *Hub) pollLoop(ctx context.Context, contestID string) {
	h.pollOnce(ctx, contestID)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.pollOnce(ctx, contestID)
		}
	}
}

// pollOnce fetches, scores, and broadcasts one update. A fetch or score
// failure broadcasts a typed error instead; the timer keeps running, so the
// next tick is the retry.
func (h *Hub) pollOnce(ctx context.Context, contestID string) {
	metrics.RecordPoll()

	rec, err := h.fetcher.Standings(ctx, contestID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.RecordPollError()
		h.logger.Warn(ctx, "live poll failed",
			logger.String("contestId", contestID),
			logger.Error(err),
		)
		h.broadcast(contestID, Message{
			Type:      MessageError,
			ContestID: contestID,
			Message:   err.Error(),
		})
		return
	}

	h.scorer.Score(ctx, rec, h.hist)
	metrics.UpdateTrackedHandles(h.hist.Count(ctx))

	h.broadcast(contestID, Message{
		Type:      MessageStandings,
		ContestID: contestID,
		Data: &types.Envelope{
			Status: types.StatusOK,
			Result: types.ResultFromRecord(rec),
		},
	})
}

// broadcast delivers msg to every current listener of the contest. Sends are
// non-blocking: a listener that is not ready is skipped so one slow viewer
// cannot stall the rest.
func (h *Hub) broadcast(contestID string, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[contestID]
	if !ok {
		return
	}
	delivered := 0
	for _, l := range t.listeners {
		select {
		case l.ch <- msg:
			delivered++
		default:
		}
	}
	metrics.RecordBroadcast(delivered)
}

// updateGaugesLocked refreshes the listener and poller gauges.
// Must be called with h.mu held.
func (h *Hub) updateGaugesLocked() {
	n := 0
	for _, t := range h.topics {
		n += len(t.listeners)
	}
	metrics.UpdateListenersActive(n)
	metrics.UpdatePollersActive(len(h.topics))
}
