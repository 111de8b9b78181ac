// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the push channel.
package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/okian/standlive/internal/adapters/hub"
	"github.com/okian/standlive/internal/adapters/repository"
	"github.com/okian/standlive/internal/adapters/source"
	"github.com/okian/standlive/internal/domain/aggregate"
	"github.com/okian/standlive/internal/domain/model"
	"github.com/okian/standlive/internal/domain/scoring"
	"github.com/okian/standlive/internal/domain/types"
	"github.com/okian/standlive/pkg/logger"
	"github.com/okian/standlive/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultUpstreamBaseURL = "https://codeforces.com/api"
	defaultDataDir         = "data"
	defaultRowLimit        = 500
	defaultMaxContests     = 12
	defaultListenerBuffer  = 16
	defaultPollInterval    = 20 * time.Second
	defaultFetchTimeout    = 15 * time.Second
)

// Service wires the standings source, scoring engine, aggregator and hub
// behind the interfaces the transport layer consumes.
type Service struct {
	mu sync.RWMutex

	// Core components
	standings  source.Source
	cache      *source.Cache
	engine     *scoring.Engine
	aggregator *aggregate.Aggregator
	liveHub    *hub.Hub
	history    *repository.History

	// Configuration
	upstreamBaseURL string
	apiKey          string
	apiSecret       string
	dataDir         string
	rowLimit        int
	maxContests     int
	listenerBuffer  int
	pollInterval    time.Duration
	fetchTimeout    time.Duration
	policies        *scoring.PolicyTable
	overrides       scoring.Overrides

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithUpstreamBaseURL sets the third-party standings API base URL.
func WithUpstreamBaseURL(u string) Option {
	return func(s *Service) {
		if u != "" {
			s.upstreamBaseURL = u
		}
	}
}

// WithAPICredentials sets the upstream API key pair used for request signing.
func WithAPICredentials(key, secret string) Option {
	return func(s *Service) {
		s.apiKey = key
		s.apiSecret = secret
	}
}

// WithDataDir sets the directory scanned for local leaderboard files.
func WithDataDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.dataDir = dir
		}
	}
}

// WithRowLimit caps the number of standings rows fetched per contest.
func WithRowLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.rowLimit = n
		}
	}
}

// WithMaxContests caps how many contests one aggregation request may name.
func WithMaxContests(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxContests = n
		}
	}
}

// WithListenerBuffer sizes each live listener's outbound buffer.
func WithListenerBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.listenerBuffer = n
		}
	}
}

// WithPollInterval sets the live re-poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithFetchTimeout bounds a single upstream fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithPolicyTable sets per-contest scoring policies.
func WithPolicyTable(t *scoring.PolicyTable) Option {
	return func(s *Service) {
		s.policies = t
	}
}

// WithOverrides sets administrative score overrides.
func WithOverrides(o scoring.Overrides) Option {
	return func(s *Service) {
		s.overrides = o
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		upstreamBaseURL: defaultUpstreamBaseURL,
		dataDir:         defaultDataDir,
		rowLimit:        defaultRowLimit,
		maxContests:     defaultMaxContests,
		listenerBuffer:  defaultListenerBuffer,
		pollInterval:    defaultPollInterval,
		fetchTimeout:    defaultFetchTimeout,
		stopCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting standings service...")

	static, err := source.NewStatic(s.dataDir)
	if err != nil {
		return fmt.Errorf("scan data dir %q: %w", s.dataDir, err)
	}

	remoteOpts := []source.RemoteOption{
		source.WithRowLimit(s.rowLimit),
		source.WithHTTPClient(&http.Client{Timeout: s.fetchTimeout}),
	}
	if s.apiKey != "" {
		remoteOpts = append(remoteOpts, source.WithAPIKey(s.apiKey, s.apiSecret))
	}
	remote := source.NewRemote(s.upstreamBaseURL, remoteOpts...)

	s.cache = source.NewCache(source.NewResolver(static, remote))
	s.standings = s.cache

	engineOpts := []scoring.Option{}
	if s.policies != nil {
		engineOpts = append(engineOpts, scoring.WithPolicyTable(s.policies))
	}
	engineOpts = append(engineOpts, scoring.WithOverrides(s.overrides))
	s.engine = scoring.NewEngine(engineOpts...)

	s.aggregator = aggregate.New(s.standings, s.engine,
		aggregate.WithMaxContests(s.maxContests),
	)

	s.history = repository.NewHistory()
	s.liveHub = hub.New(s.standings, s.engine, s.history,
		hub.WithPollInterval(s.pollInterval),
		hub.WithListenerBuffer(s.listenerBuffer),
	)

	s.started = true
	s.logger.Info(ctx, "standings service started",
		logger.String("upstream", s.upstreamBaseURL),
		logger.String("dataDir", s.dataDir),
		logger.Duration("pollInterval", s.pollInterval),
		logger.Int("maxContests", s.maxContests),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping standings service...")

	if s.liveHub != nil {
		s.liveHub.Stop()
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(context.Background(), "standings service stopped")
}

// Leaderboard aggregates the listed contests into one cumulative board.
func (s *Service) Leaderboard(ctx context.Context, contestIDs []string) ([]types.LeaderboardEntry, []model.Problem, error) {
	s.mu.RLock()
	agg := s.aggregator
	s.mu.RUnlock()

	if agg == nil {
		return nil, nil, ErrNotStarted
	}
	return agg.Leaderboard(ctx, contestIDs)
}

// Hub exposes the subscription hub for the push-channel transport.
func (s *Service) Hub() *hub.Hub {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.liveHub
}

// GetStats returns a snapshot of operational counters for /stats.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"poll_interval_ms": s.pollInterval.Milliseconds(),
		"max_contests":     s.maxContests,
	}
	if s.liveHub != nil {
		stats["listeners"] = s.liveHub.ListenerCount()
		stats["live_contests"] = s.liveHub.TopicCount()
	}
	if s.cache != nil {
		stats["cached_contests"] = s.cache.Len()
	}
	if s.history != nil {
		n := s.history.Count(context.Background())
		stats["tracked_handles"] = n
		metrics.UpdateTrackedHandles(n)
	}
	return stats
}
