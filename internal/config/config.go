// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New() to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Default configuration constants.
const (
	defaultAddr            = ":9080"
	defaultUpstreamBaseURL = "https://codeforces.com/api"
	defaultFetchTimeoutMS  = 15_000
	defaultPollIntervalMS  = 20_000
	defaultRowLimit        = 500
	defaultMaxContests     = 12
	defaultListenerBuffer  = 16
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// UpstreamBaseURL is the contest API root, e.g. "https://codeforces.com/api".
	UpstreamBaseURL string `koanf:"upstream_base_url"`

	// APIKey and APISecret enable signed upstream requests when both are set.
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`

	// FetchTimeoutMS bounds a single upstream standings call.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// PollIntervalMS is the live re-poll cadence per subscribed contest.
	PollIntervalMS int `koanf:"poll_interval_ms"`

	// RowLimit caps standings rows fetched per contest.
	RowLimit int `koanf:"row_limit"`

	// DataDir holds local leaderboard and identity-mapping files.
	DataDir string `koanf:"data_dir"`

	// MaxContestsPerRequest caps contestIds per aggregation request.
	MaxContestsPerRequest int `koanf:"max_contests_per_request"`

	// ListenerBuffer sizes each live listener's outbound message buffer.
	ListenerBuffer int `koanf:"listener_buffer"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  defaultAddr,
		UpstreamBaseURL:       defaultUpstreamBaseURL,
		FetchTimeoutMS:        defaultFetchTimeoutMS,
		PollIntervalMS:        defaultPollIntervalMS,
		RowLimit:              defaultRowLimit,
		DataDir:               "data",
		MaxContestsPerRequest: defaultMaxContests,
		ListenerBuffer:        defaultListenerBuffer,
	}
}
