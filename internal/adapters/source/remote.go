package source

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/standlive/internal/domain/model"
	"github.com/okian/standlive/pkg/metrics"
)

// Default remote client configuration constants.
const (
	defaultRowLimit     = 500
	defaultFetchTimeout = 15 * time.Second
	standingsMethod     = "contest.standings"
	apiSigNonceDigits   = 6
)

// RemoteOption applies a configuration option to the Remote source.
type RemoteOption func(*Remote)

// WithAPIKey enables request signing with the upstream key pair.
func WithAPIKey(key, secret string) RemoteOption {
	return func(r *Remote) {
		r.apiKey = key
		r.apiSecret = secret
	}
}

// WithRowLimit caps the number of standings rows requested per contest.
func WithRowLimit(n int) RemoteOption {
	return func(r *Remote) {
		if n > 0 {
			r.rowLimit = n
		}
	}
}

// WithHTTPClient replaces the HTTP client, e.g. to adjust the call timeout.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) {
		if c != nil {
			r.client = c
		}
	}
}

// WithOfficialOnly restricts rows to official participants.
func WithOfficialOnly(official bool) RemoteOption {
	return func(r *Remote) {
		r.officialOnly = official
	}
}

// Remote fetches standings from the upstream contest API.
type Remote struct {
	baseURL      string
	apiKey       string
	apiSecret    string
	rowLimit     int
	officialOnly bool
	client       *http.Client

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRemote creates a remote source for the given API base URL,
// e.g. "https://codeforces.com/api".
func NewRemote(baseURL string, opts ...RemoteOption) *Remote {
	r := &Remote{
		baseURL:      strings.TrimRight(baseURL, "/"),
		rowLimit:     defaultRowLimit,
		officialOnly: true,
		client:       &http.Client{Timeout: defaultFetchTimeout},
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // nonce, not a secret
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// standingsEnvelope mirrors the upstream response wrapper.
type standingsEnvelope struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Result  *struct {
		Contest struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"contest"`
		Problems []struct {
			Index string `json:"index"`
			Name  string `json:"name"`
		} `json:"problems"`
		Rows []struct {
			Party struct {
				TeamName string `json:"teamName"`
				Members  []struct {
					Handle string `json:"handle"`
				} `json:"members"`
			} `json:"party"`
			Rank           int     `json:"rank"`
			Points         float64 `json:"points"`
			Penalty        int     `json:"penalty"`
			ProblemResults []struct {
				Points                    float64 `json:"points"`
				RejectedAttemptCount      int     `json:"rejectedAttemptCount"`
				BestSubmissionTimeSeconds *int64  `json:"bestSubmissionTimeSeconds"`
			} `json:"problemResults"`
		} `json:"rows"`
	} `json:"result"`
}

// Standings implements Source.
func (r *Remote) Standings(ctx context.Context, contestID string) (*model.ContestRecord, error) {
	params := url.Values{}
	params.Set("contestId", contestID)
	params.Set("from", "1")
	params.Set("count", strconv.Itoa(r.rowLimit))
	params.Set("showUnofficial", strconv.FormatBool(!r.officialOnly))

	reqURL, err := r.buildURL(standingsMethod, params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build standings request: %w", err)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		metrics.RecordUpstreamError()
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordUpstreamFetch(time.Since(start))

	var env standingsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		metrics.RecordUpstreamError()
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	if env.Status != "OK" || env.Result == nil {
		metrics.RecordUpstreamError()
		comment := env.Comment
		if comment == "" {
			comment = fmt.Sprintf("status %s (http %d)", env.Status, resp.StatusCode)
		}
		return nil, &RemoteError{Comment: comment}
	}

	return r.toRecord(contestID, &env), nil
}

func (r *Remote) toRecord(contestID string, env *standingsEnvelope) *model.ContestRecord {
	rec := &model.ContestRecord{
		ContestID: contestID,
		Name:      env.Result.Contest.Name,
		Problems:  make([]model.Problem, 0, len(env.Result.Problems)),
		Rows:      make([]model.ParticipantRow, 0, len(env.Result.Rows)),
	}
	for _, p := range env.Result.Problems {
		rec.Problems = append(rec.Problems, model.Problem{Index: p.Index, Name: p.Name})
	}
	for _, raw := range env.Result.Rows {
		handle := raw.Party.TeamName
		if handle == "" && len(raw.Party.Members) > 0 {
			handle = raw.Party.Members[0].Handle
		}
		if handle == "" {
			continue
		}
		row := model.ParticipantRow{
			Handle:   handle,
			Rank:     raw.Rank,
			Points:   raw.Points,
			Penalty:  raw.Penalty,
			Problems: make([]model.ProblemResult, 0, len(raw.ProblemResults)),
		}
		for _, pr := range raw.ProblemResults {
			res := model.ProblemResult{
				Points:   pr.Points,
				Rejected: pr.RejectedAttemptCount,
			}
			if pr.BestSubmissionTimeSeconds != nil {
				res.Solved = true
				res.BestTimeSeconds = *pr.BestSubmissionTimeSeconds
			}
			row.Problems = append(row.Problems, res)
		}
		rec.Rows = append(rec.Rows, row)
	}
	return rec
}

// buildURL assembles the request URL, signing it when an API key is
// configured. The upstream scheme: apiSig = nonce + hex(sha512(nonce +
// "/method?sorted-params#secret")) with apiKey and time added to the params.
func (r *Remote) buildURL(method string, params url.Values) (string, error) {
	if r.apiKey == "" {
		return fmt.Sprintf("%s/%s?%s", r.baseURL, method, params.Encode()), nil
	}

	params.Set("apiKey", r.apiKey)
	params.Set("time", strconv.FormatInt(time.Now().Unix(), 10))

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params.Get(k))
	}
	sorted := strings.Join(pairs, "&")

	nonce := r.nonce()
	base := fmt.Sprintf("%s/%s?%s#%s", nonce, method, sorted, r.apiSecret)
	sum := sha512.Sum512([]byte(base))
	params.Set("apiSig", nonce+hex.EncodeToString(sum[:]))

	return fmt.Sprintf("%s/%s?%s", r.baseURL, method, params.Encode()), nil
}

func (r *Remote) nonce() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var b strings.Builder
	for i := 0; i < apiSigNonceDigits; i++ {
		b.WriteByte(byte('0' + r.rng.Intn(10)))
	}
	return b.String()
}
