package scorefeed

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	backoff "github.com/cenkalti/backoff/v4"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/predtracker/predtracker/internal/domain/prediction"
	"github.com/predtracker/predtracker/internal/platform/logging"
	"github.com/predtracker/predtracker/internal/platform/resilience"
	"github.com/predtracker/predtracker/internal/usecase"
)

const (
	defaultBaseURL    = "https://api.scorefeed.io/v1"
	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 3
	maxResponseBytes  = 6 << 20
)

var apiTokenParamRegex = regexp.MustCompile(`api_token=[^&\s"']+`)
var errScoreFeedTransient = crerr.New("scorefeed transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client queries the authoritative results feed. One reconciliation run
// issues a single date-range query through it.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		maxRetries:     maxRetries,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

type matchesResponse struct {
	Data []matchItem `json:"data"`
}

type matchItem struct {
	ID        int64  `json:"id"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
	Status    string `json:"status"`
	KickoffAt string `json:"kickoff_at"`
}

// FetchResults returns every match in the inclusive date range, finished or
// not. Both bounds are required.
func (c *Client) FetchResults(ctx context.Context, dateFrom, dateTo time.Time) ([]prediction.Candidate, error) {
	if dateFrom.IsZero() || dateTo.IsZero() {
		return nil, fmt.Errorf("%w: both range bounds are required", usecase.ErrInvalidInput)
	}
	if dateTo.Before(dateFrom) {
		return nil, fmt.Errorf("%w: date_from must not be after date_to", usecase.ErrInvalidInput)
	}

	var payload matchesResponse
	err := c.doJSON(ctx, "/matches", map[string]string{
		"date_from": dateFrom.Format(prediction.DateLayout),
		"date_to":   dateTo.Format(prediction.DateLayout),
	}, &payload)
	if err != nil {
		return nil, err
	}

	candidates := make([]prediction.Candidate, 0, len(payload.Data))
	for _, item := range payload.Data {
		if item.ID <= 0 {
			continue
		}
		candidates = append(candidates, prediction.Candidate{
			MatchID:   fmt.Sprintf("%d", item.ID),
			HomeTeam:  item.HomeTeam,
			AwayTeam:  item.AwayTeam,
			HomeScore: item.HomeScore,
			AwayScore: item.AwayScore,
			Status:    mapMatchStatus(item.Status),
		})
	}
	return candidates, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "scorefeed circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: results provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	values.Set("api_token", c.token)

	fullURL := c.baseURL + path + "?" + values.Encode()

	key := path + "?" + values.Encode()
	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	return nil
}

// executeRequest issues the call with bounded exponential backoff. Only
// transient failures retry; client-side provider errors return immediately.
func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries)),
		ctx,
	)

	raw, err := backoff.RetryWithData(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: send request: %s", errScoreFeedTransient, sanitizeSensitiveText(err.Error(), c.token))
		}
		defer resp.Body.Close()

		buf := bytebufferpool.Get()
		defer bytebufferpool.Put(buf)
		if _, err := io.Copy(buf, io.LimitReader(resp.Body, maxResponseBytes)); err != nil {
			return nil, fmt.Errorf("%w: read response body: %v", errScoreFeedTransient, err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			out := make([]byte, buf.Len())
			copy(out, buf.Bytes())
			return out, nil
		}

		failure := fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(buf.Bytes()))
		if isRetryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("%w: %v", errScoreFeedTransient, failure)
		}
		return nil, backoff.Permanent(failure)
	}, policy)
	if err != nil {
		c.logger.WarnContext(ctx, "scorefeed request failed", "url", redactAPIURL(fullURL), "error", err)
		return nil, err
	}
	return raw, nil
}

func isRetryableStatus(status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500
}

func isCircuitFailure(err error) bool {
	return stderrors.Is(err, errScoreFeedTransient)
}

func mapMatchStatus(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "FT", "AET", "PEN", "FINISHED", "AWARDED":
		return prediction.StatusFinished
	case "POSTPONED", "PST":
		return prediction.StatusPostponed
	case "CANCELLED", "CANC", "ABANDONED", "SUSPENDED":
		return prediction.StatusCancelled
	case "LIVE", "IN_PLAY", "HT", "1H", "2H", "ET":
		return prediction.StatusLive
	default:
		return prediction.StatusScheduled
	}
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	return apiTokenParamRegex.ReplaceAllString(value, "api_token=REDACTED")
}

func redactAPIURL(fullURL string) string {
	return apiTokenParamRegex.ReplaceAllString(fullURL, "api_token=REDACTED")
}

func abbreviateBody(raw []byte) string {
	body := strings.TrimSpace(string(raw))
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return body
}
