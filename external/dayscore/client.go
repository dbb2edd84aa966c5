package dayscore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/predtracker/predtracker/internal/domain/prediction"
	"github.com/predtracker/predtracker/internal/platform/logging"
)

const (
	defaultBaseURL = "https://www.livescores-archive.com"
	defaultTimeout = 20 * time.Second
	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"
)

var errDayScoreUnavailable = crerr.New("day score listing unavailable")

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	Timeout    time.Duration
	Logger     *logging.Logger
}

// Client scrapes a public day-results listing. It is the best-effort
// fallback behind the authoritative feed: callers fetch one day at a time
// and swallow failures.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger
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
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// dayResponse is the JSON document behind the site's day listing page.
type dayResponse struct {
	Matches []dayMatch `json:"matches"`
}

type dayMatch struct {
	ID       int64  `json:"id"`
	Home     string `json:"home"`
	Away     string `json:"away"`
	Score    string `json:"score"`
	Status   string `json:"status"`
	Finished bool   `json:"finished"`
}

// FetchDay returns the listed matches for one calendar day.
func (c *Client) FetchDay(ctx context.Context, date time.Time) ([]prediction.Candidate, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("date is required")
	}

	params := url.Values{
		"date":   {date.Format(prediction.DateLayout)},
		"sport":  {"football"},
		"format": {"json"},
	}
	fullURL := c.baseURL + "/ajax/results?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", c.baseURL+"/results")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errDayScoreUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", errDayScoreUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status=%d", errDayScoreUnavailable, resp.StatusCode)
	}

	var payload dayResponse
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode day listing: %w", err)
	}

	candidates := make([]prediction.Candidate, 0, len(payload.Matches))
	for _, match := range payload.Matches {
		candidate, ok := mapDayMatch(match)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}
	c.logger.DebugContext(ctx, "fetched fallback day listing",
		"date", date.Format(prediction.DateLayout),
		"candidates", len(candidates),
	)
	return candidates, nil
}

func mapDayMatch(match dayMatch) (prediction.Candidate, bool) {
	if match.ID <= 0 || strings.TrimSpace(match.Home) == "" || strings.TrimSpace(match.Away) == "" {
		return prediction.Candidate{}, false
	}

	candidate := prediction.Candidate{
		MatchID:  fmt.Sprintf("%d", match.ID),
		HomeTeam: match.Home,
		AwayTeam: match.Away,
		Status:   mapListingStatus(match),
	}
	if candidate.Status == prediction.StatusFinished {
		home, away, ok := parseScoreline(match.Score)
		if !ok {
			// A finished row without a readable score cannot grade anything.
			candidate.Status = prediction.StatusScheduled
		} else {
			candidate.HomeScore, candidate.AwayScore = home, away
		}
	}
	return candidate, true
}

func mapListingStatus(match dayMatch) string {
	status := strings.ToUpper(strings.TrimSpace(match.Status))
	switch status {
	case "POSTPONED", "PPD", "PST":
		return prediction.StatusPostponed
	case "CANCELLED", "CANC", "ABANDONED":
		return prediction.StatusCancelled
	case "FT", "AET", "PEN", "FINISHED":
		return prediction.StatusFinished
	case "LIVE", "HT", "1H", "2H":
		return prediction.StatusLive
	}
	if match.Finished {
		return prediction.StatusFinished
	}
	return prediction.StatusScheduled
}

// parseScoreline reads listings like "3-1", "3 - 1", or "3:1".
func parseScoreline(raw string) (int, int, bool) {
	raw = strings.TrimSpace(raw)
	sep := "-"
	if strings.Contains(raw, ":") {
		sep = ":"
	}
	parts := strings.SplitN(raw, sep, 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	home, err := parseScorePart(parts[0])
	if err != nil {
		return 0, 0, false
	}
	away, err := parseScorePart(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return home, away, true
}

func parseScorePart(raw string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(raw))
}
