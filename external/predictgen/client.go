// Package predictgen calls the prediction generation engine, an internal
// HTTP service that produces betting picks for a day. The engine is an
// opaque collaborator: this client forwards the request and normalizes
// whatever comes back, it never inspects pick quality.
package predictgen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/predtracker/predtracker/internal/domain/prediction"
	"github.com/predtracker/predtracker/internal/usecase"
)

const (
	defaultTimeout      = 30 * time.Second
	maxResponseBytes    = 4 << 20
	generatePath        = "/v1/generate"
	authorizationHeader = "Authorization"
)

type Client struct {
	httpClient  *http.Client
	generateURL string
	token       string
	logger      *slog.Logger
}

func NewClient(httpClient *http.Client, baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		httpClient:  httpClient,
		generateURL: buildURL(baseURL, generatePath),
		token:       strings.TrimSpace(token),
		logger:      logger,
	}
}

func (c *Client) Generate(ctx context.Context, req usecase.GenerateRequest) ([]prediction.Record, error) {
	payload := generateRequest{
		Leagues:   req.Leagues,
		Date:      req.Date,
		RiskLevel: req.RiskLevel,
	}
	encoded, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generateURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("create generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set(authorizationHeader, "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: request generation engine: %v", usecase.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read generate response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "generation engine non-200",
			"status_code", resp.StatusCode,
			"date", req.Date,
		)
		return nil, fmt.Errorf("%w: generation engine returned status %d", usecase.ErrDependencyUnavailable, resp.StatusCode)
	}

	var decoded generateResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("unmarshal generate response: %w", err)
	}

	records := make([]prediction.Record, 0, len(decoded.Predictions))
	for _, record := range decoded.Predictions {
		if strings.TrimSpace(record.HomeTeam) == "" || strings.TrimSpace(record.AwayTeam) == "" {
			c.logger.WarnContext(ctx, "generation engine returned prediction without teams, skipping",
				"date", req.Date,
			)
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

type generateRequest struct {
	Leagues   []string `json:"leagues,omitempty"`
	Date      string   `json:"date"`
	RiskLevel string   `json:"riskLevel,omitempty"`
}

type generateResponse struct {
	Predictions []prediction.Record `json:"predictions"`
}

func buildURL(baseURL, path string) string {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	path = strings.TrimSpace(path)
	if path == "" {
		return baseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return baseURL + path
}
