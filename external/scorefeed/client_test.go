package scorefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/predtracker/predtracker/internal/domain/prediction"
	"github.com/predtracker/predtracker/internal/platform/logging"
)

func testDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(prediction.DateLayout, value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return parsed
}

func TestFetchResults(t *testing.T) {
	var gotQuery atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"id":900,"home_team":"Arsenal","away_team":"Chelsea","home_score":3,"away_score":1,"status":"FT"},
			{"id":901,"home_team":"Lyon","away_team":"Lille","status":"POSTPONED"},
			{"id":0,"home_team":"Ghost","away_team":"Entry"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Token:   "secret-token",
		Logger:  logging.NewNop(),
	})

	candidates, err := client.FetchResults(context.Background(), testDate(t, "2024-05-01"), testDate(t, "2024-05-10"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("unexpected candidate count: got=%d want=%d", len(candidates), 2)
	}

	first := candidates[0]
	if first.MatchID != "900" || first.Status != prediction.StatusFinished {
		t.Fatalf("unexpected candidate: %+v", first)
	}
	if first.Scoreline() != "3-1" {
		t.Fatalf("unexpected scoreline: got=%q", first.Scoreline())
	}
	if candidates[1].Status != prediction.StatusPostponed {
		t.Fatalf("unexpected status: got=%s", candidates[1].Status)
	}

	query := gotQuery.Load().(string)
	for _, want := range []string{"date_from=2024-05-01", "date_to=2024-05-10", "api_token=secret-token"} {
		if !strings.Contains(query, want) {
			t.Fatalf("query missing %q: got=%q", want, query)
		}
	}
}

func TestFetchResultsValidatesRange(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://localhost:0", Logger: logging.NewNop()})

	if _, err := client.FetchResults(context.Background(), testDate(t, "2024-05-10"), testDate(t, "2024-05-01")); err == nil {
		t.Fatal("expected an error for an inverted range")
	}
	if _, err := client.FetchResults(context.Background(), time.Time{}, testDate(t, "2024-05-01")); err == nil {
		t.Fatal("expected an error for a missing bound")
	}
}

func TestFetchResultsRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":1,"home_team":"A","away_team":"B","status":"FT"}]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		MaxRetries: 2,
		Logger:     logging.NewNop(),
	})

	candidates, err := client.FetchResults(context.Background(), testDate(t, "2024-05-01"), testDate(t, "2024-05-01"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("unexpected candidate count: got=%d", len(candidates))
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one retry: got=%d calls", calls.Load())
	}
}

func TestFetchResultsDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"invalid token"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		MaxRetries: 3,
		Logger:     logging.NewNop(),
	})

	if _, err := client.FetchResults(context.Background(), testDate(t, "2024-05-01"), testDate(t, "2024-05-01")); err == nil {
		t.Fatal("expected an error")
	}
	if calls.Load() != 1 {
		t.Fatalf("client errors must not retry: got=%d calls", calls.Load())
	}
}

func TestSanitizeSensitiveText(t *testing.T) {
	out := sanitizeSensitiveText(`dial tcp: api_token=abc123 refused, token abc123`, "abc123")
	if strings.Contains(out, "abc123") {
		t.Fatalf("token leaked: %q", out)
	}

	url := redactAPIURL("https://api.example.com/matches?date_from=2024-05-01&api_token=abc123")
	if strings.Contains(url, "abc123") {
		t.Fatalf("token leaked in url: %q", url)
	}
}

func TestMapMatchStatus(t *testing.T) {
	cases := map[string]string{
		"FT":        prediction.StatusFinished,
		"finished":  prediction.StatusFinished,
		"POSTPONED": prediction.StatusPostponed,
		"CANC":      prediction.StatusCancelled,
		"1H":        prediction.StatusLive,
		"NS":        prediction.StatusScheduled,
		"":          prediction.StatusScheduled,
	}
	for raw, want := range cases {
		if got := mapMatchStatus(raw); got != want {
			t.Fatalf("mapMatchStatus(%q): got=%s want=%s", raw, got, want)
		}
	}
}
