package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/predtracker/predtracker/internal/domain/prediction"
	"github.com/predtracker/predtracker/internal/platform/logging"
)

type fakeDayRepo struct {
	mu           sync.Mutex
	days         map[string]prediction.Day
	replaceCalls map[string]int
	failReplace  map[string]error
}

func newFakeDayRepo(days ...prediction.Day) *fakeDayRepo {
	repo := &fakeDayRepo{
		days:         make(map[string]prediction.Day, len(days)),
		replaceCalls: make(map[string]int),
		failReplace:  make(map[string]error),
	}
	for _, day := range days {
		repo.days[day.Date] = day
	}
	return repo
}

func (r *fakeDayRepo) ListDays(_ context.Context) ([]prediction.Day, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]prediction.Day, 0, len(r.days))
	for _, day := range r.days {
		out = append(out, copyDay(day))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *fakeDayRepo) GetDay(_ context.Context, date string) (prediction.Day, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	day, ok := r.days[date]
	if !ok {
		return prediction.Day{}, fmt.Errorf("%w: day=%s", ErrNotFound, date)
	}
	return copyDay(day), nil
}

func (r *fakeDayRepo) GetDaysByUser(ctx context.Context, userID string) ([]prediction.Day, error) {
	days, err := r.ListDays(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]prediction.Day, 0, len(days))
	for _, day := range days {
		for _, record := range day.Predictions {
			if record.UserID == userID {
				out = append(out, day)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeDayRepo) AppendToDay(_ context.Context, date string, records []prediction.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	day := r.days[date]
	day.Date = date
	day.Predictions = append(day.Predictions, records...)
	r.days[date] = day
	return nil
}

func (r *fakeDayRepo) ReplaceDay(_ context.Context, date string, records []prediction.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.replaceCalls[date]++
	if err := r.failReplace[date]; err != nil {
		return err
	}
	r.days[date] = copyDay(prediction.Day{Date: date, Predictions: records})
	return nil
}

func (r *fakeDayRepo) snapshot() map[string]prediction.Day {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]prediction.Day, len(r.days))
	for date, day := range r.days {
		out[date] = copyDay(day)
	}
	return out
}

func copyDay(day prediction.Day) prediction.Day {
	records := make([]prediction.Record, len(day.Predictions))
	copy(records, day.Predictions)
	return prediction.Day{Date: day.Date, Predictions: records}
}

type stubResultSource struct {
	mu       sync.Mutex
	pool     []prediction.Candidate
	err      error
	calls    int
	lastFrom time.Time
	lastTo   time.Time
}

func (s *stubResultSource) FetchResults(_ context.Context, dateFrom, dateTo time.Time) ([]prediction.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.lastFrom, s.lastTo = dateFrom, dateTo
	if s.err != nil {
		return nil, s.err
	}
	return s.pool, nil
}

type stubDaySource struct {
	mu    sync.Mutex
	pools map[string][]prediction.Candidate
	err   error
	calls map[string]int
}

func (s *stubDaySource) FetchDay(_ context.Context, date time.Time) ([]prediction.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := date.Format(prediction.DateLayout)
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[key]++
	if s.err != nil {
		return nil, s.err
	}
	return s.pools[key], nil
}

func newTestReconcileService(repo prediction.Repository, results ResultSource, fallback DayResultSource, today string) *ReconcileService {
	service := NewReconcileService(repo, results, fallback, logging.NewNop(), 2)
	service.now = func() time.Time {
		parsed, err := time.Parse(prediction.DateLayout, today)
		if err != nil {
			panic(err)
		}
		return parsed.UTC()
	}
	return service
}

func TestReconcileEndToEnd(t *testing.T) {
	repo := newFakeDayRepo(prediction.Day{
		Date: "2024-05-01",
		Predictions: []prediction.Record{
			{ID: "p1", HomeTeam: "Arsenal", AwayTeam: "Chelsea", Prediction: "Over 2.5 Goals", Result: prediction.ResultPending, Score: prediction.UnresolvedScore},
		},
	})
	results := &stubResultSource{pool: []prediction.Candidate{
		{MatchID: "900", HomeTeam: "Arsenal", AwayTeam: "Chelsea", HomeScore: 3, AwayScore: 1, Status: prediction.StatusFinished},
	}}
	service := newTestReconcileService(repo, results, &stubDaySource{}, "2024-05-10")

	result, err := service.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("unexpected updated count: got=%d want=%d", result.UpdatedCount, 1)
	}
	if result.Status != StatusSynchronized {
		t.Fatalf("unexpected status: got=%q want=%q", result.Status, StatusSynchronized)
	}

	day, err := repo.GetDay(context.Background(), "2024-05-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	record := day.Predictions[0]
	if record.Result != prediction.ResultWon {
		t.Fatalf("unexpected result: got=%s want=%s", record.Result, prediction.ResultWon)
	}
	if record.Score != "3-1" {
		t.Fatalf("unexpected score: got=%q want=%q", record.Score, "3-1")
	}
	if record.MatchID != "900" {
		t.Fatalf("unexpected match id: got=%q want=%q", record.MatchID, "900")
	}
	if results.calls != 1 {
		t.Fatalf("expected exactly one bulk fetch: got=%d", results.calls)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	repo := newFakeDayRepo(prediction.Day{
		Date: "2024-05-01",
		Predictions: []prediction.Record{
			{ID: "p1", HomeTeam: "Arsenal", AwayTeam: "Chelsea", Prediction: "Over 2.5 Goals", Result: prediction.ResultPending, Score: prediction.UnresolvedScore},
		},
	})
	results := &stubResultSource{pool: []prediction.Candidate{
		{MatchID: "900", HomeTeam: "Arsenal", AwayTeam: "Chelsea", HomeScore: 3, AwayScore: 1, Status: prediction.StatusFinished},
	}}
	service := newTestReconcileService(repo, results, &stubDaySource{}, "2024-05-10")

	if _, err := service.Reconcile(context.Background()); err != nil {
		t.Fatalf("unexpected error on first run: %v", err)
	}
	before := repo.snapshot()

	second, err := service.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error on second run: %v", err)
	}
	if second.UpdatedCount != 0 {
		t.Fatalf("second run must not update: got=%d", second.UpdatedCount)
	}
	if second.Status != StatusUpToDate {
		t.Fatalf("unexpected status: got=%q want=%q", second.Status, StatusUpToDate)
	}
	if !reflect.DeepEqual(before, repo.snapshot()) {
		t.Fatal("second run must leave the store unchanged")
	}
}

func TestReconcileWindowClamping(t *testing.T) {
	repo := newFakeDayRepo(prediction.Day{
		Date: "2024-01-01",
		Predictions: []prediction.Record{
			{ID: "p1", HomeTeam: "Arsenal", AwayTeam: "Chelsea", Prediction: "Home Win", Result: prediction.ResultPending, Score: prediction.UnresolvedScore},
		},
	})
	results := &stubResultSource{pool: []prediction.Candidate{
		{MatchID: "900", HomeTeam: "Arsenal", AwayTeam: "Chelsea", HomeScore: 1, AwayScore: 0, Status: prediction.StatusFinished},
	}}
	service := newTestReconcileService(repo, results, &stubDaySource{}, "2024-05-10")

	result, err := service.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantFrom := "2024-03-11" // 60 days before 2024-05-10
	if got := results.lastFrom.Format(prediction.DateLayout); got != wantFrom {
		t.Fatalf("unexpected window start: got=%s want=%s", got, wantFrom)
	}
	if got := results.lastTo.Format(prediction.DateLayout); got != "2024-05-10" {
		t.Fatalf("unexpected window end: got=%s", got)
	}

	// The stale day sits outside the clamped window, so it is deferred even
	// though the pool carries its match.
	if result.UpdatedCount != 0 {
		t.Fatalf("deferred day must not update: got=%d", result.UpdatedCount)
	}
	if repo.replaceCalls["2024-01-01"] != 0 {
		t.Fatal("deferred day must not be written")
	}
}

func TestReconcileFutureOnlyPendingDaysUpToDate(t *testing.T) {
	// Right after generation the only pending day is tomorrow's. The window
	// would be inverted, so the run must report up to date without fetching.
	repo := newFakeDayRepo(prediction.Day{
		Date: "2024-05-11",
		Predictions: []prediction.Record{
			{ID: "p1", HomeTeam: "Arsenal", AwayTeam: "Chelsea", Prediction: "Home Win", Result: prediction.ResultPending, Score: prediction.UnresolvedScore},
		},
	})
	results := &stubResultSource{err: errors.New("must not be called")}
	service := newTestReconcileService(repo, results, &stubDaySource{}, "2024-05-10")

	result, err := service.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UpdatedCount != 0 || result.Status != StatusUpToDate {
		t.Fatalf("unexpected result: got=%+v", result)
	}
	if results.calls != 0 {
		t.Fatalf("future-only pending days must not trigger a fetch: got=%d calls", results.calls)
	}
	if repo.replaceCalls["2024-05-11"] != 0 {
		t.Fatal("future day must not be written")
	}
}

func TestReconcileFallbackInvokedOncePerDay(t *testing.T) {
	repo := newFakeDayRepo(prediction.Day{
		Date: "2024-05-01",
		Predictions: []prediction.Record{
			{ID: "p1", HomeTeam: "Lyon", AwayTeam: "Lille", Prediction: "Home Win", Result: prediction.ResultPending, Score: prediction.UnresolvedScore},
			{ID: "p2", HomeTeam: "Nice", AwayTeam: "Lens", Prediction: "Away Win", Result: prediction.ResultPending, Score: prediction.UnresolvedScore},
			{ID: "p3", HomeTeam: "Metz", AwayTeam: "Brest", Prediction: "Draw", Result: prediction.ResultPending, Score: prediction.UnresolvedScore},
		},
	})
	results := &stubResultSource{}
	fallback := &stubDaySource{pools: map[string][]prediction.Candidate{
		"2024-05-01": {
			{MatchID: "50", HomeTeam: "Lyon", AwayTeam: "Lille", HomeScore: 2, AwayScore: 0, Status: prediction.StatusFinished},
			{MatchID: "51", HomeTeam: "Nice", AwayTeam: "Lens", HomeScore: 0, AwayScore: 1, Status: prediction.StatusFinished},
		},
	}}
	service := newTestReconcileService(repo, results, fallback, "2024-05-10")

	result, err := service.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UpdatedCount != 2 {
		t.Fatalf("unexpected updated count: got=%d want=%d", result.UpdatedCount, 2)
	}
	if got := fallback.calls["2024-05-01"]; got != 1 {
		t.Fatalf("fallback must run at most once per day: got=%d calls", got)
	}

	day, _ := repo.GetDay(context.Background(), "2024-05-01")
	if day.Predictions[2].Result != prediction.ResultPending {
		t.Fatalf("unmatched prediction must stay pending: got=%s", day.Predictions[2].Result)
	}
}

func TestReconcileFallbackFailureDegradesDayOnly(t *testing.T) {
	repo := newFakeDayRepo(
		prediction.Day{
			Date: "2024-05-01",
			Predictions: []prediction.Record{
				{ID: "p1", HomeTeam: "Lyon", AwayTeam: "Lille", Prediction: "Home Win", Result: prediction.ResultPending, Score: prediction.UnresolvedScore},
			},
		},
		prediction.Day{
			Date: "2024-05-02",
			Predictions: []prediction.Record{
				{ID: "p2", HomeTeam: "Arsenal", AwayTeam: "Chelsea", Prediction: "Over 2.5 Goals", Result: prediction.ResultPending, Score: prediction.UnresolvedScore},
			},
		},
	)
	results := &stubResultSource{pool: []prediction.Candidate{
		{MatchID: "900", HomeTeam: "Arsenal", AwayTeam: "Chelsea", HomeScore: 3, AwayScore: 1, Status: prediction.StatusFinished},
	}}
	fallback := &stubDaySource{err: errors.New("listing unavailable")}
	service := newTestReconcileService(repo, results, fallback, "2024-05-10")

	result, err := service.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("fallback failure must not abort the run: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("unexpected updated count: got=%d want=%d", result.UpdatedCount, 1)
	}

	degraded, _ := repo.GetDay(context.Background(), "2024-05-01")
	if degraded.Predictions[0].Result != prediction.ResultPending {
		t.Fatalf("degraded day must stay pending: got=%s", degraded.Predictions[0].Result)
	}
}

func TestReconcileAuthoritativeFailureIsFatal(t *testing.T) {
	repo := newFakeDayRepo(prediction.Day{
		Date: "2024-05-01",
		Predictions: []prediction.Record{
			{ID: "p1", HomeTeam: "Arsenal", AwayTeam: "Chelsea", Prediction: "Home Win", Result: prediction.ResultPending, Score: prediction.UnresolvedScore},
		},
	})
	results := &stubResultSource{err: errors.New("upstream 503")}
	service := newTestReconcileService(repo, results, &stubDaySource{}, "2024-05-10")

	before := repo.snapshot()
	_, err := service.Reconcile(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected dependency error, got: %v", err)
	}
	if !reflect.DeepEqual(before, repo.snapshot()) {
		t.Fatal("a fatal fetch failure must not write anything")
	}
}

func TestReconcilePostponedCountsAsChangeNotUpdate(t *testing.T) {
	repo := newFakeDayRepo(prediction.Day{
		Date: "2024-05-01",
		Predictions: []prediction.Record{
			{ID: "p1", HomeTeam: "Arsenal", AwayTeam: "Chelsea", Prediction: "Home Win", Result: prediction.ResultPending, Score: prediction.UnresolvedScore},
		},
	})
	results := &stubResultSource{pool: []prediction.Candidate{
		{MatchID: "900", HomeTeam: "Arsenal", AwayTeam: "Chelsea", Status: prediction.StatusPostponed},
	}}
	service := newTestReconcileService(repo, results, &stubDaySource{}, "2024-05-10")

	result, err := service.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UpdatedCount != 0 {
		t.Fatalf("postponement must not count as an update: got=%d", result.UpdatedCount)
	}
	if result.Status != StatusSynchronized {
		t.Fatalf("postponement is still a persisted change: got=%q", result.Status)
	}

	day, _ := repo.GetDay(context.Background(), "2024-05-01")
	if day.Predictions[0].Result != prediction.ResultPostponed {
		t.Fatalf("unexpected result: got=%s", day.Predictions[0].Result)
	}
	if repo.replaceCalls["2024-05-01"] != 1 {
		t.Fatalf("postponed day must be written once: got=%d", repo.replaceCalls["2024-05-01"])
	}
}

func TestReconcileNoPendingDaysShortCircuits(t *testing.T) {
	repo := newFakeDayRepo(prediction.Day{
		Date: "2024-05-01",
		Predictions: []prediction.Record{
			{ID: "p1", Result: prediction.ResultWon, Score: "2-0"},
		},
	})
	results := &stubResultSource{}
	service := newTestReconcileService(repo, results, &stubDaySource{}, "2024-05-10")

	result, err := service.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UpdatedCount != 0 || result.Status != StatusUpToDate {
		t.Fatalf("unexpected result: got=%+v", result)
	}
	if results.calls != 0 {
		t.Fatalf("no pending days must mean no upstream fetch: got=%d calls", results.calls)
	}
}

func TestReconcileWriteFailureDegradesDayOnly(t *testing.T) {
	repo := newFakeDayRepo(
		prediction.Day{
			Date: "2024-05-01",
			Predictions: []prediction.Record{
				{ID: "p1", HomeTeam: "Lyon", AwayTeam: "Lille", Prediction: "Home Win", Result: prediction.ResultPending, Score: prediction.UnresolvedScore},
			},
		},
		prediction.Day{
			Date: "2024-05-02",
			Predictions: []prediction.Record{
				{ID: "p2", HomeTeam: "Arsenal", AwayTeam: "Chelsea", Prediction: "Over 2.5 Goals", Result: prediction.ResultPending, Score: prediction.UnresolvedScore},
			},
		},
	)
	repo.failReplace["2024-05-01"] = errors.New("write timeout")
	results := &stubResultSource{pool: []prediction.Candidate{
		{MatchID: "800", HomeTeam: "Lyon", AwayTeam: "Lille", HomeScore: 2, AwayScore: 0, Status: prediction.StatusFinished},
		{MatchID: "900", HomeTeam: "Arsenal", AwayTeam: "Chelsea", HomeScore: 3, AwayScore: 1, Status: prediction.StatusFinished},
	}}
	service := newTestReconcileService(repo, results, &stubDaySource{}, "2024-05-10")

	result, err := service.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("a single write failure must not abort the run: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("only persisted transitions count: got=%d want=%d", result.UpdatedCount, 1)
	}

	lost, _ := repo.GetDay(context.Background(), "2024-05-01")
	if lost.Predictions[0].Result != prediction.ResultPending {
		t.Fatalf("failed day must keep its prior state: got=%s", lost.Predictions[0].Result)
	}
}

func TestReconcileMonotonicEnrichment(t *testing.T) {
	// A resolved record must survive later runs untouched even when the
	// pool no longer carries its match.
	repo := newFakeDayRepo(prediction.Day{
		Date: "2024-05-01",
		Predictions: []prediction.Record{
			{ID: "p1", MatchID: "900", HomeTeam: "Arsenal", AwayTeam: "Chelsea", Prediction: "Home Win", Result: prediction.ResultWon, Score: "3-1"},
			{ID: "p2", HomeTeam: "Lyon", AwayTeam: "Lille", Prediction: "Home Win", Result: prediction.ResultPending, Score: prediction.UnresolvedScore},
		},
	})
	results := &stubResultSource{pool: []prediction.Candidate{
		{MatchID: "800", HomeTeam: "Lyon", AwayTeam: "Lille", HomeScore: 1, AwayScore: 0, Status: prediction.StatusFinished},
	}}
	service := newTestReconcileService(repo, results, &stubDaySource{}, "2024-05-10")

	if _, err := service.Reconcile(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	day, _ := repo.GetDay(context.Background(), "2024-05-01")
	resolved := day.Predictions[0]
	if resolved.Result != prediction.ResultWon || resolved.Score != "3-1" || resolved.MatchID != "900" {
		t.Fatalf("resolved record must never regress: got=%+v", resolved)
	}
}
