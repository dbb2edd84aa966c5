package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/predtracker/predtracker/internal/domain/prediction"
	"github.com/predtracker/predtracker/internal/platform/logging"
)

const (
	// StatusSynchronized is reported when at least one day was written back.
	StatusSynchronized = "synchronized"
	// StatusUpToDate is reported when the run found nothing to change.
	StatusUpToDate = "up to date"
)

// backlogWindowDays bounds how far back one run will reconcile. Older
// pending days are deferred to a later run instead of widening the
// authoritative query.
const backlogWindowDays = 60

// ReconcileResult is the outcome of one reconciliation run.
type ReconcileResult struct {
	UpdatedCount int    `json:"updatedCount"`
	Status       string `json:"status"`
}

// ReconcileService drives the periodic reconciliation batch: it resolves
// pending predictions against external results and persists changed days.
// It is the sole writer of result, score, and matchId fields.
type ReconcileService struct {
	repo        prediction.Repository
	results     ResultSource
	fallback    DayResultSource
	logger      *logging.Logger
	writeWorker int
	now         func() time.Time
}

func NewReconcileService(
	repo prediction.Repository,
	results ResultSource,
	fallback DayResultSource,
	logger *logging.Logger,
	writeWorkerCount int,
) *ReconcileService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReconcileService{
		repo:        repo,
		results:     results,
		fallback:    fallback,
		logger:      logger,
		writeWorker: normalizeWriteWorkerCount(writeWorkerCount),
		now:         time.Now,
	}
}

// fallbackDayState memoizes one day's fallback fetch so the scraped source
// is hit at most once per day per run, no matter how many predictions on
// that day missed the bulk pool.
type fallbackDayState struct {
	once sync.Once
	pool []prediction.Candidate
	err  error
}

// changedDay is a day whose recomputed prediction list differs from the
// persisted one, queued for write-back.
type changedDay struct {
	date        string
	records     []prediction.Record
	transitions int
}

// Reconcile runs one end-to-end batch. It is idempotent: a second run with
// no new upstream data reports updatedCount 0 and writes nothing.
func (s *ReconcileService) Reconcile(ctx context.Context) (ReconcileResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconcileService.Reconcile")
	defer span.End()

	days, err := s.repo.ListDays(ctx)
	if err != nil {
		return ReconcileResult{Status: StatusUpToDate}, fmt.Errorf("list days: %w", err)
	}

	pendingDays := s.pendingDays(ctx, days)
	if len(pendingDays) == 0 {
		return ReconcileResult{Status: StatusUpToDate}, nil
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	dateFrom := pendingDays[0].date
	if floor := today.AddDate(0, 0, -backlogWindowDays); dateFrom.Before(floor) {
		dateFrom = floor
	}
	if dateFrom.After(today) {
		// Every pending day is in the future. Nothing can resolve yet and
		// the window would be inverted, so skip the fetch entirely.
		return ReconcileResult{Status: StatusUpToDate}, nil
	}

	pool, err := s.results.FetchResults(ctx, dateFrom, today)
	if err != nil {
		return ReconcileResult{Status: StatusUpToDate}, fmt.Errorf("%w: fetch results %s..%s: %v",
			ErrDependencyUnavailable, dateFrom.Format(prediction.DateLayout), today.Format(prediction.DateLayout), err)
	}
	s.logger.InfoContext(ctx, "fetched authoritative results",
		"date_from", dateFrom.Format(prediction.DateLayout),
		"date_to", today.Format(prediction.DateLayout),
		"candidates", len(pool),
		"pending_days", len(pendingDays),
	)

	fallbackByDay := make(map[string]*fallbackDayState, len(pendingDays))
	var changed []changedDay
	for _, day := range pendingDays {
		if day.date.Before(dateFrom) {
			s.logger.InfoContext(ctx, "deferring pending day outside backlog window", "date", day.record.Date)
			continue
		}
		if updated, ok := s.reconcileDay(ctx, day.record, pool, fallbackByDay); ok {
			changed = append(changed, updated)
		}
	}

	if len(changed) == 0 {
		return ReconcileResult{Status: StatusUpToDate}, nil
	}

	updated, written := s.writeChangedDays(ctx, changed)
	if written == 0 {
		// Every write failed; nothing was persisted, so nothing changed.
		return ReconcileResult{Status: StatusUpToDate}, nil
	}
	return ReconcileResult{UpdatedCount: updated, Status: StatusSynchronized}, nil
}

type pendingDay struct {
	date   time.Time
	record prediction.Day
}

// pendingDays filters to days holding at least one pending prediction,
// ordered by date ascending. Days with unparseable dates are skipped.
func (s *ReconcileService) pendingDays(ctx context.Context, days []prediction.Day) []pendingDay {
	pending := make([]pendingDay, 0, len(days))
	for _, day := range days {
		if day.PendingCount() == 0 {
			continue
		}
		date, err := prediction.ParseDate(day.Date)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping day with invalid date", "date", day.Date, "error", err)
			continue
		}
		pending = append(pending, pendingDay{date: date, record: day})
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].date.Before(pending[j].date) })
	return pending
}

// reconcileDay recomputes one day's prediction list against the bulk pool,
// falling back to the day-scoped source for predictions the pool missed.
func (s *ReconcileService) reconcileDay(
	ctx context.Context,
	day prediction.Day,
	bulkPool []prediction.Candidate,
	fallbackByDay map[string]*fallbackDayState,
) (changedDay, bool) {
	records := make([]prediction.Record, len(day.Predictions))
	copy(records, day.Predictions)

	dayChanged := false
	transitions := 0
	for i, record := range records {
		if !record.IsPending() {
			continue
		}

		matched, ok := MatchCandidate(record, bulkPool)
		if !ok {
			matched, ok = MatchCandidate(record, s.fallbackPool(ctx, day.Date, fallbackByDay))
		}
		if !ok {
			continue
		}

		resolution := ResolveOutcome(record, matched)
		if resolution.Ambiguous {
			s.logger.WarnContext(ctx, "bet type not gradable, leaving prediction pending",
				"prediction_id", record.ID,
				"bet", record.Prediction,
				"match_id", matched.MatchID,
				"score", matched.Scoreline(),
			)
		}
		if resolution.Record.Equal(record) {
			continue
		}

		records[i] = resolution.Record
		dayChanged = true
		if record.IsPending() && resolution.Record.IsResolved() {
			transitions++
		}
	}

	if !dayChanged {
		return changedDay{}, false
	}
	return changedDay{date: day.Date, records: records, transitions: transitions}, true
}

// fallbackPool lazily fetches the fallback listing for one day, at most
// once per run. A fetch failure degrades that day to an empty pool.
func (s *ReconcileService) fallbackPool(ctx context.Context, date string, states map[string]*fallbackDayState) []prediction.Candidate {
	if s.fallback == nil {
		return nil
	}

	state, ok := states[date]
	if !ok {
		state = &fallbackDayState{}
		states[date] = state
	}

	state.once.Do(func() {
		parsed, err := prediction.ParseDate(date)
		if err != nil {
			state.err = err
			return
		}
		state.pool, state.err = s.fallback.FetchDay(ctx, parsed)
		if state.err != nil {
			s.logger.WarnContext(ctx, "fallback day fetch failed, day stays pending", "date", date, "error", state.err)
		}
	})
	if state.err != nil {
		return nil
	}
	return state.pool
}

// writeChangedDays replaces each changed day's full prediction list. Days
// are independent, so writes run on a small worker pool; one failed write
// degrades only that day.
func (s *ReconcileService) writeChangedDays(ctx context.Context, changed []changedDay) (updated, written int) {
	var updatedCount atomic.Int64
	var writtenCount atomic.Int64

	workerCount := s.writeWorker
	if workerCount > len(changed) {
		workerCount = len(changed)
	}
	pool, err := ants.NewPool(workerCount)
	if err != nil {
		// Pool setup failure falls back to sequential writes.
		for _, day := range changed {
			if s.writeDay(ctx, day) {
				updatedCount.Add(int64(day.transitions))
				writtenCount.Add(1)
			}
		}
		return int(updatedCount.Load()), int(writtenCount.Load())
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, day := range changed {
		day := day
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if s.writeDay(ctx, day) {
				updatedCount.Add(int64(day.transitions))
				writtenCount.Add(1)
			}
		})
		if submitErr != nil {
			wg.Done()
			if s.writeDay(ctx, day) {
				updatedCount.Add(int64(day.transitions))
				writtenCount.Add(1)
			}
		}
	}
	wg.Wait()

	return int(updatedCount.Load()), int(writtenCount.Load())
}

func (s *ReconcileService) writeDay(ctx context.Context, day changedDay) bool {
	if err := s.repo.ReplaceDay(ctx, day.date, day.records); err != nil {
		s.logger.ErrorContext(ctx, "write day failed, changes dropped until next run", "date", day.date, "error", err)
		return false
	}
	return true
}

func normalizeWriteWorkerCount(count int) int {
	if count < 2 {
		return 2
	}
	return count
}
