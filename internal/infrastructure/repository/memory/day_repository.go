package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/predtracker/predtracker/internal/domain/prediction"
	"github.com/predtracker/predtracker/internal/usecase"
)

// DayRepository is the in-memory day store used for tests and local runs.
type DayRepository struct {
	mu   sync.RWMutex
	days map[string]prediction.Day
}

func NewDayRepository() *DayRepository {
	return &DayRepository{days: make(map[string]prediction.Day)}
}

func (r *DayRepository) ListDays(_ context.Context) ([]prediction.Day, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]prediction.Day, 0, len(r.days))
	for _, day := range r.days {
		out = append(out, copyDay(day))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *DayRepository) GetDay(_ context.Context, date string) (prediction.Day, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day, ok := r.days[date]
	if !ok {
		return prediction.Day{}, fmt.Errorf("%w: day=%s", usecase.ErrNotFound, date)
	}
	return copyDay(day), nil
}

func (r *DayRepository) GetDaysByUser(ctx context.Context, userID string) ([]prediction.Day, error) {
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

func (r *DayRepository) AppendToDay(_ context.Context, date string, records []prediction.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	day := r.days[date]
	day.Date = date
	day.Predictions = append(day.Predictions, records...)
	r.days[date] = copyDay(day)
	return nil
}

func (r *DayRepository) ReplaceDay(_ context.Context, date string, records []prediction.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.days[date] = copyDay(prediction.Day{Date: date, Predictions: records})
	return nil
}

func copyDay(day prediction.Day) prediction.Day {
	records := make([]prediction.Record, len(day.Predictions))
	copy(records, day.Predictions)
	return prediction.Day{Date: day.Date, Predictions: records}
}
