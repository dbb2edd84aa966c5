// Package cache decorates repositories with the in-process TTL store.
// Reads are served through GetOrLoad so concurrent misses collapse into a
// single load; writes pass through and invalidate the affected keys.
package cache

import (
	"context"

	"github.com/predtracker/predtracker/internal/domain/prediction"
	basecache "github.com/predtracker/predtracker/internal/platform/cache"
)

const (
	dayListKey   = "day:list"
	dayByDateKey = "day:id:"
	dayByUserKey = "day:user:"
)

type DayRepository struct {
	next  prediction.Repository
	cache *basecache.Store
}

func NewDayRepository(next prediction.Repository, cache *basecache.Store) *DayRepository {
	return &DayRepository{next: next, cache: cache}
}

func (r *DayRepository) ListDays(ctx context.Context) ([]prediction.Day, error) {
	v, err := r.cache.GetOrLoad(ctx, dayListKey, func(ctx context.Context) (any, error) {
		days, err := r.next.ListDays(ctx)
		if err != nil {
			return nil, err
		}
		return cloneDays(days), nil
	})
	if err != nil {
		return nil, err
	}

	days, _ := v.([]prediction.Day)
	return cloneDays(days), nil
}

func (r *DayRepository) GetDay(ctx context.Context, date string) (prediction.Day, error) {
	v, err := r.cache.GetOrLoad(ctx, dayByDateKey+date, func(ctx context.Context) (any, error) {
		day, err := r.next.GetDay(ctx, date)
		if err != nil {
			return nil, err
		}
		return cloneDay(day), nil
	})
	if err != nil {
		return prediction.Day{}, err
	}

	day, _ := v.(prediction.Day)
	return cloneDay(day), nil
}

func (r *DayRepository) GetDaysByUser(ctx context.Context, userID string) ([]prediction.Day, error) {
	v, err := r.cache.GetOrLoad(ctx, dayByUserKey+userID, func(ctx context.Context) (any, error) {
		days, err := r.next.GetDaysByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return cloneDays(days), nil
	})
	if err != nil {
		return nil, err
	}

	days, _ := v.([]prediction.Day)
	return cloneDays(days), nil
}

func (r *DayRepository) AppendToDay(ctx context.Context, date string, records []prediction.Record) error {
	if err := r.next.AppendToDay(ctx, date, records); err != nil {
		return err
	}
	r.invalidateDay(ctx, date)
	return nil
}

func (r *DayRepository) ReplaceDay(ctx context.Context, date string, records []prediction.Record) error {
	if err := r.next.ReplaceDay(ctx, date, records); err != nil {
		return err
	}
	r.invalidateDay(ctx, date)
	return nil
}

func (r *DayRepository) invalidateDay(ctx context.Context, date string) {
	r.cache.Delete(ctx, dayByDateKey+date)
	r.cache.Delete(ctx, dayListKey)
	r.cache.DeletePrefix(ctx, dayByUserKey)
}

func cloneDay(day prediction.Day) prediction.Day {
	out := day
	out.Predictions = append([]prediction.Record(nil), day.Predictions...)
	return out
}

func cloneDays(days []prediction.Day) []prediction.Day {
	out := make([]prediction.Day, 0, len(days))
	for _, day := range days {
		out = append(out, cloneDay(day))
	}
	return out
}
