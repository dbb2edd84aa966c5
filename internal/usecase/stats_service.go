package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/predtracker/predtracker/internal/domain/prediction"
)

// Stats is the derived accuracy summary over a prediction corpus. It is
// never stored; every read recomputes it from the persisted days.
type Stats struct {
	Total     int `json:"total"`
	Won       int `json:"won"`
	Lost      int `json:"lost"`
	Pending   int `json:"pending"`
	Postponed int `json:"postponed"`
	Accuracy  int `json:"accuracy"`
}

// StatsService recomputes aggregate accuracy, globally or per user. Both
// views run through the same computation, only the input set differs.
type StatsService struct {
	repo prediction.Repository
}

func NewStatsService(repo prediction.Repository) *StatsService {
	return &StatsService{repo: repo}
}

// ComputeStats aggregates the persisted corpus. An empty userID means the
// global view.
func (s *StatsService) ComputeStats(ctx context.Context, userID string) (Stats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StatsService.ComputeStats")
	defer span.End()

	userID = strings.TrimSpace(userID)

	var (
		days []prediction.Day
		err  error
	)
	if userID == "" {
		days, err = s.repo.ListDays(ctx)
	} else {
		days, err = s.repo.GetDaysByUser(ctx, userID)
	}
	if err != nil {
		return Stats{}, fmt.Errorf("load days: %w", err)
	}

	records := make([]prediction.Record, 0, len(days)*4)
	for _, day := range days {
		for _, record := range day.Predictions {
			if userID != "" && record.UserID != userID {
				continue
			}
			records = append(records, record)
		}
	}
	return ComputeStats(records), nil
}

// ComputeStats counts each record into exactly one bucket and derives the
// accuracy percentage: won over decided (total minus pending minus
// postponed), rounded, 0 when nothing is decided.
func ComputeStats(records []prediction.Record) Stats {
	stats := Stats{Total: len(records)}
	for _, record := range records {
		switch {
		case record.Result == prediction.ResultWon:
			stats.Won++
		case record.Result == prediction.ResultLost:
			stats.Lost++
		case record.Result == prediction.ResultPostponed:
			stats.Postponed++
		default:
			stats.Pending++
		}
	}

	decided := stats.Total - stats.Pending - stats.Postponed
	if decided > 0 {
		stats.Accuracy = int(math.Round(float64(stats.Won) / float64(decided) * 100))
	}
	return stats
}
