package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/predtracker/predtracker/internal/domain/prediction"
	"github.com/predtracker/predtracker/internal/platform/id"
)

// PredictionService exposes day reads and the generation boundary. The
// generation engine itself is an external collaborator; this service only
// normalizes and appends what it returns.
type PredictionService struct {
	repo      prediction.Repository
	generator Generator
	ids       id.Generator
}

func NewPredictionService(repo prediction.Repository, generator Generator) *PredictionService {
	return &PredictionService{repo: repo, generator: generator, ids: id.NewRandomGenerator()}
}

func (s *PredictionService) ListDays(ctx context.Context) ([]prediction.Day, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.ListDays")
	defer span.End()

	days, err := s.repo.ListDays(ctx)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	return days, nil
}

func (s *PredictionService) GetDay(ctx context.Context, date string) (prediction.Day, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.GetDay")
	defer span.End()

	date = strings.TrimSpace(date)
	if _, err := prediction.ParseDate(date); err != nil {
		return prediction.Day{}, fmt.Errorf("%w: date must be YYYY-MM-DD: %v", ErrInvalidInput, err)
	}

	day, err := s.repo.GetDay(ctx, date)
	if err != nil {
		return prediction.Day{}, fmt.Errorf("get day %s: %w", date, err)
	}
	return day, nil
}

// Generate invokes the configured generation engine for one day and appends
// the returned predictions to that day's record, creating it if absent.
func (s *PredictionService) Generate(ctx context.Context, req GenerateRequest) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.Generate")
	defer span.End()

	if s.generator == nil {
		return 0, fmt.Errorf("%w: prediction generator is not configured", ErrDependencyUnavailable)
	}
	req.Date = strings.TrimSpace(req.Date)
	if _, err := prediction.ParseDate(req.Date); err != nil {
		return 0, fmt.Errorf("%w: date must be YYYY-MM-DD: %v", ErrInvalidInput, err)
	}

	generated, err := s.generator.Generate(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("generate predictions: %w", err)
	}
	if len(generated) == 0 {
		return 0, nil
	}

	records := make([]prediction.Record, 0, len(generated))
	for _, record := range generated {
		if strings.TrimSpace(record.ID) == "" {
			newID, idErr := s.ids.NewID()
			if idErr != nil {
				return 0, fmt.Errorf("assign prediction id: %w", idErr)
			}
			record.ID = newID
		}
		if strings.TrimSpace(record.MatchTime) == "" {
			record.MatchTime = req.Date
		}
		records = append(records, record.Normalize())
	}

	if err := s.repo.AppendToDay(ctx, req.Date, records); err != nil {
		return 0, fmt.Errorf("append to day %s: %w", req.Date, err)
	}
	return len(records), nil
}
