package usecase

import (
	"context"
	"time"

	"github.com/predtracker/predtracker/internal/domain/prediction"
)

// ResultSource is the authoritative results feed. One reconciliation run
// issues exactly one fetch covering the whole pending window.
type ResultSource interface {
	FetchResults(ctx context.Context, dateFrom, dateTo time.Time) ([]prediction.Candidate, error)
}

// DayResultSource is the best-effort fallback listing, scoped to one day.
type DayResultSource interface {
	FetchDay(ctx context.Context, date time.Time) ([]prediction.Candidate, error)
}

// GenerateRequest carries the inputs forwarded to the generation engine.
type GenerateRequest struct {
	Leagues   []string
	Date      string
	RiskLevel string
}

// Generator is the opaque prediction generation engine.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]prediction.Record, error)
}
