package usecase

import (
	"context"
	"testing"

	"github.com/predtracker/predtracker/internal/domain/prediction"
)

func TestComputeStatsFormula(t *testing.T) {
	t.Run("decided corpus", func(t *testing.T) {
		records := []prediction.Record{
			{Result: prediction.ResultWon},
			{Result: prediction.ResultWon},
			{Result: prediction.ResultWon},
			{Result: prediction.ResultLost},
			{Result: prediction.ResultPending},
			{Result: ""},
		}

		stats := ComputeStats(records)
		want := Stats{Total: 6, Won: 3, Lost: 1, Pending: 2, Postponed: 0, Accuracy: 75}
		if stats != want {
			t.Fatalf("unexpected stats: got=%+v want=%+v", stats, want)
		}
	})

	t.Run("all pending yields zero accuracy", func(t *testing.T) {
		records := make([]prediction.Record, 5)
		stats := ComputeStats(records)
		want := Stats{Total: 5, Pending: 5}
		if stats != want {
			t.Fatalf("unexpected stats: got=%+v want=%+v", stats, want)
		}
	})

	t.Run("postponed excluded from denominator", func(t *testing.T) {
		records := []prediction.Record{
			{Result: prediction.ResultWon},
			{Result: prediction.ResultLost},
			{Result: prediction.ResultLost},
			{Result: prediction.ResultPostponed},
		}

		stats := ComputeStats(records)
		if stats.Accuracy != 33 {
			t.Fatalf("unexpected accuracy: got=%d want=%d", stats.Accuracy, 33)
		}
	})

	t.Run("empty corpus", func(t *testing.T) {
		stats := ComputeStats(nil)
		if stats != (Stats{}) {
			t.Fatalf("unexpected stats: got=%+v", stats)
		}
	})
}

func TestStatsServiceComputeStats(t *testing.T) {
	repo := newFakeDayRepo(
		prediction.Day{
			Date: "2024-05-01",
			Predictions: []prediction.Record{
				{ID: "a", UserID: "u1", Result: prediction.ResultWon},
				{ID: "b", UserID: "u2", Result: prediction.ResultLost},
			},
		},
		prediction.Day{
			Date: "2024-05-02",
			Predictions: []prediction.Record{
				{ID: "c", UserID: "u1", Result: prediction.ResultWon},
				{ID: "d", UserID: "u1"},
			},
		},
	)
	service := NewStatsService(repo)

	t.Run("global", func(t *testing.T) {
		stats, err := service.ComputeStats(context.Background(), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := Stats{Total: 4, Won: 2, Lost: 1, Pending: 1, Accuracy: 67}
		if stats != want {
			t.Fatalf("unexpected stats: got=%+v want=%+v", stats, want)
		}
	})

	t.Run("per user", func(t *testing.T) {
		stats, err := service.ComputeStats(context.Background(), "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := Stats{Total: 3, Won: 2, Pending: 1, Accuracy: 100}
		if stats != want {
			t.Fatalf("unexpected stats: got=%+v want=%+v", stats, want)
		}
	})
}
