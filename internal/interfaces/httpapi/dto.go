package httpapi

import (
	"github.com/predtracker/predtracker/internal/domain/prediction"
)

type predictionDTO struct {
	ID         string `json:"id"`
	MatchID    string `json:"matchId,omitempty"`
	HomeTeam   string `json:"homeTeam"`
	AwayTeam   string `json:"awayTeam"`
	League     string `json:"league,omitempty"`
	MatchTime  string `json:"matchTime,omitempty"`
	Prediction string `json:"prediction"`
	Confidence int    `json:"confidence"`
	UserID     string `json:"userId,omitempty"`
	Result     string `json:"result"`
	Score      string `json:"score"`
}

type dayDTO struct {
	Date        string          `json:"date"`
	Predictions []predictionDTO `json:"predictions"`
}

type generateJobRequest struct {
	Leagues   []string `json:"leagues"`
	Date      string   `json:"date" validate:"required,datetime=2006-01-02"`
	RiskLevel string   `json:"riskLevel" validate:"omitempty,oneof=conservative balanced aggressive"`
}

type generateJobResponse struct {
	Generated int    `json:"generated"`
	Date      string `json:"date"`
}

func dayToDTO(day prediction.Day) dayDTO {
	items := make([]predictionDTO, 0, len(day.Predictions))
	for _, record := range day.Predictions {
		items = append(items, recordToDTO(record))
	}
	return dayDTO{Date: day.Date, Predictions: items}
}

func recordToDTO(record prediction.Record) predictionDTO {
	record = record.Normalize()
	return predictionDTO{
		ID:         record.ID,
		MatchID:    record.MatchID,
		HomeTeam:   record.HomeTeam,
		AwayTeam:   record.AwayTeam,
		League:     record.League,
		MatchTime:  record.MatchTime,
		Prediction: record.Prediction,
		Confidence: record.Confidence,
		UserID:     record.UserID,
		Result:     string(record.Result),
		Score:      record.Score,
	}
}
