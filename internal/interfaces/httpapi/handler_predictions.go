package httpapi

import (
	"context"
	"net/http"

	"github.com/predtracker/predtracker/internal/usecase"
)

func (h *Handler) ListPredictionDays(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPredictionDays")
	defer span.End()

	days, err := h.predictionService.ListDays(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list prediction days failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]dayDTO, 0, len(days))
	for _, day := range days {
		items = append(items, dayToDTO(day))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetPredictionDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPredictionDay")
	defer span.End()

	date := r.PathValue("date")
	day, err := h.predictionService.GetDay(ctx, date)
	if err != nil {
		h.logger.WarnContext(ctx, "get prediction day failed", "date", date, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, dayToDTO(day))
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetStats")
	defer span.End()

	userID := r.URL.Query().Get("user")

	if h.statsCache == nil {
		stats, err := h.statsService.ComputeStats(ctx, userID)
		if err != nil {
			h.logger.ErrorContext(ctx, "compute stats failed", "user_id", userID, "error", err)
			writeError(ctx, w, err)
			return
		}
		writeSuccess(ctx, w, http.StatusOK, stats)
		return
	}

	cached, err := h.statsCache.GetOrLoad(ctx, statsCacheKey(userID), func(ctx context.Context) (any, error) {
		return h.statsService.ComputeStats(ctx, userID)
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "compute stats failed", "user_id", userID, "error", err)
		writeError(ctx, w, err)
		return
	}

	stats, ok := cached.(usecase.Stats)
	if !ok {
		writeInternalError(ctx, w)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, stats)
}

func statsCacheKey(userID string) string {
	if userID == "" {
		return "stats:global"
	}
	return "stats:user:" + userID
}
