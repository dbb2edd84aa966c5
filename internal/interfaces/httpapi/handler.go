package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/predtracker/predtracker/internal/platform/cache"
	"github.com/predtracker/predtracker/internal/usecase"
)

type Handler struct {
	predictionService *usecase.PredictionService
	statsService      *usecase.StatsService
	reconcileService  *usecase.ReconcileService
	statsCache        *cache.Store
	logger            *slog.Logger
	validator         *validator.Validate
}

func NewHandler(
	predictionService *usecase.PredictionService,
	statsService *usecase.StatsService,
	reconcileService *usecase.ReconcileService,
	statsCache *cache.Store,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		predictionService: predictionService,
		statsService:      statsService,
		reconcileService:  reconcileService,
		statsCache:        statsCache,
		logger:            logger,
		validator:         validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}
