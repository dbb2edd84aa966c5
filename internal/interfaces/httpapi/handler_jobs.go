package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	sonic "github.com/bytedance/sonic"

	"github.com/predtracker/predtracker/internal/usecase"
)

func (h *Handler) RunReconcileJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunReconcileJob")
	defer span.End()

	if h.reconcileService == nil {
		writeError(ctx, w, fmt.Errorf("%w: reconcile service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	result, err := h.reconcileService.Reconcile(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "reconcile job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	// A postponed-only run persists changes while reporting updatedCount 0,
	// so the status string is what signals a write-back.
	if h.statsCache != nil && result.Status == usecase.StatusSynchronized {
		h.statsCache.DeletePrefix(ctx, "stats:")
	}

	h.logger.InfoContext(ctx, "reconcile job finished",
		"updated_count", result.UpdatedCount,
		"status", result.Status,
	)
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunGenerateJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunGenerateJob")
	defer span.End()

	var req generateJobRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(ctx, w, fmt.Errorf("%w: decode request body: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	generated, err := h.predictionService.Generate(ctx, usecase.GenerateRequest{
		Leagues:   req.Leagues,
		Date:      req.Date,
		RiskLevel: req.RiskLevel,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "generate job failed", "date", req.Date, "error", err)
		writeError(ctx, w, err)
		return
	}

	if h.statsCache != nil && generated > 0 {
		h.statsCache.DeletePrefix(ctx, "stats:")
	}

	h.logger.InfoContext(ctx, "generate job finished", "date", req.Date, "generated", generated)
	writeSuccess(ctx, w, http.StatusOK, generateJobResponse{
		Generated: generated,
		Date:      req.Date,
	})
}
