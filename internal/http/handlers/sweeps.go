package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusfix/dispatch/internal/models"
	"github.com/campusfix/dispatch/internal/service"
)

// Sweep returns a handler running one sweep kind. Per-item failures are in
// the actions list; only an unreachable store turns into a 500.
func (h *Handler) Sweep(kind models.SweepKind) gin.HandlerFunc {
	var run func(ctx context.Context) (service.SweepResult, error)
	switch kind {
	case models.SweepEscalation:
		run = h.Engine.RunEscalationSweep
	case models.SweepBatch:
		run = h.Engine.RunBatchSweep
	case models.SweepPreventive:
		run = h.Engine.RunPreventiveSweep
	default:
		panic("unknown sweep kind " + string(kind))
	}
	return func(c *gin.Context) {
		res, err := run(c.Request.Context())
		if err != nil {
			h.Logger.Error().Err(err).Str("sweep", string(kind)).Msg("sweep failed")
			writeError(c, http.StatusInternalServerError, service.Kind(err), "Sweep failed", res.Actions)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary Latest sweep run
// @Tags runs
// @Produce json
// @Param kind query string false "escalation, batch or preventive"
// @Success 200 {object} models.SweepRun
// @Failure 404 {object} map[string]any
// @Router /api/runs/latest [get]
func (h *Handler) RunsLatest(c *gin.Context) {
	kind := models.SweepKind(c.Query("kind"))
	switch kind {
	case "", models.SweepEscalation, models.SweepBatch, models.SweepPreventive:
	default:
		writeError(c, http.StatusBadRequest, service.CodeValidation, "Unknown sweep kind", string(kind))
		return
	}
	run, err := h.Engine.LatestRun(c.Request.Context(), kind)
	if err != nil {
		h.writeEngineError(c, "No runs found", err)
		return
	}
	c.JSON(http.StatusOK, run)
}
