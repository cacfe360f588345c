package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusfix/dispatch/internal/models"
	"github.com/campusfix/dispatch/internal/service"
)

// @Summary List assignments
// @Tags assignments
// @Produce json
// @Param technician_id query string false "Technician"
// @Param report_id query string false "Report"
// @Param status query string false "Comma-separated statuses"
// @Success 200 {object} map[string]any
// @Router /api/assignments [get]
func (h *Handler) ListAssignments(c *gin.Context) {
	f := models.AssignmentFilter{
		TechnicianID: strings.TrimSpace(c.Query("technician_id")),
		ReportID:     strings.TrimSpace(c.Query("report_id")),
	}
	for _, s := range queryList(c, "status") {
		status := models.AssignmentStatus(s)
		if !status.Valid() {
			writeError(c, http.StatusBadRequest, service.CodeValidation, "Unknown assignment status", s)
			return
		}
		f.Statuses = append(f.Statuses, status)
	}
	items, err := h.Engine.ListAssignments(c.Request.Context(), f)
	if err != nil {
		h.writeEngineError(c, "Failed to list assignments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type StatusRequest struct {
	Status          string  `json:"status" validate:"required,assignment_status"`
	Notes           *string `json:"notes" validate:"omitempty,max=2000"`
	CompletionNotes *string `json:"completion_notes" validate:"omitempty,max=4000"`
	CompletionPhoto *string `json:"completion_photo" validate:"omitempty,max=1024"`
}

// @Summary Change assignment status
// @Description pending -> accepted -> in_progress -> completed, or cancelled from any active status. Other moves are rejected with 409.
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param request body StatusRequest true "New status"
// @Success 200 {object} models.Assignment
// @Failure 409 {object} map[string]any
// @Router /api/assignments/{id}/status [patch]
func (h *Handler) UpdateAssignmentStatus(c *gin.Context) {
	var req StatusRequest
	if !h.bind(c, &req) {
		return
	}
	a, err := h.Engine.UpdateAssignmentStatus(c.Request.Context(), c.Param("id"), service.StatusUpdate{
		Status:          models.AssignmentStatus(req.Status),
		Notes:           req.Notes,
		CompletionNotes: req.CompletionNotes,
		CompletionPhoto: req.CompletionPhoto,
	})
	if err != nil {
		h.writeEngineError(c, "Status change rejected", err)
		return
	}
	c.JSON(http.StatusOK, a)
}
