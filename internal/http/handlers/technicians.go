package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusfix/dispatch/internal/models"
	"github.com/campusfix/dispatch/internal/service"
)

type TechnicianRequest struct {
	Name              string   `json:"name" validate:"required,max=200"`
	Email             string   `json:"email" validate:"omitempty,email"`
	Phone             string   `json:"phone" validate:"max=40"`
	Trade             string   `json:"trade" validate:"required,trade"`
	AssignedBuildings []string `json:"assigned_buildings" validate:"dive,campus_building"`
	// IsAvailable defaults to true when omitted.
	IsAvailable *bool `json:"is_available"`
}

func (r TechnicianRequest) input() service.TechnicianInput {
	available := true
	if r.IsAvailable != nil {
		available = *r.IsAvailable
	}
	return service.TechnicianInput{
		Name:              r.Name,
		Email:             r.Email,
		Phone:             r.Phone,
		Trade:             models.Trade(r.Trade),
		AssignedBuildings: r.AssignedBuildings,
		IsAvailable:       available,
	}
}

// @Summary List technicians
// @Tags technicians
// @Produce json
// @Param available query bool false "Only available technicians"
// @Success 200 {object} map[string]any
// @Router /api/technicians [get]
func (h *Handler) ListTechnicians(c *gin.Context) {
	items, err := h.Engine.ListTechnicians(c.Request.Context(), queryBool(c, "available"))
	if err != nil {
		h.writeEngineError(c, "Failed to list technicians", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary Technician details
// @Tags technicians
// @Produce json
// @Param id path string true "Technician ID"
// @Success 200 {object} models.Technician
// @Failure 404 {object} map[string]any
// @Router /api/technicians/{id} [get]
func (h *Handler) GetTechnician(c *gin.Context) {
	t, err := h.Engine.GetTechnician(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeEngineError(c, "Technician not found", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// @Summary Create technician
// @Tags technicians
// @Accept json
// @Produce json
// @Param technician body TechnicianRequest true "Technician"
// @Success 201 {object} models.Technician
// @Router /api/technicians [post]
func (h *Handler) CreateTechnician(c *gin.Context) {
	var req TechnicianRequest
	if !h.bind(c, &req) {
		return
	}
	t, err := h.Engine.CreateTechnician(c.Request.Context(), req.input())
	if err != nil {
		h.writeEngineError(c, "Failed to create technician", err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// @Summary Update technician
// @Tags technicians
// @Accept json
// @Produce json
// @Param id path string true "Technician ID"
// @Param technician body TechnicianRequest true "Technician"
// @Success 200 {object} models.Technician
// @Router /api/technicians/{id} [put]
func (h *Handler) UpdateTechnician(c *gin.Context) {
	var req TechnicianRequest
	if !h.bind(c, &req) {
		return
	}
	t, err := h.Engine.UpdateTechnician(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		h.writeEngineError(c, "Failed to update technician", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// @Summary Delete technician
// @Description Refused with 409 while the technician holds active assignments.
// @Tags technicians
// @Param id path string true "Technician ID"
// @Success 204
// @Failure 409 {object} map[string]any
// @Router /api/technicians/{id} [delete]
func (h *Handler) DeleteTechnician(c *gin.Context) {
	if err := h.Engine.DeleteTechnician(c.Request.Context(), c.Param("id")); err != nil {
		h.writeEngineError(c, "Failed to delete technician", err)
		return
	}
	c.Status(http.StatusNoContent)
}
