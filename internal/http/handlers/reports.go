package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusfix/dispatch/internal/classify"
	"github.com/campusfix/dispatch/internal/export"
	"github.com/campusfix/dispatch/internal/models"
	"github.com/campusfix/dispatch/internal/service"
)

type ReportRequest struct {
	Building        string   `json:"building" validate:"omitempty,campus_building"`
	Room            string   `json:"room" validate:"max=32"`
	Floor           string   `json:"floor" validate:"max=16"`
	Lat             *float64 `json:"lat" validate:"omitempty,latitude"`
	Lng             *float64 `json:"lng" validate:"omitempty,longitude"`
	Description     string   `json:"description" validate:"required,max=4000"`
	SuggestedAction string   `json:"suggested_action" validate:"max=2000"`
	PhotoRef        string   `json:"photo_ref" validate:"max=1024"`
	Trade           string   `json:"trade" validate:"required,trade"`
	Priority        string   `json:"priority" validate:"required,priority"`
	SafetyConcern   bool     `json:"safety_concern"`
	ReporterName    string   `json:"reporter_name" validate:"max=200"`
	ReporterEmail   string   `json:"reporter_email" validate:"omitempty,email"`
}

func (r ReportRequest) draft() service.Draft {
	return service.Draft{
		Building:        r.Building,
		Room:            r.Room,
		Floor:           r.Floor,
		Lat:             r.Lat,
		Lng:             r.Lng,
		Description:     strings.TrimSpace(r.Description),
		SuggestedAction: r.SuggestedAction,
		PhotoRef:        r.PhotoRef,
		Trade:           models.Trade(r.Trade),
		Priority:        models.Priority(r.Priority),
		SafetyConcern:   r.SafetyConcern,
		ReporterName:    r.ReporterName,
		ReporterEmail:   r.ReporterEmail,
	}
}

// @Summary Submit a report
// @Description Records a classified report; merges it into an open report for the same building and trade when one exists, otherwise dispatches it.
// @Tags reports
// @Accept json
// @Produce json
// @Param report body ReportRequest true "Report draft"
// @Success 201 {object} service.IntakeResult
// @Success 200 {object} service.IntakeResult "merged as duplicate"
// @Failure 400 {object} map[string]any
// @Router /api/reports [post]
func (h *Handler) CreateReport(c *gin.Context) {
	var req ReportRequest
	if !h.bind(c, &req) {
		return
	}
	if req.Building == "" && (req.Lat == nil || req.Lng == nil) {
		writeError(c, http.StatusBadRequest, service.CodeValidation, "Validation failed", []string{"building: required unless lat and lng are given"})
		return
	}
	res, err := h.Engine.Intake(c.Request.Context(), req.draft())
	if err != nil {
		h.writeEngineError(c, "Failed to record report", err)
		return
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

type InboundEmailRequest struct {
	From    string `json:"from" validate:"omitempty,email"`
	Name    string `json:"name" validate:"max=200"`
	Subject string `json:"subject" validate:"required_without=Body,max=500"`
	Body    string `json:"body" validate:"required_without=Subject,max=20000"`
}

// @Summary Inbound email
// @Description Classifies a free-text maintenance email and runs it through intake.
// @Tags reports
// @Accept json
// @Produce json
// @Param email body InboundEmailRequest true "Email"
// @Success 201 {object} service.IntakeResult
// @Failure 400 {object} map[string]any
// @Router /api/inbound-email [post]
func (h *Handler) InboundEmail(c *gin.Context) {
	var req InboundEmailRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.Engine.IntakeEmail(c.Request.Context(), classify.Email{
		From:    req.From,
		Name:    req.Name,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		h.writeEngineError(c, "Failed to process email", err)
		return
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

// @Summary List reports
// @Tags reports
// @Produce json
// @Param status query string false "Comma-separated statuses"
// @Param building query string false "Building"
// @Param trade query string false "Trade"
// @Param canonical query bool false "Only canonical reports"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]any
// @Router /api/reports [get]
func (h *Handler) ListReports(c *gin.Context) {
	limit, offset := pageParams(c)
	f := models.ReportFilter{
		Building:      strings.TrimSpace(c.Query("building")),
		Trade:         models.Trade(strings.TrimSpace(c.Query("trade"))),
		CanonicalOnly: queryBool(c, "canonical"),
		Limit:         limit,
		Offset:        offset,
	}
	for _, s := range queryList(c, "status") {
		f.Statuses = append(f.Statuses, models.ReportStatus(s))
	}
	if f.Trade != "" && !f.Trade.Valid() {
		writeError(c, http.StatusBadRequest, service.CodeValidation, "Unknown trade", string(f.Trade))
		return
	}

	items, err := h.Engine.ListReports(c.Request.Context(), f)
	if err != nil {
		h.writeEngineError(c, "Failed to list reports", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
}

// @Summary Report details
// @Tags reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/reports/{id} [get]
func (h *Handler) GetReport(c *gin.Context) {
	ctx := c.Request.Context()
	report, err := h.Engine.GetReport(ctx, c.Param("id"))
	if err != nil {
		h.writeEngineError(c, "Report not found", err)
		return
	}
	assignments, err := h.Engine.ListAssignments(ctx, models.AssignmentFilter{ReportID: report.ID})
	if err != nil {
		h.writeEngineError(c, "Failed to load assignments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report, "assignments": assignments})
}

// @Summary Duplicates of a report
// @Tags reports
// @Produce json
// @Param id path string true "Canonical report ID"
// @Success 200 {object} map[string]any
// @Router /api/reports/{id}/duplicates [get]
func (h *Handler) Duplicates(c *gin.Context) {
	items, err := h.Engine.Duplicates(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeEngineError(c, "Failed to list duplicates", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type AssignRequest struct {
	TechnicianID string `json:"technician_id"`
}

// @Summary Assign a report
// @Description Without technician_id the best available technician is scored and bound; with it the technician is bound directly.
// @Tags reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param request body AssignRequest false "Optional technician"
// @Success 201 {object} models.Assignment
// @Failure 409 {object} map[string]any
// @Failure 422 {object} map[string]any
// @Router /api/reports/{id}/assign [post]
func (h *Handler) Assign(c *gin.Context) {
	var req AssignRequest
	if !h.bindOptional(c, &req) {
		return
	}

	ctx := c.Request.Context()
	var (
		a   models.Assignment
		err error
	)
	if id := strings.TrimSpace(req.TechnicianID); id != "" {
		a, err = h.Engine.AssignManual(ctx, c.Param("id"), id)
	} else {
		a, err = h.Engine.Assign(ctx, c.Param("id"), models.AssignedByManager)
	}
	if err != nil {
		h.writeEngineError(c, "Assignment failed", err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// @Summary Export open work
// @Description Spreadsheet of every unresolved canonical report with its active assignment.
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /api/reports/export [get]
func (h *Handler) ExportOpenWork(c *gin.Context) {
	rows, err := h.Engine.OpenWork(c.Request.Context())
	if err != nil {
		h.writeEngineError(c, "Failed to load open work", err)
		return
	}
	generated := h.now()
	var buf bytes.Buffer
	if err := export.OpenWork(&buf, rows, generated); err != nil {
		h.Logger.Error().Err(err).Msg("export open work")
		writeError(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to build workbook", err.Error())
		return
	}
	filename := "open-work-" + generated.Format("20060102-1504") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// @Summary Campus buildings
// @Description Building catalog as a GeoJSON FeatureCollection.
// @Tags campus
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/buildings [get]
func (h *Handler) Buildings(c *gin.Context) {
	if h.Catalog == nil {
		c.JSON(http.StatusOK, gin.H{"type": "FeatureCollection", "features": []any{}})
		return
	}
	c.JSON(http.StatusOK, h.Catalog.FeatureCollection())
}
