package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusfix/dispatch/internal/db"
	"github.com/campusfix/dispatch/internal/models"
	"github.com/campusfix/dispatch/internal/notify"
)

// Assign scores every available technician against the report and binds the
// best one. The report status is untouched when no technician is available.
func (e *Engine) Assign(ctx context.Context, reportID string, by models.AssignedBy) (models.Assignment, error) {
	report, err := e.Store.GetReport(ctx, reportID)
	if err != nil {
		return models.Assignment{}, err
	}
	if err := assignable(report); err != nil {
		return models.Assignment{}, err
	}
	a, _, err := e.assignScored(ctx, report, by)
	return a, err
}

// AssignManual binds the named technician without scoring.
func (e *Engine) AssignManual(ctx context.Context, reportID, technicianID string) (models.Assignment, error) {
	report, err := e.Store.GetReport(ctx, reportID)
	if err != nil {
		return models.Assignment{}, err
	}
	if err := assignable(report); err != nil {
		return models.Assignment{}, err
	}
	tech, err := e.Store.GetTechnician(ctx, technicianID)
	if err != nil {
		return models.Assignment{}, err
	}
	a, err := e.bind(ctx, report, tech, models.AssignedByManager, "Manually assigned to "+tech.Name)
	if err != nil {
		return models.Assignment{}, err
	}
	e.notifyTechnician(ctx, tech, assignmentMessage(report, a))
	return a, nil
}

func assignable(r models.Report) error {
	if !r.Canonical() {
		return fmt.Errorf("%w: report %s is a duplicate of %s", ErrValidation, r.ID, *r.DuplicateOf)
	}
	if r.Status == models.ReportResolved {
		return fmt.Errorf("%w: report %s is already resolved", ErrValidation, r.ID)
	}
	return nil
}

func (e *Engine) assignScored(ctx context.Context, report models.Report, by models.AssignedBy) (models.Assignment, models.Technician, error) {
	techs, err := e.Store.ListTechnicians(ctx, true)
	if err != nil {
		return models.Assignment{}, models.Technician{}, err
	}
	if len(techs) == 0 {
		return models.Assignment{}, models.Technician{}, ErrNoAvailableTechnician
	}
	loads, err := e.Store.ActiveAssignmentCounts(ctx, technicianIDs(techs))
	if err != nil {
		return models.Assignment{}, models.Technician{}, err
	}

	ranked := RankTechnicians(e.Policy, techs, loads, report.Building, report.Trade)
	top := ranked[0]
	notes := "Auto-assigned: " + describeCandidate(top, report.Building, report.Trade)

	a, err := e.bind(ctx, report, top.Technician, by, notes)
	if err != nil {
		return models.Assignment{}, models.Technician{}, err
	}
	e.notifyTechnician(ctx, top.Technician, assignmentMessage(report, a))
	return a, top.Technician, nil
}

// bind creates a pending assignment and marks the report dispatched. It
// re-reads the report's active assignment immediately before writing; the
// store's uniqueness rule backs that check.
func (e *Engine) bind(ctx context.Context, report models.Report, tech models.Technician, by models.AssignedBy, notes string) (models.Assignment, error) {
	active, err := e.Store.ActiveAssignment(ctx, report.ID)
	if err != nil {
		return models.Assignment{}, err
	}
	if active != nil {
		return models.Assignment{}, fmt.Errorf("%w: %s", ErrAlreadyAssigned, active.ID)
	}

	now := e.now()
	a := models.Assignment{
		ReportID:     report.ID,
		TechnicianID: tech.ID,
		AssignedBy:   by,
		Status:       models.AssignmentPending,
		Notes:        notes,
		CreatedAt:    now,
	}
	if err := e.Store.CreateAssignment(ctx, &a); err != nil {
		if errors.Is(err, db.ErrActiveAssignmentExists) {
			return models.Assignment{}, ErrAlreadyAssigned
		}
		return models.Assignment{}, err
	}
	if err := e.Store.UpdateReportStatus(ctx, report.ID, models.ReportDispatched, now); err != nil {
		return a, err
	}

	e.Logger.Info().
		Str("report_id", report.ID).
		Str("assignment_id", a.ID).
		Str("technician_id", tech.ID).
		Str("assigned_by", string(by)).
		Msg("assignment created")
	return a, nil
}

func assignmentMessage(r models.Report, a models.Assignment) notify.TechnicianMessage {
	return notify.TechnicianMessage{
		Kind:      notify.KindAssignment,
		Subject:   fmt.Sprintf("New %s job: %s %s", r.Priority, r.Building, roomLabel(r)),
		Body:      fmt.Sprintf("%s\n\nSuggested action: %s\n%s", r.Description, r.SuggestedAction, a.Notes),
		ReportIDs: []string{r.ID},
	}
}

func roomLabel(r models.Report) string {
	switch {
	case r.Room != "" && r.Floor != "":
		return "floor " + r.Floor + ", room " + r.Room
	case r.Room != "":
		return "room " + r.Room
	case r.Floor != "":
		return "floor " + r.Floor
	}
	return "(no room given)"
}

func technicianIDs(techs []models.Technician) []string {
	ids := make([]string, 0, len(techs))
	for _, t := range techs {
		ids = append(ids, t.ID)
	}
	return ids
}
