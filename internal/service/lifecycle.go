package service

import (
	"context"
	"fmt"

	"github.com/campusfix/dispatch/internal/models"
)

var transitions = map[models.AssignmentStatus][]models.AssignmentStatus{
	models.AssignmentPending:    {models.AssignmentAccepted, models.AssignmentCancelled},
	models.AssignmentAccepted:   {models.AssignmentInProgress, models.AssignmentCancelled},
	models.AssignmentInProgress: {models.AssignmentCompleted, models.AssignmentCancelled},
}

func CanTransition(from, to models.AssignmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ReportStatusFor is the report status that follows an assignment entering
// status to. ok is false when the report is left alone.
func ReportStatusFor(to models.AssignmentStatus) (models.ReportStatus, bool) {
	switch to {
	case models.AssignmentAccepted, models.AssignmentInProgress:
		return models.ReportInProgress, true
	case models.AssignmentCompleted:
		return models.ReportResolved, true
	}
	return "", false
}

type StatusUpdate struct {
	Status          models.AssignmentStatus `json:"status"`
	Notes           *string                 `json:"notes,omitempty"`
	CompletionNotes *string                 `json:"completion_notes,omitempty"`
	CompletionPhoto *string                 `json:"completion_photo,omitempty"`
}

// UpdateAssignmentStatus advances an assignment one step. Out-of-order
// transitions are rejected with ErrInvalidTransition and nothing is written:
// the status is deliberately not applied, so a skipped step never reaches the
// report or the technician's workload.
func (e *Engine) UpdateAssignmentStatus(ctx context.Context, assignmentID string, u StatusUpdate) (models.Assignment, error) {
	if !u.Status.Valid() {
		return models.Assignment{}, fmt.Errorf("%w: unknown status %q", ErrValidation, u.Status)
	}
	current, err := e.Store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return models.Assignment{}, err
	}
	if !CanTransition(current.Status, u.Status) {
		return current, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, u.Status)
	}

	now := e.now()
	patch := models.AssignmentPatch{Notes: u.Notes}
	switch u.Status {
	case models.AssignmentAccepted:
		patch.StartedAt = &now
	case models.AssignmentCompleted:
		patch.CompletedAt = &now
		patch.CompletionNotes = u.CompletionNotes
		patch.CompletionPhoto = u.CompletionPhoto
	case models.AssignmentCancelled:
		patch.CancelledAt = &now
	}

	updated, ok, err := e.Store.TransitionAssignment(ctx, assignmentID, current.Status, u.Status, patch)
	if err != nil {
		return models.Assignment{}, err
	}
	if !ok {
		return updated, fmt.Errorf("%w: assignment moved to %s concurrently", ErrInvalidTransition, updated.Status)
	}

	e.Logger.Info().
		Str("assignment_id", updated.ID).
		Str("report_id", updated.ReportID).
		Str("from", string(current.Status)).
		Str("to", string(updated.Status)).
		Msg("assignment status changed")

	reportStatus, propagate := ReportStatusFor(u.Status)
	if !propagate {
		return updated, nil
	}
	if err := e.Store.UpdateReportStatus(ctx, updated.ReportID, reportStatus, now); err != nil {
		return updated, err
	}

	if u.Status == models.AssignmentCompleted {
		report, err := e.Store.GetReport(ctx, updated.ReportID)
		if err != nil {
			e.Logger.Warn().Err(err).Str("report_id", updated.ReportID).Msg("load report for reporter notification")
			return updated, nil
		}
		if report.ReporterEmail != "" {
			details := "The issue you reported has been resolved."
			if updated.CompletionNotes != "" {
				details += " Technician notes: " + updated.CompletionNotes
			}
			e.notifyReporter(ctx, report, models.ReportResolved, details)
		}
	}
	return updated, nil
}
