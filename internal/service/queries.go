package service

import (
	"context"

	"github.com/campusfix/dispatch/internal/export"
	"github.com/campusfix/dispatch/internal/models"
)

func (e *Engine) GetReport(ctx context.Context, id string) (models.Report, error) {
	return e.Store.GetReport(ctx, id)
}

func (e *Engine) ListReports(ctx context.Context, f models.ReportFilter) ([]models.Report, error) {
	return e.Store.ListReports(ctx, f)
}

// Duplicates lists the reports merged into a canonical report.
func (e *Engine) Duplicates(ctx context.Context, reportID string) ([]models.Report, error) {
	if _, err := e.Store.GetReport(ctx, reportID); err != nil {
		return nil, err
	}
	return e.Store.ListReports(ctx, models.ReportFilter{DuplicateOf: reportID})
}

func (e *Engine) GetAssignment(ctx context.Context, id string) (models.Assignment, error) {
	return e.Store.GetAssignment(ctx, id)
}

func (e *Engine) ListAssignments(ctx context.Context, f models.AssignmentFilter) ([]models.Assignment, error) {
	return e.Store.ListAssignments(ctx, f)
}

// OpenWork collects every unresolved canonical report with its active
// assignment, if any, for export.
func (e *Engine) OpenWork(ctx context.Context) ([]export.Row, error) {
	reports, err := e.Store.ListReports(ctx, models.ReportFilter{
		Statuses:      []models.ReportStatus{models.ReportSubmitted, models.ReportAnalyzing, models.ReportDispatched, models.ReportInProgress},
		CanonicalOnly: true,
	})
	if err != nil {
		return nil, err
	}
	techs, err := e.Store.ListTechnicians(ctx, false)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(techs))
	for _, t := range techs {
		names[t.ID] = t.Name
	}

	rows := make([]export.Row, 0, len(reports))
	for _, r := range reports {
		a, err := e.Store.ActiveAssignment(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		row := export.Row{Report: r, Assignment: a}
		if a != nil {
			row.Technician = names[a.TechnicianID]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (e *Engine) Ping(ctx context.Context) error {
	return e.Store.Ping(ctx)
}
