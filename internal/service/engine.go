package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusfix/dispatch/internal/campus"
	"github.com/campusfix/dispatch/internal/classify"
	"github.com/campusfix/dispatch/internal/config"
	"github.com/campusfix/dispatch/internal/lock"
	"github.com/campusfix/dispatch/internal/models"
	"github.com/campusfix/dispatch/internal/notify"
)

// Store is the persistence the engines need. db.Store and db.MemoryStore both
// satisfy it.
type Store interface {
	Ping(ctx context.Context) error

	CreateReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, id string) (models.Report, error)
	ListReports(ctx context.Context, f models.ReportFilter) ([]models.Report, error)
	FindOpenCanonical(ctx context.Context, building string, trade models.Trade, since time.Time) (*models.Report, error)
	IncrementUpvotes(ctx context.Context, id string, at time.Time) (models.Report, error)
	UpdateReportUrgency(ctx context.Context, id string, score float64, at time.Time) error
	UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus, at time.Time) error
	HasPreventiveOrderSince(ctx context.Context, trade models.Trade, since time.Time) (bool, error)

	CreateTechnician(ctx context.Context, t *models.Technician) error
	GetTechnician(ctx context.Context, id string) (models.Technician, error)
	UpdateTechnician(ctx context.Context, t models.Technician) error
	DeleteTechnician(ctx context.Context, id string) error
	ListTechnicians(ctx context.Context, availableOnly bool) ([]models.Technician, error)
	ActiveAssignmentCounts(ctx context.Context, technicianIDs []string) (map[string]int, error)

	CreateAssignment(ctx context.Context, a *models.Assignment) error
	GetAssignment(ctx context.Context, id string) (models.Assignment, error)
	ActiveAssignment(ctx context.Context, reportID string) (*models.Assignment, error)
	ListAssignments(ctx context.Context, f models.AssignmentFilter) ([]models.Assignment, error)
	TransitionAssignment(ctx context.Context, id string, from, to models.AssignmentStatus, patch models.AssignmentPatch) (models.Assignment, bool, error)

	CreateRun(ctx context.Context, kind models.SweepKind, startedAt time.Time) (string, error)
	FinishRun(ctx context.Context, runID string, status string, summary []byte, finishedAt time.Time) error
	GetLatestRun(ctx context.Context, kind models.SweepKind) (models.SweepRun, error)
}

// Engine carries every dispatch operation. Policy is a value copy and is not
// changed after construction.
type Engine struct {
	Store    Store
	Notifier notify.Notifier
	Policy   config.Policy
	Logger   zerolog.Logger

	// Catalog, when set, restricts buildings to the campus list and fills
	// coordinates.
	Catalog    *campus.Catalog
	Classifier classify.Classifier
	Locker     lock.Locker
	LockTTL    time.Duration
	Now        func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *Engine) notifyTechnician(ctx context.Context, tech models.Technician, msg notify.TechnicianMessage) bool {
	if e.Notifier == nil {
		return true
	}
	if err := e.Notifier.NotifyTechnician(ctx, tech, msg); err != nil {
		e.Logger.Warn().Err(err).
			Str("technician_id", tech.ID).
			Str("kind", msg.Kind).
			Strs("report_ids", msg.ReportIDs).
			Msg("technician notification failed")
		return false
	}
	return true
}

func (e *Engine) notifyManager(ctx context.Context, msg notify.ManagerMessage) bool {
	if e.Notifier == nil {
		return true
	}
	if err := e.Notifier.NotifyManager(ctx, msg); err != nil {
		e.Logger.Warn().Err(err).
			Str("kind", msg.Kind).
			Strs("report_ids", msg.ReportIDs).
			Msg("manager notification failed")
		return false
	}
	return true
}

func (e *Engine) notifyReporter(ctx context.Context, report models.Report, status models.ReportStatus, details string) bool {
	if e.Notifier == nil {
		return true
	}
	if err := e.Notifier.NotifyReporter(ctx, report, status, details); err != nil {
		e.Logger.Warn().Err(err).
			Str("report_id", report.ID).
			Str("kind", notify.KindReportStatus).
			Msg("reporter notification failed")
		return false
	}
	return true
}
