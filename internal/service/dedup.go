package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusfix/dispatch/internal/campus"
	"github.com/campusfix/dispatch/internal/models"
)

// Draft is a normalized report submission, whoever produced it.
type Draft struct {
	Building        string          `json:"building"`
	Room            string          `json:"room"`
	Floor           string          `json:"floor"`
	Lat             *float64        `json:"lat,omitempty"`
	Lng             *float64        `json:"lng,omitempty"`
	Description     string          `json:"description"`
	SuggestedAction string          `json:"suggested_action"`
	PhotoRef        string          `json:"photo_ref"`
	Trade           models.Trade    `json:"trade"`
	Priority        models.Priority `json:"priority"`
	SafetyConcern   bool            `json:"safety_concern"`
	ReporterName    string          `json:"reporter_name"`
	ReporterEmail   string          `json:"reporter_email"`
}

type IntakeResult struct {
	Report     models.Report      `json:"report"`
	Duplicate  bool               `json:"duplicate"`
	OriginalID string             `json:"original_id,omitempty"`
	Assignment *models.Assignment `json:"assignment,omitempty"`
	// DispatchError holds the error code when the new canonical report could
	// not be assigned right away; escalation picks it up later.
	DispatchError string `json:"dispatch_error,omitempty"`
}

// Intake records a submission. A submission matching an open canonical report
// for the same building and trade inside the duplicate window upvotes that
// report and is stored as its duplicate; anything else becomes a new canonical
// report and is dispatched.
func (e *Engine) Intake(ctx context.Context, d Draft) (IntakeResult, error) {
	if err := e.normalizeDraft(&d); err != nil {
		return IntakeResult{}, err
	}
	now := e.now()

	original, err := e.Store.FindOpenCanonical(ctx, d.Building, d.Trade, now.Add(-e.Policy.DuplicateWindow))
	if err != nil {
		return IntakeResult{}, err
	}
	if original != nil {
		return e.recordDuplicate(ctx, d, *original)
	}

	report := draftReport(d, now)
	report.Status = models.ReportDispatched
	report.UpvoteCount = 1
	report.UrgencyScore = UrgencyScore(e.Policy, report.Priority, report.UpvoteCount, report.SafetyConcern)
	if err := e.Store.CreateReport(ctx, &report); err != nil {
		return IntakeResult{}, err
	}
	e.Logger.Info().
		Str("report_id", report.ID).
		Str("building", report.Building).
		Str("trade", string(report.Trade)).
		Msg("report created")

	res := IntakeResult{Report: report}
	a, _, err := e.assignScored(ctx, report, models.AssignedByAI)
	if err != nil {
		res.DispatchError = Kind(err)
		if errors.Is(err, ErrNoAvailableTechnician) {
			e.Logger.Warn().Str("report_id", report.ID).Msg("no available technician at intake")
		} else {
			e.Logger.Error().Err(err).Str("report_id", report.ID).Msg("dispatch at intake failed")
		}
		return res, nil
	}
	res.Assignment = &a
	return res, nil
}

func (e *Engine) recordDuplicate(ctx context.Context, d Draft, original models.Report) (IntakeResult, error) {
	now := e.now()
	upvoted, err := e.Store.IncrementUpvotes(ctx, original.ID, now)
	if err != nil {
		return IntakeResult{}, err
	}
	score := UrgencyScore(e.Policy, upvoted.Priority, upvoted.UpvoteCount, upvoted.SafetyConcern)
	if err := e.Store.UpdateReportUrgency(ctx, original.ID, score, now); err != nil {
		return IntakeResult{}, err
	}

	dup := draftReport(d, now)
	originalID := original.ID
	dup.DuplicateOf = &originalID
	dup.Status = models.ReportSubmitted
	dup.UpvoteCount = 0
	dup.UrgencyScore = 0
	if err := e.Store.CreateReport(ctx, &dup); err != nil {
		return IntakeResult{}, err
	}

	e.Logger.Info().
		Str("report_id", dup.ID).
		Str("original_id", original.ID).
		Int("upvotes", upvoted.UpvoteCount).
		Float64("urgency_score", score).
		Msg("duplicate report merged")
	return IntakeResult{Report: dup, Duplicate: true, OriginalID: original.ID}, nil
}

func draftReport(d Draft, now time.Time) models.Report {
	return models.Report{
		CreatedAt:       now,
		UpdatedAt:       now,
		Building:        d.Building,
		Room:            d.Room,
		Floor:           d.Floor,
		Lat:             d.Lat,
		Lng:             d.Lng,
		Description:     d.Description,
		SuggestedAction: d.SuggestedAction,
		PhotoRef:        d.PhotoRef,
		Trade:           d.Trade,
		Priority:        d.Priority,
		SafetyConcern:   d.SafetyConcern,
		ReporterName:    d.ReporterName,
		ReporterEmail:   d.ReporterEmail,
	}
}

// normalizeDraft checks the classification and resolves the building against
// the campus catalog: a draft with only coordinates is snapped to the nearest
// building, and a named building gets its coordinates filled in.
func (e *Engine) normalizeDraft(d *Draft) error {
	d.Building = strings.TrimSpace(d.Building)
	d.Room = strings.TrimSpace(d.Room)
	d.Floor = strings.TrimSpace(d.Floor)

	if !d.Trade.Valid() {
		return fmt.Errorf("%w: unknown trade %q", ErrValidation, d.Trade)
	}
	if !d.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, d.Priority)
	}
	if d.Trade == models.TradeSafetyHazard {
		d.SafetyConcern = true
	}

	if e.Catalog == nil {
		if d.Building == "" {
			return fmt.Errorf("%w: building is required", ErrValidation)
		}
		return nil
	}

	if d.Building == "" {
		if d.Lat == nil || d.Lng == nil {
			return fmt.Errorf("%w: building or coordinates are required", ErrValidation)
		}
		b, dist, ok := e.Catalog.Nearest(*d.Lat, *d.Lng)
		if !ok {
			return fmt.Errorf("%w: no campus building within %.0fm of the given coordinates (nearest %.0fm)", ErrValidation, campus.MaxSnapDistance, dist)
		}
		d.Building = b.Name
		return nil
	}

	b, ok := e.Catalog.Lookup(d.Building)
	if !ok {
		return fmt.Errorf("%w: unknown building %q", ErrValidation, d.Building)
	}
	if d.Lat == nil || d.Lng == nil {
		lat, lng := b.Lat, b.Lng
		d.Lat, d.Lng = &lat, &lng
	}
	return nil
}
