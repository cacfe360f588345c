package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusfix/dispatch/internal/models"
)

func acDraft() Draft {
	return Draft{
		Building:    "Gore Hall",
		Room:        "204",
		Floor:       "2",
		Description: "AC blowing warm air",
		Trade:       models.TradeHVAC,
		Priority:    models.PriorityHigh,
	}
}

func TestIntakeMergesDuplicatesWithinWindow(t *testing.T) {
	f := newFixture(t)
	f.addTechnician(t, "t1", models.TradeHVAC, "Gore Hall")
	ctx := context.Background()

	first, err := f.engine.Intake(ctx, acDraft())
	if err != nil {
		t.Fatalf("first intake: %v", err)
	}
	if first.Duplicate || first.Assignment == nil {
		t.Fatalf("expected a dispatched canonical report, got %+v", first)
	}

	f.clock.Advance(2 * time.Hour)
	second, err := f.engine.Intake(ctx, acDraft())
	if err != nil {
		t.Fatalf("second intake: %v", err)
	}
	if !second.Duplicate || second.OriginalID != first.Report.ID {
		t.Fatalf("expected duplicate of %s, got %+v", first.Report.ID, second)
	}
	if second.Report.UpvoteCount != 0 || second.Report.UrgencyScore != 0 || second.Report.Status != models.ReportSubmitted {
		t.Fatalf("unexpected duplicate row %+v", second.Report)
	}
	if second.Report.DuplicateOf == nil || *second.Report.DuplicateOf != first.Report.ID {
		t.Fatalf("expected duplicate_of set")
	}

	original := f.report(t, first.Report.ID)
	if original.UpvoteCount != 2 {
		t.Fatalf("expected 2 upvotes, got %d", original.UpvoteCount)
	}
	if original.UrgencyScore != 10 {
		t.Fatalf("expected urgency 7 + 2*1.5 = 10, got %v", original.UrgencyScore)
	}

	canonical, _ := f.store.ListReports(ctx, models.ReportFilter{CanonicalOnly: true})
	if len(canonical) != 1 {
		t.Fatalf("expected one canonical report, got %d", len(canonical))
	}
	if n := len(f.assignments(t, models.AssignmentFilter{})); n != 1 {
		t.Fatalf("duplicate must not dispatch again, got %d assignments", n)
	}

	if err := f.store.UpdateReportStatus(ctx, first.Report.ID, models.ReportResolved, f.clock.now); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	third, err := f.engine.Intake(ctx, acDraft())
	if err != nil {
		t.Fatalf("third intake: %v", err)
	}
	if third.Duplicate {
		t.Fatalf("report after resolution must not merge")
	}
}

func TestIntakeDuplicateWindowBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hvac := f.addReport(t, models.Report{Building: "Gore Hall", Trade: models.TradeHVAC, CreatedAt: t0})
	f.addReport(t, models.Report{Building: "Gore Hall", Trade: models.TradePlumbing, CreatedAt: t0})

	f.clock.now = t0.Add(7 * 24 * time.Hour)
	res, err := f.engine.Intake(ctx, acDraft())
	if err != nil {
		t.Fatalf("intake on day 7: %v", err)
	}
	if !res.Duplicate || res.OriginalID != hvac.ID {
		t.Fatalf("expected merge on day 7, got %+v", res)
	}

	f.clock.now = t0.Add(8 * 24 * time.Hour)
	d := acDraft()
	d.Trade = models.TradePlumbing
	res, err = f.engine.Intake(ctx, d)
	if err != nil {
		t.Fatalf("intake on day 8: %v", err)
	}
	if res.Duplicate {
		t.Fatalf("expected new canonical report on day 8")
	}
}

func TestIntakeWithoutTechnicianStillRecordsReport(t *testing.T) {
	f := newFixture(t)
	res, err := f.engine.Intake(context.Background(), acDraft())
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if res.DispatchError != CodeNoAvailableTechnician || res.Assignment != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	r := f.report(t, res.Report.ID)
	if r.Status != models.ReportDispatched || r.UpvoteCount != 1 {
		t.Fatalf("unexpected stored report %+v", r)
	}
}

func TestIntakeResolvesBuildingFromCoordinates(t *testing.T) {
	f := newFixture(t)
	lat, lng := 42.37065, -71.11875
	d := acDraft()
	d.Building = ""
	d.Lat, d.Lng = &lat, &lng

	res, err := f.engine.Intake(context.Background(), d)
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if res.Report.Building != "Gore Hall" {
		t.Fatalf("expected Gore Hall, got %q", res.Report.Building)
	}
}

func TestIntakeValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]func(d *Draft){
		"unknown building": func(d *Draft) { d.Building = "Hogwarts" },
		"unknown trade":    func(d *Draft) { d.Trade = "alchemy" },
		"unknown priority": func(d *Draft) { d.Priority = "whenever" },
		"far coordinates": func(d *Draft) {
			lat, lng := 40.7128, -74.0060
			d.Building, d.Lat, d.Lng = "", &lat, &lng
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := acDraft()
			mutate(&d)
			_, err := f.engine.Intake(context.Background(), d)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestIntakeSafetyHazardAlwaysFlagged(t *testing.T) {
	f := newFixture(t)
	d := acDraft()
	d.Trade = models.TradeSafetyHazard
	d.Priority = models.PriorityCritical
	res, err := f.engine.Intake(context.Background(), d)
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if !res.Report.SafetyConcern || res.Report.UrgencyScore != 10+1.5+3 {
		t.Fatalf("unexpected report %+v", res.Report)
	}
}
