package service

import (
	"context"
	"errors"
	"testing"

	"github.com/campusfix/dispatch/internal/models"
	"github.com/campusfix/dispatch/internal/notify"
)

func TestAssignWithNoTechniciansLeavesReportUntouched(t *testing.T) {
	f := newFixture(t)
	r := f.addReport(t, models.Report{Building: "Gore Hall", Trade: models.TradeHVAC, Priority: models.PriorityHigh, Status: models.ReportSubmitted})

	_, err := f.engine.Assign(context.Background(), r.ID, models.AssignedByAI)
	if !errors.Is(err, ErrNoAvailableTechnician) {
		t.Fatalf("expected ErrNoAvailableTechnician, got %v", err)
	}
	if Kind(err) != CodeNoAvailableTechnician {
		t.Fatalf("unexpected kind %s", Kind(err))
	}
	if got := f.report(t, r.ID).Status; got != models.ReportSubmitted {
		t.Fatalf("expected status submitted, got %s", got)
	}
	if len(f.assignments(t, models.AssignmentFilter{ReportID: r.ID})) != 0 {
		t.Fatalf("expected no assignment rows")
	}
}

func TestAssignPicksBestTechnicianAndDispatches(t *testing.T) {
	f := newFixture(t)
	t2 := f.addTechnician(t, "t2", models.TradeHVAC)
	t1 := f.addTechnician(t, "t1", models.TradeHVAC, "Gore Hall")
	r := f.addReport(t, models.Report{Building: "Gore Hall", Trade: models.TradeHVAC, Priority: models.PriorityHigh, Status: models.ReportSubmitted})

	a, err := f.engine.Assign(context.Background(), r.ID, models.AssignedByAI)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if a.TechnicianID != t1.ID {
		t.Fatalf("expected %s, got %s (t2=%s)", t1.ID, a.TechnicianID, t2.ID)
	}
	if a.Status != models.AssignmentPending || a.AssignedBy != models.AssignedByAI {
		t.Fatalf("unexpected assignment %+v", a)
	}
	if a.Notes == "" {
		t.Fatalf("expected score notes")
	}
	if got := f.report(t, r.ID).Status; got != models.ReportDispatched {
		t.Fatalf("expected dispatched, got %s", got)
	}
	calls := f.recorder.TechnicianCalls()
	if len(calls) != 1 || calls[0].Technician.ID != t1.ID || calls[0].Message.Kind != notify.KindAssignment {
		t.Fatalf("unexpected notifications %+v", calls)
	}
}

func TestAssignSurvivesNotificationFailure(t *testing.T) {
	f := newFixture(t)
	f.recorder.Err = errors.New("smtp unreachable")
	f.addTechnician(t, "t1", models.TradePlumbing)
	r := f.addReport(t, models.Report{Building: "Sever Hall", Trade: models.TradePlumbing})

	if _, err := f.engine.Assign(context.Background(), r.ID, models.AssignedByAI); err != nil {
		t.Fatalf("expected assignment despite notification failure, got %v", err)
	}
	if len(f.assignments(t, activeFilter(r.ID))) != 1 {
		t.Fatalf("expected one active assignment")
	}
}

func TestAssignRejectsSecondActiveAssignment(t *testing.T) {
	f := newFixture(t)
	f.addTechnician(t, "t1", models.TradePlumbing)
	r := f.addReport(t, models.Report{Building: "Sever Hall", Trade: models.TradePlumbing})
	ctx := context.Background()

	if _, err := f.engine.Assign(ctx, r.ID, models.AssignedByAI); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	_, err := f.engine.Assign(ctx, r.ID, models.AssignedByManager)
	if !errors.Is(err, ErrAlreadyAssigned) || Kind(err) != CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if n := len(f.assignments(t, activeFilter(r.ID))); n != 1 {
		t.Fatalf("expected exactly one active assignment, got %d", n)
	}
}

func TestAssignManualBypassesScoring(t *testing.T) {
	f := newFixture(t)
	f.addTechnician(t, "best", models.TradeHVAC, "Gore Hall")
	other := f.addTechnician(t, "other", models.TradeCustodial)
	r := f.addReport(t, models.Report{Building: "Gore Hall", Trade: models.TradeHVAC, Status: models.ReportSubmitted})

	a, err := f.engine.AssignManual(context.Background(), r.ID, other.ID)
	if err != nil {
		t.Fatalf("manual assign: %v", err)
	}
	if a.TechnicianID != other.ID || a.AssignedBy != models.AssignedByManager {
		t.Fatalf("unexpected assignment %+v", a)
	}
	if got := f.report(t, r.ID).Status; got != models.ReportDispatched {
		t.Fatalf("expected dispatched, got %s", got)
	}
	if len(f.recorder.TechnicianCalls()) != 1 {
		t.Fatalf("expected one technician notification")
	}
}

func TestAssignUnknownReport(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Assign(context.Background(), "missing", models.AssignedByAI)
	if Kind(err) != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
