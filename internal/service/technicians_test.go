package service

import (
	"context"
	"errors"
	"testing"

	"github.com/campusfix/dispatch/internal/models"
)

func TestDeleteTechnicianBlockedWhileBusy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tech := f.addTechnician(t, "t1", models.TradeCustodial)
	r := f.addReport(t, models.Report{Building: "Smith Campus Center", Trade: models.TradeCustodial})
	a, err := f.engine.Assign(ctx, r.ID, models.AssignedByManager)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	err = f.engine.DeleteTechnician(ctx, tech.ID)
	if !errors.Is(err, ErrTechnicianBusy) || Kind(err) != CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	if _, err := f.engine.UpdateAssignmentStatus(ctx, a.ID, StatusUpdate{Status: models.AssignmentCancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := f.engine.DeleteTechnician(ctx, tech.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.engine.GetTechnician(ctx, tech.ID); Kind(err) != CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if n := len(f.assignments(t, models.AssignmentFilter{TechnicianID: tech.ID})); n != 1 {
		t.Fatalf("assignment history must survive deletion, got %d", n)
	}
}

func TestTechnicianValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]TechnicianInput{
		"missing name":     {Trade: models.TradeHVAC},
		"unknown trade":    {Name: "x", Trade: "carpentry"},
		"unknown building": {Name: "x", Trade: models.TradeHVAC, AssignedBuildings: []string{"Atlantis"}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := f.engine.CreateTechnician(context.Background(), in); Kind(err) != CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUnavailableTechnicianIsNotAssigned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tech := f.addTechnician(t, "t1", models.TradeHVAC, "Gore Hall")
	if _, err := f.engine.UpdateTechnician(ctx, tech.ID, TechnicianInput{Name: "t1", Trade: models.TradeHVAC, AssignedBuildings: []string{"Gore Hall"}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	r := f.addReport(t, models.Report{Building: "Gore Hall", Trade: models.TradeHVAC})

	if _, err := f.engine.Assign(ctx, r.ID, models.AssignedByAI); !errors.Is(err, ErrNoAvailableTechnician) {
		t.Fatalf("expected no available technician, got %v", err)
	}
	if got := f.report(t, r.ID).Status; got != models.ReportDispatched {
		t.Fatalf("report status changed to %s", got)
	}
}
