package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusfix/dispatch/internal/models"
)

func TestReportStatusFor(t *testing.T) {
	cases := []struct {
		to     models.AssignmentStatus
		want   models.ReportStatus
		change bool
	}{
		{models.AssignmentAccepted, models.ReportInProgress, true},
		{models.AssignmentInProgress, models.ReportInProgress, true},
		{models.AssignmentCompleted, models.ReportResolved, true},
		{models.AssignmentCancelled, "", false},
	}
	for _, tc := range cases {
		got, ok := ReportStatusFor(tc.to)
		if got != tc.want || ok != tc.change {
			t.Fatalf("%s: got (%q, %v), want (%q, %v)", tc.to, got, ok, tc.want, tc.change)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]models.AssignmentStatus]bool{}
	for _, pair := range [][2]models.AssignmentStatus{
		{models.AssignmentPending, models.AssignmentAccepted},
		{models.AssignmentAccepted, models.AssignmentInProgress},
		{models.AssignmentInProgress, models.AssignmentCompleted},
		{models.AssignmentPending, models.AssignmentCancelled},
		{models.AssignmentAccepted, models.AssignmentCancelled},
		{models.AssignmentInProgress, models.AssignmentCancelled},
	} {
		allowed[pair] = true
	}
	all := []models.AssignmentStatus{models.AssignmentPending, models.AssignmentAccepted, models.AssignmentInProgress, models.AssignmentCompleted, models.AssignmentCancelled}
	for _, from := range all {
		for _, to := range all {
			if got := CanTransition(from, to); got != allowed[[2]models.AssignmentStatus{from, to}] {
				t.Fatalf("%s -> %s: got %v", from, to, got)
			}
		}
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	f := newFixture(t)
	f.addTechnician(t, "t1", models.TradePlumbing)
	ctx := context.Background()
	d := Draft{Building: "Hollis Hall", Floor: "1", Room: "12", Description: "Toilet overflowing", Trade: models.TradePlumbing, Priority: models.PriorityHigh, ReporterEmail: "student@college.example"}
	res, err := f.engine.Intake(ctx, d)
	if err != nil || res.Assignment == nil {
		t.Fatalf("intake: %+v %v", res, err)
	}
	id := res.Assignment.ID

	f.clock.Advance(5 * time.Minute)
	a, err := f.engine.UpdateAssignmentStatus(ctx, id, StatusUpdate{Status: models.AssignmentAccepted})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if a.StartedAt == nil || !a.StartedAt.Equal(f.clock.now) {
		t.Fatalf("expected started_at set to now, got %v", a.StartedAt)
	}
	if got := f.report(t, res.Report.ID).Status; got != models.ReportInProgress {
		t.Fatalf("expected report in_progress, got %s", got)
	}

	if _, err := f.engine.UpdateAssignmentStatus(ctx, id, StatusUpdate{Status: models.AssignmentInProgress}); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.clock.Advance(time.Hour)
	notes := "Replaced flapper valve"
	a, err = f.engine.UpdateAssignmentStatus(ctx, id, StatusUpdate{Status: models.AssignmentCompleted, CompletionNotes: &notes})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if a.CompletedAt == nil || a.CompletionNotes != notes {
		t.Fatalf("unexpected completed assignment %+v", a)
	}
	if got := f.report(t, res.Report.ID).Status; got != models.ReportResolved {
		t.Fatalf("expected report resolved, got %s", got)
	}
	calls := f.recorder.ReporterCalls()
	if len(calls) != 1 || calls[0].Status != models.ReportResolved {
		t.Fatalf("expected one reporter notification, got %+v", calls)
	}
}

func TestLifecycleRejectsOutOfOrderTransition(t *testing.T) {
	f := newFixture(t)
	f.addTechnician(t, "t1", models.TradePlumbing)
	ctx := context.Background()
	r := f.addReport(t, models.Report{Building: "Hollis Hall", Trade: models.TradePlumbing})
	a, err := f.engine.Assign(ctx, r.ID, models.AssignedByAI)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	_, err = f.engine.UpdateAssignmentStatus(ctx, a.ID, StatusUpdate{Status: models.AssignmentCompleted})
	if !errors.Is(err, ErrInvalidTransition) || Kind(err) != CodeInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	stored, _ := f.store.GetAssignment(ctx, a.ID)
	if stored.Status != models.AssignmentPending || stored.CompletedAt != nil {
		t.Fatalf("expected assignment untouched, got %+v", stored)
	}
	if got := f.report(t, r.ID).Status; got != models.ReportDispatched {
		t.Fatalf("expected report untouched, got %s", got)
	}
}

func TestCancelledAssignmentFreesReport(t *testing.T) {
	f := newFixture(t)
	f.addTechnician(t, "t1", models.TradePlumbing)
	ctx := context.Background()
	r := f.addReport(t, models.Report{Building: "Hollis Hall", Trade: models.TradePlumbing})
	a, _ := f.engine.Assign(ctx, r.ID, models.AssignedByAI)
	if _, err := f.engine.UpdateAssignmentStatus(ctx, a.ID, StatusUpdate{Status: models.AssignmentAccepted}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	cancelled, err := f.engine.UpdateAssignmentStatus(ctx, a.ID, StatusUpdate{Status: models.AssignmentCancelled})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.CancelledAt == nil || !cancelled.CancelledAt.Equal(f.clock.Now()) {
		t.Fatalf("expected cancellation time, got %v", cancelled.CancelledAt)
	}
	if got := f.report(t, r.ID).Status; got != models.ReportInProgress {
		t.Fatalf("cancel must not change report status, got %s", got)
	}
	if _, err := f.engine.UpdateAssignmentStatus(ctx, a.ID, StatusUpdate{Status: models.AssignmentAccepted}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancelled is terminal, got %v", err)
	}
	if _, err := f.engine.Assign(ctx, r.ID, models.AssignedByManager); err != nil {
		t.Fatalf("expected report assignable again, got %v", err)
	}
}
