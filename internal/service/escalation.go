package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campusfix/dispatch/internal/models"
	"github.com/campusfix/dispatch/internal/notify"
)

// RunEscalationSweep looks for breached response times in three passes:
// unassigned reports, pending assignments nobody accepted, and in-progress
// work that has gone stale. Per-item failures become actions; only the store
// failing while loading a pass aborts the sweep.
func (e *Engine) RunEscalationSweep(ctx context.Context) (SweepResult, error) {
	return e.runSweep(ctx, models.SweepEscalation, func(ctx context.Context, res *SweepResult) error {
		techs, err := e.Store.ListTechnicians(ctx, true)
		if err != nil {
			return err
		}
		loads, err := e.Store.ActiveAssignmentCounts(ctx, technicianIDs(techs))
		if err != nil {
			return err
		}
		if err := e.escalateUnassigned(ctx, res, techs, loads); err != nil {
			return err
		}
		if err := e.escalateUnaccepted(ctx, res, techs, loads); err != nil {
			return err
		}
		return e.escalateStale(ctx, res)
	})
}

func (e *Engine) unassignedThreshold(p models.Priority) time.Duration {
	switch p {
	case models.PriorityCritical:
		return e.Policy.UnassignedCriticalAfter
	case models.PriorityHigh:
		return e.Policy.UnassignedHighAfter
	}
	return e.Policy.UnassignedDefaultAfter
}

func (e *Engine) unacceptedThreshold(p models.Priority) time.Duration {
	if p == models.PriorityCritical {
		return e.Policy.UnacceptedCriticalAfter
	}
	return e.Policy.UnacceptedDefaultAfter
}

func (e *Engine) escalateUnassigned(ctx context.Context, res *SweepResult, techs []models.Technician, loads map[string]int) error {
	reports, err := e.Store.ListReports(ctx, models.ReportFilter{
		Statuses:      []models.ReportStatus{models.ReportSubmitted, models.ReportDispatched},
		CanonicalOnly: true,
		Unassigned:    true,
	})
	if err != nil {
		return err
	}

	now := e.now()
	for _, r := range reports {
		threshold := e.unassignedThreshold(r.Priority)
		elapsed := now.Sub(r.CreatedAt)
		if elapsed < threshold {
			continue
		}

		// A report whose assignment was cancelled has only been unassigned
		// since the cancellation, and the technician who dropped it is not
		// offered it again straight away.
		var exclude string
		last, err := e.lastCancelled(ctx, r.ID)
		if err != nil {
			res.logf("Report %s: load assignment history failed: %v", r.ID, err)
			continue
		}
		if last != nil {
			elapsed = now.Sub(*last.CancelledAt)
			if elapsed < threshold {
				continue
			}
			exclude = last.TechnicianID
		}

		outcome := "no available technician"
		if tech, ok := PickLeastLoaded(techs, loads, exclude); ok {
			notes := fmt.Sprintf("Escalation: unassigned for %dm (limit %dm), least-loaded technician", minutes(elapsed), minutes(threshold))
			a, err := e.bind(ctx, r, tech, models.AssignedByEscalation, notes)
			if err != nil {
				outcome = "auto-assignment failed: " + err.Error()
			} else {
				loads[tech.ID]++
				outcome = "auto-assigned to " + tech.Name
				e.notifyTechnician(ctx, tech, assignmentMessage(r, a))
			}
		}
		res.logf("Report %s (%s, %s, %s) unassigned for %dm: %s", r.ID, r.Building, r.Trade, r.Priority, minutes(elapsed), outcome)

		sent := e.notifyManager(ctx, notify.ManagerMessage{
			Kind:      notify.KindUnassigned,
			Subject:   fmt.Sprintf("SLA breach: %s %s report in %s unassigned for %dm", r.Priority, r.Trade, r.Building, minutes(elapsed)),
			Body:      fmt.Sprintf("Report %s: %s\nOutcome: %s", r.ID, r.Description, outcome),
			ReportIDs: []string{r.ID},
		})
		if !sent {
			res.logf("Report %s: manager notification failed", r.ID)
		}
	}
	return nil
}

// lastCancelled returns the report's most recently cancelled assignment, or
// nil when none carries a cancellation time.
func (e *Engine) lastCancelled(ctx context.Context, reportID string) (*models.Assignment, error) {
	cancelled, err := e.Store.ListAssignments(ctx, models.AssignmentFilter{
		ReportID: reportID,
		Statuses: []models.AssignmentStatus{models.AssignmentCancelled},
	})
	if err != nil {
		return nil, err
	}
	var last *models.Assignment
	for i := range cancelled {
		a := &cancelled[i]
		if a.CancelledAt == nil {
			continue
		}
		if last == nil || !a.CancelledAt.Before(*last.CancelledAt) {
			last = a
		}
	}
	return last, nil
}

func (e *Engine) escalateUnaccepted(ctx context.Context, res *SweepResult, techs []models.Technician, loads map[string]int) error {
	pending, err := e.Store.ListAssignments(ctx, models.AssignmentFilter{
		Statuses: []models.AssignmentStatus{models.AssignmentPending},
	})
	if err != nil {
		return err
	}

	now := e.now()
	for _, a := range pending {
		report, err := e.Store.GetReport(ctx, a.ReportID)
		if err != nil {
			res.logf("Assignment %s: load report %s failed: %v", a.ID, a.ReportID, err)
			continue
		}
		threshold := e.unacceptedThreshold(report.Priority)
		elapsed := now.Sub(a.CreatedAt)
		if elapsed < threshold {
			continue
		}

		reason := fmt.Sprintf("Auto-cancelled: not accepted within %dm", minutes(threshold))
		notes := reason
		if a.Notes != "" {
			notes = a.Notes + " | " + reason
		}
		_, ok, err := e.Store.TransitionAssignment(ctx, a.ID, models.AssignmentPending, models.AssignmentCancelled, models.AssignmentPatch{Notes: &notes, CancelledAt: &now})
		if err != nil {
			res.logf("Assignment %s: cancellation failed: %v", a.ID, err)
			continue
		}
		if !ok {
			res.logf("Assignment %s changed state before cancellation; left as is", a.ID)
			continue
		}
		if loads[a.TechnicianID] > 0 {
			loads[a.TechnicianID]--
		}

		outcome := "no other available technician"
		if tech, ok := PickLeastLoaded(techs, loads, a.TechnicianID); ok {
			replacementNotes := fmt.Sprintf("Escalation: reassigned from technician %s after %dm without acceptance", a.TechnicianID, minutes(elapsed))
			replacement, err := e.bind(ctx, report, tech, models.AssignedByEscalation, replacementNotes)
			if err != nil {
				outcome = "reassignment failed: " + err.Error()
			} else {
				loads[tech.ID]++
				outcome = "reassigned to " + tech.Name
				msg := assignmentMessage(report, replacement)
				msg.Kind = notify.KindReassignment
				e.notifyTechnician(ctx, tech, msg)
			}
		}
		res.logf("Assignment %s for report %s not accepted after %dm: cancelled, %s", a.ID, report.ID, minutes(elapsed), outcome)

		sent := e.notifyManager(ctx, notify.ManagerMessage{
			Kind:      notify.KindUnaccepted,
			Subject:   fmt.Sprintf("SLA breach: %s job in %s not accepted for %dm", report.Priority, report.Building, minutes(elapsed)),
			Body:      fmt.Sprintf("Assignment %s (technician %s) was cancelled.\nOutcome: %s", a.ID, a.TechnicianID, outcome),
			ReportIDs: []string{report.ID},
		})
		if !sent {
			res.logf("Assignment %s: manager notification failed", a.ID)
		}
	}
	return nil
}

func (e *Engine) escalateStale(ctx context.Context, res *SweepResult) error {
	active, err := e.Store.ListAssignments(ctx, models.AssignmentFilter{
		Statuses: []models.AssignmentStatus{models.AssignmentInProgress},
	})
	if err != nil {
		return err
	}

	now := e.now()
	var (
		reportIDs []string
		lines     []string
	)
	for _, a := range active {
		since := a.CreatedAt
		if a.StartedAt != nil {
			since = *a.StartedAt
		}
		elapsed := now.Sub(since)
		if elapsed < e.Policy.StaleInProgressAfter {
			continue
		}
		reportIDs = append(reportIDs, a.ReportID)
		lines = append(lines, fmt.Sprintf("- assignment %s, report %s, technician %s: %dm", a.ID, a.ReportID, a.TechnicianID, minutes(elapsed)))
	}
	if len(reportIDs) == 0 {
		return nil
	}

	limit := minutes(e.Policy.StaleInProgressAfter)
	res.logf("%d in-progress job(s) exceed %dm", len(reportIDs), limit)
	sent := e.notifyManager(ctx, notify.ManagerMessage{
		Kind:      notify.KindStaleInProgress,
		Subject:   fmt.Sprintf("%d job(s) in progress for more than %dm", len(reportIDs), limit),
		Body:      strings.Join(lines, "\n"),
		ReportIDs: reportIDs,
	})
	if !sent {
		res.logf("Stale work summary: manager notification failed")
	}
	return nil
}

func minutes(d time.Duration) int {
	return int(d / time.Minute)
}
