package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/campusfix/dispatch/internal/models"
	"github.com/campusfix/dispatch/internal/notify"
)

type BatchSummary struct {
	Building       string       `json:"building"`
	Trade          models.Trade `json:"trade"`
	TechnicianID   string       `json:"technician_id,omitempty"`
	TechnicianName string       `json:"technician_name,omitempty"`
	Score          float64      `json:"score,omitempty"`
	ReportIDs      []string     `json:"report_ids"`
	AssignmentIDs  []string     `json:"assignment_ids,omitempty"`
	Route          []string     `json:"route"`
}

type batchGroup struct {
	building string
	trade    models.Trade
	reports  []models.Report
}

// groupForBatching buckets reports by building and trade, groups ordered by
// first appearance.
func groupForBatching(reports []models.Report) []batchGroup {
	var groups []batchGroup
	index := map[string]int{}
	for _, r := range reports {
		key := r.Building + "\x00" + string(r.Trade)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, batchGroup{building: r.Building, trade: r.Trade})
		}
		groups[i].reports = append(groups[i].reports, r)
	}
	return groups
}

// RouteOrder sorts reports by floor ascending for a single walk through the
// building; equal floors keep their order.
func RouteOrder(reports []models.Report) []models.Report {
	out := append([]models.Report(nil), reports...)
	sort.SliceStable(out, func(i, j int) bool {
		return FloorNumber(out[i].Floor) < FloorNumber(out[j].Floor)
	})
	return out
}

// RunBatchSweep hands each building and trade cluster of recent unassigned
// reports to one technician: one assignment per report, one briefing.
func (e *Engine) RunBatchSweep(ctx context.Context) (SweepResult, error) {
	return e.runSweep(ctx, models.SweepBatch, func(ctx context.Context, res *SweepResult) error {
		since := e.now().Add(-e.Policy.BatchWindow)
		reports, err := e.Store.ListReports(ctx, models.ReportFilter{
			Statuses:      []models.ReportStatus{models.ReportDispatched},
			CanonicalOnly: true,
			Unassigned:    true,
			CreatedSince:  &since,
		})
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			res.logf("No unassigned reports in the last %s", e.Policy.BatchWindow)
			return nil
		}

		techs, err := e.Store.ListTechnicians(ctx, true)
		if err != nil {
			return err
		}
		loads, err := e.Store.ActiveAssignmentCounts(ctx, technicianIDs(techs))
		if err != nil {
			return err
		}

		for _, g := range groupForBatching(reports) {
			e.dispatchBatch(ctx, res, g, techs, loads)
		}
		return nil
	})
}

func (e *Engine) dispatchBatch(ctx context.Context, res *SweepResult, g batchGroup, techs []models.Technician, loads map[string]int) {
	route := RouteOrder(g.reports)
	summary := BatchSummary{Building: g.building, Trade: g.trade}
	for _, r := range route {
		summary.ReportIDs = append(summary.ReportIDs, r.ID)
		summary.Route = append(summary.Route, roomLabel(r))
	}

	ranked := RankTechnicians(e.Policy, techs, loads, g.building, g.trade)
	if len(ranked) == 0 {
		res.logf("Batch %s/%s (%d reports): skipped, no available technician", g.building, g.trade, len(route))
		res.Batches = append(res.Batches, summary)
		return
	}
	top := ranked[0]
	summary.TechnicianID = top.Technician.ID
	summary.TechnicianName = top.Technician.Name
	summary.Score = top.Score

	sequence := strings.Join(summary.Route, " -> ")
	var assigned []models.Report
	for i, r := range route {
		notes := fmt.Sprintf("Batch route %d/%d: %s", i+1, len(route), sequence)
		a, err := e.bind(ctx, r, top.Technician, models.AssignedByBatch, notes)
		if err != nil {
			res.logf("Batch %s/%s: report %s not assigned: %v", g.building, g.trade, r.ID, err)
			continue
		}
		loads[top.Technician.ID]++
		summary.AssignmentIDs = append(summary.AssignmentIDs, a.ID)
		assigned = append(assigned, r)
	}
	res.Batches = append(res.Batches, summary)
	if len(assigned) == 0 {
		return
	}

	res.logf("Batch %s/%s: %d report(s) assigned to %s, route %s", g.building, g.trade, len(assigned), top.Technician.Name, sequence)
	ids := make([]string, 0, len(assigned))
	var body strings.Builder
	for i, r := range assigned {
		ids = append(ids, r.ID)
		fmt.Fprintf(&body, "%d. %s (%s): %s\n", i+1, roomLabel(r), r.Priority, r.Description)
	}
	sent := e.notifyTechnician(ctx, top.Technician, notify.TechnicianMessage{
		Kind:      notify.KindBatch,
		Subject:   fmt.Sprintf("%d %s job(s) in %s", len(assigned), g.trade, g.building),
		Body:      body.String(),
		ReportIDs: ids,
	})
	if !sent {
		res.logf("Batch %s/%s: technician notification failed", g.building, g.trade)
	}
}
