package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campusfix/dispatch/internal/models"
	"github.com/campusfix/dispatch/internal/notify"
)

const PreventiveReporterName = "Preventive Maintenance Engine"

type Pattern struct {
	Trade     models.Trade `json:"trade"`
	Count     int          `json:"count"`
	Buildings []string     `json:"buildings"`
	// Hotspot is the building with the most reports, first seen on ties.
	Hotspot string `json:"hotspot"`
}

// DetectPatterns counts reports per trade and returns the trades at or above
// threshold, in the order of models.Trades.
func DetectPatterns(reports []models.Report, threshold int) []Pattern {
	type stats struct {
		count     int
		buildings []string
		perBldg   map[string]int
	}
	byTrade := map[models.Trade]*stats{}
	for _, r := range reports {
		s, ok := byTrade[r.Trade]
		if !ok {
			s = &stats{perBldg: map[string]int{}}
			byTrade[r.Trade] = s
		}
		s.count++
		if s.perBldg[r.Building] == 0 {
			s.buildings = append(s.buildings, r.Building)
		}
		s.perBldg[r.Building]++
	}

	var out []Pattern
	for _, trade := range models.Trades {
		s, ok := byTrade[trade]
		if !ok || s.count < threshold {
			continue
		}
		hotspot := s.buildings[0]
		for _, b := range s.buildings[1:] {
			if s.perBldg[b] > s.perBldg[hotspot] {
				hotspot = b
			}
		}
		out = append(out, Pattern{Trade: trade, Count: s.count, Buildings: s.buildings, Hotspot: hotspot})
	}
	return out
}

// RunPreventiveSweep turns recurring trades into preventive work orders, at
// most one per trade per cooldown.
func (e *Engine) RunPreventiveSweep(ctx context.Context) (SweepResult, error) {
	return e.runSweep(ctx, models.SweepPreventive, func(ctx context.Context, res *SweepResult) error {
		now := e.now()
		since := now.Add(-e.Policy.PatternWindow)
		reports, err := e.Store.ListReports(ctx, models.ReportFilter{CanonicalOnly: true, CreatedSince: &since})
		if err != nil {
			return err
		}
		organic := reports[:0:0]
		for _, r := range reports {
			if r.GeneratedBy == "" {
				organic = append(organic, r)
			}
		}

		patterns := DetectPatterns(organic, e.Policy.PatternThreshold)
		if len(patterns) == 0 {
			res.logf("No recurring trade reached %d reports in the last %d days", e.Policy.PatternThreshold, days(e.Policy.PatternWindow))
			return nil
		}

		techs, err := e.Store.ListTechnicians(ctx, true)
		if err != nil {
			return err
		}

		for _, p := range patterns {
			exists, err := e.Store.HasPreventiveOrderSince(ctx, p.Trade, now.Add(-e.Policy.PreventiveCooldown))
			if err != nil {
				res.logf("Pattern %s: cooldown check failed: %v", p.Trade, err)
				continue
			}
			if exists {
				res.logf("Pattern %s (%d reports): preventive order already generated in the last %d days; skipped", p.Trade, p.Count, days(e.Policy.PreventiveCooldown))
				continue
			}
			e.createPreventiveOrder(ctx, res, p, techs)
		}
		return nil
	})
}

func (e *Engine) createPreventiveOrder(ctx context.Context, res *SweepResult, p Pattern, techs []models.Technician) {
	now := e.now()
	trade := p.Trade
	order := models.Report{
		CreatedAt: now,
		UpdatedAt: now,
		Building:  p.Hotspot,
		Description: fmt.Sprintf("Preventive maintenance: %d %s reports in the last %d days across %d building(s): %s.",
			p.Count, p.Trade, days(e.Policy.PatternWindow), len(p.Buildings), strings.Join(p.Buildings, ", ")),
		SuggestedAction: fmt.Sprintf("Inspect %s systems in %s first, then %s; address root causes before further failures.",
			p.Trade, p.Hotspot, strings.Join(p.Buildings, ", ")),
		Trade:         p.Trade,
		Priority:      models.PriorityHigh,
		SafetyConcern: p.Trade.SafetyCritical(),
		Status:        models.ReportDispatched,
		UpvoteCount:   1,
		ReporterName:  PreventiveReporterName,
		GeneratedBy:   string(models.AssignedByPreventive),
		PatternTrade:  &trade,
	}
	order.UrgencyScore = UrgencyScore(e.Policy, order.Priority, order.UpvoteCount, order.SafetyConcern)
	if e.Catalog != nil {
		if b, ok := e.Catalog.Lookup(order.Building); ok {
			lat, lng := b.Lat, b.Lng
			order.Lat, order.Lng = &lat, &lng
		}
	}
	if err := e.Store.CreateReport(ctx, &order); err != nil {
		res.logf("Pattern %s: work order not created: %v", p.Trade, err)
		return
	}
	res.WorkOrders = append(res.WorkOrders, order)

	outcome := "no available " + string(p.Trade) + " technician"
	for _, t := range techs {
		if t.Trade != p.Trade {
			continue
		}
		a, err := e.bind(ctx, order, t, models.AssignedByPreventive, "Preventive work order for recurring "+string(p.Trade)+" issues")
		if err != nil {
			outcome = "assignment failed: " + err.Error()
			break
		}
		outcome = "assigned to " + t.Name
		e.notifyTechnician(ctx, t, assignmentMessage(order, a))
		break
	}
	res.logf("Pattern %s (%d reports, %d building(s)): preventive order %s created in %s, %s", p.Trade, p.Count, len(p.Buildings), order.ID, order.Building, outcome)

	sent := e.notifyManager(ctx, notify.ManagerMessage{
		Kind:      notify.KindPreventiveOrder,
		Subject:   fmt.Sprintf("Preventive %s work order created for %s", p.Trade, order.Building),
		Body:      order.Description + "\nOutcome: " + outcome,
		ReportIDs: []string{order.ID},
	})
	if !sent {
		res.logf("Pattern %s: manager notification failed", p.Trade)
	}
}

func days(d time.Duration) int {
	return int(d / (24 * time.Hour))
}
