package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"github.com/campusfix/dispatch/internal/campus"
	"github.com/campusfix/dispatch/internal/config"
	"github.com/campusfix/dispatch/internal/db"
	"github.com/campusfix/dispatch/internal/models"
	"github.com/campusfix/dispatch/internal/notify"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	engine   *Engine
	store    *db.MemoryStore
	recorder *notify.Recorder
	clock    *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog, err := campus.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	store := db.NewMemoryStore()
	rec := &notify.Recorder{}
	clock := &testClock{now: t0}
	e := &Engine{
		Store:    store,
		Notifier: rec,
		Policy:   config.DefaultPolicy(),
		Logger:   zerolog.Nop(),
		Catalog:  catalog,
		Now:      clock.Now,
	}
	return &fixture{engine: e, store: store, recorder: rec, clock: clock}
}

func (f *fixture) addTechnician(t *testing.T, name string, trade models.Trade, buildings ...string) models.Technician {
	t.Helper()
	tech, err := f.engine.CreateTechnician(context.Background(), TechnicianInput{
		Name:              name,
		Email:             name + "@campus.example",
		Trade:             trade,
		AssignedBuildings: buildings,
		IsAvailable:       true,
	})
	if err != nil {
		t.Fatalf("create technician %s: %v", name, err)
	}
	return tech
}

// addReport stores a canonical report directly, bypassing intake.
func (f *fixture) addReport(t *testing.T, r models.Report) models.Report {
	t.Helper()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = f.clock.now
	}
	if r.Status == "" {
		r.Status = models.ReportDispatched
	}
	if r.Priority == "" {
		r.Priority = models.PriorityMedium
	}
	if err := f.store.CreateReport(context.Background(), &r); err != nil {
		t.Fatalf("create report: %v", err)
	}
	return r
}

func (f *fixture) report(t *testing.T, id string) models.Report {
	t.Helper()
	r, err := f.store.GetReport(context.Background(), id)
	if err != nil {
		t.Fatalf("get report %s: %v", id, err)
	}
	return r
}

func (f *fixture) assignments(t *testing.T, filter models.AssignmentFilter) []models.Assignment {
	t.Helper()
	out, err := f.store.ListAssignments(context.Background(), filter)
	if err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	return out
}

func activeFilter(reportID string) models.AssignmentFilter {
	return models.AssignmentFilter{ReportID: reportID, Statuses: models.ActiveAssignmentStatuses}
}
