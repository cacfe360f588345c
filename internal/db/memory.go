package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusfix/dispatch/internal/models"
)

// MemoryStore keeps everything in process. It backs local runs without
// DATABASE_URL and the service tests, and enforces the same one active
// assignment per report rule as the partial unique index.
type MemoryStore struct {
	mu          sync.Mutex
	seq         int64
	reports     map[string]*memReport
	technicians map[string]*memTechnician
	assignments map[string]*memAssignment
	runs        []models.SweepRun
}

type memReport struct {
	models.Report
	seq int64
}

type memTechnician struct {
	models.Technician
	seq int64
}

type memAssignment struct {
	models.Assignment
	seq int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports:     map[string]*memReport{},
		technicians: map[string]*memTechnician{},
		assignments: map[string]*memAssignment{},
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) next() int64 {
	m.seq++
	return m.seq
}

func (m *MemoryStore) CreateReport(ctx context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	m.reports[r.ID] = &memReport{Report: *r, seq: m.next()}
	return nil
}

func (m *MemoryStore) GetReport(ctx context.Context, id string) (models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return models.Report{}, ErrNotFound
	}
	return r.Report, nil
}

func (m *MemoryStore) ListReports(ctx context.Context, f models.ReportFilter) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids map[string]bool
	if len(f.IDs) > 0 {
		ids = make(map[string]bool, len(f.IDs))
		for _, id := range f.IDs {
			ids[id] = true
		}
	}

	var matched []*memReport
	for _, r := range m.reports {
		if ids != nil && !ids[r.ID] {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, r.Status) {
			continue
		}
		if f.Building != "" && r.Building != f.Building {
			continue
		}
		if f.Trade != "" && r.Trade != f.Trade {
			continue
		}
		if f.CanonicalOnly && r.DuplicateOf != nil {
			continue
		}
		if f.DuplicateOf != "" && (r.DuplicateOf == nil || *r.DuplicateOf != f.DuplicateOf) {
			continue
		}
		if f.CreatedSince != nil && r.CreatedAt.Before(*f.CreatedSince) {
			continue
		}
		if f.GeneratedBy != "" && r.GeneratedBy != f.GeneratedBy {
			continue
		}
		if f.Unassigned && m.activeFor(r.ID) != nil {
			continue
		}
		matched = append(matched, r)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].seq < matched[j].seq
	})

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[f.Offset:]
		}
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}

	out := make([]models.Report, 0, len(matched))
	for _, r := range matched {
		out = append(out, r.Report)
	}
	return out, nil
}

func (m *MemoryStore) FindOpenCanonical(ctx context.Context, building string, trade models.Trade, since time.Time) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *memReport
	for _, r := range m.reports {
		if r.Building != building || r.Trade != trade || r.DuplicateOf != nil || r.Status == models.ReportResolved {
			continue
		}
		if r.CreatedAt.Before(since) {
			continue
		}
		if best == nil || r.CreatedAt.After(best.CreatedAt) || (r.CreatedAt.Equal(best.CreatedAt) && r.seq > best.seq) {
			best = r
		}
	}
	if best == nil {
		return nil, nil
	}
	out := best.Report
	return &out, nil
}

func (m *MemoryStore) IncrementUpvotes(ctx context.Context, id string, at time.Time) (models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return models.Report{}, ErrNotFound
	}
	r.UpvoteCount++
	r.UpdatedAt = at
	return r.Report, nil
}

func (m *MemoryStore) UpdateReportUrgency(ctx context.Context, id string, score float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return ErrNotFound
	}
	r.UrgencyScore = score
	r.UpdatedAt = at
	return nil
}

func (m *MemoryStore) UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = at
	return nil
}

func (m *MemoryStore) HasPreventiveOrderSince(ctx context.Context, trade models.Trade, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.GeneratedBy != string(models.AssignedByPreventive) || r.PatternTrade == nil {
			continue
		}
		if *r.PatternTrade == trade && !r.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) CreateTechnician(ctx context.Context, t *models.Technician) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.AssignedBuildings == nil {
		t.AssignedBuildings = []string{}
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	stored := *t
	stored.AssignedBuildings = append([]string{}, t.AssignedBuildings...)
	m.technicians[t.ID] = &memTechnician{Technician: stored, seq: m.next()}
	return nil
}

func (m *MemoryStore) GetTechnician(ctx context.Context, id string) (models.Technician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.technicians[id]
	if !ok {
		return models.Technician{}, ErrNotFound
	}
	return copyTechnician(t.Technician), nil
}

func (m *MemoryStore) UpdateTechnician(ctx context.Context, t models.Technician) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.technicians[t.ID]
	if !ok {
		return ErrNotFound
	}
	t.CreatedAt = cur.CreatedAt
	cur.Technician = copyTechnician(t)
	return nil
}

func (m *MemoryStore) DeleteTechnician(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.technicians[id]; !ok {
		return ErrNotFound
	}
	for _, a := range m.assignments {
		if a.TechnicianID == id && a.Status.Active() {
			return ErrTechnicianBusy
		}
	}
	delete(m.technicians, id)
	return nil
}

func (m *MemoryStore) ListTechnicians(ctx context.Context, availableOnly bool) ([]models.Technician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*memTechnician
	for _, t := range m.technicians {
		if availableOnly && !t.IsAvailable {
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].seq < matched[j].seq
	})
	out := make([]models.Technician, 0, len(matched))
	for _, t := range matched {
		out = append(out, copyTechnician(t.Technician))
	}
	return out, nil
}

func (m *MemoryStore) ActiveAssignmentCounts(ctx context.Context, technicianIDs []string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int, len(technicianIDs))
	wanted := make(map[string]bool, len(technicianIDs))
	for _, id := range technicianIDs {
		wanted[id] = true
	}
	for _, a := range m.assignments {
		if a.Status.Active() && wanted[a.TechnicianID] {
			counts[a.TechnicianID]++
		}
	}
	return counts, nil
}

func (m *MemoryStore) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.Status.Active() && m.activeFor(a.ReportID) != nil {
		return ErrActiveAssignmentExists
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	m.assignments[a.ID] = &memAssignment{Assignment: *a, seq: m.next()}
	return nil
}

func (m *MemoryStore) GetAssignment(ctx context.Context, id string) (models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return models.Assignment{}, ErrNotFound
	}
	return a.Assignment, nil
}

func (m *MemoryStore) ActiveAssignment(ctx context.Context, reportID string) (*models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.activeFor(reportID)
	if a == nil {
		return nil, nil
	}
	out := a.Assignment
	return &out, nil
}

func (m *MemoryStore) ListAssignments(ctx context.Context, f models.AssignmentFilter) ([]models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*memAssignment
	for _, a := range m.assignments {
		if f.ReportID != "" && a.ReportID != f.ReportID {
			continue
		}
		if f.TechnicianID != "" && a.TechnicianID != f.TechnicianID {
			continue
		}
		if len(f.Statuses) > 0 && !containsAssignmentStatus(f.Statuses, a.Status) {
			continue
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].seq < matched[j].seq
	})
	out := make([]models.Assignment, 0, len(matched))
	for _, a := range matched {
		out = append(out, a.Assignment)
	}
	return out, nil
}

func (m *MemoryStore) TransitionAssignment(ctx context.Context, id string, from, to models.AssignmentStatus, patch models.AssignmentPatch) (models.Assignment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return models.Assignment{}, false, ErrNotFound
	}
	if a.Status != from {
		return a.Assignment, false, nil
	}
	a.Status = to
	if patch.Notes != nil {
		a.Notes = *patch.Notes
	}
	if patch.CompletionNotes != nil {
		a.CompletionNotes = *patch.CompletionNotes
	}
	if patch.CompletionPhoto != nil {
		a.CompletionPhoto = *patch.CompletionPhoto
	}
	if patch.StartedAt != nil {
		started := *patch.StartedAt
		a.StartedAt = &started
	}
	if patch.CompletedAt != nil {
		completed := *patch.CompletedAt
		a.CompletedAt = &completed
	}
	if patch.CancelledAt != nil {
		cancelled := *patch.CancelledAt
		a.CancelledAt = &cancelled
	}
	return a.Assignment, true, nil
}

func (m *MemoryStore) CreateRun(ctx context.Context, kind models.SweepKind, startedAt time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.runs = append(m.runs, models.SweepRun{ID: id, Kind: kind, StartedAt: startedAt, Status: "running"})
	return id, nil
}

func (m *MemoryStore) FinishRun(ctx context.Context, runID string, status string, summary []byte, finishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == runID {
			finished := finishedAt
			m.runs[i].Status = status
			m.runs[i].Summary = append([]byte(nil), summary...)
			m.runs[i].FinishedAt = &finished
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) GetLatestRun(ctx context.Context, kind models.SweepKind) (models.SweepRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.runs) - 1; i >= 0; i-- {
		if kind == "" || m.runs[i].Kind == kind {
			return m.runs[i], nil
		}
	}
	return models.SweepRun{}, ErrNotFound
}

func (m *MemoryStore) activeFor(reportID string) *memAssignment {
	for _, a := range m.assignments {
		if a.ReportID == reportID && a.Status.Active() {
			return a
		}
	}
	return nil
}

func copyTechnician(t models.Technician) models.Technician {
	t.AssignedBuildings = append([]string{}, t.AssignedBuildings...)
	return t
}

func containsStatus(list []models.ReportStatus, s models.ReportStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsAssignmentStatus(list []models.AssignmentStatus, s models.AssignmentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
