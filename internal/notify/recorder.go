package notify

import (
	"context"
	"sync"

	"github.com/campusfix/dispatch/internal/models"
)

type TechnicianCall struct {
	Technician models.Technician
	Message    TechnicianMessage
}

type ReporterCall struct {
	Report  models.Report
	Status  models.ReportStatus
	Details string
}

// Recorder keeps every message in memory. Err, when set, is returned from
// every call after the message is recorded.
type Recorder struct {
	mu         sync.Mutex
	Err        error
	Technician []TechnicianCall
	Manager    []ManagerMessage
	Reporter   []ReporterCall
}

func (r *Recorder) NotifyTechnician(ctx context.Context, tech models.Technician, msg TechnicianMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Technician = append(r.Technician, TechnicianCall{Technician: tech, Message: msg})
	return r.Err
}

func (r *Recorder) NotifyManager(ctx context.Context, msg ManagerMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Manager = append(r.Manager, msg)
	return r.Err
}

func (r *Recorder) NotifyReporter(ctx context.Context, report models.Report, status models.ReportStatus, details string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reporter = append(r.Reporter, ReporterCall{Report: report, Status: status, Details: details})
	return r.Err
}

func (r *Recorder) TechnicianCalls() []TechnicianCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TechnicianCall(nil), r.Technician...)
}

func (r *Recorder) ManagerCalls() []ManagerMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ManagerMessage(nil), r.Manager...)
}

func (r *Recorder) ReporterCalls() []ReporterCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ReporterCall(nil), r.Reporter...)
}
