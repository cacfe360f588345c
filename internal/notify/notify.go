package notify

import (
	"context"
	"errors"

	"github.com/campusfix/dispatch/internal/models"
)

// Notifier decides nothing; it only carries messages the engines composed to
// the delivery side. Callers treat every error as best-effort.
type Notifier interface {
	NotifyTechnician(ctx context.Context, tech models.Technician, msg TechnicianMessage) error
	NotifyManager(ctx context.Context, msg ManagerMessage) error
	NotifyReporter(ctx context.Context, report models.Report, status models.ReportStatus, details string) error
}

const (
	KindAssignment   = "assignment"
	KindBatch        = "batch"
	KindReassignment = "reassignment"

	KindUnassigned      = "escalation_unassigned"
	KindUnaccepted      = "escalation_unaccepted"
	KindStaleInProgress = "escalation_stale_in_progress"
	KindPreventiveOrder = "preventive_order"

	KindReportStatus = "report_status"
)

type TechnicianMessage struct {
	Kind      string   `json:"kind"`
	Subject   string   `json:"subject"`
	Body      string   `json:"body"`
	ReportIDs []string `json:"report_ids"`
}

type ManagerMessage struct {
	Kind      string   `json:"kind"`
	Subject   string   `json:"subject"`
	Body      string   `json:"body"`
	ReportIDs []string `json:"report_ids,omitempty"`
}

// Envelope is the wire shape handed to the external delivery service.
type Envelope struct {
	Channel   string   `json:"channel"`
	Recipient string   `json:"recipient"`
	Name      string   `json:"name,omitempty"`
	Kind      string   `json:"kind"`
	Subject   string   `json:"subject"`
	Body      string   `json:"body"`
	ReportIDs []string `json:"report_ids,omitempty"`
}

const (
	ChannelTechnician = "technician"
	ChannelManager    = "manager"
	ChannelReporter   = "reporter"
)

func technicianEnvelope(tech models.Technician, msg TechnicianMessage) Envelope {
	return Envelope{
		Channel:   ChannelTechnician,
		Recipient: tech.Email,
		Name:      tech.Name,
		Kind:      msg.Kind,
		Subject:   msg.Subject,
		Body:      msg.Body,
		ReportIDs: msg.ReportIDs,
	}
}

func managerEnvelope(managerEmail string, msg ManagerMessage) Envelope {
	return Envelope{
		Channel:   ChannelManager,
		Recipient: managerEmail,
		Kind:      msg.Kind,
		Subject:   msg.Subject,
		Body:      msg.Body,
		ReportIDs: msg.ReportIDs,
	}
}

func reporterEnvelope(report models.Report, status models.ReportStatus, details string) Envelope {
	return Envelope{
		Channel:   ChannelReporter,
		Recipient: report.ReporterEmail,
		Name:      report.ReporterName,
		Kind:      KindReportStatus,
		Subject:   "Your report in " + report.Building + " is now " + string(status),
		Body:      details,
		ReportIDs: []string{report.ID},
	}
}

// Fanout delivers to every configured transport and joins their failures.
type Fanout []Notifier

func (f Fanout) NotifyTechnician(ctx context.Context, tech models.Technician, msg TechnicianMessage) error {
	var errs []error
	for _, n := range f {
		errs = append(errs, n.NotifyTechnician(ctx, tech, msg))
	}
	return errors.Join(errs...)
}

func (f Fanout) NotifyManager(ctx context.Context, msg ManagerMessage) error {
	var errs []error
	for _, n := range f {
		errs = append(errs, n.NotifyManager(ctx, msg))
	}
	return errors.Join(errs...)
}

func (f Fanout) NotifyReporter(ctx context.Context, report models.Report, status models.ReportStatus, details string) error {
	var errs []error
	for _, n := range f {
		errs = append(errs, n.NotifyReporter(ctx, report, status, details))
	}
	return errors.Join(errs...)
}
