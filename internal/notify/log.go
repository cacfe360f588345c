package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/campusfix/dispatch/internal/models"
)

// LogNotifier writes every message to the log. It is the transport used when
// neither a webhook nor a broker is configured.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (l LogNotifier) NotifyTechnician(ctx context.Context, tech models.Technician, msg TechnicianMessage) error {
	l.Logger.Info().
		Str("channel", ChannelTechnician).
		Str("technician_id", tech.ID).
		Str("kind", msg.Kind).
		Strs("report_ids", msg.ReportIDs).
		Msg(msg.Subject)
	return nil
}

func (l LogNotifier) NotifyManager(ctx context.Context, msg ManagerMessage) error {
	l.Logger.Info().
		Str("channel", ChannelManager).
		Str("kind", msg.Kind).
		Strs("report_ids", msg.ReportIDs).
		Msg(msg.Subject)
	return nil
}

func (l LogNotifier) NotifyReporter(ctx context.Context, report models.Report, status models.ReportStatus, details string) error {
	l.Logger.Info().
		Str("channel", ChannelReporter).
		Str("report_id", report.ID).
		Str("status", string(status)).
		Msg(details)
	return nil
}
