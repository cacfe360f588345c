package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/campusfix/dispatch/internal/models"
)

// WebhookNotifier posts each envelope as JSON to the delivery service.
type WebhookNotifier struct {
	URL          string
	ManagerEmail string
	Client       *http.Client
}

func (w WebhookNotifier) NotifyTechnician(ctx context.Context, tech models.Technician, msg TechnicianMessage) error {
	return w.post(ctx, technicianEnvelope(tech, msg))
}

func (w WebhookNotifier) NotifyManager(ctx context.Context, msg ManagerMessage) error {
	return w.post(ctx, managerEnvelope(w.ManagerEmail, msg))
}

func (w WebhookNotifier) NotifyReporter(ctx context.Context, report models.Report, status models.ReportStatus, details string) error {
	return w.post(ctx, reporterEnvelope(report, status, details))
}

func (w WebhookNotifier) post(ctx context.Context, env Envelope) error {
	client := w.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode)
	}
	return nil
}
