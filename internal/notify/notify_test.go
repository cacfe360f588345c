package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"github.com/campusfix/dispatch/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWebhookNotifierPostsEnvelope(t *testing.T) {
	var got Envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := srv.Client()
	defer client.CloseIdleConnections()
	w := WebhookNotifier{URL: srv.URL, ManagerEmail: "boss@campus.example", Client: client}
	err := w.NotifyManager(context.Background(), ManagerMessage{Kind: KindUnaccepted, Subject: "Assignment not accepted", ReportIDs: []string{"r1"}})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.Channel != ChannelManager || got.Recipient != "boss@campus.example" || got.Kind != KindUnaccepted {
		t.Fatalf("unexpected envelope %+v", got)
	}
}

func TestWebhookNotifierReportsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := srv.Client()
	defer client.CloseIdleConnections()
	w := WebhookNotifier{URL: srv.URL, Client: client}
	tech := models.Technician{ID: "t1", Email: "tech@campus.example"}
	if err := w.NotifyTechnician(context.Background(), tech, TechnicianMessage{Kind: KindAssignment}); err == nil {
		t.Fatalf("expected error for 502 response")
	}
}

func TestFanoutJoinsFailures(t *testing.T) {
	ok := &Recorder{}
	failing := &Recorder{Err: errors.New("smtp down")}
	f := Fanout{ok, LogNotifier{Logger: zerolog.Nop()}, failing}

	err := f.NotifyReporter(context.Background(), models.Report{ID: "r1", ReporterEmail: "a@b.c"}, models.ReportResolved, "fixed")
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if len(ok.ReporterCalls()) != 1 || len(failing.ReporterCalls()) != 1 {
		t.Fatalf("expected every notifier to be called")
	}
}

func TestRoutingKey(t *testing.T) {
	env := technicianEnvelope(models.Technician{ID: "t1"}, TechnicianMessage{Kind: KindBatch})
	if key := RoutingKey(env); key != "notify.technician.batch" {
		t.Fatalf("unexpected routing key %q", key)
	}
}
