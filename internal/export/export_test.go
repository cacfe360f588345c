package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/campusfix/dispatch/internal/models"
)

func TestOpenWorkWritesOneLinePerReport(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	rows := []Row{
		{
			Report: models.Report{ID: "r1", CreatedAt: now, Building: "Gore Hall", Floor: "2", Room: "204", Trade: models.TradeHVAC, Priority: models.PriorityHigh, UrgencyScore: 8.5, UpvoteCount: 1, Status: models.ReportDispatched},
			Assignment: &models.Assignment{Status: models.AssignmentPending, AssignedBy: models.AssignedByAI, Notes: "score 26"},
			Technician: "Dana Ruiz",
		},
		{
			Report: models.Report{ID: "r2", CreatedAt: now, Building: "Widener Library", Trade: models.TradePlumbing, Priority: models.PriorityLow, Status: models.ReportSubmitted},
		},
	}

	var buf bytes.Buffer
	if err := OpenWork(&buf, rows, now); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	got, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected title, header and 2 data rows, got %d", len(got))
	}
	if got[2][0] != "r1" || got[2][11] != "Dana Ruiz" || got[2][12] != "pending" {
		t.Fatalf("unexpected first data row %v", got[2])
	}
	if got[3][0] != "r2" || got[3][2] != "Widener Library" {
		t.Fatalf("unexpected second data row %v", got[3])
	}
}
