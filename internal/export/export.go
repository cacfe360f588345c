package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/campusfix/dispatch/internal/models"
)

const SheetName = "Open work"

type Row struct {
	Report     models.Report
	Assignment *models.Assignment
	Technician string
}

var headers = []string{
	"Report ID", "Created", "Building", "Floor", "Room", "Trade", "Priority", "Safety",
	"Urgency", "Upvotes", "Report status", "Technician", "Assignment status", "Assigned by", "Notes",
}

// OpenWork writes a single-sheet workbook, one line per report.
func OpenWork(w io.Writer, rows []Row, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(SheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 13},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	_ = f.SetCellValue(SheetName, "A1", fmt.Sprintf("Open maintenance work as of %s", generatedAt.UTC().Format(time.RFC3339)))
	_ = f.MergeCell(SheetName, "A1", cell(len(headers), 1))
	_ = f.SetCellStyle(SheetName, "A1", "A1", titleStyle)

	for i, h := range headers {
		_ = f.SetCellValue(SheetName, cell(i+1, 2), h)
	}
	_ = f.SetCellStyle(SheetName, cell(1, 2), cell(len(headers), 2), headerStyle)
	_ = f.SetColWidth(SheetName, "A", "A", 38)
	_ = f.SetColWidth(SheetName, "B", "B", 20)
	_ = f.SetColWidth(SheetName, "C", "C", 22)
	_ = f.SetColWidth(SheetName, "O", "O", 48)

	for i, r := range rows {
		line := i + 3
		values := []any{
			r.Report.ID,
			r.Report.CreatedAt.UTC().Format("2006-01-02 15:04"),
			r.Report.Building,
			r.Report.Floor,
			r.Report.Room,
			string(r.Report.Trade),
			string(r.Report.Priority),
			yesNo(r.Report.SafetyConcern),
			r.Report.UrgencyScore,
			r.Report.UpvoteCount,
			string(r.Report.Status),
			r.Technician,
			"",
			"",
			"",
		}
		if r.Assignment != nil {
			values[12] = string(r.Assignment.Status)
			values[13] = string(r.Assignment.AssignedBy)
			values[14] = r.Assignment.Notes
		}
		if err := f.SetSheetRow(SheetName, cell(1, line), &values); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
