package service

import (
	"bytes"
	"fmt"
	"time"

	"labdesk/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Bookings"

var exportHeaders = []string{
	"ID", "Student", "Day", "Time slot", "Unit", "Status", "Purpose", "Admin response", "Requested", "Updated",
}

// ExportLabBookings writes the lab's booking requests and the admin
// responses to an xlsx workbook.
func ExportLabBookings(snap *models.Snapshot, labID int64, now time.Time) (*bytes.Buffer, error) {
	lab, ok := snap.FindLab(labID)
	if !ok {
		return nil, ErrLabNotFound
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	_ = f.SetCellValue(exportSheet, "A1", fmt.Sprintf("%s bookings, exported %s", lab.Name, now.Format(displayLayout)))
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeaders))
	_ = f.MergeCell(exportSheet, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(exportSheet, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(exportSheet, cell, h)
		_ = f.SetCellStyle(exportSheet, cell, cell, headerStyle)
	}

	row := 3
	for i := range snap.Bookings {
		b := &snap.Bookings[i]
		if !bookingInLab(b, lab) {
			continue
		}
		values := []interface{}{
			b.ID,
			ResolveActorName(b.StudentName, b.Student, b.User),
			orPlaceholder(b.Day()),
			orPlaceholder(slotLabel(b)),
			orPlaceholder(b.UnitNumber.Trimmed()),
			orPlaceholder(b.CanonicalStatus()),
			orPlaceholder(b.Purpose),
			orPlaceholder(b.AdminComment),
			RenderTimestamp(b.CreatedAt.String()),
			RenderTimestamp(b.UpdatedAt.String()),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(exportSheet, cell, v)
		}
		row++
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 8)
	_ = f.SetColWidth(exportSheet, "B", lastCol, 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("error writing workbook: %w", err)
	}
	return buf, nil
}

// ExportFileName names the workbook of a lab export.
func ExportFileName(labID int64, now time.Time) string {
	return fmt.Sprintf("lab-%d-bookings-%s.xlsx", labID, now.Format(models.DayLayout))
}
