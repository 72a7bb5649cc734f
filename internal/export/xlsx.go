package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"machine-service-backend/internal/model"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const defaultSheet = "Sheet1"

// FileName names a report covering start to end.
func FileName(start, end time.Time) string {
	return fmt.Sprintf("Machine_Service_Report_%s_to_%s.xlsx", start.Format(dateLayout), end.Format(dateLayout))
}

// Workbook lays the report sheets out in a new workbook. The caller owns
// the returned file and must Close it.
func (f *Formatter) Workbook(journeys []*model.MachineJourney) (*excelize.File, error) {
	wb := excelize.NewFile()
	for i, sheet := range f.Sheets(journeys) {
		if err := writeSheet(wb, i, sheet); err != nil {
			_ = wb.Close()
			return nil, fmt.Errorf("sheet %q: %w", sheet.Name, err)
		}
	}
	wb.SetActiveSheet(0)
	return wb, nil
}

func writeSheet(wb *excelize.File, index int, sheet Sheet) error {
	if index == 0 {
		if err := wb.SetSheetName(defaultSheet, sheet.Name); err != nil {
			return err
		}
	} else if _, err := wb.NewSheet(sheet.Name); err != nil {
		return err
	}

	header := make([]any, len(sheet.Headers))
	for i, h := range sheet.Headers {
		header[i] = h
	}
	if err := wb.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return err
	}
	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := row
		if err := wb.SetSheetRow(sheet.Name, cell, &r); err != nil {
			return err
		}
	}

	// Barcode column narrower than the timestamp-heavy rest.
	if err := wb.SetColWidth(sheet.Name, "A", "A", 15); err != nil {
		return err
	}
	last, err := excelize.ColumnNumberToName(len(sheet.Headers))
	if err != nil {
		return err
	}
	if len(sheet.Headers) > 1 {
		if err := wb.SetColWidth(sheet.Name, "B", last, 20); err != nil {
			return err
		}
	}
	return wb.SetPanes(sheet.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// WriteXLSX streams the report workbook to w.
func (f *Formatter) WriteXLSX(w io.Writer, journeys []*model.MachineJourney) error {
	wb, err := f.Workbook(journeys)
	if err != nil {
		return err
	}
	defer wb.Close()
	if err := wb.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
