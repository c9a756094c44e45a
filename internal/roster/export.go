package roster

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

var rosterHeaders = []string{
	"Patient", "Age", "Condition", "Sector",
	"Stability Index", "NEWS2", "Trend", "Category", "Sync Mode", "Sync Interval",
}

var shortageHeaders = []string{"Sector", "Patients At Risk", "Severity"}

// ExportXLSX renders a snapshot as a two-sheet workbook (roster + shortage
// predictions) for ward handover reports.
func ExportXLSX(snap *Snapshot) ([]byte, error) {
	f := excelize.NewFile()

	rosterSheet := "Roster"
	index, err := f.NewSheet(rosterSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create roster sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeRow(f, rosterSheet, 1, headersToCells(rosterHeaders)); err != nil {
		f.Close()
		return nil, err
	}
	for col := range rosterHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellStyle(rosterSheet, cell, cell, headerStyle)
	}

	for i, entry := range snap.Entries {
		row := []any{
			entry.Name,
			entry.Age,
			entry.Condition,
			entry.Sector,
			entry.StabilityIndex,
			entry.News2Score,
			string(entry.Trend),
			string(entry.Category),
			string(entry.Policy.Mode),
			entry.Policy.Interval.Std().String(),
		}
		if err := writeRow(f, rosterSheet, i+2, row); err != nil {
			f.Close()
			return nil, err
		}
	}

	shortageSheet := "Shortages"
	if _, err := f.NewSheet(shortageSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create shortages sheet: %w", err)
	}
	if err := writeRow(f, shortageSheet, 1, headersToCells(shortageHeaders)); err != nil {
		f.Close()
		return nil, err
	}
	for i, shortage := range snap.Shortages {
		row := []any{shortage.Sector, shortage.PatientsAtRisk, string(shortage.Severity)}
		if err := writeRow(f, shortageSheet, i+2, row); err != nil {
			f.Close()
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	f.Close()
	return buf.Bytes(), nil
}

func headersToCells(headers []string) []any {
	out := make([]any, len(headers))
	for i, h := range headers {
		out[i] = h
	}
	return out
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}
