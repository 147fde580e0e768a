package utils

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"gatewatch/models"
)

var ErrEmptyReport = errors.New("no notification run to export")

// reportGenerator holds the state for one workbook build.
type reportGenerator struct {
	file *excelize.File
}

// GenerateRunReport renders a notification run report as an .xlsx workbook:
// a summary block on top, one row per processed employee below.
func GenerateRunReport(report *models.NotificationRunResponse) (*bytes.Buffer, error) {
	if report == nil {
		return nil, ErrEmptyReport
	}

	gen := &reportGenerator{file: excelize.NewFile()}
	defer gen.file.Close()

	const sheet = "Notification Run"
	index, err := gen.file.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	gen.file.SetActiveSheet(index)
	if sheetIndex, _ := gen.file.GetSheetIndex("Sheet1"); sheetIndex != -1 {
		if err = gen.file.DeleteSheet("Sheet1"); err != nil {
			return nil, fmt.Errorf("failed to delete default sheet: %w", err)
		}
	}

	if err = gen.writeSummary(sheet, report); err != nil {
		return nil, err
	}
	if err = gen.writeResults(sheet, report.Results); err != nil {
		return nil, err
	}

	buf, err := gen.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf, nil
}

func (g *reportGenerator) writeSummary(sheet string, report *models.NotificationRunResponse) error {
	headerStyle, err := g.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	rows := [][]interface{}{
		{"Date", report.Date},
		{"Total targets", report.TotalTargets},
		{"Sent", report.SentCount},
		{"Skipped", report.SkippedCount},
		{"Failed", report.FailedCount},
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := g.file.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
		if err := g.file.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to style summary row: %w", err)
		}
	}
	return nil
}

func (g *reportGenerator) writeResults(sheet string, results []models.NotificationRunResult) error {
	const startRow = 7

	header := []interface{}{"Card No", "Employee", "Status", "Notice Type", "To", "Error"}
	if err := g.file.SetSheetRow(sheet, fmt.Sprintf("A%d", startRow), &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	headerStyle, err := g.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDDDDD"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	if err = g.file.SetCellStyle(sheet, fmt.Sprintf("A%d", startRow), fmt.Sprintf("F%d", startRow), headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, res := range results {
		row := []interface{}{res.CardNo, res.EmployeeName, res.Status, res.NoticeType, res.ToEmail, res.Error}
		if err := g.file.SetSheetRow(sheet, fmt.Sprintf("A%d", startRow+1+i), &row); err != nil {
			return fmt.Errorf("failed to write result row: %w", err)
		}
	}

	return g.file.SetColWidth(sheet, "A", "F", 24)
}
