package interfaces

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	alarms "alarmhub/internal/alarms/domain"
)

const timeLayout = time.RFC3339

// BuildHistoryCSV renders resolved alarms as CSV.
func BuildHistoryCSV(items []alarms.Alarm) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{
		"id",
		"message",
		"fire_at",
		"recurring",
		"recurrence_kind",
		"week_days",
		"month_days",
		"created_at",
	}); err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := writer.Write([]string{
			item.ID,
			item.Message,
			item.FireAt.Format(timeLayout),
			strconv.FormatBool(item.IsRecurring),
			string(item.RecurrenceKind),
			formatDays(item.WeekDays),
			formatDays(item.MonthDays),
			item.CreatedAt.Format(timeLayout),
		}); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildHistoryXLSX renders resolved alarms as a workbook.
func BuildHistoryXLSX(items []alarms.Alarm) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "history"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Message", "Fired At", "Recurring", "Kind", "Week Days", "Month Days", "Created At"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, header)
	}
	for i, item := range items {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), item.ID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), item.Message)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), item.FireAt.Format(timeLayout))
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), item.IsRecurring)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), string(item.RecurrenceKind))
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), formatDays(item.WeekDays))
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), formatDays(item.MonthDays))
		_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", row), item.CreatedAt.Format(timeLayout))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildHistoryPDF renders resolved alarms as a minimal PDF table.
func BuildHistoryPDF(items []alarms.Alarm, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Alarm History")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format(timeLayout)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Entries: %d", len(items)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Fired At", "1", 0, "C", false, 0, "")
	pdf.CellFormat(100, 6, "Message", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Recurring", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, item := range items {
		pdf.CellFormat(50, 6, item.FireAt.Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(100, 6, item.Message, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, strconv.FormatBool(item.IsRecurring), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatDays(days []int) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, len(days))
	for i, day := range days {
		parts[i] = strconv.Itoa(day)
	}
	return strings.Join(parts, " ")
}
