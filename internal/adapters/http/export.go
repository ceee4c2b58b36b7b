package httpadapter

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
)

var exportColumns = []struct {
	header string
	value  func(domain.Lead) string
}{
	{"Session", func(l domain.Lead) string { return l.SessionID }},
	{"Name", profileColumn("name")},
	{"Email", profileColumn("email")},
	{"Mobile", profileColumn("mobile")},
	{"Age", profileColumn("age")},
	{"City", profileColumn("city")},
	{"Summary", func(l domain.Lead) string { return l.Summary }},
	{"Summary Source", func(l domain.Lead) string {
		if l.SummaryFallback {
			return "fallback"
		}
		return "generated"
	}},
	{"Record ID", func(l domain.Lead) string { return l.SinkRecordID }},
	{"Created At", func(l domain.Lead) string { return l.CreatedAt.Format(time.RFC3339) }},
}

func profileColumn(field string) func(domain.Lead) string {
	return func(l domain.Lead) string {
		value := l.Profile[field]
		if value == domain.SkippedValue {
			return ""
		}
		return value
	}
}

// writeLeadsWorkbook streams the lead archive as an XLSX attachment.
func writeLeadsWorkbook(w http.ResponseWriter, leads []domain.Lead) error {
	book := excelize.NewFile()
	defer book.Close()

	const sheet = "Leads"
	if err := book.SetSheetName(book.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for col, column := range exportColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := book.SetCellValue(sheet, cell, column.header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for row, lead := range leads {
		for col, column := range exportColumns {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return fmt.Errorf("data cell: %w", err)
			}
			if err := book.SetCellValue(sheet, cell, column.value(lead)); err != nil {
				return fmt.Errorf("write cell: %w", err)
			}
		}
	}

	filename := fmt.Sprintf("leads-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := book.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
