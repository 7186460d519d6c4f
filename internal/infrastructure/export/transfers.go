// Package export renders transfer listings as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"branchstock/internal/domain/transfer"
)

const (
	transfersSheet = "Transfers"
	statsSheet     = "Summary"
)

var transferHeaders = []string{
	"Number", "Status", "Source", "Destination", "Lines", "Units", "Total cost",
	"Requested", "Sent", "Received", "Cancelled",
}

var transferColWidths = []float64{18, 12, 24, 24, 8, 12, 14, 18, 18, 18, 18}

const dateLayout = "2006-01-02 15:04"

// TransferReport builds a workbook with one row per transfer and a per-status summary.
func TransferReport(rows []transfer.Summary, stats *transfer.Stats) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", transfersSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	boldStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	if err := writeHeader(f, transfersSheet, transferHeaders, boldStyle); err != nil {
		return nil, err
	}

	for i, s := range rows {
		values := []any{
			s.Number,
			s.Status.Label(),
			s.SourceBranchName,
			s.DestinationBranchName,
			s.LinesCount,
			s.TotalUnits.Float64(),
			s.TotalCost.InexactFloat64(),
			s.RequestedAt.Format(dateLayout),
			formatTime(s.SentAt),
			formatTime(s.ReceivedAt),
			formatTime(s.CancelledAt),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(transfersSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	for i, w := range transferColWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(transfersSheet, col, col, w); err != nil {
			return nil, fmt.Errorf("column width: %w", err)
		}
	}

	if stats != nil {
		if err := writeStats(f, stats, boldStyle); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}
	return nil
}

func writeStats(f *excelize.File, stats *transfer.Stats, headerStyle int) error {
	if _, err := f.NewSheet(statsSheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	if err := writeHeader(f, statsSheet, []string{"Status", "Count", "Units", "Cost"}, headerStyle); err != nil {
		return err
	}

	row := 2
	for _, st := range stats.ByStatus {
		values := []any{st.Status.Label(), st.Count, st.Units.Float64(), st.Cost.InexactFloat64()}
		if err := f.SetSheetRow(statsSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
		row++
	}

	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("total style: %w", err)
	}
	total := []any{"Total", stats.Total.Count, stats.Total.Units.Float64(), stats.Total.Cost.InexactFloat64()}
	if err := f.SetSheetRow(statsSheet, fmt.Sprintf("A%d", row), &total); err != nil {
		return fmt.Errorf("write total row: %w", err)
	}
	return f.SetCellStyle(statsSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row), totalStyle)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

// WriteTransferReport renders the report straight to w.
func WriteTransferReport(w io.Writer, rows []transfer.Summary, stats *transfer.Stats) error {
	f, err := TransferReport(rows, stats)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
