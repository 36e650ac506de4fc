// Package export 冲突报告导出（Excel）
package export

import (
	"bytes"
	"fmt"
	"strings"

	"wisefido-floorplan/internal/merge"

	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary     = "Summary"
	SheetConflicts   = "Conflicts"
	SheetSafeChanges = "Safe Changes"
)

// ConflictsHeader 冲突表头
var ConflictsHeader = []string{"Type", "Room ID", "Description", "Needs Manual Review", "Suggested Resolution", "Version IDs"}

// SafeChangesHeader 安全变更表头
var SafeChangesHeader = []string{"Type", "Room ID", "Action", "Description", "Version IDs"}

// ConflictReportXLSX 把冲突报告写成 xlsx：Summary / Conflicts / Safe Changes 三个工作表
func ConflictReportXLSX(floorPlanID string, report *merge.ConflictReport) ([]byte, error) {
	if report == nil {
		report = merge.GenerateReport(nil)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetConflicts, SheetSafeChanges} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	summary := [][]any{
		{"Floor Plan ID", floorPlanID},
		{"Total Conflicts", report.Summary.TotalConflicts},
		{"Total Safe Changes", report.Summary.TotalSafeChanges},
		{"Can Auto Merge", yesNo(report.Summary.CanAutoMerge)},
	}
	if err := writeRows(f, SheetSummary, summary, 1); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetSummary, "A", "A", 22); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	conflictRows := make([][]any, 0, len(report.Conflicts))
	for _, c := range report.Conflicts {
		conflictRows = append(conflictRows, []any{
			string(c.Type), c.RoomID, c.Description, yesNo(c.NeedsManualReview), c.SuggestedResolution, strings.Join(c.VersionIDs, ", "),
		})
	}
	if err := writeTable(f, SheetConflicts, ConflictsHeader, conflictRows, headerStyle); err != nil {
		return nil, err
	}

	changeRows := make([][]any, 0, len(report.SafeChanges))
	for _, c := range report.SafeChanges {
		changeRows = append(changeRows, []any{
			string(c.Type), c.RoomID, string(c.Action), c.Description, strings.Join(c.VersionIDs, ", "),
		})
	}
	if err := writeTable(f, SheetSafeChanges, SafeChangesHeader, changeRows, headerStyle); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write excel file: %w", err)
	}
	return buf.Bytes(), nil
}

// writeTable 表头 + 数据行，冻结首行
func writeTable(f *excelize.File, sheet string, header []string, rows [][]any, headerStyle int) error {
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := writeRows(f, sheet, [][]any{headerRow}, 1); err != nil {
		return err
	}

	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return fmt.Errorf("failed to convert column number: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", last, 20); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if err := writeRows(f, sheet, rows, 2); err != nil {
		return err
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, startRow int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", startRow+i, sheet, err)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
