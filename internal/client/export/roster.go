package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/ogurasousui/shiftboard/internal/client/repository"
	"github.com/xuri/excelize/v2"
)

const (
	shiftSheet    = "Shifts"
	employeeSheet = "Employees"
)

var shiftHeader = []any{"Date", "Employee Code", "Name", "Department", "Start", "End", "Type"}

var employeeHeader = []any{"ID", "Employee Code", "Name", "Department"}

// WriteRoster はシフト表と従業員一覧を xlsx として w に書き出します。
// シフトは日付、開始時刻、ID の順に並べます。削除済み従業員のシフトは ID のみ表示します。
func WriteRoster(w io.Writer, employees []repository.Employee, shifts []repository.Shift) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", shiftSheet); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(employeeSheet); err != nil {
		return fmt.Errorf("export: create sheet: %w", err)
	}

	byID := make(map[int64]repository.Employee, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
	}

	sorted := make([]repository.Shift, len(shifts))
	copy(sorted, shifts)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			// 開始時刻なしは後ろ
			if a.StartTime == "" || b.StartTime == "" {
				return b.StartTime == ""
			}
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})

	if err := writeRow(f, shiftSheet, 1, shiftHeader); err != nil {
		return err
	}
	for i, s := range sorted {
		e, ok := byID[s.EmployeeID]
		code := e.EmployeeCode
		if !ok {
			code = fmt.Sprintf("#%d", s.EmployeeID)
		}
		row := []any{s.Date, code, e.Name, e.Department, s.StartTime, s.EndTime, s.ShiftType}
		if err := writeRow(f, shiftSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := writeRow(f, employeeSheet, 1, employeeHeader); err != nil {
		return err
	}
	for i, e := range employees {
		if err := writeRow(f, employeeSheet, i+2, []any{e.ID, e.EmployeeCode, e.Name, e.Department}); err != nil {
			return err
		}
	}

	for _, sheet := range []string{shiftSheet, employeeSheet} {
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("export: freeze header on %s: %w", sheet, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export: cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("export: write %s row %d: %w", sheet, row, err)
	}
	return nil
}
