// Package report は勤怠記録を表計算ファイルへ出力します。
package report

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/ogurasousui/hrms-lite/internal/core/attendance"
	"github.com/xuri/excelize/v2"
)

// ContentType は出力するワークブックの MIME タイプです。
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	sheetName     = "Attendance"
	defaultSheet  = "Sheet1"
	openBoundName = "all"
)

// ErrGenerateWorkbook はワークブックの生成に失敗したことを表します。
var ErrGenerateWorkbook = errors.New("report: generate workbook")

var headers = []string{"Date", "Employee ID", "Employee Name", "Status", "Marked At"}

// AttendanceWorkbook は勤怠記録を 1 シートのワークブックに書き出し、推奨ファイル名とともに返します。
// 社員が削除済みの記録は社員名を空欄にします。
func AttendanceWorkbook(records []*attendance.Record, start, end string) (*bytes.Buffer, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrGenerateWorkbook, err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet(defaultSheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrGenerateWorkbook, err)
	}

	for i, h := range headers {
		if err := f.SetCellValue(sheetName, cell(i+1, 1), h); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrGenerateWorkbook, err)
		}
	}
	if err := f.SetCellStyle(sheetName, cell(1, 1), cell(len(headers), 1), headerStyle); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrGenerateWorkbook, err)
	}
	_ = f.SetColWidth(sheetName, "A", "B", 14)
	_ = f.SetColWidth(sheetName, "C", "C", 28)
	_ = f.SetColWidth(sheetName, "E", "E", 22)

	for i, r := range records {
		row := i + 2
		name := ""
		if r.EmployeeName != nil {
			name = *r.EmployeeName
		}
		values := []any{
			attendance.FormatDay(r.Date),
			r.EmployeeID,
			name,
			string(r.Status),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		for col, v := range values {
			if err := f.SetCellValue(sheetName, cell(col+1, row), v); err != nil {
				return nil, "", fmt.Errorf("%w: %v", ErrGenerateWorkbook, err)
			}
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrGenerateWorkbook, err)
	}
	return buf, Filename(start, end), nil
}

// Filename は期間から出力ファイル名を組み立てます。未指定の端は all と表記します。
func Filename(start, end string) string {
	if start == "" {
		start = openBoundName
	}
	if end == "" {
		end = openBoundName
	}
	return fmt.Sprintf("attendance_%s_%s.xlsx", start, end)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
