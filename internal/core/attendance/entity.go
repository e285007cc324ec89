package attendance

import (
	"strings"
	"time"
)

// Status は勤怠ステータスを表します。
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
)

// ParseStatus は文字列を Status に変換します。
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPresent:
		return StatusPresent, nil
	case StatusAbsent:
		return StatusAbsent, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Record は 1 社員 1 日分の勤怠記録です。
// Date は暦日を表し、常に UTC の 0 時で保持します。
// EmployeeName は参照時に補完される値で、社員が削除済みの場合は nil です。
type Record struct {
	ID           string
	EmployeeID   string
	EmployeeName *string
	Date         time.Time
	Status       Status
	CreatedAt    time.Time
}

// EmployeeRef は勤怠から見た社員の最小限の情報です。
type EmployeeRef struct {
	EmployeeID string
	FullName   string
}

// Stats は期間内の勤怠集計です。
// TotalEmployees のみ期間に依存しない全社員数です。
type Stats struct {
	TotalRecords            int64
	PresentCount            int64
	AbsentCount             int64
	TotalEmployees          int64
	EmployeesWithAttendance int64
}

// EmployeeStats は社員単位の勤怠集計です。
type EmployeeStats struct {
	EmployeeID   string
	EmployeeName string
	TotalRecords int64
	PresentCount int64
	AbsentCount  int64
	Records      []*Record
}

// DayLayout は暦日の文字列表現です。
const DayLayout = "2006-01-02"

// ParseDay は YYYY-MM-DD 形式の文字列を暦日として解釈します。
func ParseDay(raw string) (time.Time, error) {
	day, err := time.Parse(DayLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return day, nil
}

// NormalizeDay は時刻 t が loc において属する暦日を返します。
func NormalizeDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDay は暦日を YYYY-MM-DD 形式で返します。
func FormatDay(day time.Time) string {
	return day.Format(DayLayout)
}
