package attendance

import (
	"context"
	"time"
)

// Window は両端を含む暦日の期間です。nil の端は無制限を表します。
type Window struct {
	Start *time.Time
	End   *time.Time
}

// Contains は day が期間内かどうかを返します。
func (w Window) Contains(day time.Time) bool {
	if w.Start != nil && day.Before(*w.Start) {
		return false
	}
	if w.End != nil && day.After(*w.End) {
		return false
	}
	return true
}

// SummaryFilter は集計対象の条件です。
type SummaryFilter struct {
	EmployeeID *string
	Window     Window
}

// Summary は集計クエリの結果です。
type Summary struct {
	Total             int64
	Present           int64
	Absent            int64
	DistinctEmployees int64
}

// Repository は勤怠記録の永続化を抽象化します。
type Repository interface {
	// Create は記録を追加します。同一社員・同一日の記録が既にあれば ErrAlreadyMarked を返します。
	Create(ctx context.Context, record *Record) (*Record, error)
	// FindByEmployeeAndDate は該当記録が無い場合 ErrRecordNotFound を返します。
	FindByEmployeeAndDate(ctx context.Context, employeeID string, day time.Time) (*Record, error)
	// ListByEmployee は日付の降順で返します。
	ListByEmployee(ctx context.Context, employeeID string, window Window) ([]*Record, error)
	// ListByDate は作成日時の降順で返します。
	ListByDate(ctx context.Context, day time.Time) ([]*Record, error)
	// List は日付の降順、同日内は作成日時の降順で返します。
	List(ctx context.Context, window Window) ([]*Record, error)
	Summarize(ctx context.Context, filter SummaryFilter) (*Summary, error)
}

// EmployeeDirectory は勤怠から社員台帳を参照するための窓口です。
type EmployeeDirectory interface {
	// GetEmployee は社員が存在しない場合 ErrEmployeeNotFound を返します。
	GetEmployee(ctx context.Context, employeeID string) (*EmployeeRef, error)
	// LookupEmployees は存在する社員のみを含むマップを返します。
	LookupEmployees(ctx context.Context, employeeIDs []string) (map[string]EmployeeRef, error)
	CountEmployees(ctx context.Context) (int64, error)
}
