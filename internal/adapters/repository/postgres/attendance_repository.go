package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/hrms-lite/internal/core/attendance"
	pgdb "github.com/ogurasousui/hrms-lite/internal/platform/db/postgres"
)

const attendanceEmployeeDateConstraint = "attendance_records_employee_date_key"

const attendanceColumns = `id::text, employee_id, attendance_date, status, created_at`

// AttendanceRepository は PostgreSQL を利用した勤怠記録永続化の実装です。
type AttendanceRepository struct {
	pool pgdb.Queryer
}

// NewAttendanceRepository は AttendanceRepository を生成します。
func NewAttendanceRepository(pool pgdb.Queryer) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Create は勤怠記録を追加します。(employee_id, attendance_date) の一意制約違反は ErrAlreadyMarked に変換します。
func (r *AttendanceRepository) Create(ctx context.Context, record *attendance.Record) (*attendance.Record, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO attendance_records (employee_id, attendance_date, status, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING `+attendanceColumns,
		record.EmployeeID,
		record.Date,
		string(record.Status),
		record.CreatedAt,
	)

	created, err := scanAttendance(row)
	if err != nil {
		return nil, translateAttendancePgError(err)
	}
	return created, nil
}

// FindByEmployeeAndDate は社員 ID と日付で勤怠記録を取得します。
func (r *AttendanceRepository) FindByEmployeeAndDate(ctx context.Context, employeeID string, day time.Time) (*attendance.Record, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+attendanceColumns+`
          FROM attendance_records
         WHERE employee_id = $1 AND attendance_date = $2
         LIMIT 1
    `, employeeID, day)

	found, err := scanAttendance(row)
	if err != nil {
		return nil, translateAttendancePgError(err)
	}
	return found, nil
}

// ListByEmployee は社員の期間内の勤怠を日付の降順で取得します。
func (r *AttendanceRepository) ListByEmployee(ctx context.Context, employeeID string, window attendance.Window) ([]*attendance.Record, error) {
	args := []any{employeeID}
	conditions := append([]string{"employee_id = $1"}, windowConditions(window, &args)...)

	return r.query(ctx, `
        SELECT `+attendanceColumns+`
          FROM attendance_records
         WHERE `+strings.Join(conditions, " AND ")+`
         ORDER BY attendance_date DESC, created_at DESC
    `, args...)
}

// ListByDate は指定日の勤怠を作成日時の降順で取得します。
func (r *AttendanceRepository) ListByDate(ctx context.Context, day time.Time) ([]*attendance.Record, error) {
	return r.query(ctx, `
        SELECT `+attendanceColumns+`
          FROM attendance_records
         WHERE attendance_date = $1
         ORDER BY created_at DESC, id DESC
    `, day)
}

// List は期間内の勤怠を日付の降順、同日内は作成日時の降順で取得します。
func (r *AttendanceRepository) List(ctx context.Context, window attendance.Window) ([]*attendance.Record, error) {
	args := make([]any, 0, 2)
	whereClause := ""
	if conditions := windowConditions(window, &args); len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	return r.query(ctx, `
        SELECT `+attendanceColumns+`
          FROM attendance_records`+whereClause+`
         ORDER BY attendance_date DESC, created_at DESC
    `, args...)
}

// Summarize は条件に合致する勤怠をステータス別に 1 クエリで集計します。
func (r *AttendanceRepository) Summarize(ctx context.Context, filter attendance.SummaryFilter) (*attendance.Summary, error) {
	args := make([]any, 0, 3)
	conditions := make([]string, 0, 3)

	if filter.EmployeeID != nil {
		placeholder := "$" + strconv.Itoa(len(args)+1)
		conditions = append(conditions, "employee_id = "+placeholder)
		args = append(args, *filter.EmployeeID)
	}
	conditions = append(conditions, windowConditions(filter.Window, &args)...)

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var summary attendance.Summary
	if err := exec.QueryRow(ctx, `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status = 'present'),
               COUNT(*) FILTER (WHERE status = 'absent'),
               COUNT(DISTINCT employee_id)
          FROM attendance_records`+whereClause,
		args...,
	).Scan(&summary.Total, &summary.Present, &summary.Absent, &summary.DistinctEmployees); err != nil {
		return nil, translateAttendancePgError(err)
	}
	return &summary, nil
}

func (r *AttendanceRepository) query(ctx context.Context, sql string, args ...any) ([]*attendance.Record, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, translateAttendancePgError(err)
	}
	defer rows.Close()

	records := make([]*attendance.Record, 0)
	for rows.Next() {
		record, err := scanAttendance(rows)
		if err != nil {
			return nil, translateAttendancePgError(err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, translateAttendancePgError(err)
	}
	return records, nil
}

// windowConditions は期間の端ごとに条件を組み立て、値を args に追加します。
func windowConditions(window attendance.Window, args *[]any) []string {
	conditions := make([]string, 0, 2)
	if window.Start != nil {
		placeholder := "$" + strconv.Itoa(len(*args)+1)
		conditions = append(conditions, "attendance_date >= "+placeholder)
		*args = append(*args, *window.Start)
	}
	if window.End != nil {
		placeholder := "$" + strconv.Itoa(len(*args)+1)
		conditions = append(conditions, "attendance_date <= "+placeholder)
		*args = append(*args, *window.End)
	}
	return conditions
}

func scanAttendance(row pgx.Row) (*attendance.Record, error) {
	var (
		id         string
		employeeID string
		day        time.Time
		status     string
		createdAt  time.Time
	)

	if err := row.Scan(&id, &employeeID, &day, &status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, attendance.ErrRecordNotFound
		}
		return nil, err
	}

	return &attendance.Record{
		ID:         id,
		EmployeeID: employeeID,
		Date:       time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
		Status:     attendance.Status(status),
		CreatedAt:  createdAt.UTC(),
	}, nil
}

func translateAttendancePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return attendance.ErrRecordNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode && pgErr.ConstraintName == attendanceEmployeeDateConstraint {
		return attendance.ErrAlreadyMarked
	}

	return err
}
