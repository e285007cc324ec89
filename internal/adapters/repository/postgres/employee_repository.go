package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/hrms-lite/internal/core/employee"
	pgdb "github.com/ogurasousui/hrms-lite/internal/platform/db/postgres"
)

const (
	uniqueViolationCode = "23505"

	employeesEmailConstraint      = "employees_email_key"
	employeesEmployeeIDConstraint = "employees_employee_id_key"
)

const employeeColumns = `id::text, employee_id, full_name, email, department, created_at`

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Create は社員を新規作成します。ID はデータベース側で採番されます。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employees (employee_id, full_name, email, department, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+employeeColumns,
		e.EmployeeID,
		e.FullName,
		e.Email,
		e.Department,
		e.CreatedAt,
	)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// Delete は社員 ID で社員を削除します。
func (r *EmployeeRepository) Delete(ctx context.Context, employeeID string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employees WHERE employee_id = $1`, employeeID)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// FindByEmployeeID は社員 ID で社員を取得します。
func (r *EmployeeRepository) FindByEmployeeID(ctx context.Context, employeeID string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE employee_id = $1
         LIMIT 1
    `, employeeID)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// FindByEmail はメールアドレスで社員を取得します。メールアドレスは小文字で保存されています。
func (r *EmployeeRepository) FindByEmail(ctx context.Context, email string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE email = lower($1)
         LIMIT 1
    `, email)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// FindByEmployeeIDs は指定された社員 ID のうち存在するものをまとめて取得します。
func (r *EmployeeRepository) FindByEmployeeIDs(ctx context.Context, employeeIDs []string) ([]*employee.Employee, error) {
	if len(employeeIDs) == 0 {
		return []*employee.Employee{}, nil
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE employee_id = ANY($1)
    `, employeeIDs)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0, len(employeeIDs))
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, translateEmployeePgError(err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}
	return employees, nil
}

// List は検索条件に合致する社員を作成日時の降順で取得し、条件に合致する総件数を併せて返します。
func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListEmployeesFilter) ([]*employee.Employee, int64, error) {
	if filter.Limit <= 0 {
		return nil, 0, employee.ErrInvalidLimit
	}
	if filter.Offset < 0 {
		return nil, 0, employee.ErrInvalidPage
	}

	args := make([]any, 0, 4)
	conditions := make([]string, 0, 2)

	if filter.Search != "" {
		placeholder := "$" + strconv.Itoa(len(args)+1)
		conditions = append(conditions, "(full_name ILIKE "+placeholder+" OR email ILIKE "+placeholder+" OR employee_id ILIKE "+placeholder+")")
		args = append(args, containsPattern(filter.Search))
	}

	if filter.Department != "" {
		placeholder := "$" + strconv.Itoa(len(args)+1)
		conditions = append(conditions, "department ILIKE "+placeholder)
		args = append(args, containsPattern(filter.Department))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var total int64
	if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM employees`+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, translateEmployeePgError(err)
	}

	limitPlaceholder := "$" + strconv.Itoa(len(args)+1)
	args = append(args, filter.Limit)
	offsetPlaceholder := "$" + strconv.Itoa(len(args)+1)
	args = append(args, filter.Offset)

	query := `
        SELECT ` + employeeColumns + `
          FROM employees` + whereClause + `
         ORDER BY created_at DESC, id DESC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translateEmployeePgError(err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0, filter.Limit)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, translateEmployeePgError(err)
		}
		employees = append(employees, emp)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, translateEmployeePgError(err)
	}

	return employees, total, nil
}

// ListAll は全社員の要約を氏名の昇順で取得します。
func (r *EmployeeRepository) ListAll(ctx context.Context) ([]*employee.Summary, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id::text, employee_id, full_name, email, department
          FROM employees
         ORDER BY full_name ASC, employee_id ASC
    `)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	summaries := make([]*employee.Summary, 0)
	for rows.Next() {
		var s employee.Summary
		if err := rows.Scan(&s.ID, &s.EmployeeID, &s.FullName, &s.Email, &s.Department); err != nil {
			return nil, translateEmployeePgError(err)
		}
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}
	return summaries, nil
}

// Count は登録済み社員数を返します。
func (r *EmployeeRepository) Count(ctx context.Context) (int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var count int64
	if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM employees`).Scan(&count); err != nil {
		return 0, translateEmployeePgError(err)
	}
	return count, nil
}

// MaxSequence は EMP<数字> 形式の社員 ID の最大連番を返します。
func (r *EmployeeRepository) MaxSequence(ctx context.Context) (int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var seq int64
	if err := exec.QueryRow(ctx, `
        SELECT COALESCE(MAX(substring(employee_id FROM 4)::numeric), 0)::bigint
          FROM employees
         WHERE employee_id ~ '^EMP[0-9]+$'
    `).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		id         string
		employeeID string
		fullName   string
		email      string
		department string
		createdAt  time.Time
	)

	if err := row.Scan(&id, &employeeID, &fullName, &email, &department, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	return &employee.Employee{
		ID:         id,
		EmployeeID: employeeID,
		FullName:   fullName,
		Email:      email,
		Department: department,
		CreatedAt:  createdAt.UTC(),
	}, nil
}

func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		switch pgErr.ConstraintName {
		case employeesEmailConstraint:
			return employee.ErrEmailAlreadyExists
		case employeesEmployeeIDConstraint:
			return employee.ErrEmployeeIDAlreadyExists
		}
	}

	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern は ILIKE 用の部分一致パターンを返します。ワイルドカード文字はエスケープします。
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
