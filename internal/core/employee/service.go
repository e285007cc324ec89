package employee

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100

	minFullNameLength   = 2
	maxFullNameLength   = 100
	minDepartmentLength = 2
	maxDepartmentLength = 50
	maxEmailLength      = 255

	employeeIDPrefix   = "EMP"
	employeeIDMinWidth = 3
)

// EmployeeIDPattern は採番済み社員 ID の形式です。
var EmployeeIDPattern = regexp.MustCompile(`^EMP\d{3,}$`)

// Service は社員に関するユースケースをまとめます。
type Service struct {
	repo   Repository
	clock  Clock
	tx     TransactionManager
	logger *zap.Logger
}

// UseCase は社員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error)
	ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error)
	ListAllEmployees(ctx context.Context) ([]*Summary, error)
	DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager, logger *zap.Logger) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, clock: clock, tx: tx, logger: logger.Named("employee")}
}

// CreateEmployeeInput は社員作成時の入力です。
type CreateEmployeeInput struct {
	FullName   string
	Email      string
	Department string
}

// GetEmployeeInput は社員取得時の入力です。
type GetEmployeeInput struct {
	EmployeeID string
}

// DeleteEmployeeInput は社員削除時の入力です。
type DeleteEmployeeInput struct {
	EmployeeID string
}

// ListEmployeesInput は一覧取得時の入力です。Page は 1 始まりです。
type ListEmployeesInput struct {
	Page       int
	Limit      int
	Search     string
	Department string
}

// ListEmployeesResult は一覧取得結果を表します。
type ListEmployeesResult struct {
	Employees  []*Employee
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// CreateEmployee は新しい社員を作成します。
//
// 採番クエリが失敗した場合でも作成自体は継続できるよう、採番と登録は単一トランザクションにまとめていません。
// 同時作成で同じ ID が採番された場合は一意制約により後着側が ErrEmployeeIDAlreadyExists になります。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	fullName, err := normalizeFullName(in.FullName)
	if err != nil {
		return nil, err
	}

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	department, err := normalizeDepartment(in.Department)
	if err != nil {
		return nil, err
	}

	if err := s.ensureEmailNotExists(ctx, email); err != nil {
		return nil, err
	}

	emp := &Employee{
		EmployeeID: s.nextEmployeeID(ctx),
		FullName:   fullName,
		Email:      email,
		Department: department,
		CreatedAt:  s.clock.Now(),
	}

	created, err := s.repo.Create(ctx, emp)
	if err != nil {
		return nil, err
	}

	s.logger.Info("employee created",
		zap.String("employee_id", created.EmployeeID),
		zap.String("email", created.Email),
	)
	return created, nil
}

// GetEmployee は社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error) {
	employeeID, err := NormalizeEmployeeID(in.EmployeeID)
	if err != nil {
		return nil, err
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByEmployeeID(txCtx, employeeID)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListEmployees は社員の一覧を作成日時の降順で取得します。
func (s *Service) ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error) {
	page, limit, err := normalizePagination(in.Page, in.Limit)
	if err != nil {
		return nil, err
	}

	filter := ListEmployeesFilter{
		Search:     strings.TrimSpace(in.Search),
		Department: strings.TrimSpace(in.Department),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}

	var (
		employees []*Employee
		total     int64
	)
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, count, err := s.repo.List(txCtx, filter)
		if err != nil {
			return err
		}
		employees = found
		total = count
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListEmployeesResult{
		Employees:  employees,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

// ListAllEmployees は全社員の要約を氏名の昇順で取得します。
func (s *Service) ListAllEmployees(ctx context.Context) ([]*Summary, error) {
	var result []*Summary
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.ListAll(txCtx)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteEmployee は社員を物理削除します。勤怠記録には手を加えません。
func (s *Service) DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error {
	employeeID, err := NormalizeEmployeeID(in.EmployeeID)
	if err != nil {
		return err
	}

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, employeeID)
	}); err != nil {
		return err
	}

	s.logger.Info("employee deleted", zap.String("employee_id", employeeID))
	return nil
}

func (s *Service) ensureEmailNotExists(ctx context.Context, email string) error {
	emp, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrEmployeeNotFound) {
		return err
	}
	if emp != nil {
		return ErrEmailAlreadyExists
	}
	return nil
}

// nextEmployeeID は既存の最大連番 + 1 を採番します。
// 採番クエリが失敗した場合はタイムスタンプ由来の ID に縮退し、その旨を警告ログに残します。
func (s *Service) nextEmployeeID(ctx context.Context) string {
	maxSeq, err := s.repo.MaxSequence(ctx)
	if err != nil {
		fallback := fallbackEmployeeID(s.clock.Now())
		s.logger.Warn("employee id generation failed, falling back to timestamp id",
			zap.String("employee_id", fallback),
			zap.Error(err),
		)
		return fallback
	}
	return FormatEmployeeID(maxSeq + 1)
}

// FormatEmployeeID は連番を EMP + 3 桁以上のゼロ埋め形式に整形します。
func FormatEmployeeID(seq int64) string {
	return fmt.Sprintf("%s%0*d", employeeIDPrefix, employeeIDMinWidth, seq)
}

func fallbackEmployeeID(now time.Time) string {
	return fmt.Sprintf("%s%06d", employeeIDPrefix, now.UnixMilli()%1_000_000)
}

// NormalizeEmployeeID は社員 ID の前後空白を除去し形式を検証します。
func NormalizeEmployeeID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !EmployeeIDPattern.MatchString(trimmed) {
		return "", ErrInvalidEmployeeID
	}
	return trimmed, nil
}

func normalizeFullName(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(trimmed)
	if n < minFullNameLength || n > maxFullNameLength {
		return "", ErrInvalidFullName
	}
	return trimmed, nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || len(trimmed) > maxEmailLength || !strings.Contains(trimmed, "@") {
		return "", ErrInvalidEmail
	}
	return trimmed, nil
}

func normalizeDepartment(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(trimmed)
	if n < minDepartmentLength || n > maxDepartmentLength {
		return "", ErrInvalidDepartment
	}
	return trimmed, nil
}

func normalizePagination(page, limit int) (int, int, error) {
	if page == 0 {
		page = defaultPage
	}
	if page < 1 {
		return 0, 0, ErrInvalidPage
	}

	if limit == 0 {
		limit = defaultLimit
	}
	if limit < 1 || limit > maxLimit {
		return 0, 0, ErrInvalidLimit
	}
	return page, limit, nil
}

func totalPages(total int64, limit int) int {
	if total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
