package attendance

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

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

var employeeIDPattern = regexp.MustCompile(`^EMP\d{3,}$`)

// Service は勤怠台帳のユースケースをまとめます。
type Service struct {
	repo      Repository
	directory EmployeeDirectory
	clock     Clock
	tx        TransactionManager
	logger    *zap.Logger
	location  *time.Location
}

// UseCase は勤怠ユースケースの公開インターフェースです。
type UseCase interface {
	MarkAttendance(ctx context.Context, in MarkAttendanceInput) (*Record, error)
	GetEmployeeAttendance(ctx context.Context, in EmployeeAttendanceInput) ([]*Record, error)
	GetDailyAttendance(ctx context.Context, in DailyAttendanceInput) ([]*Record, error)
	GetAttendanceStats(ctx context.Context, in StatsInput) (*Stats, error)
	GetEmployeeAttendanceStats(ctx context.Context, in EmployeeAttendanceInput) (*EmployeeStats, error)
	ListAttendance(ctx context.Context, in StatsInput) ([]*Record, error)
}

// NewService は Service を生成します。location は「今日」を判定する基準タイムゾーンです。
func NewService(repo Repository, directory EmployeeDirectory, clock Clock, tx TransactionManager, logger *zap.Logger, location *time.Location) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{
		repo:      repo,
		directory: directory,
		clock:     clock,
		tx:        tx,
		logger:    logger.Named("attendance"),
		location:  location,
	}
}

// MarkAttendanceInput は勤怠登録時の入力です。Date は YYYY-MM-DD 形式です。
type MarkAttendanceInput struct {
	EmployeeID string
	Date       string
	Status     string
}

// EmployeeAttendanceInput は社員単位の照会時の入力です。期間の端は空文字で無制限になります。
type EmployeeAttendanceInput struct {
	EmployeeID string
	StartDate  string
	EndDate    string
}

// DailyAttendanceInput は日次照会時の入力です。
type DailyAttendanceInput struct {
	Date string
}

// StatsInput は全体集計時の入力です。
type StatsInput struct {
	StartDate string
	EndDate   string
}

// MarkAttendance は勤怠を登録します。
func (s *Service) MarkAttendance(ctx context.Context, in MarkAttendanceInput) (*Record, error) {
	employeeID, err := normalizeEmployeeID(in.EmployeeID)
	if err != nil {
		return nil, err
	}

	day, err := ParseDay(in.Date)
	if err != nil {
		return nil, err
	}
	if day.After(NormalizeDay(s.clock.Now(), s.location)) {
		return nil, ErrFutureDate
	}

	status, err := ParseStatus(in.Status)
	if err != nil {
		return nil, err
	}

	var created *Record
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		emp, err := s.directory.GetEmployee(txCtx, employeeID)
		if err != nil {
			return err
		}

		existing, err := s.repo.FindByEmployeeAndDate(txCtx, employeeID, day)
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			return err
		}
		if existing != nil {
			return ErrAlreadyMarked
		}

		record, err := s.repo.Create(txCtx, &Record{
			EmployeeID: employeeID,
			Date:       day,
			Status:     status,
			CreatedAt:  s.clock.Now(),
		})
		if err != nil {
			return err
		}

		name := emp.FullName
		record.EmployeeName = &name
		created = record
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.Info("attendance marked",
		zap.String("employee_id", employeeID),
		zap.String("date", FormatDay(day)),
		zap.String("status", string(status)),
	)
	return created, nil
}

// GetEmployeeAttendance は社員の期間内の勤怠を日付の降順で返します。
func (s *Service) GetEmployeeAttendance(ctx context.Context, in EmployeeAttendanceInput) ([]*Record, error) {
	employeeID, err := normalizeEmployeeID(in.EmployeeID)
	if err != nil {
		return nil, err
	}

	window, err := parseWindow(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}

	var records []*Record
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		emp, err := s.directory.GetEmployee(txCtx, employeeID)
		if err != nil {
			return err
		}

		found, err := s.repo.ListByEmployee(txCtx, employeeID, window)
		if err != nil {
			return err
		}

		for _, r := range found {
			name := emp.FullName
			r.EmployeeName = &name
		}
		records = found
		return nil
	}); err != nil {
		return nil, err
	}

	return records, nil
}

// GetDailyAttendance は指定日の勤怠を作成日時の降順で返します。
// 社員名は社員 ID ごとにまとめて補完し、削除済み社員の記録は EmployeeName が nil のまま返します。
func (s *Service) GetDailyAttendance(ctx context.Context, in DailyAttendanceInput) ([]*Record, error) {
	day, err := ParseDay(in.Date)
	if err != nil {
		return nil, err
	}

	var records []*Record
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.ListByDate(txCtx, day)
		if err != nil {
			return err
		}
		records = found
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.enrich(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetAttendanceStats は期間内の勤怠を集計します。
// TotalEmployees は期間に関係なく登録済み社員の総数です。
func (s *Service) GetAttendanceStats(ctx context.Context, in StatsInput) (*Stats, error) {
	window, err := parseWindow(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}

	var stats Stats
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		summary, err := s.repo.Summarize(txCtx, SummaryFilter{Window: window})
		if err != nil {
			return err
		}

		total, err := s.directory.CountEmployees(txCtx)
		if err != nil {
			return err
		}

		stats = Stats{
			TotalRecords:            summary.Total,
			PresentCount:            summary.Present,
			AbsentCount:             summary.Absent,
			TotalEmployees:          total,
			EmployeesWithAttendance: summary.DistinctEmployees,
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return &stats, nil
}

// GetEmployeeAttendanceStats は社員単位で期間内の勤怠を集計し、対象記録を日付の降順で返します。
func (s *Service) GetEmployeeAttendanceStats(ctx context.Context, in EmployeeAttendanceInput) (*EmployeeStats, error) {
	employeeID, err := normalizeEmployeeID(in.EmployeeID)
	if err != nil {
		return nil, err
	}

	window, err := parseWindow(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}

	var result *EmployeeStats
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		emp, err := s.directory.GetEmployee(txCtx, employeeID)
		if err != nil {
			return err
		}

		records, err := s.repo.ListByEmployee(txCtx, employeeID, window)
		if err != nil {
			return err
		}

		stats := &EmployeeStats{
			EmployeeID:   emp.EmployeeID,
			EmployeeName: emp.FullName,
			TotalRecords: int64(len(records)),
			Records:      records,
		}
		for _, r := range records {
			switch r.Status {
			case StatusPresent:
				stats.PresentCount++
			case StatusAbsent:
				stats.AbsentCount++
			}
		}
		result = stats
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListAttendance は期間内の全勤怠を日付の降順で返します。社員名の補完は日次照会と同じです。
func (s *Service) ListAttendance(ctx context.Context, in StatsInput) ([]*Record, error) {
	window, err := parseWindow(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}

	var records []*Record
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.List(txCtx, window)
		if err != nil {
			return err
		}
		records = found
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.enrich(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Service) enrich(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(records))
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.EmployeeID]; ok {
			continue
		}
		seen[r.EmployeeID] = struct{}{}
		ids = append(ids, r.EmployeeID)
	}
	sort.Strings(ids)

	refs, err := s.directory.LookupEmployees(ctx, ids)
	if err != nil {
		return err
	}

	for _, r := range records {
		if ref, ok := refs[r.EmployeeID]; ok {
			name := ref.FullName
			r.EmployeeName = &name
		} else {
			r.EmployeeName = nil
		}
	}
	return nil
}

func normalizeEmployeeID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !employeeIDPattern.MatchString(trimmed) {
		return "", ErrInvalidEmployeeID
	}
	return trimmed, nil
}

// parseWindow は空文字の端を無制限として期間を組み立てます。
func parseWindow(start, end string) (Window, error) {
	var window Window

	if strings.TrimSpace(start) != "" {
		day, err := ParseDay(start)
		if err != nil {
			return Window{}, err
		}
		window.Start = &day
	}

	if strings.TrimSpace(end) != "" {
		day, err := ParseDay(end)
		if err != nil {
			return Window{}, err
		}
		window.End = &day
	}

	if window.Start != nil && window.End != nil && window.Start.After(*window.End) {
		return Window{}, ErrInvalidDateRange
	}
	return window, nil
}
