package employee

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeEmployeeRepo struct {
	employees   map[string]*Employee
	order       []string
	sequence    int
	maxSeqErr   error
	createCalls int
}

func newFakeEmployeeRepo() *fakeEmployeeRepo {
	return &fakeEmployeeRepo{employees: make(map[string]*Employee)}
}

func (r *fakeEmployeeRepo) Create(_ context.Context, e *Employee) (*Employee, error) {
	r.createCalls++
	for _, existing := range r.employees {
		if existing.Email == e.Email {
			return nil, ErrEmailAlreadyExists
		}
	}
	if _, ok := r.employees[e.EmployeeID]; ok {
		return nil, ErrEmployeeIDAlreadyExists
	}

	clone := cloneEmployee(e)
	r.sequence++
	clone.ID = fmt.Sprintf("uuid-%d", r.sequence)
	r.employees[clone.EmployeeID] = clone
	r.order = append(r.order, clone.EmployeeID)
	return cloneEmployee(clone), nil
}

func (r *fakeEmployeeRepo) Delete(_ context.Context, employeeID string) error {
	if _, ok := r.employees[employeeID]; !ok {
		return ErrEmployeeNotFound
	}
	delete(r.employees, employeeID)
	for idx, id := range r.order {
		if id == employeeID {
			r.order = append(r.order[:idx], r.order[idx+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeEmployeeRepo) FindByEmployeeID(_ context.Context, employeeID string) (*Employee, error) {
	emp, ok := r.employees[employeeID]
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	return cloneEmployee(emp), nil
}

func (r *fakeEmployeeRepo) FindByEmail(_ context.Context, email string) (*Employee, error) {
	for _, emp := range r.employees {
		if emp.Email == email {
			return cloneEmployee(emp), nil
		}
	}
	return nil, ErrEmployeeNotFound
}

func (r *fakeEmployeeRepo) FindByEmployeeIDs(_ context.Context, employeeIDs []string) ([]*Employee, error) {
	var result []*Employee
	for _, id := range employeeIDs {
		if emp, ok := r.employees[id]; ok {
			result = append(result, cloneEmployee(emp))
		}
	}
	return result, nil
}

func (r *fakeEmployeeRepo) List(_ context.Context, filter ListEmployeesFilter) ([]*Employee, int64, error) {
	var filtered []*Employee
	// 新しい順
	for i := len(r.order) - 1; i >= 0; i-- {
		emp := r.employees[r.order[i]]
		if filter.Search != "" {
			q := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(emp.FullName), q) &&
				!strings.Contains(strings.ToLower(emp.Email), q) &&
				!strings.Contains(strings.ToLower(emp.EmployeeID), q) {
				continue
			}
		}
		if filter.Department != "" && !strings.Contains(strings.ToLower(emp.Department), strings.ToLower(filter.Department)) {
			continue
		}
		filtered = append(filtered, cloneEmployee(emp))
	}

	total := int64(len(filtered))
	if filter.Offset > len(filtered) {
		return []*Employee{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[filter.Offset:end], total, nil
}

func (r *fakeEmployeeRepo) ListAll(_ context.Context) ([]*Summary, error) {
	result := make([]*Summary, 0, len(r.employees))
	for _, emp := range r.employees {
		result = append(result, &Summary{
			ID:         emp.ID,
			EmployeeID: emp.EmployeeID,
			FullName:   emp.FullName,
			Email:      emp.Email,
			Department: emp.Department,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FullName < result[j].FullName })
	return result, nil
}

func (r *fakeEmployeeRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.employees)), nil
}

func (r *fakeEmployeeRepo) MaxSequence(_ context.Context) (int64, error) {
	if r.maxSeqErr != nil {
		return 0, r.maxSeqErr
	}
	var highest int64
	for id := range r.employees {
		if !EmployeeIDPattern.MatchString(id) {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimPrefix(id, "EMP"), 10, 64)
		if err == nil && n > highest {
			highest = n
		}
	}
	return highest, nil
}

func cloneEmployee(e *Employee) *Employee {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

type recordingTxManager struct {
	readOnly  int
	readWrite int
}

func (m *recordingTxManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	m.readOnly++
	return fn(ctx)
}

func (m *recordingTxManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	m.readWrite++
	return fn(ctx)
}

func newTestService(repo Repository) *Service {
	clock := &stubClock{now: time.Date(2024, 1, 15, 9, 30, 0, 123_000_000, time.UTC)}
	return NewService(repo, clock, nil, nil)
}

func TestService_CreateEmployee_SequentialIDs(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeEmployeeRepo())
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		emp, err := svc.CreateEmployee(ctx, CreateEmployeeInput{
			FullName:   fmt.Sprintf("Employee %c", 'A'+i-1),
			Email:      fmt.Sprintf("employee%d@example.com", i),
			Department: "Engineering",
		})
		if err != nil {
			t.Fatalf("CreateEmployee #%d returned error: %v", i, err)
		}
		want := fmt.Sprintf("EMP%03d", i)
		if emp.EmployeeID != want {
			t.Fatalf("expected %s, got %s", want, emp.EmployeeID)
		}
	}
}

func TestService_CreateEmployee_NormalizesInput(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeEmployeeRepo())

	emp, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{
		FullName:   "  Ada Lovelace ",
		Email:      " Ada@Example.COM ",
		Department: " R&D ",
	})
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	if emp.FullName != "Ada Lovelace" || emp.Email != "ada@example.com" || emp.Department != "R&D" {
		t.Fatalf("unexpected normalized employee: %+v", emp)
	}
	if emp.ID == "" {
		t.Fatal("expected surrogate id to be assigned")
	}
	if !emp.CreatedAt.Equal(time.Date(2024, 1, 15, 9, 30, 0, 123_000_000, time.UTC)) {
		t.Fatalf("unexpected created_at: %v", emp.CreatedAt)
	}
}

func TestService_CreateEmployee_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.CreateEmployee(ctx, CreateEmployeeInput{FullName: "Ada Lovelace", Email: "ada@example.com", Department: "R&D"}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := svc.CreateEmployee(ctx, CreateEmployeeInput{FullName: "Ada Byron", Email: "ADA@example.com", Department: "R&D"})
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
	if repo.createCalls != 1 {
		t.Fatalf("expected duplicate to be rejected before insert, got %d inserts", repo.createCalls)
	}
}

func TestService_CreateEmployee_ContinuesAfterGaps(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	repo.employees["EMP007"] = &Employee{ID: "legacy", EmployeeID: "EMP007", FullName: "Legacy", Email: "legacy@example.com", Department: "Ops"}
	repo.employees["TMP999"] = &Employee{ID: "odd", EmployeeID: "TMP999", FullName: "Odd", Email: "odd@example.com", Department: "Ops"}
	repo.order = []string{"EMP007", "TMP999"}

	emp, err := newTestService(repo).CreateEmployee(context.Background(), CreateEmployeeInput{
		FullName: "Grace Hopper", Email: "grace@example.com", Department: "Navy",
	})
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}
	if emp.EmployeeID != "EMP008" {
		t.Fatalf("expected EMP008, got %s", emp.EmployeeID)
	}
}

func TestService_CreateEmployee_FallsBackToTimestampID(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	repo.maxSeqErr = errors.New("connection reset")
	clock := &stubClock{now: time.UnixMilli(1_705_311_000_123).UTC()}
	svc := NewService(repo, clock, nil, nil)

	emp, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{
		FullName: "Grace Hopper", Email: "grace@example.com", Department: "Navy",
	})
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}
	if emp.EmployeeID != "EMP000123" {
		t.Fatalf("expected timestamp fallback EMP000123, got %s", emp.EmployeeID)
	}
}

func TestService_CreateEmployee_InvalidInput(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeEmployeeRepo())

	cases := []struct {
		name  string
		input CreateEmployeeInput
		want  error
	}{
		{"short name", CreateEmployeeInput{FullName: "A", Email: "a@example.com", Department: "Ops"}, ErrInvalidFullName},
		{"missing email", CreateEmployeeInput{FullName: "Ada", Email: "  ", Department: "Ops"}, ErrInvalidEmail},
		{"email without at", CreateEmployeeInput{FullName: "Ada", Email: "ada.example.com", Department: "Ops"}, ErrInvalidEmail},
		{"short department", CreateEmployeeInput{FullName: "Ada", Email: "ada@example.com", Department: "O"}, ErrInvalidDepartment},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateEmployee(context.Background(), tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestService_GetEmployee(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	tx := &recordingTxManager{}
	svc := NewService(repo, &stubClock{now: time.Now()}, tx, nil)
	ctx := context.Background()

	created, err := svc.CreateEmployee(ctx, CreateEmployeeInput{FullName: "Ada Lovelace", Email: "ada@example.com", Department: "R&D"})
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	got, err := svc.GetEmployee(ctx, GetEmployeeInput{EmployeeID: " " + created.EmployeeID + " "})
	if err != nil {
		t.Fatalf("GetEmployee returned error: %v", err)
	}
	if got.Email != "ada@example.com" {
		t.Fatalf("unexpected employee: %+v", got)
	}
	if tx.readOnly != 1 {
		t.Fatalf("expected GetEmployee to run in a read-only transaction, got %d", tx.readOnly)
	}

	if _, err := svc.GetEmployee(ctx, GetEmployeeInput{EmployeeID: "EMP999"}); !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
	if _, err := svc.GetEmployee(ctx, GetEmployeeInput{EmployeeID: "EMP1"}); !errors.Is(err, ErrInvalidEmployeeID) {
		t.Fatalf("expected ErrInvalidEmployeeID, got %v", err)
	}
}

func TestService_ListEmployees_Pagination(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeEmployeeRepo())
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if _, err := svc.CreateEmployee(ctx, CreateEmployeeInput{
			FullName:   fmt.Sprintf("Employee %c", 'A'+i),
			Email:      fmt.Sprintf("e%d@example.com", i),
			Department: "Engineering",
		}); err != nil {
			t.Fatalf("CreateEmployee returned error: %v", err)
		}
	}

	first, err := svc.ListEmployees(ctx, ListEmployeesInput{})
	if err != nil {
		t.Fatalf("ListEmployees returned error: %v", err)
	}
	if first.Page != 1 || first.Limit != 10 {
		t.Fatalf("expected defaults page=1 limit=10, got page=%d limit=%d", first.Page, first.Limit)
	}
	if first.Total != 25 || first.TotalPages != 3 {
		t.Fatalf("expected total=25 total_pages=3, got %d/%d", first.Total, first.TotalPages)
	}
	if len(first.Employees) != 10 || first.Employees[0].EmployeeID != "EMP025" {
		t.Fatalf("expected newest first, got %d employees starting with %s", len(first.Employees), first.Employees[0].EmployeeID)
	}

	last, err := svc.ListEmployees(ctx, ListEmployeesInput{Page: 3, Limit: 10})
	if err != nil {
		t.Fatalf("ListEmployees returned error: %v", err)
	}
	if len(last.Employees) != 5 {
		t.Fatalf("expected 5 employees on last page, got %d", len(last.Employees))
	}

	beyond, err := svc.ListEmployees(ctx, ListEmployeesInput{Page: 9, Limit: 10})
	if err != nil {
		t.Fatalf("ListEmployees returned error: %v", err)
	}
	if len(beyond.Employees) != 0 || beyond.Total != 25 {
		t.Fatalf("expected empty page with total preserved, got %d/%d", len(beyond.Employees), beyond.Total)
	}
}

func TestService_ListEmployees_SearchAndDepartment(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeEmployeeRepo())
	ctx := context.Background()

	inputs := []CreateEmployeeInput{
		{FullName: "Ada Lovelace", Email: "ada@example.com", Department: "Research"},
		{FullName: "Grace Hopper", Email: "grace@navy.example", Department: "Engineering"},
		{FullName: "Alan Turing", Email: "alan@example.com", Department: "Research"},
	}
	for _, in := range inputs {
		if _, err := svc.CreateEmployee(ctx, in); err != nil {
			t.Fatalf("CreateEmployee returned error: %v", err)
		}
	}

	res, err := svc.ListEmployees(ctx, ListEmployeesInput{Search: "NAVY"})
	if err != nil {
		t.Fatalf("ListEmployees returned error: %v", err)
	}
	if res.Total != 1 || res.Employees[0].FullName != "Grace Hopper" {
		t.Fatalf("unexpected search result: %+v", res)
	}

	res, err = svc.ListEmployees(ctx, ListEmployeesInput{Department: "research"})
	if err != nil {
		t.Fatalf("ListEmployees returned error: %v", err)
	}
	if res.Total != 2 || res.TotalPages != 1 {
		t.Fatalf("expected 2 research employees, got %d", res.Total)
	}

	res, err = svc.ListEmployees(ctx, ListEmployeesInput{Search: "emp002"})
	if err != nil {
		t.Fatalf("ListEmployees returned error: %v", err)
	}
	if res.Total != 1 || res.Employees[0].EmployeeID != "EMP002" {
		t.Fatalf("expected search by employee id, got %+v", res.Employees)
	}
}

func TestService_ListEmployees_InvalidPagination(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeEmployeeRepo())

	if _, err := svc.ListEmployees(context.Background(), ListEmployeesInput{Page: -1}); !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}
	if _, err := svc.ListEmployees(context.Background(), ListEmployeesInput{Limit: 101}); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestService_ListAllEmployees_SortedByName(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeEmployeeRepo())
	ctx := context.Background()

	for _, name := range []string{"Zed Zulu", "Ada Lovelace", "Mia Moss"} {
		email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"
		if _, err := svc.CreateEmployee(ctx, CreateEmployeeInput{FullName: name, Email: email, Department: "Ops"}); err != nil {
			t.Fatalf("CreateEmployee returned error: %v", err)
		}
	}

	all, err := svc.ListAllEmployees(ctx)
	if err != nil {
		t.Fatalf("ListAllEmployees returned error: %v", err)
	}
	if len(all) != 3 || all[0].FullName != "Ada Lovelace" || all[2].FullName != "Zed Zulu" {
		t.Fatalf("unexpected order: %+v", all)
	}
}

func TestService_DeleteEmployee(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	tx := &recordingTxManager{}
	svc := NewService(repo, &stubClock{now: time.Now()}, tx, nil)
	ctx := context.Background()

	created, err := svc.CreateEmployee(ctx, CreateEmployeeInput{FullName: "Ada Lovelace", Email: "ada@example.com", Department: "R&D"})
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	if err := svc.DeleteEmployee(ctx, DeleteEmployeeInput{EmployeeID: created.EmployeeID}); err != nil {
		t.Fatalf("DeleteEmployee returned error: %v", err)
	}
	if tx.readWrite != 1 {
		t.Fatalf("expected delete to run in a read-write transaction, got %d", tx.readWrite)
	}
	if err := svc.DeleteEmployee(ctx, DeleteEmployeeInput{EmployeeID: created.EmployeeID}); !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound on second delete, got %v", err)
	}

	next, err := svc.CreateEmployee(ctx, CreateEmployeeInput{FullName: "Grace Hopper", Email: "grace@example.com", Department: "Navy"})
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}
	if next.EmployeeID != "EMP001" {
		t.Fatalf("expected identifier to restart from the remaining maximum, got %s", next.EmployeeID)
	}
}

func TestFormatEmployeeID(t *testing.T) {
	t.Parallel()

	cases := map[int64]string{1: "EMP001", 42: "EMP042", 999: "EMP999", 1000: "EMP1000"}
	for seq, want := range cases {
		if got := FormatEmployeeID(seq); got != want {
			t.Fatalf("FormatEmployeeID(%d) = %s, want %s", seq, got, want)
		}
	}
}
