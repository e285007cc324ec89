package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/hrms-lite/internal/adapters/http/validation"
	"github.com/ogurasousui/hrms-lite/internal/core/attendance"
	"github.com/ogurasousui/hrms-lite/internal/core/employee"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEmployeeUseCase struct {
	createFn  func(ctx context.Context, in employee.CreateEmployeeInput) (*employee.Employee, error)
	getFn     func(ctx context.Context, in employee.GetEmployeeInput) (*employee.Employee, error)
	listFn    func(ctx context.Context, in employee.ListEmployeesInput) (*employee.ListEmployeesResult, error)
	listAllFn func(ctx context.Context) ([]*employee.Summary, error)
	deleteFn  func(ctx context.Context, in employee.DeleteEmployeeInput) error
}

func (f *fakeEmployeeUseCase) CreateEmployee(ctx context.Context, in employee.CreateEmployeeInput) (*employee.Employee, error) {
	return f.createFn(ctx, in)
}

func (f *fakeEmployeeUseCase) GetEmployee(ctx context.Context, in employee.GetEmployeeInput) (*employee.Employee, error) {
	return f.getFn(ctx, in)
}

func (f *fakeEmployeeUseCase) ListEmployees(ctx context.Context, in employee.ListEmployeesInput) (*employee.ListEmployeesResult, error) {
	return f.listFn(ctx, in)
}

func (f *fakeEmployeeUseCase) ListAllEmployees(ctx context.Context) ([]*employee.Summary, error) {
	return f.listAllFn(ctx)
}

func (f *fakeEmployeeUseCase) DeleteEmployee(ctx context.Context, in employee.DeleteEmployeeInput) error {
	return f.deleteFn(ctx, in)
}

type fakeAttendanceUseCase struct {
	markFn          func(ctx context.Context, in attendance.MarkAttendanceInput) (*attendance.Record, error)
	byEmployeeFn    func(ctx context.Context, in attendance.EmployeeAttendanceInput) ([]*attendance.Record, error)
	dailyFn         func(ctx context.Context, in attendance.DailyAttendanceInput) ([]*attendance.Record, error)
	statsFn         func(ctx context.Context, in attendance.StatsInput) (*attendance.Stats, error)
	employeeStatsFn func(ctx context.Context, in attendance.EmployeeAttendanceInput) (*attendance.EmployeeStats, error)
	listFn          func(ctx context.Context, in attendance.StatsInput) ([]*attendance.Record, error)
}

func (f *fakeAttendanceUseCase) MarkAttendance(ctx context.Context, in attendance.MarkAttendanceInput) (*attendance.Record, error) {
	return f.markFn(ctx, in)
}

func (f *fakeAttendanceUseCase) GetEmployeeAttendance(ctx context.Context, in attendance.EmployeeAttendanceInput) ([]*attendance.Record, error) {
	return f.byEmployeeFn(ctx, in)
}

func (f *fakeAttendanceUseCase) GetDailyAttendance(ctx context.Context, in attendance.DailyAttendanceInput) ([]*attendance.Record, error) {
	return f.dailyFn(ctx, in)
}

func (f *fakeAttendanceUseCase) GetAttendanceStats(ctx context.Context, in attendance.StatsInput) (*attendance.Stats, error) {
	return f.statsFn(ctx, in)
}

func (f *fakeAttendanceUseCase) GetEmployeeAttendanceStats(ctx context.Context, in attendance.EmployeeAttendanceInput) (*attendance.EmployeeStats, error) {
	return f.employeeStatsFn(ctx, in)
}

func (f *fakeAttendanceUseCase) ListAttendance(ctx context.Context, in attendance.StatsInput) ([]*attendance.Record, error) {
	return f.listFn(ctx, in)
}

func newTestEngine(t *testing.T, register func(rg *gin.RouterGroup)) *gin.Engine {
	t.Helper()

	require.NoError(t, validation.Setup())
	r := gin.New()
	register(r.Group("/api/v1"))
	return r
}

func doRequest(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return resp
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return resp
}

func strPtr(s string) *string { return &s }
