package handler

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/hrms-lite/internal/core/attendance"
	"github.com/ogurasousui/hrms-lite/internal/core/employee"
)

var errEmptyBody = errors.New("request body is empty")

type employeeResponse struct {
	ID         string    `json:"_id"`
	EmployeeID string    `json:"employee_id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
}

type employeeSummaryResponse struct {
	ID         string `json:"_id"`
	EmployeeID string `json:"employee_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

type listEmployeesResponse struct {
	Employees  []employeeResponse `json:"employees"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}

type allEmployeesResponse struct {
	Employees []employeeSummaryResponse `json:"employees"`
	Total     int                       `json:"total"`
}

type attendanceResponse struct {
	ID           string    `json:"_id"`
	EmployeeID   string    `json:"employee_id"`
	EmployeeName *string   `json:"employee_name"`
	Date         string    `json:"date"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type attendanceListResponse struct {
	Attendance []attendanceResponse `json:"attendance"`
	Total      int                  `json:"total"`
}

type attendanceStatsResponse struct {
	TotalRecords            int64 `json:"total_records"`
	PresentCount            int64 `json:"present_count"`
	AbsentCount             int64 `json:"absent_count"`
	TotalEmployees          int64 `json:"total_employees"`
	EmployeesWithAttendance int64 `json:"employees_with_attendance"`
}

type attendanceEntryResponse struct {
	ID     string `json:"_id"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

type employeeAttendanceStatsResponse struct {
	EmployeeID   string                    `json:"employee_id"`
	EmployeeName string                    `json:"employee_name"`
	TotalRecords int64                     `json:"total_records"`
	PresentCount int64                     `json:"present_count"`
	AbsentCount  int64                     `json:"absent_count"`
	Attendance   []attendanceEntryResponse `json:"attendance"`
}

func toEmployeeResponse(e *employee.Employee) employeeResponse {
	return employeeResponse{
		ID:         e.ID,
		EmployeeID: e.EmployeeID,
		FullName:   e.FullName,
		Email:      e.Email,
		Department: e.Department,
		CreatedAt:  e.CreatedAt,
	}
}

func toAttendanceResponse(r *attendance.Record) attendanceResponse {
	return attendanceResponse{
		ID:           r.ID,
		EmployeeID:   r.EmployeeID,
		EmployeeName: r.EmployeeName,
		Date:         attendance.FormatDay(r.Date),
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt,
	}
}

func toAttendanceListResponse(records []*attendance.Record) attendanceListResponse {
	items := make([]attendanceResponse, 0, len(records))
	for _, r := range records {
		items = append(items, toAttendanceResponse(r))
	}
	return attendanceListResponse{Attendance: items, Total: len(items)}
}

// decodeJSON はリクエスト本文を dst へ読み込みます。検証は呼び出し側で正規化後に行います。
func decodeJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil {
		return errEmptyBody
	}
	if err := json.NewDecoder(c.Request.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}
