package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/ogurasousui/hrms-lite/internal/adapters/report"
	"github.com/ogurasousui/hrms-lite/internal/core/attendance"
	"go.uber.org/zap"
)

// AttendanceHandler は勤怠台帳の HTTP 実装です。
type AttendanceHandler struct {
	svc    attendance.UseCase
	errors *ErrorWriter
	logger *zap.Logger
}

// NewAttendanceHandler は AttendanceHandler を生成します。
func NewAttendanceHandler(svc attendance.UseCase, errs *ErrorWriter, logger *zap.Logger) *AttendanceHandler {
	if errs == nil {
		errs = NewErrorWriter(nil, false)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceHandler{svc: svc, errors: errs, logger: logger}
}

// Register は勤怠関連のルートを登録します。
func (h *AttendanceHandler) Register(rg *gin.RouterGroup, writeGuard ...gin.HandlerFunc) {
	rg.POST("/attendance", append(writeGuard, h.Mark)...)
	rg.GET("/attendance/stats", h.Stats)
	rg.GET("/attendance/export", h.Export)
	rg.GET("/attendance/date/:date", h.Daily)
	rg.GET("/attendance/employee/:employee_id", h.ByEmployee)
	rg.GET("/attendance/employee/:employee_id/stats", h.EmployeeStats)
}

type markAttendanceRequest struct {
	EmployeeID string `json:"employee_id" binding:"required,employee_id"`
	Date       string `json:"date" binding:"required,calendar_date"`
	Status     string `json:"status" binding:"required,oneof=present absent"`
}

func (r *markAttendanceRequest) normalize() {
	r.EmployeeID = strings.TrimSpace(r.EmployeeID)
	r.Date = strings.TrimSpace(r.Date)
	r.Status = strings.TrimSpace(r.Status)
}

type windowQuery struct {
	StartDate string `form:"start_date" binding:"omitempty,calendar_date"`
	EndDate   string `form:"end_date" binding:"omitempty,calendar_date,on_or_after=StartDate"`
}

type datePath struct {
	Date string `uri:"date" binding:"required,calendar_date"`
}

// Mark は勤怠を登録します。
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req markAttendanceRequest
	if err := decodeJSON(c, &req); err != nil {
		h.errors.WriteValidation(c, err, "Request body must be a JSON object")
		return
	}
	req.normalize()
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		h.errors.WriteValidation(c, err, "Invalid request body")
		return
	}

	created, err := h.svc.MarkAttendance(c.Request.Context(), attendance.MarkAttendanceInput{
		EmployeeID: req.EmployeeID,
		Date:       req.Date,
		Status:     req.Status,
	})
	if err != nil {
		message := ""
		switch {
		case errors.Is(err, attendance.ErrEmployeeNotFound):
			message = fmt.Sprintf("Employee with ID %s not found", req.EmployeeID)
		case errors.Is(err, attendance.ErrAlreadyMarked):
			message = fmt.Sprintf("Attendance already marked for employee %s on %s", req.EmployeeID, req.Date)
		}
		h.errors.Write(c, "MarkAttendance", err, message)
		return
	}

	c.JSON(http.StatusCreated, toAttendanceResponse(created))
}

// ByEmployee は社員の勤怠を日付の降順で返します。
func (h *AttendanceHandler) ByEmployee(c *gin.Context) {
	path, window, ok := h.bindEmployeeWindow(c)
	if !ok {
		return
	}

	records, err := h.svc.GetEmployeeAttendance(c.Request.Context(), attendance.EmployeeAttendanceInput{
		EmployeeID: path.EmployeeID,
		StartDate:  window.StartDate,
		EndDate:    window.EndDate,
	})
	if err != nil {
		h.errors.Write(c, "GetEmployeeAttendance", err, employeeNotFoundMessage(err, path.EmployeeID))
		return
	}

	c.JSON(http.StatusOK, toAttendanceListResponse(records))
}

// EmployeeStats は社員単位の勤怠集計を返します。
func (h *AttendanceHandler) EmployeeStats(c *gin.Context) {
	path, window, ok := h.bindEmployeeWindow(c)
	if !ok {
		return
	}

	stats, err := h.svc.GetEmployeeAttendanceStats(c.Request.Context(), attendance.EmployeeAttendanceInput{
		EmployeeID: path.EmployeeID,
		StartDate:  window.StartDate,
		EndDate:    window.EndDate,
	})
	if err != nil {
		h.errors.Write(c, "GetEmployeeAttendanceStats", err, employeeNotFoundMessage(err, path.EmployeeID))
		return
	}

	entries := make([]attendanceEntryResponse, 0, len(stats.Records))
	for _, r := range stats.Records {
		entries = append(entries, attendanceEntryResponse{
			ID:     r.ID,
			Date:   attendance.FormatDay(r.Date),
			Status: string(r.Status),
		})
	}
	c.JSON(http.StatusOK, employeeAttendanceStatsResponse{
		EmployeeID:   stats.EmployeeID,
		EmployeeName: stats.EmployeeName,
		TotalRecords: stats.TotalRecords,
		PresentCount: stats.PresentCount,
		AbsentCount:  stats.AbsentCount,
		Attendance:   entries,
	})
}

// Daily は指定日の勤怠を返します。削除済み社員の記録は employee_name が null になります。
func (h *AttendanceHandler) Daily(c *gin.Context) {
	var path datePath
	if err := c.ShouldBindUri(&path); err != nil {
		h.errors.WriteValidation(c, err, "Date must be in YYYY-MM-DD format")
		return
	}

	records, err := h.svc.GetDailyAttendance(c.Request.Context(), attendance.DailyAttendanceInput{Date: path.Date})
	if err != nil {
		h.errors.Write(c, "GetDailyAttendance", err, "")
		return
	}

	c.JSON(http.StatusOK, toAttendanceListResponse(records))
}

// Stats は期間内の勤怠集計を返します。total_employees は期間に関係なく全社員数です。
func (h *AttendanceHandler) Stats(c *gin.Context) {
	window, ok := h.bindWindow(c)
	if !ok {
		return
	}

	stats, err := h.svc.GetAttendanceStats(c.Request.Context(), attendance.StatsInput{
		StartDate: window.StartDate,
		EndDate:   window.EndDate,
	})
	if err != nil {
		h.errors.Write(c, "GetAttendanceStats", err, "")
		return
	}

	c.JSON(http.StatusOK, attendanceStatsResponse{
		TotalRecords:            stats.TotalRecords,
		PresentCount:            stats.PresentCount,
		AbsentCount:             stats.AbsentCount,
		TotalEmployees:          stats.TotalEmployees,
		EmployeesWithAttendance: stats.EmployeesWithAttendance,
	})
}

// Export は期間内の勤怠を xlsx として返します。
func (h *AttendanceHandler) Export(c *gin.Context) {
	window, ok := h.bindWindow(c)
	if !ok {
		return
	}

	records, err := h.svc.ListAttendance(c.Request.Context(), attendance.StatsInput{
		StartDate: window.StartDate,
		EndDate:   window.EndDate,
	})
	if err != nil {
		h.errors.Write(c, "ListAttendance", err, "")
		return
	}

	buf, filename, err := report.AttendanceWorkbook(records, window.StartDate, window.EndDate)
	if err != nil {
		h.errors.Write(c, "ExportAttendance", err, "")
		return
	}

	h.logger.Info("attendance exported",
		zap.Int("records", len(records)),
		zap.String("filename", filename),
	)

	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, report.ContentType, buf.Bytes())
}

func (h *AttendanceHandler) bindWindow(c *gin.Context) (windowQuery, bool) {
	var q windowQuery
	if err := binding.MapFormWithTag(&q, c.Request.URL.Query(), "form"); err != nil {
		h.errors.WriteValidation(c, err, "Invalid query parameters")
		return windowQuery{}, false
	}
	q.StartDate = strings.TrimSpace(q.StartDate)
	q.EndDate = strings.TrimSpace(q.EndDate)
	if err := binding.Validator.ValidateStruct(&q); err != nil {
		h.errors.WriteValidation(c, err, "Invalid query parameters")
		return windowQuery{}, false
	}
	return q, true
}

func (h *AttendanceHandler) bindEmployeeWindow(c *gin.Context) (employeePath, windowQuery, bool) {
	var path employeePath
	if err := c.ShouldBindUri(&path); err != nil {
		h.errors.WriteValidation(c, err, "Invalid employee ID")
		return employeePath{}, windowQuery{}, false
	}
	window, ok := h.bindWindow(c)
	if !ok {
		return employeePath{}, windowQuery{}, false
	}
	return path, window, true
}

func employeeNotFoundMessage(err error, employeeID string) string {
	if errors.Is(err, attendance.ErrEmployeeNotFound) {
		return fmt.Sprintf("Employee with ID %s not found", employeeID)
	}
	return ""
}
