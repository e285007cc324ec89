package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/ogurasousui/hrms-lite/internal/core/employee"
)

// EmployeeHandler は社員台帳の HTTP 実装です。
type EmployeeHandler struct {
	svc    employee.UseCase
	errors *ErrorWriter
}

// NewEmployeeHandler は EmployeeHandler を生成します。
func NewEmployeeHandler(svc employee.UseCase, errs *ErrorWriter) *EmployeeHandler {
	if errs == nil {
		errs = NewErrorWriter(nil, false)
	}
	return &EmployeeHandler{svc: svc, errors: errs}
}

// Register は社員関連のルートを登録します。
func (h *EmployeeHandler) Register(rg *gin.RouterGroup, writeGuard ...gin.HandlerFunc) {
	rg.POST("/employees", append(writeGuard, h.Create)...)
	rg.GET("/employees", h.List)
	rg.GET("/employees/all", h.ListAll)
	rg.GET("/employees/:employee_id", h.Get)
	rg.DELETE("/employees/:employee_id", h.Delete)
}

type createEmployeeRequest struct {
	FullName   string `json:"full_name" binding:"required,min=2,max=100,person_name"`
	Email      string `json:"email" binding:"required,email,max=255"`
	Department string `json:"department" binding:"required,min=2,max=50,department_name"`
}

func (r *createEmployeeRequest) normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Department = strings.TrimSpace(r.Department)
}

type listEmployeesQuery struct {
	Page       *int   `form:"page" binding:"omitempty,min=1"`
	Limit      *int   `form:"limit" binding:"omitempty,min=1,max=100"`
	Search     string `form:"search" binding:"max=100"`
	Department string `form:"department" binding:"max=50"`
}

func (q *listEmployeesQuery) normalize() {
	q.Search = strings.TrimSpace(q.Search)
	q.Department = strings.TrimSpace(q.Department)
}

type employeePath struct {
	EmployeeID string `uri:"employee_id" binding:"required,employee_id"`
}

// Create は社員を登録します。
func (h *EmployeeHandler) Create(c *gin.Context) {
	var req createEmployeeRequest
	if err := decodeJSON(c, &req); err != nil {
		h.errors.WriteValidation(c, err, "Request body must be a JSON object")
		return
	}
	req.normalize()
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		h.errors.WriteValidation(c, err, "Invalid request body")
		return
	}

	created, err := h.svc.CreateEmployee(c.Request.Context(), employee.CreateEmployeeInput{
		FullName:   req.FullName,
		Email:      req.Email,
		Department: req.Department,
	})
	if err != nil {
		message := ""
		if errors.Is(err, employee.ErrEmailAlreadyExists) {
			message = fmt.Sprintf("Employee with email %s already exists", req.Email)
		}
		h.errors.Write(c, "CreateEmployee", err, message)
		return
	}

	c.JSON(http.StatusCreated, toEmployeeResponse(created))
}

// List は社員を作成日時の降順でページングして返します。
func (h *EmployeeHandler) List(c *gin.Context) {
	var q listEmployeesQuery
	if err := binding.MapFormWithTag(&q, c.Request.URL.Query(), "form"); err != nil {
		h.errors.WriteValidation(c, err, "Page and limit must be integers")
		return
	}
	q.normalize()
	if err := binding.Validator.ValidateStruct(&q); err != nil {
		h.errors.WriteValidation(c, err, "Invalid query parameters")
		return
	}

	in := employee.ListEmployeesInput{Search: q.Search, Department: q.Department}
	if q.Page != nil {
		in.Page = *q.Page
	}
	if q.Limit != nil {
		in.Limit = *q.Limit
	}

	result, err := h.svc.ListEmployees(c.Request.Context(), in)
	if err != nil {
		h.errors.Write(c, "ListEmployees", err, "")
		return
	}

	items := make([]employeeResponse, 0, len(result.Employees))
	for _, e := range result.Employees {
		items = append(items, toEmployeeResponse(e))
	}
	c.JSON(http.StatusOK, listEmployeesResponse{
		Employees:  items,
		Total:      result.Total,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalPages: result.TotalPages,
	})
}

// ListAll は全社員の要約を氏名の昇順で返します。
func (h *EmployeeHandler) ListAll(c *gin.Context) {
	summaries, err := h.svc.ListAllEmployees(c.Request.Context())
	if err != nil {
		h.errors.Write(c, "ListAllEmployees", err, "")
		return
	}

	items := make([]employeeSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, employeeSummaryResponse{
			ID:         s.ID,
			EmployeeID: s.EmployeeID,
			FullName:   s.FullName,
			Email:      s.Email,
			Department: s.Department,
		})
	}
	c.JSON(http.StatusOK, allEmployeesResponse{Employees: items, Total: len(items)})
}

// Get は社員を 1 件返します。
func (h *EmployeeHandler) Get(c *gin.Context) {
	var path employeePath
	if err := c.ShouldBindUri(&path); err != nil {
		h.errors.WriteValidation(c, err, "Invalid employee ID")
		return
	}

	found, err := h.svc.GetEmployee(c.Request.Context(), employee.GetEmployeeInput{EmployeeID: path.EmployeeID})
	if err != nil {
		h.errors.Write(c, "GetEmployee", err, notFoundMessage(err, path.EmployeeID))
		return
	}

	c.JSON(http.StatusOK, toEmployeeResponse(found))
}

// Delete は社員を削除します。勤怠記録は残ります。
func (h *EmployeeHandler) Delete(c *gin.Context) {
	var path employeePath
	if err := c.ShouldBindUri(&path); err != nil {
		h.errors.WriteValidation(c, err, "Invalid employee ID")
		return
	}

	if err := h.svc.DeleteEmployee(c.Request.Context(), employee.DeleteEmployeeInput{EmployeeID: path.EmployeeID}); err != nil {
		h.errors.Write(c, "DeleteEmployee", err, notFoundMessage(err, path.EmployeeID))
		return
	}

	c.Status(http.StatusNoContent)
}

func notFoundMessage(err error, employeeID string) string {
	if errors.Is(err, employee.ErrEmployeeNotFound) {
		return fmt.Sprintf("Employee with ID %s not found", employeeID)
	}
	return ""
}
