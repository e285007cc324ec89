package validation

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type employeeBody struct {
	FullName   string `json:"full_name" binding:"required,min=2,max=100,person_name"`
	Email      string `json:"email" binding:"required,email,max=255"`
	Department string `json:"department" binding:"required,min=2,max=50,department_name"`
}

type markBody struct {
	EmployeeID string `json:"employee_id" binding:"required,employee_id"`
	Date       string `json:"date" binding:"required,calendar_date"`
	Status     string `json:"status" binding:"required,oneof=present absent"`
}

type windowQuery struct {
	StartDate string `form:"start_date" binding:"omitempty,calendar_date"`
	EndDate   string `form:"end_date" binding:"omitempty,calendar_date,on_or_after=StartDate"`
}

type pageQuery struct {
	Page  *int `form:"page" binding:"omitempty,min=1"`
	Limit *int `form:"limit" binding:"omitempty,min=1,max=100"`
}

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()

	v := validator.New()
	v.SetTagName("binding")
	require.NoError(t, Register(v))
	return v
}

func intPtr(v int) *int { return &v }

func TestTranslate_EmployeeBody(t *testing.T) {
	t.Parallel()

	v := newValidator(t)

	cases := []struct {
		name    string
		body    employeeBody
		field   string
		message string
	}{
		{
			name:    "name with digits",
			body:    employeeBody{FullName: "R2 D2", Email: "r2@example.com", Department: "Droids"},
			field:   "full_name",
			message: "Full name can only contain letters, spaces, hyphens, and apostrophes",
		},
		{
			name:    "short name",
			body:    employeeBody{FullName: "A", Email: "a@example.com", Department: "Eng"},
			field:   "full_name",
			message: "Full name must be at least 2 characters",
		},
		{
			name:    "bad email",
			body:    employeeBody{FullName: "Ada Lovelace", Email: "ada", Department: "Eng"},
			field:   "email",
			message: "Invalid email format",
		},
		{
			name:    "department symbols",
			body:    employeeBody{FullName: "Ada Lovelace", Email: "ada@example.com", Department: "R&D!"},
			field:   "department",
			message: "Department contains invalid characters",
		},
		{
			name:    "missing department",
			body:    employeeBody{FullName: "Ada Lovelace", Email: "ada@example.com"},
			field:   "department",
			message: "Department is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			details := Translate(v.Struct(tc.body))
			require.Len(t, details, 1)
			assert.Equal(t, tc.field, details[0].Field)
			assert.Equal(t, tc.message, details[0].Message)
		})
	}

	assert.Nil(t, Translate(v.Struct(employeeBody{FullName: "Mary O'Neil-Smith", Email: "mary@example.com", Department: "R&D - Labs"})))
}

func TestTranslate_MarkBody(t *testing.T) {
	t.Parallel()

	v := newValidator(t)

	cases := []struct {
		name    string
		body    markBody
		field   string
		message string
	}{
		{"short id", markBody{EmployeeID: "EMP01", Date: "2024-01-10", Status: "present"}, "employee_id", "Employee ID must be in format EMP001, EMP002, etc."},
		{"lowercase id", markBody{EmployeeID: "emp001", Date: "2024-01-10", Status: "present"}, "employee_id", "Employee ID must be in format EMP001, EMP002, etc."},
		{"slashed date", markBody{EmployeeID: "EMP001", Date: "2024/01/10", Status: "present"}, "date", "Date must be in YYYY-MM-DD format"},
		{"impossible date", markBody{EmployeeID: "EMP001", Date: "2024-02-30", Status: "present"}, "date", "Invalid date"},
		{"unknown status", markBody{EmployeeID: "EMP001", Date: "2024-01-10", Status: "late"}, "status", `Status must be either "present" or "absent"`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			details := Translate(v.Struct(tc.body))
			require.Len(t, details, 1)
			assert.Equal(t, tc.field, details[0].Field)
			assert.Equal(t, tc.message, details[0].Message)
		})
	}

	assert.Nil(t, Translate(v.Struct(markBody{EmployeeID: "EMP1234", Date: "2024-02-29", Status: "absent"})))
}

func TestTranslate_WindowQuery(t *testing.T) {
	t.Parallel()

	v := newValidator(t)

	details := Translate(v.Struct(windowQuery{StartDate: "2024-01-31", EndDate: "2024-01-01"}))
	require.Len(t, details, 1)
	assert.Equal(t, "end_date", details[0].Field)
	assert.Equal(t, "Start date must be before or equal to end date", details[0].Message)

	assert.Nil(t, Translate(v.Struct(windowQuery{StartDate: "2024-01-01", EndDate: "2024-01-01"})))
	assert.Nil(t, Translate(v.Struct(windowQuery{EndDate: "2024-01-01"})))
	assert.Nil(t, Translate(v.Struct(windowQuery{StartDate: "2024-01-01"})))

	details = Translate(v.Struct(windowQuery{StartDate: "yesterday", EndDate: "2024-01-01"}))
	require.Len(t, details, 1)
	assert.Equal(t, "start_date", details[0].Field)
}

func TestTranslate_PageQuery(t *testing.T) {
	t.Parallel()

	v := newValidator(t)

	details := Translate(v.Struct(pageQuery{Page: intPtr(0)}))
	require.Len(t, details, 1)
	assert.Equal(t, "Page must be at least 1", details[0].Message)

	details = Translate(v.Struct(pageQuery{Limit: intPtr(101)}))
	require.Len(t, details, 1)
	assert.Equal(t, "Limit cannot exceed 100", details[0].Message)

	assert.Nil(t, Translate(v.Struct(pageQuery{})))
}

func TestTranslate_NonValidationError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Translate(assert.AnError))
	assert.Nil(t, Translate(nil))
}

func TestSetup_RegistersOnGinEngine(t *testing.T) {
	require.NoError(t, Setup())
	require.NoError(t, Setup())

	err := binding.Validator.ValidateStruct(&markBody{EmployeeID: "X", Date: "2024-01-10", Status: "present"})
	details := Translate(err)
	require.Len(t, details, 1)
	assert.Equal(t, "employee_id", details[0].Field)
}
