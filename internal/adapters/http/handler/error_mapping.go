package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/hrms-lite/internal/adapters/http/validation"
	"github.com/ogurasousui/hrms-lite/internal/core/attendance"
	"github.com/ogurasousui/hrms-lite/internal/core/employee"
	"go.uber.org/zap"
)

// エラー応答の error 欄に入る種別です。
const (
	KindValidation = "ValidationError"
	KindNotFound   = "NotFoundError"
	KindDuplicate  = "DuplicateError"
	KindConflict   = "ConflictError"
	KindInternal   = "InternalServerError"
)

const internalMessage = "An unexpected error occurred"

// ErrorResponse はエラー応答の本文です。
type ErrorResponse struct {
	Error   string                  `json:"error"`
	Message string                  `json:"message"`
	Details []validation.FieldError `json:"details,omitempty"`
}

// ErrorWriter はドメインエラーを HTTP 応答へ変換します。
type ErrorWriter struct {
	logger      *zap.Logger
	development bool
}

// NewErrorWriter は ErrorWriter を生成します。development が true の場合は内部エラーの詳細を応答に含めます。
func NewErrorWriter(logger *zap.Logger, development bool) *ErrorWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorWriter{logger: logger, development: development}
}

// Write は err を分類して応答します。message が空でなければ既定のメッセージを置き換えます。
func (w *ErrorWriter) Write(c *gin.Context, op string, err error, message string) {
	status, kind, defaultMessage := toHTTPError(err)

	if status == http.StatusInternalServerError {
		w.logger.Error("request failed",
			zap.String("op", op),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		message = internalMessage
		if w.development {
			message = err.Error()
		}
	} else if message == "" {
		message = defaultMessage
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: kind, Message: message})
}

// WriteValidation は入力の検証エラーを 400 で応答します。
func (w *ErrorWriter) WriteValidation(c *gin.Context, err error, fallback string) {
	details := validation.Translate(err)
	message := fallback
	if len(details) > 0 {
		message = details[0].Message
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: KindValidation, Message: message, Details: details})
}

func toHTTPError(err error) (int, string, string) {
	switch {
	case errors.Is(err, employee.ErrInvalidEmployeeID), errors.Is(err, attendance.ErrInvalidEmployeeID):
		return http.StatusBadRequest, KindValidation, "Employee ID must be in format EMP001, EMP002, etc."
	case errors.Is(err, employee.ErrInvalidFullName):
		return http.StatusBadRequest, KindValidation, "Full name must be between 2 and 100 characters"
	case errors.Is(err, employee.ErrInvalidEmail):
		return http.StatusBadRequest, KindValidation, "Invalid email format"
	case errors.Is(err, employee.ErrInvalidDepartment):
		return http.StatusBadRequest, KindValidation, "Department must be between 2 and 50 characters"
	case errors.Is(err, employee.ErrInvalidPage):
		return http.StatusBadRequest, KindValidation, "Page must be at least 1"
	case errors.Is(err, employee.ErrInvalidLimit):
		return http.StatusBadRequest, KindValidation, "Limit must be between 1 and 100"
	case errors.Is(err, attendance.ErrInvalidDate):
		return http.StatusBadRequest, KindValidation, "Date must be in YYYY-MM-DD format"
	case errors.Is(err, attendance.ErrFutureDate):
		return http.StatusBadRequest, KindValidation, "Attendance date cannot be in the future"
	case errors.Is(err, attendance.ErrInvalidDateRange):
		return http.StatusBadRequest, KindValidation, "Start date must be before or equal to end date"
	case errors.Is(err, attendance.ErrInvalidStatus):
		return http.StatusBadRequest, KindValidation, `Status must be either "present" or "absent"`
	case errors.Is(err, employee.ErrEmployeeNotFound), errors.Is(err, attendance.ErrEmployeeNotFound):
		return http.StatusNotFound, KindNotFound, "Employee not found"
	case errors.Is(err, attendance.ErrRecordNotFound):
		return http.StatusNotFound, KindNotFound, "Attendance record not found"
	case errors.Is(err, employee.ErrEmailAlreadyExists), errors.Is(err, employee.ErrEmployeeIDAlreadyExists):
		return http.StatusConflict, KindDuplicate, "Employee with this email or ID already exists"
	case errors.Is(err, attendance.ErrAlreadyMarked):
		return http.StatusConflict, KindDuplicate, "Attendance already marked for this employee on this date"
	default:
		return http.StatusInternalServerError, KindInternal, internalMessage
	}
}
