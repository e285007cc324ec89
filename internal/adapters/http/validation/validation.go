// Package validation は HTTP 入力の検証タグと、検証エラーを利用者向けメッセージへ変換する処理を提供します。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/ogurasousui/hrms-lite/internal/core/attendance"
)

var (
	employeeIDPattern = regexp.MustCompile(`^EMP\d{3,}$`)
	dayFormatPattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	personNamePattern = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)
	departmentPattern = regexp.MustCompile(`^[a-zA-Z0-9\s&-]+$`)
)

var (
	setupOnce sync.Once
	setupErr  error
)

// FieldError は 1 項目分の検証エラーです。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Setup は gin のバリデータへ独自タグを登録します。何度呼ばれても登録は 1 回だけ行います。
func Setup() error {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			setupErr = errors.New("validation: unexpected validator engine")
			return
		}
		setupErr = Register(v)
	})
	return setupErr
}

// Register は独自タグと JSON / クエリ名ベースの項目名解決を v に登録します。
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(fieldName)

	tags := map[string]validator.Func{
		"employee_id":     matches(employeeIDPattern),
		"calendar_date":   calendarDate,
		"person_name":     matches(personNamePattern),
		"department_name": matches(departmentPattern),
		"on_or_after":     onOrAfter,
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("validation: register %s: %w", tag, err)
		}
	}
	return nil
}

func fieldName(fld reflect.StructField) string {
	for _, key := range []string{"json", "form", "uri"} {
		name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

func matches(pattern *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return pattern.MatchString(fl.Field().String())
	}
}

func calendarDate(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if !dayFormatPattern.MatchString(raw) {
		return false
	}
	_, err := time.Parse(attendance.DayLayout, raw)
	return err == nil
}

// onOrAfter は param で指定した項目の日付以降であることを検証します。どちらかが空か不正な形式なら判定しません。
func onOrAfter(fl validator.FieldLevel) bool {
	other := fl.Parent().FieldByName(fl.Param())
	if !other.IsValid() || other.Kind() != reflect.String {
		return false
	}

	start, err := time.Parse(attendance.DayLayout, other.String())
	if err != nil {
		return true
	}
	end, err := time.Parse(attendance.DayLayout, fl.Field().String())
	if err != nil {
		return true
	}
	return !end.Before(start)
}

// Translate は検証エラーを項目ごとのメッセージへ変換します。ValidationErrors 以外は nil を返します。
func Translate(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	details := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return details
}

var labels = map[string]string{
	"full_name":   "Full name",
	"email":       "Email",
	"department":  "Department",
	"employee_id": "Employee ID",
	"date":        "Date",
	"status":      "Status",
	"page":        "Page",
	"limit":       "Limit",
	"search":      "Search term",
	"start_date":  "Start date",
	"end_date":    "End date",
}

var fixedMessages = map[string]string{
	"full_name|person_name":      "Full name can only contain letters, spaces, hyphens, and apostrophes",
	"department|department_name": "Department contains invalid characters",
	"email|email":                "Invalid email format",
	"status|oneof":               `Status must be either "present" or "absent"`,
	"limit|max":                  "Limit cannot exceed 100",
	"search|max":                 "Search term too long",
	"end_date|on_or_after":       "Start date must be before or equal to end date",
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	if msg, ok := fixedMessages[field+"|"+fe.Tag()]; ok {
		return msg
	}

	label, ok := labels[field]
	if !ok {
		label = field
	}

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "employee_id":
		return "Employee ID must be in format EMP001, EMP002, etc."
	case "calendar_date":
		if raw, ok := fe.Value().(string); ok && dayFormatPattern.MatchString(raw) {
			return "Invalid date"
		}
		return "Date must be in YYYY-MM-DD format"
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return label + " must be at least " + fe.Param() + " characters"
		}
		return label + " must be at least " + fe.Param()
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return label + " must not exceed " + fe.Param() + " characters"
		}
		return label + " must not exceed " + fe.Param()
	case "oneof":
		return label + " must be one of: " + fe.Param()
	default:
		return label + " is invalid"
	}
}
