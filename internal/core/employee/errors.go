package employee

import "errors"

var (
	ErrInvalidEmployeeID       = errors.New("employee: invalid employee id")
	ErrInvalidFullName         = errors.New("employee: invalid full name")
	ErrInvalidEmail            = errors.New("employee: invalid email")
	ErrInvalidDepartment       = errors.New("employee: invalid department")
	ErrInvalidPage             = errors.New("employee: invalid page")
	ErrInvalidLimit            = errors.New("employee: invalid limit")
	ErrEmployeeNotFound        = errors.New("employee: not found")
	ErrEmailAlreadyExists      = errors.New("employee: email already exists")
	ErrEmployeeIDAlreadyExists = errors.New("employee: employee id already exists")
)
