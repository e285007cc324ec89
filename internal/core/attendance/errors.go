package attendance

import "errors"

var (
	ErrInvalidEmployeeID = errors.New("attendance: invalid employee id")
	ErrInvalidDate       = errors.New("attendance: invalid date")
	ErrFutureDate        = errors.New("attendance: date is in the future")
	ErrInvalidDateRange  = errors.New("attendance: start date is after end date")
	ErrInvalidStatus     = errors.New("attendance: invalid status")
	ErrEmployeeNotFound  = errors.New("attendance: employee not found")
	ErrAlreadyMarked     = errors.New("attendance: already marked")
	ErrRecordNotFound    = errors.New("attendance: record not found")
)
