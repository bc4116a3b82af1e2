package forecast

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/eduadmin/core/academic"
)

var (
	// ErrServiceUnavailable means the prediction service could not be reached or failed.
	ErrServiceUnavailable = errors.New("forecast service unavailable")
	// ErrInvalidResponse means the prediction service answered something that does not
	// match the prediction schema.
	ErrInvalidResponse = errors.New("invalid forecast response")

	ErrStudentNotFound = errors.New("student not found")
	ErrInFlight        = errors.New("a forecast is already running for this student")
)

// Error is a failed forecast. It matches its Kind with errors.Is.
type Error struct {
	Kind      error
	StudentID academic.ID
	Err       error
}

func (err *Error) Error() string {
	if err.Err == nil {
		return fmt.Sprintf("forecasting student %s: %v", err.StudentID, err.Kind)
	}
	return fmt.Sprintf("forecasting student %s: %v: %v", err.StudentID, err.Kind, err.Err)
}

func (err *Error) Is(target error) bool { return target == err.Kind }
func (err *Error) Unwrap() error        { return err.Err }
