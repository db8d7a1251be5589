package flow

import (
	"errors"
	"fmt"
)

// ValidationError reports a flow program that must not be dispatched:
// an empty transition list or a value outside its documented range.
// It is always caught before a request leaves this process.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid flow: " + e.Reason
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
