package domain

import "errors"

// ErrInvalidInput is matched by every validation failure raised by services.
var ErrInvalidInput = errors.New("invalid input")

type validationError struct {
	msg string
}

func (e validationError) Error() string { return e.msg }

func (e validationError) Is(target error) bool { return target == ErrInvalidInput }

// Invalid returns a validation error with a user-facing message.
func Invalid(msg string) error {
	return validationError{msg: msg}
}
