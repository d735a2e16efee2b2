package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = fmt.Errorf("not found")
	ErrConflict        = fmt.Errorf("already exists")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrUnauthorized    = fmt.Errorf("unauthorized")
	ErrCompanyNotFound = fmt.Errorf("Company not found")
)

// StepError marks which persistence step of a contact save failed.
type StepError struct {
	Step string
	Err  error
}

func (s *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", s.Step, s.Err)
}

func (s *StepError) Unwrap() error {
	return s.Err
}

// Step wraps err with the name of the failing step. A nil err stays nil.
func Step(step string, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: step, Err: err}
}

// Cause returns the innermost error of a wrapped chain.
func Cause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
