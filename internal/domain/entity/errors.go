package entity

import (
	"errors"
	"fmt"
)

var (
	ErrChoiceFailure     = errors.New("choice failure")
	ErrEmptyResponse     = errors.New("empty oracle response")
	ErrMalformedResponse = errors.New("malformed oracle response")
)

// FatalError marks failures outside the loop's control surface: unreachable
// endpoints, rejected credentials, misconfiguration. It ends the run.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func NewFatalError(op string, err error) error {
	return &FatalError{Op: op, Err: err}
}

func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
