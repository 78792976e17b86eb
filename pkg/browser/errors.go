package browser

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("browser session closed")
	// ErrHostFunctionExists is returned when a host function name is reused.
	ErrHostFunctionExists = errors.New("host function already exposed")
	// ErrInvalidHostFunctionName is returned for names that are not plain JS identifiers.
	ErrInvalidHostFunctionName = errors.New("invalid host function name")
)

// NavigationError reports a page load that failed or timed out.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate to %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// EvaluationError reports an in-page script that threw, timed out or
// returned something that could not be decoded.
type EvaluationError struct {
	Err error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate script: %v", e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
