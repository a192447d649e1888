// SPDX-License-Identifier: MPL-2.0

// Package types holds small value types shared by the CLI and its services.
package types

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// ExitSuccess is the status of a command that completed.
	ExitSuccess ExitCode = 0
	// ExitFailure is the status of a command that reported any error.
	ExitFailure ExitCode = 1
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is a process exit status in the range 0-255.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside 0-255.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside 0-255.
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess reports whether the code means the command completed.
func (c ExitCode) IsSuccess() bool { return c == ExitSuccess }

// String returns the decimal form.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
