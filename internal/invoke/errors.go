// SPDX-License-Identifier: MPL-2.0

package invoke

import (
	"errors"
	"fmt"
)

// Kind classifies an invocation failure.
type Kind string

const (
	// KindModuleNotFound means the module file is missing under the project root.
	KindModuleNotFound Kind = "module-not-found"
	// KindModuleLoadFailed means the module could not be interpreted.
	KindModuleLoadFailed Kind = "module-load-failed"
	// KindFunctionNotFound means the module does not define the function.
	KindFunctionNotFound Kind = "function-not-found"
	// KindNotCallable means the named symbol is not a function.
	KindNotCallable Kind = "not-callable"
	// KindNoInputAccepted means input was supplied to a zero-parameter function.
	KindNoInputAccepted Kind = "no-input-accepted"
	// KindAmbiguousSignature means input was supplied to a function with
	// several required parameters.
	KindAmbiguousSignature Kind = "ambiguous-signature"
	// KindArityMismatch means the function cannot be called with 0 or 1 argument.
	KindArityMismatch Kind = "arity-mismatch"
	// KindContractMismatch means the declared input contract disagrees with
	// the function signature.
	KindContractMismatch Kind = "contract-mismatch"
	// KindInputConversion means the input could not be converted to the
	// parameter type.
	KindInputConversion Kind = "input-conversion"
	// KindEntrypointFailed means the function returned an error or panicked.
	KindEntrypointFailed Kind = "entrypoint-failed"
)

// ErrInvocation is the sentinel every *InvocationError matches.
var ErrInvocation = errors.New("invocation failed")

// InvocationError describes why an entrypoint could not be invoked.
type InvocationError struct {
	Kind    Kind
	Target  string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns ErrInvocation and the underlying cause.
func (e *InvocationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvocation}
	}
	return []error{ErrInvocation, e.Err}
}

// IsKind reports whether err is an *InvocationError of kind k.
func IsKind(err error, k Kind) bool {
	var ie *InvocationError
	return errors.As(err, &ie) && ie.Kind == k
}

func newError(k Kind, target, msg string, err error) *InvocationError {
	return &InvocationError{Kind: k, Target: target, Message: msg, Err: err}
}
