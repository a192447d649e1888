// SPDX-License-Identifier: MPL-2.0

package entrypoint

import (
	"errors"
	"fmt"
	"go/token"
	"path"
	"strings"
)

// ErrInvalidCommand is the sentinel error wrapped by InvalidCommandError.
var ErrInvalidCommand = errors.New("invalid entrypoint command")

type (
	// Target is a parsed "module-path:function-name" command.
	Target struct {
		// Module is the dotted module path, e.g. "handlers.invoice".
		Module string
		// Function is the exported function name inside the module.
		Function string
	}

	// InvalidCommandError is returned when a command string cannot be split
	// into a module path and a function name.
	InvalidCommandError struct {
		Command string
		Reason  string
	}
)

// Error implements the error interface.
func (e *InvalidCommandError) Error() string { return e.Reason }

// Unwrap returns ErrInvalidCommand for errors.Is() compatibility.
func (e *InvalidCommandError) Unwrap() error { return ErrInvalidCommand }

// ParseCommand splits cmd at its first ':' and checks both halves.
func ParseCommand(cmd string) (Target, error) {
	module, function, ok := strings.Cut(cmd, ":")
	if !ok {
		return Target{}, &InvalidCommandError{Command: cmd, Reason: "Entrypoint command must be in 'module:function' format"}
	}
	module = strings.TrimSpace(module)
	function = strings.TrimSpace(function)
	if module == "" || function == "" {
		return Target{}, &InvalidCommandError{Command: cmd, Reason: "Entrypoint command must include both module and function"}
	}
	for _, seg := range strings.Split(module, ".") {
		if !token.IsIdentifier(seg) {
			return Target{}, &InvalidCommandError{Command: cmd, Reason: fmt.Sprintf("invalid module path %q in entrypoint command", module)}
		}
	}
	if !token.IsIdentifier(function) {
		return Target{}, &InvalidCommandError{Command: cmd, Reason: fmt.Sprintf("invalid function name %q in entrypoint command", function)}
	}
	return Target{Module: module, Function: function}, nil
}

// File returns the slash-separated, project-relative source file for the module.
func (t Target) File() string {
	return ModuleFile(t.Module)
}

// String renders the target back to command form.
func (t Target) String() string {
	return t.Module + ":" + t.Function
}

// ModuleFile maps a dotted module path onto its project-relative Go file:
// "handlers.invoice" becomes "handlers/invoice.go".
func ModuleFile(module string) string {
	return path.Join(strings.Split(module, ".")...) + ".go"
}
