// SPDX-License-Identifier: MPL-2.0

package invoke

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/botvelocity/bv/pkg/project"
)

var (
	errorType = reflect.TypeFor[error]()
	inputType = reflect.TypeFor[map[string]any]()
)

type (
	// Signature is the part of a function type the binding policy looks at.
	// Go parameters are positional and have no defaults, so every parameter
	// except a trailing variadic one is required.
	Signature struct {
		Params   int
		Required int
		Variadic bool
		// ArgType is the type a single structured argument is converted to.
		ArgType reflect.Type
	}

	// Binding is the outcome of the binding policy.
	Binding struct {
		// WithArg reports whether the call passes one argument.
		WithArg bool
		// Arg is the structured argument; {} when no input was supplied.
		Arg map[string]any
	}
)

// SignatureOf introspects a function type.
func SignatureOf(t reflect.Type) Signature {
	sig := Signature{Params: t.NumIn(), Variadic: t.IsVariadic()}
	sig.Required = sig.Params
	if sig.Variadic {
		sig.Required--
	}
	if sig.Params > 0 {
		sig.ArgType = t.In(0)
		if sig.Variadic && sig.Params == 1 {
			sig.ArgType = sig.ArgType.Elem()
		}
	}
	return sig
}

// Bind applies the binding policy. It never splits a payload across several
// required parameters.
func Bind(sig Signature, input map[string]any, supplied bool) (Binding, error) {
	if supplied {
		switch {
		case sig.Params == 0:
			return Binding{}, newError(KindNoInputAccepted, "",
				"Entrypoint does not accept input; remove --input or update the function signature", nil)
		case sig.Required > 1:
			return Binding{}, newError(KindAmbiguousSignature, "",
				"Entrypoint requires multiple positional arguments; expected 0 or 1", nil)
		}
		if input == nil {
			input = map[string]any{}
		}
		return Binding{WithArg: true, Arg: input}, nil
	}

	switch {
	case sig.Params == 0:
		return Binding{}, nil
	case sig.Required <= 1:
		return Binding{WithArg: true, Arg: map[string]any{}}, nil
	default:
		return Binding{}, newError(KindArityMismatch, "",
			"Entrypoint signature must accept 0 args or exactly 1 argument", nil)
	}
}

// CheckContract reports whether sig honors a declared input contract.
// InputUndeclared always passes.
func CheckContract(sig Signature, mode project.InputMode) error {
	switch mode {
	case project.InputNone:
		if sig.Params == 0 || (sig.Params == 1 && sig.Variadic) {
			return nil
		}
		return newError(KindContractMismatch, "",
			fmt.Sprintf("Entrypoint declares input 'none' but its function takes %d parameter(s)", sig.Params), nil)
	case project.InputObject:
		if sig.Params >= 1 && sig.Required <= 1 {
			return nil
		}
		return newError(KindContractMismatch, "",
			fmt.Sprintf("Entrypoint declares input 'object' but its function takes %d parameter(s), %d required", sig.Params, sig.Required), nil)
	}
	return nil
}

// convertArg turns the structured input into a value of type t. Map and
// interface parameters receive the input as is; other types are filled from
// its JSON form.
func convertArg(input map[string]any, t reflect.Type) (reflect.Value, error) {
	if inputType.AssignableTo(t) {
		return reflect.ValueOf(input).Convert(t), nil
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return reflect.Value{}, err
	}
	ptr := reflect.New(t)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}

// callFunc invokes fn under binding b and unpacks its results. A trailing
// non-nil error result is returned as the call error; the first other result
// is the return value.
func callFunc(fn reflect.Value, sig Signature, b Binding) (result any, err error) {
	var args []reflect.Value
	if b.WithArg {
		arg, convErr := convertArg(b.Arg, sig.ArgType)
		if convErr != nil {
			return nil, newError(KindInputConversion, "",
				fmt.Sprintf("Input cannot be converted to %s", sig.ArgType), convErr)
		}
		args = append(args, arg)
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = newError(KindEntrypointFailed, "", "Entrypoint panicked", fmt.Errorf("%v", r))
		}
	}()

	out := fn.Call(args)
	if n := len(out); n > 0 && fn.Type().Out(n-1).Implements(errorType) {
		last := out[n-1]
		if !last.IsNil() {
			callErr, _ := last.Interface().(error)
			return nil, newError(KindEntrypointFailed, "", "Entrypoint returned an error", callErr)
		}
		out = out[:n-1]
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}
