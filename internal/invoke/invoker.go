// SPDX-License-Identifier: MPL-2.0

// Package invoke loads entry modules in an embedded Go interpreter and calls
// their functions under the argument-binding policy.
package invoke

import (
	"context"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"reflect"

	"github.com/botvelocity/bv/internal/fsutil"
	"github.com/botvelocity/bv/internal/logging"
	"github.com/botvelocity/bv/pkg/entrypoint"
	"github.com/botvelocity/bv/pkg/project"
	"github.com/botvelocity/bv/sdk"

	"github.com/charmbracelet/log"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

type (
	// Request names what to call and with which input.
	Request struct {
		Target entrypoint.Target
		// Mode is the entrypoint's declared input contract.
		Mode project.InputMode
		// Input is the structured payload; ignored unless Supplied.
		Input    map[string]any
		Supplied bool
	}

	// Invoker runs entry modules.
	Invoker struct {
		Logger *log.Logger
	}

	loaded struct {
		fn  reflect.Value
		sig Signature
	}
)

// New returns an Invoker. A nil logger discards output.
func New(logger *log.Logger) *Invoker {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Invoker{Logger: logger}
}

// Call loads req.Target in a fresh interpreter bound to cc and invokes it.
func (iv *Invoker) Call(ctx context.Context, cc CallContext, req Request) (any, error) {
	rt := sdk.NewRuntime(ctx, cc.Managed, cc.OrchestratorURL, cc.Requester)
	l, err := iv.load(ctx, cc, req.Target, rt)
	if err != nil {
		return nil, err
	}
	target := req.Target.String()

	if err := CheckContract(l.sig, req.Mode); err != nil {
		return nil, withTarget(err, target)
	}
	if req.Mode == project.InputNone && req.Supplied {
		return nil, newError(KindNoInputAccepted, target,
			"Entrypoint does not accept input; remove --input or update the function signature", nil)
	}
	b, err := Bind(l.sig, req.Input, req.Supplied)
	if err != nil {
		return nil, withTarget(err, target)
	}

	iv.Logger.Debug("invoking entrypoint", "target", target, "params", l.sig.Params, "with_arg", b.WithArg)
	result, err := callFunc(l.fn, l.sig, b)
	if err != nil {
		return nil, withTarget(err, target)
	}
	return result, nil
}

func (iv *Invoker) load(ctx context.Context, cc CallContext, target entrypoint.Target, rt *sdk.Runtime) (*loaded, error) {
	name := target.String()
	notLoaded := fmt.Sprintf("Cannot import module '%s' from project root '%s'", target.Module, cc.ProjectRoot)
	file := filepath.Join(cc.ProjectRoot, filepath.FromSlash(target.File()))
	if !fsutil.IsFile(file) {
		return nil, newError(KindModuleNotFound, name, notLoaded, os.ErrNotExist)
	}

	stdout, stderr := cc.Stdout, cc.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	stdin := cc.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}

	i := interp.New(interp.Options{
		GoPath:               searchPath,
		SourcecodeFilesystem: newSearchFS(cc.ProjectRoot, cc.GoPath),
		Env:                  cc.Environ(),
		Stdin:                stdin,
		Stdout:               stdout,
		Stderr:               stderr,
	})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, newError(KindModuleLoadFailed, name, "Cannot prepare interpreter", err)
	}
	if err := i.Use(sdk.Symbols(rt)); err != nil {
		return nil, newError(KindModuleLoadFailed, name, "Cannot prepare interpreter", err)
	}

	// The whole package is loaded so sibling files and project packages resolve.
	importPath := packageImportPath(target)
	iv.Logger.Debug("loading entry package", "module", target.Module, "import", importPath, "root", cc.ProjectRoot, "gopath", cc.GoPath)
	if _, err := i.EvalPathWithContext(ctx, importPath); err != nil {
		return nil, newError(KindModuleLoadFailed, name, notLoaded, err)
	}

	v, ok := i.Symbols(importPath)[importPath][target.Function]
	if !ok {
		msg := fmt.Sprintf("Function '%s' not found in module '%s'", target.Function, target.Module)
		if !token.IsExported(target.Function) {
			msg += "; entrypoint functions must be exported"
		}
		return nil, newError(KindFunctionNotFound, name, msg, nil)
	}
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, newError(KindNotCallable, name, fmt.Sprintf("'%s' is not callable", name), nil)
	}
	return &loaded{fn: v, sig: SignatureOf(v.Type())}, nil
}

func withTarget(err error, target string) error {
	if ie, ok := err.(*InvocationError); ok && ie.Target == "" {
		ie.Target = target
	}
	return err
}
