// SPDX-License-Identifier: MPL-2.0

package invoke

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/botvelocity/bv/pkg/entrypoint"
	"github.com/botvelocity/bv/pkg/project"
)

// InputChecker checks declared input contracts from source. It parses the
// entry package and never evaluates it, so validation runs no user code.
type InputChecker struct{}

var _ entrypoint.InputChecker = InputChecker{}

// CheckInput compares ep.Input with the parameter list of ep's function.
func (InputChecker) CheckInput(root string, ep project.EntryPoint) error {
	target, err := entrypoint.ParseCommand(ep.Command)
	if err != nil {
		return err
	}
	sig, err := DeclaredSignature(root, target)
	if err != nil {
		return err
	}
	return withTarget(CheckContract(sig, ep.Input), target.String())
}

// DeclaredSignature finds target's function among the top-level declarations
// of its package under root. ArgType is left nil.
func DeclaredSignature(root string, target entrypoint.Target) (Signature, error) {
	name := target.String()
	dir := filepath.Join(root, filepath.FromSlash(path.Dir(target.File())))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Signature{}, newError(KindModuleNotFound, name,
			fmt.Sprintf("Cannot import module '%s' from project root '%s'", target.Module, root), err)
	}

	fset := token.NewFileSet()
	for _, e := range entries {
		if e.IsDir() || !isPackageSource(e.Name()) {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, e.Name()), nil, parser.SkipObjectResolution)
		if err != nil {
			return Signature{}, newError(KindModuleLoadFailed, name,
				fmt.Sprintf("Cannot parse module '%s'", target.Module), err)
		}
		for _, decl := range f.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if ok && fn.Recv == nil && fn.Name.Name == target.Function {
				return signatureOfDecl(fn.Type), nil
			}
		}
	}
	return Signature{}, newError(KindFunctionNotFound, name,
		fmt.Sprintf("Function '%s' not found in module '%s'", target.Function, target.Module), nil)
}

func signatureOfDecl(ft *ast.FuncType) Signature {
	var sig Signature
	if ft.Params == nil {
		return sig
	}
	for _, field := range ft.Params.List {
		n := max(len(field.Names), 1)
		sig.Params += n
		if _, ok := field.Type.(*ast.Ellipsis); ok {
			sig.Variadic = true
		}
	}
	sig.Required = sig.Params
	if sig.Variadic {
		sig.Required--
	}
	return sig
}

// isPackageSource mirrors the interpreter's file selection: Go files that
// are not tests and do not start with '_' or '.'.
func isPackageSource(name string) bool {
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go") &&
		!strings.HasPrefix(name, "_") && !strings.HasPrefix(name, ".")
}
