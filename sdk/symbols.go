// SPDX-License-Identifier: MPL-2.0

package sdk

import "reflect"

// ImportPath is the path entrypoint modules import this package by.
const ImportPath = "github.com/botvelocity/bv/sdk"

// Symbols returns the interpreter export table for this package with every
// function bound to rt. The key follows the "importpath/pkgname" convention.
func Symbols(rt *Runtime) map[string]map[string]reflect.Value {
	return map[string]map[string]reflect.Value{
		ImportPath + "/sdk": {
			"Managed":         reflect.ValueOf(rt.Managed),
			"OrchestratorURL": reflect.ValueOf(rt.OrchestratorURL),
			"Asset":           reflect.ValueOf(rt.Asset),
			"Queues":          reflect.ValueOf(rt.Queues),
			"QueuePut":        reflect.ValueOf(rt.QueuePut),
			"QueueGet":        reflect.ValueOf(rt.QueueGet),

			"EnvManaged":         reflect.ValueOf(EnvManaged),
			"EnvOrchestratorURL": reflect.ValueOf(EnvOrchestratorURL),
			"ErrNotManaged":      reflect.ValueOf(&ErrNotManaged).Elem(),
			"ErrNoOrchestrator":  reflect.ValueOf(&ErrNoOrchestrator).Elem(),
		},
	}
}
