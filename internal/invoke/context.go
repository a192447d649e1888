// SPDX-License-Identifier: MPL-2.0

package invoke

import (
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/botvelocity/bv/internal/orchestrator"
	"github.com/botvelocity/bv/sdk"
)

// CallContext is the scope-bound state of one entrypoint call. It replaces
// process-wide markers: the interpreter receives it as its environment
// overlay and it is dropped when the call returns.
type CallContext struct {
	// Managed marks a call made by `bv run`.
	Managed bool
	// OrchestratorURL is the resolved control-plane URL, or "".
	OrchestratorURL string
	// ProjectRoot holds the entry modules and is searched first for imports.
	ProjectRoot string
	// GoPath is the environment workspace; its src tree is searched after
	// the project root.
	GoPath string
	// Env is layered over the tool's environment for the call only.
	Env map[string]string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Requester serves sdk asset and queue calls; may be nil.
	Requester orchestrator.Requester
}

// Environ returns the environment the interpreted code observes: the tool's
// environment, then Env, then the run markers.
func (cc CallContext) Environ() []string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	maps.Copy(env, cc.Env)
	delete(env, sdk.EnvManaged)
	delete(env, sdk.EnvOrchestratorURL)
	if cc.Managed {
		env[sdk.EnvManaged] = "1"
	}
	if cc.OrchestratorURL != "" {
		env[sdk.EnvOrchestratorURL] = cc.OrchestratorURL
	}
	if cc.GoPath != "" {
		env["GOPATH"] = cc.GoPath
	}

	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}
