// SPDX-License-Identifier: MPL-2.0

package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/botvelocity/bv/internal/fsutil"
	"github.com/botvelocity/bv/internal/invoke"
	"github.com/botvelocity/bv/internal/orchestrator"
	"github.com/botvelocity/bv/pkg/entrypoint"
	"github.com/botvelocity/bv/pkg/project"

	"github.com/tidwall/jsonc"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrNoDefaultEntrypoint is returned by Run when no entry is named and none is marked default.
var ErrNoDefaultEntrypoint = errors.New("No default entrypoint is defined; set one in bvproject.yaml or pass --entry") //nolint:staticcheck // user-facing sentence

// RunOptions configures Run.
type RunOptions struct {
	Descriptor string
	// Entry names the entrypoint; the default one when empty.
	Entry string
	// InputPath is a JSON file whose object is passed to the entrypoint.
	// Empty, or a file holding {} or null, means no input was supplied.
	InputPath string
}

// Run calls an entrypoint in-process. The call sees the managed-run marker
// and the resolved control-plane URL through its own call context; the
// tool's process environment is never modified.
func (s *Service) Run(ctx context.Context, opts RunOptions) (any, error) {
	descriptor, root, err := resolveDescriptor(opts.Descriptor)
	if err != nil {
		return nil, err
	}
	if !fsutil.Exists(descriptor) {
		return nil, &project.ConfigError{
			Path:     descriptor,
			Problems: []string{fmt.Sprintf("Config not found at %s", descriptor)},
			Err:      fs.ErrNotExist,
		}
	}
	reg, err := entrypoint.Open(descriptor)
	if err != nil {
		return nil, err
	}
	cfg := reg.Config()

	var ep project.EntryPoint
	if opts.Entry != "" {
		ep, err = reg.Get(opts.Entry)
	} else {
		ep, err = reg.Default()
		if errors.Is(err, entrypoint.ErrNoDefault) {
			err = ErrNoDefaultEntrypoint
		}
	}
	if err != nil {
		return nil, err
	}

	req := invoke.Request{Mode: ep.Input}
	if opts.InputPath != "" {
		if req.Input, err = LoadInput(opts.InputPath); err != nil {
			return nil, err
		}
		// An empty object, or null, binds like no input at all.
		req.Supplied = len(req.Input) > 0
	}
	if req.Target, err = entrypoint.ParseCommand(ep.Command); err != nil {
		return nil, err
	}

	cc := invoke.CallContext{
		Managed:     true,
		ProjectRoot: root,
		Stdin:       s.stdin,
		Stdout:      s.stdout,
		Stderr:      s.stderr,
	}
	if env := s.environment(root, cfg); env.Exists() {
		cc.GoPath = env.GoPath()
	}
	cc.OrchestratorURL, cc.Requester = s.resolveOrchestrator(cfg)

	s.logger.Debug("running entrypoint", "entry", ep.Name, "target", req.Target, "input", req.Supplied, "orchestrator", cc.OrchestratorURL)
	return s.invoker.Call(ctx, cc, req)
}

// resolveOrchestrator resolves the project's declared control-plane URL,
// falling back to the settings. Failures leave the run without one.
func (s *Service) resolveOrchestrator(cfg *project.Config) (string, orchestrator.Requester) {
	raw := cfg.OrchestratorURL()
	if raw == "" {
		raw = s.settings.Orchestrator.URL
	}
	url, ok := orchestrator.ResolveURL(raw)
	if !ok {
		if raw != "" {
			s.logger.Debug("ignoring unusable orchestrator url", "url", raw)
		}
		return "", nil
	}
	client, err := s.newRequester(url)
	if err != nil {
		s.logger.Debug("orchestrator client unavailable", "url", url, "err", err)
		return url, nil
	}
	return url, client
}

// LoadInput reads a run input file. A leading byte-order mark and JSONC
// comments are tolerated; null becomes an empty object and any other
// non-object value is rejected.
func LoadInput(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &InputError{Path: path, Message: fmt.Sprintf("Unable to read input JSON file '%s'", path), Err: err}
	}
	data = jsonc.ToJSON(bytes.TrimPrefix(data, utf8BOM))

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &InputError{Path: path, Message: fmt.Sprintf("Invalid JSON in '%s'", path), Err: err}
	}
	switch obj := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return obj, nil
	default:
		return nil, &InputError{Path: path, Message: "Input JSON must be an object (mapping)"}
	}
}
