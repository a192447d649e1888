// SPDX-License-Identifier: MPL-2.0

package sdk

import (
	"context"
	"errors"
	"testing"

	"github.com/botvelocity/bv/internal/orchestrator"
)

type recordingRequester struct {
	paths []string
}

func (r *recordingRequester) Request(_ context.Context, method, path string, _ map[string]string, _ any) (*orchestrator.Response, error) {
	r.paths = append(r.paths, method+" "+path)
	return &orchestrator.Response{Status: 200, Data: map[string]any{"value": "secret-value"}}, nil
}

func TestRuntime_GuardsUnmanagedAccess(t *testing.T) {
	t.Parallel()

	req := &recordingRequester{}
	rt := NewRuntime(context.Background(), false, "https://orch.example.com", req)

	if _, err := rt.Asset("db"); !errors.Is(err, ErrNotManaged) {
		t.Errorf("Asset() error = %v, want ErrNotManaged", err)
	}
	if _, err := rt.QueuePut("q", nil); !errors.Is(err, ErrNotManaged) {
		t.Errorf("QueuePut() error = %v, want ErrNotManaged", err)
	}
	if len(req.paths) != 0 {
		t.Errorf("unmanaged runtime sent requests: %v", req.paths)
	}
}

func TestRuntime_ManagedWithoutOrchestrator(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(context.Background(), true, "", nil)
	if !rt.Managed() {
		t.Error("Managed() = false")
	}
	if _, err := rt.Queues(); !errors.Is(err, ErrNoOrchestrator) {
		t.Errorf("Queues() error = %v, want ErrNoOrchestrator", err)
	}
}

func TestRuntime_Asset(t *testing.T) {
	t.Parallel()

	req := &recordingRequester{}
	rt := NewRuntime(context.Background(), true, "https://orch.example.com", req)

	got, err := rt.Asset("db password")
	if err != nil || got != "secret-value" {
		t.Fatalf("Asset() = %v, %v", got, err)
	}
	if len(req.paths) != 1 || req.paths[0] != "GET /api/assets/db%20password" {
		t.Errorf("requests = %v", req.paths)
	}
}

func TestFromEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{EnvManaged: "1", EnvOrchestratorURL: "https://orch.example.com"}
	rt := FromEnv(func(k string) string { return env[k] })
	if !rt.Managed() || rt.OrchestratorURL() != "https://orch.example.com" {
		t.Errorf("FromEnv() = managed %v url %q", rt.Managed(), rt.OrchestratorURL())
	}
	if rt.client == nil {
		t.Error("FromEnv() did not build a client for a valid URL")
	}

	unmanaged := FromEnv(func(string) string { return "" })
	if unmanaged.Managed() {
		t.Error("FromEnv() with empty env reported managed")
	}
}

func TestSymbols(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(context.Background(), true, "u", nil)
	syms := Symbols(rt)[ImportPath+"/sdk"]
	for _, name := range []string{"Managed", "OrchestratorURL", "Asset", "Queues", "QueuePut", "QueueGet"} {
		if !syms[name].IsValid() {
			t.Errorf("symbol %s missing", name)
		}
	}
	if got := syms["Managed"].Call(nil)[0].Bool(); !got {
		t.Error("bound Managed() did not reflect runtime state")
	}
}
