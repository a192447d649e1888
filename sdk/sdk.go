// SPDX-License-Identifier: MPL-2.0

// Package sdk is imported by entrypoint modules to reach runtime services.
//
// Inside `bv run` the package is provided by the interpreter and bound to the
// current run. When an entrypoint is compiled natively, the package-level
// functions read the same run markers from the process environment.
//
// Asset and queue access only works during a managed run; outside one the
// accessors fail with ErrNotManaged.
package sdk

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/botvelocity/bv/internal/orchestrator"
)

const (
	// EnvManaged is set to "1" for the duration of a managed run.
	EnvManaged = "BV_SDK_RUN"
	// EnvOrchestratorURL carries the resolved control-plane URL, when known.
	EnvOrchestratorURL = "BV_ORCHESTRATOR_URL"
	// EnvAccessToken is the default variable holding the control-plane token.
	EnvAccessToken = "BV_ACCESS_TOKEN"
)

var (
	// ErrNotManaged is returned by guarded accessors outside a managed run.
	ErrNotManaged = errors.New("runtime access requires a managed run; start the entrypoint with 'bv run'")
	// ErrNoOrchestrator is returned when no control-plane URL is configured.
	ErrNoOrchestrator = errors.New("no orchestrator URL configured for this run")
)

// Runtime is one run's view of the runtime services.
type Runtime struct {
	ctx     context.Context
	managed bool
	url     string
	client  orchestrator.Requester
}

// NewRuntime binds a runtime to a run. client may be nil when no control
// plane is reachable.
func NewRuntime(ctx context.Context, managed bool, orchestratorURL string, client orchestrator.Requester) *Runtime {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Runtime{ctx: ctx, managed: managed, url: orchestratorURL, client: client}
}

// FromEnv builds a runtime from process-style environment lookups.
func FromEnv(getenv func(string) string) *Runtime {
	rt := &Runtime{
		ctx:     context.Background(),
		managed: getenv(EnvManaged) == "1",
		url:     getenv(EnvOrchestratorURL),
	}
	if rt.url != "" {
		if c, err := orchestrator.New(orchestrator.Settings{URL: rt.url, Token: getenv(EnvAccessToken)}, nil); err == nil {
			rt.client = c
		}
	}
	return rt
}

// Managed reports whether the entrypoint runs under `bv run`.
func (r *Runtime) Managed() bool { return r.managed }

// OrchestratorURL returns the resolved control-plane URL, or "".
func (r *Runtime) OrchestratorURL() string { return r.url }

func (r *Runtime) requester() (orchestrator.Requester, error) {
	if !r.managed {
		return nil, ErrNotManaged
	}
	if r.client == nil {
		return nil, ErrNoOrchestrator
	}
	return r.client, nil
}

// Asset returns the value of a named asset.
func (r *Runtime) Asset(name string) (any, error) {
	c, err := r.requester()
	if err != nil {
		return nil, err
	}
	return orchestrator.GetAsset(r.ctx, c, name)
}

// Queues lists the queues visible to the run.
func (r *Runtime) Queues() ([]string, error) {
	c, err := r.requester()
	if err != nil {
		return nil, err
	}
	return orchestrator.ListQueues(r.ctx, c)
}

// QueuePut adds payload to queue.
func (r *Runtime) QueuePut(queue string, payload map[string]any) (map[string]any, error) {
	c, err := r.requester()
	if err != nil {
		return nil, err
	}
	return orchestrator.Enqueue(r.ctx, c, queue, payload)
}

// QueueGet takes the next item from queue; nil means the queue is empty.
func (r *Runtime) QueueGet(queue string) (map[string]any, error) {
	c, err := r.requester()
	if err != nil {
		return nil, err
	}
	return orchestrator.Dequeue(r.ctx, c, queue)
}

var defaultRuntime = sync.OnceValue(func() *Runtime { return FromEnv(os.Getenv) })

// Managed reports whether the entrypoint runs under `bv run`.
func Managed() bool { return defaultRuntime().Managed() }

// OrchestratorURL returns the resolved control-plane URL, or "".
func OrchestratorURL() string { return defaultRuntime().OrchestratorURL() }

// Asset returns the value of a named asset.
func Asset(name string) (any, error) { return defaultRuntime().Asset(name) }

// Queues lists the queues visible to the run.
func Queues() ([]string, error) { return defaultRuntime().Queues() }

// QueuePut adds payload to queue.
func QueuePut(queue string, payload map[string]any) (map[string]any, error) {
	return defaultRuntime().QueuePut(queue, payload)
}

// QueueGet takes the next item from queue; nil means the queue is empty.
func QueueGet(queue string) (map[string]any, error) { return defaultRuntime().QueueGet(queue) }
