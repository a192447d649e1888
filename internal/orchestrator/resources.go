// SPDX-License-Identifier: MPL-2.0

package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GetAsset fetches the value of a named asset.
func GetAsset(ctx context.Context, r Requester, name string) (any, error) {
	resp, err := r.Request(ctx, http.MethodGet, "/api/assets/"+url.PathEscape(name), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get asset %q: %w", name, err)
	}
	if m, ok := resp.Data.(map[string]any); ok {
		if v, ok := m["value"]; ok {
			return v, nil
		}
	}
	return resp.Data, nil
}

// ListQueues returns the queue names visible to the caller.
func ListQueues(ctx context.Context, r Requester) ([]string, error) {
	resp, err := r.Request(ctx, http.MethodGet, "/api/queues", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}
	items, _ := resp.Data.([]any)
	names := make([]string, 0, len(items))
	for _, item := range items {
		switch q := item.(type) {
		case string:
			names = append(names, q)
		case map[string]any:
			if n, ok := q["name"].(string); ok {
				names = append(names, n)
			}
		}
	}
	return names, nil
}

// Enqueue adds a payload to a queue and returns the created item.
func Enqueue(ctx context.Context, r Requester, queue string, payload map[string]any) (map[string]any, error) {
	resp, err := r.Request(ctx, http.MethodPost, "/api/queues/"+url.PathEscape(queue)+"/items", nil, map[string]any{"payload": payload})
	if err != nil {
		return nil, fmt.Errorf("enqueue to %q: %w", queue, err)
	}
	item, _ := resp.Data.(map[string]any)
	return item, nil
}

// Dequeue takes the next item from a queue. It returns nil when the queue is empty.
func Dequeue(ctx context.Context, r Requester, queue string) (map[string]any, error) {
	resp, err := r.Request(ctx, http.MethodPost, "/api/queues/"+url.PathEscape(queue)+"/dequeue", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("dequeue from %q: %w", queue, err)
	}
	if resp.Status == http.StatusNoContent {
		return nil, nil
	}
	item, _ := resp.Data.(map[string]any)
	return item, nil
}
